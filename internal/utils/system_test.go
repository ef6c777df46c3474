package utils

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeActorID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"LowercaseSimple", "Alice", "alice"},
		{"SpacesToHyphens", "Dr Alice", "dr-alice"},
		{"KeepsUserAtHost", "alice@Praxis-01.local", "alice@praxis-01.local"},
		{"RemoveSpecialChars", "al!ce#1", "alce1"},
		{"RemoveConsecutiveHyphens", "a--b", "a-b"},
		{"TrimHyphens", "-alice-", "alice"},
		{"EmptyToDefault", "", "unknown"},
		{"OnlySpecialChars", "#$%", "unknown"},
		{"PreserveUnderscores", "dr_alice", "dr_alice"},
		{"TrimWhitespace", "  alice  ", "alice"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := SanitizeActorID(tc.input)
			if result != tc.expected {
				t.Errorf("SanitizeActorID(%q) = %q, expected %q", tc.input, result, tc.expected)
			}
		})
	}
}

func TestDefaultActorID(t *testing.T) {
	id := DefaultActorID()
	if id == "" {
		t.Fatal("Expected non-empty actor id")
	}
	if id != SanitizeActorID(id) {
		t.Errorf("Expected sanitized actor id, got %q", id)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "store.json")

	if err := WriteFileAtomic(path, []byte("first"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0600); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if !bytes.Equal(data, []byte("second")) {
		t.Errorf("Expected %q, got %q", "second", data)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected temporary files to be cleaned up, found %d entries", len(entries))
	}
}

func TestWriteFileAtomicFailureLeavesTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	if err := os.WriteFile(path, []byte("original"), 0600); err != nil {
		t.Fatalf("Failed to seed file: %v", err)
	}

	// A directory in place of the parent makes the write impossible.
	blocked := filepath.Join(path, "child.json")
	if err := WriteFileAtomic(blocked, []byte("new"), 0600); err == nil {
		t.Fatal("Expected error writing below a regular file")
	}

	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("Expected original content to survive, got %q", data)
	}
}

func TestWriteFileAtomicUnsyncedDirectory(t *testing.T) {
	original := syncDirectory
	syncDirectory = func(dir string) error {
		return errors.New("sync failed")
	}
	defer func() { syncDirectory = original }()

	path := filepath.Join(t.TempDir(), "store.json")
	err := WriteFileAtomic(path, []byte("replaced"), 0600)
	if !errors.Is(err, ErrNotSynced) {
		t.Fatalf("Expected ErrNotSynced, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected the file to be in place: %v", err)
	}
	if string(data) != "replaced" {
		t.Errorf("Expected new content, got %q", data)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")

	exists, err := FileExists(path)
	if err != nil || exists {
		t.Fatalf("Expected missing file, got exists=%v err=%v", exists, err)
	}

	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	exists, err = FileExists(path)
	if err != nil || !exists {
		t.Fatalf("Expected existing file, got exists=%v err=%v", exists, err)
	}
}

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("old\r\nnew\nextra\n"), 2)
	if err != nil {
		t.Fatalf("ReadLines failed: %v", err)
	}
	if len(lines) != 2 || lines[0] != "old" || lines[1] != "new" {
		t.Errorf("Unexpected lines: %q", lines)
	}

	if _, err := ReadLines(strings.NewReader("only one"), 2); err == nil {
		t.Error("Expected error when input has too few lines")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("short"); got != "*****" {
		t.Errorf("MaskSecret(short) = %q", got)
	}
	if got := MaskSecret("abcdefghijklmnop"); got != "abcd********mnop" {
		t.Errorf("MaskSecret(long) = %q", got)
	}
}
