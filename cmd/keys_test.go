package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/keystore"
)

func TestKeysInit_CreatesStore(t *testing.T) {
	configPath := setupTestEnvironment(t)

	output, err := runCLI(t, testPassword+"\n", "keys", "init", "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("keys init failed: %v\n%s", err, output)
	}

	if !strings.Contains(output, "Key store created") {
		t.Errorf("Expected creation message, got: %s", output)
	}
	for _, label := range []string{"Datenbank", "Patient", "Session", "Transkript", "Backup"} {
		if !strings.Contains(output, label) {
			t.Errorf("Expected key table to list %s, got: %s", label, output)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(configPath), "keystore.json")); err != nil {
		t.Errorf("Key store file was not created: %v", err)
	}
}

func TestKeysInit_ExistingStore(t *testing.T) {
	configPath := setupTestEnvironment(t)
	initializeStore(t, configPath)

	output, err := runCLI(t, testPassword+"\n", "keys", "init", "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("second keys init failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "already exists") {
		t.Errorf("Expected existing store message, got: %s", output)
	}
}

func TestKeysInit_MissingPassword(t *testing.T) {
	configPath := setupTestEnvironment(t)

	output, err := runCLI(t, "", "keys", "init", "--config", configPath, "--password-stdin")
	if err == nil {
		t.Fatalf("Expected an error without a password, got output: %s", output)
	}
	if !Reported(err) {
		t.Errorf("Expected the error to be reported to the user, got %v", err)
	}
}

func TestKeysStatus(t *testing.T) {
	configPath := setupTestEnvironment(t)
	initializeStore(t, configPath)

	output, err := runCLI(t, testPassword+"\n", "keys", "status", "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("keys status failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "All keys are up to date") {
		t.Errorf("Expected all keys up to date, got: %s", output)
	}
	if !strings.Contains(output, "Aktuell") {
		t.Errorf("Expected German status labels, got: %s", output)
	}
}

func TestKeysStatus_WrongPassword(t *testing.T) {
	configPath := setupTestEnvironment(t)
	initializeStore(t, configPath)

	output, err := runCLI(t, "falsch\n", "keys", "status", "--config", configPath, "--password-stdin")
	if !errors.Is(err, kerrors.ErrInvalidPassword) {
		t.Fatalf("Expected ErrInvalidPassword, got %v", err)
	}
	if !Reported(err) {
		t.Error("Expected the error to be marked as reported")
	}
	if !strings.Contains(output, "The password is incorrect") {
		t.Errorf("Expected password error message, got: %s", output)
	}
}

func TestKeysStatus_NotInitialized(t *testing.T) {
	configPath := setupTestEnvironment(t)

	output, err := runCLI(t, testPassword+"\n", "keys", "status", "--config", configPath, "--password-stdin")
	if !errors.Is(err, kerrors.ErrStoreNotInitialized) {
		t.Fatalf("Expected ErrStoreNotInitialized, got %v", err)
	}
	if !strings.Contains(output, "`medkeys keys init`") {
		t.Errorf("Expected hint to run init, got: %s", output)
	}
}

func TestKeysRotate(t *testing.T) {
	configPath := setupTestEnvironment(t)
	initializeStore(t, configPath)

	output, err := runCLI(t, testPassword+"\n", "keys", "rotate", "database", "field-session", "--force", "--actor", "alice", "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("keys rotate failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Rotated 'Datenbank'") || !strings.Contains(output, "Rotated 'Session'") {
		t.Errorf("Expected both rotations to be reported, got: %s", output)
	}
	if !strings.Contains(output, "v2") {
		t.Errorf("Expected a version 2 key in the table, got: %s", output)
	}
}

func TestKeysRotate_Due(t *testing.T) {
	configPath := setupTestEnvironment(t)
	initializeStore(t, configPath)

	output, err := runCLI(t, testPassword+"\n", "keys", "rotate", "--due", "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("keys rotate --due failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "No keys were due for rotation") {
		t.Errorf("Expected nothing to rotate on a fresh store, got: %s", output)
	}
}

func TestKeysRotate_Arguments(t *testing.T) {
	configPath := setupTestEnvironment(t)

	output, err := runCLI(t, "", "keys", "rotate", "--config", configPath, "--password-stdin")
	if err == nil || !strings.Contains(output, "--due") {
		t.Errorf("Expected a hint about --due, got %v: %s", err, output)
	}

	output, err = runCLI(t, "", "keys", "rotate", "archive", "--config", configPath, "--password-stdin")
	if err == nil || !strings.Contains(output, "unknown key purpose") {
		t.Errorf("Expected an unknown purpose error, got %v: %s", err, output)
	}
}

func TestKeysPasswd(t *testing.T) {
	configPath := setupTestEnvironment(t)
	initializeStore(t, configPath)

	output, err := runCLI(t, testPassword+"\nneues-passwort\n", "keys", "passwd", "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("keys passwd failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Master password changed") {
		t.Errorf("Expected success message, got: %s", output)
	}

	if _, err := runCLI(t, "neues-passwort\n", "keys", "status", "--config", configPath, "--password-stdin"); err != nil {
		t.Errorf("New password should unlock the store: %v", err)
	}
	if _, err := runCLI(t, testPassword+"\n", "keys", "status", "--config", configPath, "--password-stdin"); !errors.Is(err, kerrors.ErrInvalidPassword) {
		t.Errorf("Old password should be rejected, got %v", err)
	}
}

func TestKeysRecovery_CreateAndVerify(t *testing.T) {
	configPath := setupTestEnvironment(t)
	initializeStore(t, configPath)

	output, err := runCLI(t, testPassword+"\nnotfall\n", "keys", "recovery", "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("keys recovery failed: %v\n%s", err, output)
	}
	data := lineAfter(output, "Recovery data created")
	if data == "" {
		t.Fatalf("Could not find recovery data in output: %s", output)
	}

	output, err = runCLI(t, testPassword+"\nnotfall\n", "keys", "verify-recovery", data, "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("keys verify-recovery failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Recovery data is valid") {
		t.Errorf("Expected success message, got: %s", output)
	}

	recoveryPath := filepath.Join(t.TempDir(), "recovery.txt")
	if err := os.WriteFile(recoveryPath, []byte(data+"\n"), 0600); err != nil {
		t.Fatalf("Failed to write recovery file: %v", err)
	}
	_, err = runCLI(t, testPassword+"\nfalsch\n", "keys", "verify-recovery", "--file", recoveryPath, "--config", configPath, "--password-stdin")
	if !errors.Is(err, kerrors.ErrRecovery) {
		t.Errorf("Expected ErrRecovery for a wrong recovery password, got %v", err)
	}
}

func TestKeysShares_CreateAndVerify(t *testing.T) {
	configPath := setupTestEnvironment(t)
	initializeStore(t, configPath)

	output, err := runCLI(t, testPassword+"\n", "keys", "shares", "--threshold", "2", "--count", "3", "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("keys shares failed: %v\n%s", err, output)
	}

	var shares []string
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "(share ") {
			shares = append(shares, strings.TrimSpace(line[strings.Index(line, ")")+1:]))
		}
	}
	if len(shares) != 3 {
		t.Fatalf("Expected 3 shares in output, got %d: %s", len(shares), output)
	}

	output, err = runCLI(t, testPassword+"\n", "keys", "verify-shares", shares[0], shares[2], "--config", configPath, "--password-stdin")
	if err != nil {
		t.Fatalf("keys verify-shares failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "2 shares rebuild the master key") {
		t.Errorf("Expected success message, got: %s", output)
	}

	output, err = runCLI(t, testPassword+"\n", "keys", "verify-shares", shares[1], "--config", configPath, "--password-stdin")
	if !errors.Is(err, kerrors.ErrNotEnoughShares) {
		t.Errorf("Expected ErrNotEnoughShares, got %v: %s", err, output)
	}
}

func TestKeysLog(t *testing.T) {
	configPath := setupTestEnvironment(t)
	initializeStore(t, configPath)

	output, err := runCLI(t, "", "keys", "log", "--config", configPath)
	if err != nil {
		t.Fatalf("keys log failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "create") || !strings.Contains(output, "system") {
		t.Errorf("Expected the creation event by the system actor, got: %s", output)
	}

	output, err = runCLI(t, "", "keys", "log", "--action", "key_rotation", "--config", configPath)
	if err != nil {
		t.Fatalf("keys log failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "No audit log entries found matching the filters") {
		t.Errorf("Expected no rotation entries, got: %s", output)
	}

	_, err = runCLI(t, "", "keys", "log", "--since", "gestern", "--config", configPath)
	if !errors.Is(err, kerrors.ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat, got %v", err)
	}
}

func TestConfirmRotate_LeavesStoppedSpinnerStopped(t *testing.T) {
	setupTestEnvironment(t)

	s, cleanup := startSpinnerWithFlags("Rotating keys...", true, false)
	defer cleanup()

	var confirmed bool
	_, _ = captureOutput(func() error {
		confirmed = confirmRotate(s, []keystore.Purpose{keystore.Database}, strings.NewReader("y\n"))
		return nil
	})
	if !confirmed {
		t.Error("Expected 'y' to confirm the rotation")
	}
	if s.Active() {
		t.Error("Expected the spinner to stay stopped in verbose mode")
	}
}
