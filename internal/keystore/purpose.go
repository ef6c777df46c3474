package keystore

import (
	"fmt"
	"strings"
)

// Purpose names the use a key is dedicated to. The set is closed.
type Purpose int

const (
	// Master is the password-derived key. It is reserved and never stored.
	Master Purpose = iota
	Database
	FieldPatient
	FieldSession
	FieldTranscript
	Backup
)

var purposeNames = [...]string{
	Master:          "Master",
	Database:        "Database",
	FieldPatient:    "FieldPatient",
	FieldSession:    "FieldSession",
	FieldTranscript: "FieldTranscript",
	Backup:          "Backup",
}

// DataPurposes returns every purpose that has a stored data key, in the
// order records are tried when checking a password.
func DataPurposes() []Purpose {
	return []Purpose{Database, FieldPatient, FieldSession, FieldTranscript, Backup}
}

// IsData reports whether p has a stored data key.
func (p Purpose) IsData() bool {
	return p > Master && p <= Backup
}

func (p Purpose) valid() bool {
	return p >= Master && p <= Backup
}

func (p Purpose) String() string {
	if !p.valid() {
		return fmt.Sprintf("Purpose(%d)", int(p))
	}
	return purposeNames[p]
}

// MarshalText encodes the purpose by name so it can key JSON objects.
func (p Purpose) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("unknown key purpose %d", int(p))
	}
	return []byte(purposeNames[p]), nil
}

// UnmarshalText accepts exact purpose names only.
func (p *Purpose) UnmarshalText(text []byte) error {
	for i, name := range purposeNames {
		if string(text) == name {
			*p = Purpose(i)
			return nil
		}
	}
	return fmt.Errorf("unknown key purpose %q", text)
}

// ParsePurpose is the lenient form used for user input: case is ignored and
// hyphens or underscores may separate words, so "field-patient" works.
func ParsePurpose(s string) (Purpose, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.TrimSpace(s))
	for i, name := range purposeNames {
		if strings.EqualFold(norm, name) {
			return Purpose(i), nil
		}
	}
	return 0, fmt.Errorf("unknown key purpose %q", s)
}
