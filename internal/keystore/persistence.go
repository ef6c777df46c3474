package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/secrets"
	"github.com/medeasy/medkeys/internal/utils"
)

// document is the on-disk shape. Byte fields are base64 and purposes are
// object keys by name.
type document struct {
	Salt             []byte                  `json:"salt"`
	KeyRecords       map[Purpose]recordDoc   `json:"keyRecords"`
	Metadata         map[Purpose]KeyMetadata `json:"metadata"`
	RecoveryVerifier []byte                  `json:"recoveryVerifier,omitempty"`
}

type recordDoc struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Marshal encodes the store. Timestamps are written in UTC without a
// monotonic reading so that Marshal(Unmarshal(b)) == b.
func Marshal(s *KeyStore) ([]byte, error) {
	doc := document{
		Salt:             s.Salt[:],
		KeyRecords:       make(map[Purpose]recordDoc, len(s.KeyRecords)),
		Metadata:         make(map[Purpose]KeyMetadata, len(s.Metadata)),
		RecoveryVerifier: s.RecoveryVerifier,
	}
	for p, r := range s.KeyRecords {
		doc.KeyRecords[p] = recordDoc{Nonce: r.Nonce[:], Ciphertext: r.Ciphertext}
	}
	for p, m := range s.Metadata {
		doc.Metadata[p] = normalizeMetadata(m)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode key store: %w", err)
	}
	return data, nil
}

// Unmarshal decodes and validates a store document. Any structural problem
// is reported as ErrCorruptStore.
func Unmarshal(data []byte) (*KeyStore, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrCorruptStore, err)
	}
	if len(doc.Salt) != secrets.SaltSize {
		return nil, fmt.Errorf("%w: salt is %d bytes, expected %d", kerrors.ErrCorruptStore, len(doc.Salt), secrets.SaltSize)
	}

	var salt [secrets.SaltSize]byte
	copy(salt[:], doc.Salt)
	s := New(salt)
	for p, r := range doc.KeyRecords {
		if len(r.Nonce) != secrets.NonceSize {
			return nil, fmt.Errorf("%w: %s nonce is %d bytes, expected %d", kerrors.ErrCorruptStore, p, len(r.Nonce), secrets.NonceSize)
		}
		var rec KeyRecord
		copy(rec.Nonce[:], r.Nonce)
		rec.Ciphertext = r.Ciphertext
		s.KeyRecords[p] = rec
	}
	for p, m := range doc.Metadata {
		s.Metadata[p] = normalizeMetadata(m)
	}
	if len(doc.RecoveryVerifier) > 0 {
		s.RecoveryVerifier = doc.RecoveryVerifier
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func normalizeMetadata(m KeyMetadata) KeyMetadata {
	m.CreatedAt = normalizeTime(m.CreatedAt)
	m.RotationDueAt = normalizeTime(m.RotationDueAt)
	if m.LastRotatedAt != nil {
		t := normalizeTime(*m.LastRotatedAt)
		m.LastRotatedAt = &t
	}
	return m
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

// Save writes the store to path atomically with owner-only permissions.
func Save(path string, s *KeyStore) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	return nil
}

// Load reads and validates the store at path. A missing file is ErrIO
// wrapping fs.ErrNotExist.
func Load(path string) (*KeyStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	return Unmarshal(data)
}

// Exists reports whether a store file is present at path.
func Exists(path string) (bool, error) {
	exists, err := utils.FileExists(path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	return exists, nil
}
