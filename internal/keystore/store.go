package keystore

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/secrets"
)

// WrappedKeySize is the length of every stored ciphertext: a 32-byte data
// key plus the 16-byte GCM tag.
const WrappedKeySize = secrets.KeySize + secrets.TagSize

// KeyRecord is a data key wrapped by the master key.
type KeyRecord struct {
	Nonce      [secrets.NonceSize]byte
	Ciphertext []byte
}

// KeyMetadata tracks the age and rotation state of a data key.
type KeyMetadata struct {
	CreatedAt     time.Time  `json:"createdAt"`
	LastRotatedAt *time.Time `json:"lastRotatedAt,omitempty"`
	RotationDueAt time.Time  `json:"rotationDueAt"`
	Version       int        `json:"version"`
}

// KeyStore is the persisted set of wrapped data keys. The master key itself
// is never part of it; only the salt it is derived with.
type KeyStore struct {
	Salt             [secrets.SaltSize]byte
	KeyRecords       map[Purpose]KeyRecord
	Metadata         map[Purpose]KeyMetadata
	RecoveryVerifier []byte
}

// New returns an empty store for the given salt.
func New(salt [secrets.SaltSize]byte) *KeyStore {
	return &KeyStore{
		Salt:       salt,
		KeyRecords: make(map[Purpose]KeyRecord),
		Metadata:   make(map[Purpose]KeyMetadata),
	}
}

// Clone returns a deep copy. Mutations are applied to a clone and only
// become visible once the clone has been saved.
func (s *KeyStore) Clone() *KeyStore {
	c := New(s.Salt)
	for p, r := range s.KeyRecords {
		c.KeyRecords[p] = KeyRecord{Nonce: r.Nonce, Ciphertext: bytes.Clone(r.Ciphertext)}
	}
	for p, m := range s.Metadata {
		if m.LastRotatedAt != nil {
			t := *m.LastRotatedAt
			m.LastRotatedAt = &t
		}
		c.Metadata[p] = m
	}
	c.RecoveryVerifier = bytes.Clone(s.RecoveryVerifier)
	return c
}

// Purposes returns the purposes that have a record, in DataPurposes order.
func (s *KeyStore) Purposes() []Purpose {
	out := make([]Purpose, 0, len(s.KeyRecords))
	for p := range s.KeyRecords {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks the structural invariants of a store: at least one data
// record, fixed ciphertext length, and exactly one metadata entry with a
// positive version per record.
func (s *KeyStore) Validate() error {
	if len(s.KeyRecords) == 0 {
		return fmt.Errorf("%w: no key records", kerrors.ErrCorruptStore)
	}
	for p, r := range s.KeyRecords {
		if !p.IsData() {
			return fmt.Errorf("%w: %s cannot have a stored key", kerrors.ErrCorruptStore, p)
		}
		if len(r.Ciphertext) != WrappedKeySize {
			return fmt.Errorf("%w: %s ciphertext is %d bytes, expected %d", kerrors.ErrCorruptStore, p, len(r.Ciphertext), WrappedKeySize)
		}
		m, ok := s.Metadata[p]
		if !ok {
			return fmt.Errorf("%w: %s has no metadata", kerrors.ErrCorruptStore, p)
		}
		if m.Version < 1 {
			return fmt.Errorf("%w: %s has version %d", kerrors.ErrCorruptStore, p, m.Version)
		}
	}
	for p := range s.Metadata {
		if _, ok := s.KeyRecords[p]; !ok {
			return fmt.Errorf("%w: metadata for %s has no key record", kerrors.ErrCorruptStore, p)
		}
	}
	return nil
}
