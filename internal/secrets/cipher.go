package secrets

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"unicode/utf8"

	kerrors "github.com/medeasy/medkeys/internal/errors"
)

// insuranceNumberPattern matches a Swiss AHV number: 756.1234.5678.97.
var insuranceNumberPattern = regexp.MustCompile(`^\d{3}\.\d{4}\.\d{4}\.\d{2}$`)

// FieldCipher encrypts individual field values with AES-256-GCM.
// Output layout is nonce||ciphertext||tag with a fresh random nonce per call,
// so encrypting the same value twice yields different blobs.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher creates a cipher for a 32-byte data encryption key.
func NewFieldCipher(key []byte) (*FieldCipher, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return &FieldCipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh nonce.
func (c *FieldCipher) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+c.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrEncryptFailed, err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// EncryptString seals a string value.
func (c *FieldCipher) EncryptString(value string) ([]byte, error) {
	return c.Encrypt([]byte(value))
}

// Decrypt opens a blob produced by Encrypt. Short input, a wrong key and any
// modification all return ErrDecryptFailed.
func (c *FieldCipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < NonceSize+c.aead.Overhead() {
		return nil, kerrors.ErrDecryptFailed
	}
	plaintext, err := c.aead.Open(nil, blob[:NonceSize], blob[NonceSize:], nil)
	if err != nil {
		return nil, kerrors.ErrDecryptFailed
	}
	return plaintext, nil
}

// DecryptString opens a blob and requires the plaintext to be valid UTF-8.
func (c *FieldCipher) DecryptString(blob []byte) (string, error) {
	plaintext, err := c.Decrypt(blob)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", kerrors.ErrDecryptFailed
	}
	return string(plaintext), nil
}

// Hash returns the SHA-256 hex digest of value. See Hash.
func (c *FieldCipher) Hash(value string) string {
	return Hash(value)
}

// Hash returns the lowercase SHA-256 hex digest of value. It produces stable
// lookup keys for values that must not be stored in clear; it is never used
// to derive keys.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// HashInsuranceNumber validates the XXX.XXXX.XXXX.XX format and hashes the
// number for indexing.
func HashInsuranceNumber(number string) (string, error) {
	if !insuranceNumberPattern.MatchString(number) {
		return "", fmt.Errorf("%w: insurance number must match XXX.XXXX.XXXX.XX", kerrors.ErrInvalidFormat)
	}
	return Hash(number), nil
}
