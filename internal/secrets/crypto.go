package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	kerrors "github.com/medeasy/medkeys/internal/errors"
)

const (
	// KeySize is the size of every symmetric key in bytes (AES-256).
	KeySize = 32

	// NonceSize is the size of an AES-GCM nonce in bytes.
	NonceSize = 12

	// TagSize is the size of an AES-GCM authentication tag in bytes.
	TagSize = 16

	// SaltSize is the size of key derivation salts in bytes.
	SaltSize = 32
)

// GenerateKey generates a new random symmetric key.
func GenerateKey() ([]byte, error) {
	return randomBytes(KeySize)
}

// GenerateSalt generates a new random salt for key derivation.
func GenerateSalt() ([]byte, error) {
	return randomBytes(SaltSize)
}

// GenerateNonce generates a new random AES-GCM nonce.
func GenerateNonce() ([]byte, error) {
	return randomBytes(NonceSize)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d bytes", kerrors.ErrInvalidKeyLength, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under key with an explicit nonce and returns
// ciphertext||tag. Callers must never reuse a nonce with the same key.
func Seal(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrEncryptFailed, err)
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce must be %d bytes", kerrors.ErrEncryptFailed, NonceSize)
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts ciphertext||tag produced by Seal.
func Open(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptFailed, err)
	}
	if len(nonce) != NonceSize || len(ciphertext) < TagSize {
		return nil, kerrors.ErrDecryptFailed
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, kerrors.ErrDecryptFailed
	}
	return plaintext, nil
}

// Wipe overwrites b with zeros.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
