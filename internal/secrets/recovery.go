package secrets

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	kerrors "github.com/medeasy/medkeys/internal/errors"
)

// RecoveryBlob is the master key wrapped under a key derived from a separate
// recovery password. The caller keeps it; the key store keeps only a digest.
type RecoveryBlob struct {
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WrapRecovery encrypts masterKey under a key derived from password and a
// fresh salt.
func WrapRecovery(deriver KeyDeriver, masterKey, password []byte, now time.Time) (*RecoveryBlob, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrRecovery, err)
	}
	wrapKey, err := deriver.DeriveKey(password, salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrRecovery, err)
	}
	defer Wipe(wrapKey)

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrRecovery, err)
	}
	ct, err := Seal(wrapKey, nonce, masterKey)
	if err != nil {
		return nil, err
	}
	return &RecoveryBlob{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ct,
		CreatedAt:  now.UTC().Round(0),
	}, nil
}

// Encode returns the base64 form handed to the user together with the raw
// JSON the verifier is computed over.
func (b *RecoveryBlob) Encode() (string, []byte, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode recovery data: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), raw, nil
}

// DecodeRecoveryBlob parses the output of Encode and also returns the JSON
// bytes for verifier checks.
func DecodeRecoveryBlob(encoded string) (*RecoveryBlob, []byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: recovery data is not valid base64", kerrors.ErrRecovery)
	}
	var b RecoveryBlob
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, nil, fmt.Errorf("%w: recovery data is not valid JSON", kerrors.ErrRecovery)
	}
	if len(b.Salt) != SaltSize || len(b.Nonce) != NonceSize || len(b.Ciphertext) != KeySize+TagSize {
		return nil, nil, fmt.Errorf("%w: recovery data is malformed", kerrors.ErrRecovery)
	}
	return &b, raw, nil
}

// UnwrapRecovery returns the master key inside blob. A wrong password returns
// ErrDecryptFailed.
func UnwrapRecovery(deriver KeyDeriver, b *RecoveryBlob, password []byte) ([]byte, error) {
	wrapKey, err := deriver.DeriveKey(password, b.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrRecovery, err)
	}
	defer Wipe(wrapKey)
	return Open(wrapKey, b.Nonce, b.Ciphertext)
}

// RecoveryVerifier is the SHA-256 digest of the blob JSON stored alongside
// the keys.
func RecoveryVerifier(blobJSON []byte) []byte {
	sum := sha256.Sum256(blobJSON)
	return sum[:]
}

// CheckRecoveryVerifier reports whether blobJSON matches a stored verifier.
func CheckRecoveryVerifier(verifier, blobJSON []byte) bool {
	if len(verifier) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(verifier, RecoveryVerifier(blobJSON)) == 1
}
