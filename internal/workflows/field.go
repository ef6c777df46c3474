package workflows

import (
	"context"
	"encoding/base64"
	"fmt"

	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/keystore"
	"github.com/medeasy/medkeys/internal/secrets"
)

// FieldOptions configures the field encryption workflows.
type FieldOptions struct {
	SessionOptions

	// Purpose selects the data key. Defaults to the patient field key.
	Purpose keystore.Purpose

	// Value is the plaintext to encrypt, or the base64 ciphertext to decrypt.
	Value string
}

// FieldResult contains the transformed value.
type FieldResult struct {
	Purpose keystore.Purpose
	Value   string
}

// EncryptField seals Value under the data key for Purpose and returns it as
// standard base64 of nonce, ciphertext and tag.
func EncryptField(ctx context.Context, opts FieldOptions) (*FieldResult, error) {
	purpose := fieldPurpose(opts.Purpose)

	var out string
	err := withFieldCipher(ctx, opts.SessionOptions, purpose, func(c *secrets.FieldCipher) error {
		blob, err := c.EncryptString(opts.Value)
		if err != nil {
			return err
		}
		out = base64.StdEncoding.EncodeToString(blob)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &FieldResult{Purpose: purpose, Value: out}, nil
}

// DecryptField opens a value produced by EncryptField.
//
// Returns ErrDecryptFailed for anything that does not authenticate,
// including malformed base64 and values sealed under another key.
func DecryptField(ctx context.Context, opts FieldOptions) (*FieldResult, error) {
	purpose := fieldPurpose(opts.Purpose)

	blob, err := base64.StdEncoding.DecodeString(opts.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: value is not base64", kerrors.ErrDecryptFailed)
	}

	var out string
	err = withFieldCipher(ctx, opts.SessionOptions, purpose, func(c *secrets.FieldCipher) error {
		plain, err := c.DecryptString(blob)
		if err != nil {
			return err
		}
		out = plain
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &FieldResult{Purpose: purpose, Value: out}, nil
}

// HashOptions configures the hash workflow.
type HashOptions struct {
	Value string

	// InsuranceNumber requires Value to be an AHV number (756.1234.5678.97).
	InsuranceNumber bool
}

// HashField returns the SHA-256 hex digest of Value for lookups. It needs no
// key material.
func HashField(ctx context.Context, opts HashOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if opts.InsuranceNumber {
		return secrets.HashInsuranceNumber(opts.Value)
	}
	return secrets.Hash(opts.Value), nil
}

func fieldPurpose(p keystore.Purpose) keystore.Purpose {
	if p == keystore.Master {
		return keystore.FieldPatient
	}
	return p
}

// withFieldCipher unlocks the store, builds a cipher for purpose and wipes
// the data key once fn returns.
func withFieldCipher(ctx context.Context, opts SessionOptions, purpose keystore.Purpose, fn func(*secrets.FieldCipher) error) error {
	s, err := openSession(ctx, opts, false)
	if err != nil {
		return err
	}
	defer s.Close()

	dek, err := s.manager.GetKey(purpose)
	if err != nil {
		return err
	}
	defer secrets.Wipe(dek)

	c, err := secrets.NewFieldCipher(dek)
	if err != nil {
		return err
	}
	return fn(c)
}
