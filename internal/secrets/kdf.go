package secrets

import (
	"fmt"

	"golang.org/x/crypto/argon2"

	kerrors "github.com/medeasy/medkeys/internal/errors"
)

// KeyDeriver turns a password and a salt into a symmetric key.
// The same inputs must always produce the same output.
type KeyDeriver interface {
	DeriveKey(password, salt []byte) ([]byte, error)
}

// KDFParams configures Argon2id.
type KDFParams struct {
	// Memory is the memory cost in KiB.
	Memory uint32
	// Iterations is the number of passes over memory.
	Iterations uint32
	// Parallelism is the number of lanes.
	Parallelism uint8
	// KeyLength is the derived key length in bytes.
	KeyLength uint32
}

// DefaultKDFParams returns the production parameters: 64 MiB, 10 passes,
// 4 lanes and a 32-byte key.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Memory:      64 * 1024,
		Iterations:  10,
		Parallelism: 4,
		KeyLength:   KeySize,
	}
}

// Validate reports parameters Argon2id cannot run with.
func (p KDFParams) Validate() error {
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return fmt.Errorf("%w: argon2id memory, iterations and parallelism must be non-zero", kerrors.ErrInvalidConfig)
	}
	if p.KeyLength != KeySize {
		return fmt.Errorf("%w: argon2id key length must be %d bytes, got %d", kerrors.ErrInvalidConfig, KeySize, p.KeyLength)
	}
	if p.Memory < 8*uint32(p.Parallelism) {
		return fmt.Errorf("%w: argon2id memory must be at least 8 KiB per lane", kerrors.ErrInvalidConfig)
	}
	return nil
}

// MeetsPolicy reports whether the parameters are at least as strong as
// DefaultKDFParams. Production deployments refuse anything weaker.
func (p KDFParams) MeetsPolicy() bool {
	d := DefaultKDFParams()
	return p.Memory >= d.Memory &&
		p.Iterations >= d.Iterations &&
		p.Parallelism >= d.Parallelism &&
		p.KeyLength == d.KeyLength
}

// Argon2Deriver implements KeyDeriver with Argon2id.
type Argon2Deriver struct {
	params KDFParams
}

// NewArgon2Deriver validates params and returns a deriver. Invalid
// parameters are a startup error, never a runtime one.
func NewArgon2Deriver(params KDFParams) (*Argon2Deriver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2Deriver{params: params}, nil
}

// Params returns the Argon2id parameters in use.
func (d *Argon2Deriver) Params() KDFParams {
	return d.params
}

// DeriveKey derives a key from password and a SaltSize-byte salt.
func (d *Argon2Deriver) DeriveKey(password, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("invalid salt size: expected %d bytes, got %d bytes", SaltSize, len(salt))
	}
	p := d.params
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength), nil
}
