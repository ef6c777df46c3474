package secrets

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	kerrors "github.com/medeasy/medkeys/internal/errors"
)

const (
	// MinShareThreshold is the smallest threshold a split accepts.
	MinShareThreshold = 2

	// MaxShares is the largest number of shares a split can produce.
	MaxShares = 255
)

// Share is one point of a Shamir split. Data is opaque to callers: its first
// byte is the split threshold and the rest are the y-values, one per secret
// byte.
type Share struct {
	Index uint8  `json:"index"`
	Data  []byte `json:"data"`
}

// Threshold returns the number of shares needed to rebuild the secret, or 0
// for a malformed share.
func (s Share) Threshold() int {
	if len(s.Data) == 0 {
		return 0
	}
	return int(s.Data[0])
}

// Encode renders the share as base64(JSON) for handing to a custodian.
func (s Share) Encode() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to encode share: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeShare parses a share produced by Share.Encode.
func DecodeShare(encoded string) (Share, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Share{}, fmt.Errorf("%w: share is not valid base64", kerrors.ErrInvalidShares)
	}
	var s Share
	if err := json.Unmarshal(raw, &s); err != nil {
		return Share{}, fmt.Errorf("%w: share is not valid JSON", kerrors.ErrInvalidShares)
	}
	if s.Index == 0 || len(s.Data) < 2 || s.Threshold() < MinShareThreshold {
		return Share{}, fmt.Errorf("%w: share is malformed", kerrors.ErrInvalidShares)
	}
	return s, nil
}

// ValidateSplit checks a threshold/count pair: 2 <= threshold <= count <= 255.
func ValidateSplit(threshold, count int) error {
	if threshold < MinShareThreshold || count > MaxShares || threshold > count {
		return fmt.Errorf("%w: need 2 <= threshold <= count <= 255, got %d of %d", kerrors.ErrRecovery, threshold, count)
	}
	return nil
}

// Split divides secret into count shares so that any threshold of them
// rebuild it and fewer reveal nothing. Each secret byte is the constant term
// of a random polynomial of degree threshold-1; share i holds its value at
// x = i.
func Split(secret []byte, threshold, count int) ([]Share, error) {
	if err := ValidateSplit(threshold, count); err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: cannot split an empty secret", kerrors.ErrRecovery)
	}

	coeffs, err := randomBytes(len(secret) * (threshold - 1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrRecovery, err)
	}
	defer Wipe(coeffs)

	shares := make([]Share, count)
	for i := range shares {
		x := byte(i + 1)
		data := make([]byte, 1+len(secret))
		data[0] = byte(threshold)
		for b := range secret {
			poly := coeffs[b*(threshold-1) : (b+1)*(threshold-1)]
			data[1+b] = evaluate(secret[b], poly, x)
		}
		shares[i] = Share{Index: x, Data: data}
	}
	return shares, nil
}

// evaluate computes c0 + c[0]x + c[1]x^2 + ... with Horner's rule.
func evaluate(c0 byte, higher []byte, x byte) byte {
	var y byte
	for k := len(higher) - 1; k >= 0; k-- {
		y = gfAdd(gfMul(y, x), higher[k])
	}
	return gfAdd(gfMul(y, x), c0)
}

// Combine rebuilds the secret from at least threshold shares.
func Combine(shares []Share) ([]byte, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: no shares supplied", kerrors.ErrNotEnoughShares)
	}

	threshold := shares[0].Threshold()
	size := len(shares[0].Data)
	seen := make(map[uint8]bool, len(shares))
	for _, s := range shares {
		switch {
		case s.Index == 0:
			return nil, fmt.Errorf("%w: share index must not be zero", kerrors.ErrInvalidShares)
		case len(s.Data) < 2:
			return nil, fmt.Errorf("%w: share %d is too short", kerrors.ErrInvalidShares, s.Index)
		case len(s.Data) != size:
			return nil, fmt.Errorf("%w: share %d has a different length", kerrors.ErrInvalidShares, s.Index)
		case s.Threshold() != threshold || threshold < MinShareThreshold:
			return nil, fmt.Errorf("%w: share %d has a different threshold", kerrors.ErrInvalidShares, s.Index)
		case seen[s.Index]:
			return nil, fmt.Errorf("%w: share %d supplied twice", kerrors.ErrInvalidShares, s.Index)
		}
		seen[s.Index] = true
	}

	if len(shares) < threshold {
		return nil, fmt.Errorf("%w: have %d, need %d", kerrors.ErrNotEnoughShares, len(shares), threshold)
	}
	return interpolate(shares[:threshold]), nil
}

// interpolate evaluates the Lagrange polynomial through the given points at
// x = 0. It trusts its input and performs no threshold check.
func interpolate(points []Share) []byte {
	secret := make([]byte, len(points[0].Data)-1)
	for i, pi := range points {
		// basis = prod_{j != i} x_j / (x_j - x_i); subtraction is XOR.
		basis := byte(1)
		for j, pj := range points {
			if i == j {
				continue
			}
			basis = gfMul(basis, gfDiv(pj.Index, gfAdd(pj.Index, pi.Index)))
		}
		for b := range secret {
			secret[b] = gfAdd(secret[b], gfMul(pi.Data[1+b], basis))
		}
	}
	return secret
}
