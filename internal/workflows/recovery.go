package workflows

import (
	"context"
	"fmt"

	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/secrets"
)

// RecoveryOptions configures the recovery data workflows.
type RecoveryOptions struct {
	SessionOptions

	// RecoveryPassword protects the recovery data. It should differ from
	// the master password.
	RecoveryPassword []byte

	// Data is the encoded recovery data to verify. Unused when creating.
	Data string
}

// RecoveryResult contains freshly created recovery data.
type RecoveryResult struct {
	// Data is the encoded recovery data. It is shown once and never stored
	// by medkeys; only its digest is kept to recognise it later.
	Data string
}

// CreateRecovery wraps the master key under a recovery password. Creating new
// recovery data invalidates the previous one.
func CreateRecovery(ctx context.Context, opts RecoveryOptions) (*RecoveryResult, error) {
	if len(opts.RecoveryPassword) == 0 {
		return nil, fmt.Errorf("%w: recovery password must not be empty", kerrors.ErrRecovery)
	}

	s, err := openSession(ctx, opts.SessionOptions, false)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	data, err := s.manager.CreateRecoveryData(opts.RecoveryPassword)
	if err != nil {
		return nil, err
	}
	return &RecoveryResult{Data: data}, nil
}

// VerifyRecovery checks that Data is the current recovery data and that
// RecoveryPassword opens it.
//
// Returns ErrRecovery if either check fails.
func VerifyRecovery(ctx context.Context, opts RecoveryOptions) error {
	if opts.Data == "" {
		return fmt.Errorf("%w: no recovery data given", kerrors.ErrRecovery)
	}

	s, err := openSession(ctx, opts.SessionOptions, false)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.manager.VerifyRecoveryData(opts.Data, opts.RecoveryPassword)
}

// SharesOptions configures the Shamir share workflows.
type SharesOptions struct {
	SessionOptions

	// Threshold and Count describe a threshold-of-count split.
	Threshold int
	Count     int

	// Shares are the encoded shares to verify. Unused when creating.
	Shares []string
}

// SharesResult contains freshly created shares, encoded for hand-out.
type SharesResult struct {
	Threshold int
	Shares    []string
}

// CreateShares splits the master key into Count shares of which any
// Threshold rebuild it.
//
// Returns ErrRecovery for an invalid threshold or count.
func CreateShares(ctx context.Context, opts SharesOptions) (*SharesResult, error) {
	if err := secrets.ValidateSplit(opts.Threshold, opts.Count); err != nil {
		return nil, err
	}

	s, err := openSession(ctx, opts.SessionOptions, false)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	shares, err := s.manager.CreateShamirShares(opts.Threshold, opts.Count)
	if err != nil {
		return nil, err
	}

	result := &SharesResult{Threshold: opts.Threshold, Shares: make([]string, 0, len(shares))}
	for _, share := range shares {
		encoded, err := share.Encode()
		if err != nil {
			return nil, err
		}
		result.Shares = append(result.Shares, encoded)
	}
	return result, nil
}

// VerifyShares checks that the given shares rebuild the master key.
//
// Returns ErrInvalidShares for malformed shares, ErrNotEnoughShares below the
// threshold and ErrRecovery when they rebuild a different key.
func VerifyShares(ctx context.Context, opts SharesOptions) error {
	shares := make([]secrets.Share, 0, len(opts.Shares))
	for i, encoded := range opts.Shares {
		share, err := secrets.DecodeShare(encoded)
		if err != nil {
			return fmt.Errorf("share %d: %w", i+1, err)
		}
		shares = append(shares, share)
	}

	s, err := openSession(ctx, opts.SessionOptions, false)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.manager.VerifyShares(shares)
}
