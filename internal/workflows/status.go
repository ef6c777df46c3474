package workflows

import (
	"context"

	"github.com/medeasy/medkeys/internal/keys"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	SessionOptions
}

// StatusResult contains the outcome of a status operation.
type StatusResult struct {
	// StorePath is the key store that was inspected.
	StorePath string

	// RotationIntervalDays is the configured base interval.
	RotationIntervalDays int

	// Keys lists every data key with its rotation state.
	Keys []keys.KeyStatus

	// Summary counts the keys per rotation state.
	Summary map[keys.RotationStatus]int
}

// Status unlocks the store and reports the rotation state of every data key.
//
// Returns ErrStoreNotInitialized if no key store exists.
// Returns ErrInvalidPassword if the password does not unlock the store.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	s, err := openSession(ctx, opts.SessionOptions, false)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	statuses, err := s.manager.Status()
	if err != nil {
		return nil, err
	}

	summary := make(map[keys.RotationStatus]int)
	for _, st := range statuses {
		summary[st.Status]++
	}

	return &StatusResult{
		StorePath:            s.config.Keys.StorePath,
		RotationIntervalDays: s.config.RotationIntervalDays(),
		Keys:                 statuses,
		Summary:              summary,
	}, nil
}
