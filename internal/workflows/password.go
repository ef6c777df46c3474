package workflows

import (
	"context"
	"fmt"

	kerrors "github.com/medeasy/medkeys/internal/errors"
)

// PasswordOptions configures the password change workflow. The current
// password goes in SessionOptions.Password.
type PasswordOptions struct {
	SessionOptions

	NewPassword []byte
}

// ChangePassword re-wraps every data key under a key derived from
// NewPassword. Recovery data created before the change no longer verifies
// and must be created again.
//
// Returns ErrInvalidPassword if the current password is wrong.
func ChangePassword(ctx context.Context, opts PasswordOptions) error {
	if len(opts.NewPassword) == 0 {
		return fmt.Errorf("%w: the new password must not be empty", kerrors.ErrInvalidPassword)
	}

	s, err := openSession(ctx, opts.SessionOptions, false)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.manager.ChangeMasterPassword(opts.Password, opts.NewPassword)
}
