package workflows

import (
	"context"
	"fmt"

	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/keys"
	"github.com/medeasy/medkeys/internal/keystore"
	"github.com/medeasy/medkeys/internal/utils"
)

// RotateOptions configures the rotate workflow.
type RotateOptions struct {
	SessionOptions

	// Purposes are rotated in order. Ignored when Due is set.
	Purposes []keystore.Purpose

	// Due rotates every overdue key instead of the listed purposes.
	Due bool

	// ActorID is recorded in the audit log. Empty means user@host.
	ActorID string
}

// RotateResult contains the outcome of a rotate operation.
type RotateResult struct {
	// Rotated lists the purposes that received a new key, in order.
	Rotated []keystore.Purpose

	// Keys is the rotation state after the run.
	Keys []keys.KeyStatus
}

// Rotate replaces data keys. Each rotation is durable on its own; if one
// fails, the purposes before it stay rotated and are reported in the result
// alongside the error.
//
// Returns ErrKeyNotFound when asked to rotate the master key.
func Rotate(ctx context.Context, opts RotateOptions) (*RotateResult, error) {
	if !opts.Due && len(opts.Purposes) == 0 {
		return nil, fmt.Errorf("%w: no key purpose given", kerrors.ErrKeyNotFound)
	}
	for _, p := range opts.Purposes {
		if !p.IsData() {
			return nil, fmt.Errorf("%w: %s cannot be rotated", kerrors.ErrKeyNotFound, p)
		}
	}

	s, err := openSession(ctx, opts.SessionOptions, false)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	actor := opts.ActorID
	if actor == "" {
		actor = utils.DefaultActorID()
	}
	actor = utils.SanitizeActorID(actor)

	result := &RotateResult{}
	if opts.Due {
		result.Rotated, err = s.manager.RotateDue(actor)
	} else {
		for _, p := range opts.Purposes {
			if err = ctx.Err(); err != nil {
				break
			}
			opts.Logger.Infof("Rotating %s key", p)
			if err = s.manager.RotateKey(p, actor); err != nil {
				break
			}
			result.Rotated = append(result.Rotated, p)
		}
	}
	if err != nil {
		return result, err
	}

	result.Keys, err = s.manager.Status()
	if err != nil {
		return result, err
	}
	return result, nil
}
