package workflows

import (
	"context"
	"fmt"

	"github.com/medeasy/medkeys/internal/configs"
	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/keys"
	"github.com/medeasy/medkeys/internal/utils"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	SessionOptions
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	// Created is true when a new key store was written. False means an
	// existing store was unlocked with the given password.
	Created bool

	// ConfigCreated is true when no config file existed and the defaults
	// were written.
	ConfigCreated bool

	// ConfigPath, StorePath and AuditLogPath are the files in use.
	ConfigPath   string
	StorePath    string
	AuditLogPath string

	// Keys lists every data key with its rotation state.
	Keys []keys.KeyStatus
}

// Init creates the key store on first use. When the config file does not
// exist yet, the defaults are written first with a fresh installation id.
//
// Running Init against an existing store verifies the password instead of
// overwriting anything. Returns ErrInvalidPassword if it does not match.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = configs.MedkeysSettings.ConfigPath
	}

	configExists, err := utils.FileExists(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	if !configExists {
		config := configs.Default()
		config.Installation.ID = configs.GenerateInstallationID()
		if err := configs.Save(configPath, config); err != nil {
			return nil, err
		}
	}

	opts.ConfigPath = configPath
	s, err := openSession(ctx, opts.SessionOptions, true)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	statuses, err := s.manager.Status()
	if err != nil {
		return nil, err
	}

	return &InitResult{
		Created:       s.created,
		ConfigCreated: !configExists,
		ConfigPath:    configPath,
		StorePath:     s.config.Keys.StorePath,
		AuditLogPath:  s.config.Audit.LogPath,
		Keys:          statuses,
	}, nil
}
