package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/medeasy/medkeys/internal/configs"
	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/utils"
)

// ConfigInitOptions configures the config init workflow.
type ConfigInitOptions struct {
	// Path is where config.toml is written. Empty means the resolved default.
	Path string

	// Force overwrites an existing file.
	Force bool

	// Production enables the production safeguards in the written file.
	Production bool

	// RotationIntervalDays overrides the base interval when positive.
	RotationIntervalDays int
}

// ConfigResult describes a configuration file and its effective values.
type ConfigResult struct {
	Path   string
	Exists bool
	Config *configs.Config
}

// ErrConfigExists is returned by InitConfig when a file is present and
// Force is not set.
var ErrConfigExists = errors.New("config file already exists")

// InitConfig writes a configuration file with the defaults and a fresh
// installation id.
func InitConfig(ctx context.Context, opts ConfigInitOptions) (*ConfigResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := opts.Path
	if path == "" {
		path = configs.MedkeysSettings.ConfigPath
	}

	exists, err := utils.FileExists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	if exists && !opts.Force {
		return nil, fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	config := configs.Default()
	config.Installation.ID = configs.GenerateInstallationID()
	config.Security.Production = opts.Production
	if opts.RotationIntervalDays > 0 {
		config.Keys.RotationIntervalDays = opts.RotationIntervalDays
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if err := configs.Save(path, config); err != nil {
		return nil, err
	}
	return &ConfigResult{Path: path, Exists: true, Config: config}, nil
}

// ShowConfig returns the effective configuration: the file at Path, or the
// defaults when it does not exist, with environment overrides applied.
func ShowConfig(ctx context.Context, path string) (*ConfigResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, path, err := loadConfig(path)
	if err != nil {
		return nil, err
	}

	exists, err := utils.FileExists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrIO, err)
	}
	return &ConfigResult{Path: path, Exists: exists, Config: config}, nil
}
