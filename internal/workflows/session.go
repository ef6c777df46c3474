package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/medeasy/medkeys/internal/audit"
	"github.com/medeasy/medkeys/internal/configs"
	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/keys"
	"github.com/medeasy/medkeys/internal/keystore"
	logger "github.com/medeasy/medkeys/internal/logging"
	"github.com/medeasy/medkeys/internal/secrets"
)

// SessionOptions carries what every key workflow needs to unlock the store.
type SessionOptions struct {
	// ConfigPath is the config.toml to load. Empty means the resolved default.
	ConfigPath string

	// Password is the master password. The workflow does not retain it.
	Password []byte

	// Logger receives progress output from the key manager.
	Logger logger.Logger

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// session is an unlocked key manager together with the config it was built
// from. Callers must Close it.
type session struct {
	config  *configs.Config
	manager *keys.Manager
	created bool
}

func (s *session) Close() error {
	return s.manager.Close()
}

// loadConfig resolves the config path and loads it on top of the defaults.
func loadConfig(path string) (*configs.Config, string, error) {
	if path == "" {
		path = configs.MedkeysSettings.ConfigPath
	}
	config, err := configs.Load(path)
	if err != nil {
		return nil, path, err
	}
	return config, path, nil
}

// newManager wires the file audit sink, the configured Argon2id deriver and
// the startup encryption guard into a key manager.
func newManager(config *configs.Config, opts SessionOptions) (*keys.Manager, error) {
	if err := keys.RequireEncryption(config, config.Security.EncryptionEnabled); err != nil {
		return nil, err
	}

	deriver, err := secrets.NewArgon2Deriver(config.KDFParams())
	if err != nil {
		return nil, err
	}

	managerOpts := []keys.Option{
		keys.WithDeriver(deriver),
		keys.WithLogger(opts.Logger),
	}
	if opts.Now != nil {
		managerOpts = append(managerOpts, keys.WithClock(opts.Now))
	}

	return keys.New(config.Keys.StorePath, config, audit.NewFileSink(config.Audit.LogPath), managerOpts...)
}

// openSession unlocks the key store. Unless allowCreate is set, a missing
// store is reported as ErrStoreNotInitialized instead of being created with
// whatever password was typed.
func openSession(ctx context.Context, opts SessionOptions, allowCreate bool) (*session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, _, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if !allowCreate {
		exists, err := keystore.Exists(config.Keys.StorePath)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: no key store at %s", kerrors.ErrStoreNotInitialized, config.Keys.StorePath)
		}
	}

	manager, err := newManager(config, opts)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debugf("Unlocking key store at %s", config.Keys.StorePath)
	created, err := manager.Initialize(opts.Password)
	if err != nil {
		_ = manager.Close()
		return nil, err
	}

	return &session{config: config, manager: manager, created: created}, nil
}
