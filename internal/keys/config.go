package keys

import (
	"fmt"
	"time"

	"github.com/medeasy/medkeys/internal/audit"
	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/keystore"
	logger "github.com/medeasy/medkeys/internal/logging"
	"github.com/medeasy/medkeys/internal/secrets"
)

// Config is the part of the application configuration the manager reads.
type Config interface {
	RotationIntervalDays() int
	IsProduction() bool
}

// RequireEncryption refuses to run a production deployment with encryption
// switched off. Hosts call it at startup before constructing a Manager.
func RequireEncryption(cfg Config, enabled bool) error {
	if cfg.IsProduction() && !enabled {
		return fmt.Errorf("%w: encryption cannot be disabled in production mode", kerrors.ErrEncryptionRequired)
	}
	return nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithDeriver replaces the default Argon2id deriver.
func WithDeriver(d secrets.KeyDeriver) Option {
	return func(m *Manager) {
		m.deriver = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger. The zero Logger prints warnings only.
// Messages are tagged with Component.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.log = l.Named(Component)
	}
}

// withBestEffort lets tests share the audit wrapper.
func withBestEffort(b *audit.BestEffort) Option {
	return func(m *Manager) {
		m.audit = b
	}
}

// withSaver replaces the persistence function in tests.
func withSaver(save func(path string, s *keystore.KeyStore) error) Option {
	return func(m *Manager) {
		m.save = save
	}
}

// paramsReporter is implemented by derivers that can be checked against the
// production KDF policy.
type paramsReporter interface {
	Params() secrets.KDFParams
}
