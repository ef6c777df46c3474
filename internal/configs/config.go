package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	kerrors "github.com/medeasy/medkeys/internal/errors"
	"github.com/medeasy/medkeys/internal/secrets"
)

const (
	// DefaultRotationIntervalDays is the base rotation interval.
	DefaultRotationIntervalDays = 90

	// MaxRotationIntervalDays is the largest accepted base interval,
	// roughly a century.
	MaxRotationIntervalDays = 36500

	// ProductionEnv and EncryptionEnv override the [security] section.
	ProductionEnv = "MEDKEYS_PRODUCTION"
	EncryptionEnv = "MEDKEYS_ENCRYPTION"
)

type Config struct {
	Installation Installation   `toml:"installation"`
	Keys         KeysConfig     `toml:"keys"`
	Security     SecurityConfig `toml:"security"`
	Audit        AuditConfig    `toml:"audit"`
	KDF          KDFConfig      `toml:"kdf"`
}

type Installation struct {
	ID string `toml:"id"`
}

type KeysConfig struct {
	StorePath            string `toml:"store_path"`
	RotationIntervalDays int    `toml:"rotation_interval_days"`
}

type SecurityConfig struct {
	Production        bool `toml:"production"`
	EncryptionEnabled bool `toml:"encryption_enabled"`
}

type AuditConfig struct {
	LogPath string `toml:"log_path"`
}

type KDFConfig struct {
	MemoryKiB   uint32 `toml:"memory_kib"`
	Iterations  uint32 `toml:"iterations"`
	Parallelism uint8  `toml:"parallelism"`
}

// Default returns the configuration used when no file exists, rooted at the
// resolved data directory.
func Default() *Config {
	return DefaultFor(MedkeysSettings.DataDir)
}

// DefaultFor returns the default configuration with files under dataDir.
func DefaultFor(dataDir string) *Config {
	kdf := secrets.DefaultKDFParams()
	return &Config{
		Keys: KeysConfig{
			StorePath:            filepath.Join(dataDir, "keystore.json"),
			RotationIntervalDays: DefaultRotationIntervalDays,
		},
		Security: SecurityConfig{
			Production:        false,
			EncryptionEnabled: true,
		},
		Audit: AuditConfig{
			LogPath: filepath.Join(dataDir, "audit.jsonl"),
		},
		KDF: KDFConfig{
			MemoryKiB:   kdf.Memory,
			Iterations:  kdf.Iterations,
			Parallelism: kdf.Parallelism,
		},
	}
}

// Load reads the configuration at path on top of the defaults, applies
// environment overrides and validates the result. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(path, config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration to path.
func Save(path string, config *Config) error {
	if err := SaveTOML(path, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// GenerateInstallationID generates a new UUID for this installation.
func GenerateInstallationID() string {
	return uuid.New().String()
}

// ApplyEnv applies MEDKEYS_PRODUCTION and MEDKEYS_ENCRYPTION.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(ProductionEnv); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be a boolean, got %q", kerrors.ErrInvalidConfig, ProductionEnv, v)
		}
		c.Security.Production = b
	}
	if v, ok := os.LookupEnv(EncryptionEnv); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be a boolean, got %q", kerrors.ErrInvalidConfig, EncryptionEnv, v)
		}
		c.Security.EncryptionEnabled = b
	}
	return nil
}

// Validate reports settings the key manager cannot start with.
func (c *Config) Validate() error {
	if c.Keys.StorePath == "" {
		return fmt.Errorf("%w: keys.store_path must be set", kerrors.ErrInvalidConfig)
	}
	if c.Audit.LogPath == "" {
		return fmt.Errorf("%w: audit.log_path must be set", kerrors.ErrInvalidConfig)
	}
	if c.Keys.RotationIntervalDays < 1 {
		return fmt.Errorf("%w: keys.rotation_interval_days must be at least 1, got %d", kerrors.ErrInvalidConfig, c.Keys.RotationIntervalDays)
	}
	if c.Keys.RotationIntervalDays > MaxRotationIntervalDays {
		return fmt.Errorf("%w: keys.rotation_interval_days must be at most %d, got %d", kerrors.ErrInvalidConfig, MaxRotationIntervalDays, c.Keys.RotationIntervalDays)
	}
	if err := c.KDFParams().Validate(); err != nil {
		return err
	}
	if c.Installation.ID != "" {
		if _, err := uuid.Parse(c.Installation.ID); err != nil {
			return fmt.Errorf("%w: installation.id is not a UUID", kerrors.ErrInvalidConfig)
		}
	}
	return nil
}

// RotationIntervalDays returns the base rotation interval.
func (c *Config) RotationIntervalDays() int {
	return c.Keys.RotationIntervalDays
}

// IsProduction reports whether production safeguards apply.
func (c *Config) IsProduction() bool {
	return c.Security.Production
}

// KDFParams returns the Argon2id parameters.
func (c *Config) KDFParams() secrets.KDFParams {
	return secrets.KDFParams{
		Memory:      c.KDF.MemoryKiB,
		Iterations:  c.KDF.Iterations,
		Parallelism: c.KDF.Parallelism,
		KeyLength:   secrets.KeySize,
	}
}
