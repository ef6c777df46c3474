// Package configs manages medkeys configuration.
//
// Configuration is stored in TOML format at the user config directory:
//
//   - Linux: ~/.config/medkeys/config.toml
//   - macOS: ~/Library/Application Support/medkeys/config.toml
//
// Setting MEDKEYS_HOME places both the config file and all data files in
// that directory instead.
//
// # Sections
//
//   - [installation]: a UUID identifying this installation
//   - [keys]: key store path and base rotation interval in days
//   - [security]: production mode and the encryption switch
//   - [audit]: audit log path
//   - [kdf]: Argon2id memory, iterations and parallelism
//
// Missing keys fall back to Default(). Unknown keys are rejected.
//
// # Environment
//
// MEDKEYS_PRODUCTION and MEDKEYS_ENCRYPTION override the [security] section
// so a deployment can force production mode without editing the file.
//
// # Settings
//
// MedkeysSettings is initialized at startup with the resolved config and
// data directories.
package configs
