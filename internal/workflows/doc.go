// Package workflows provides high-level orchestration for medkeys commands.
//
// Workflows coordinate configs, the key manager, the audit log and the field
// cipher to implement complete user-facing features. Each workflow handles a
// single command's business logic, independent of CLI concerns like flag
// parsing, password prompts, spinners, and output formatting.
//
// Key workflows follow the same shape: load config.toml, refuse to run a
// production deployment with encryption switched off, build the Argon2id
// deriver from the [kdf] section, unlock the store with the master password,
// do one thing, and close the manager so the session keys are wiped.
//
// # Available Workflows
//
//   - Init: creates the key store (and config.toml if missing)
//   - Status: rotation state of every data key
//   - Rotate: rotates named keys, or every overdue key
//   - ChangePassword: re-wraps all data keys under a new master password
//   - CreateRecovery, VerifyRecovery: password-wrapped recovery data
//   - CreateShares, VerifyShares: Shamir shares of the master key
//   - EncryptField, DecryptField, HashField: field-level protection
//   - Log: reads and filters the audit log
//   - InitConfig, ShowConfig: configuration file management
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package. Use
// errors.Is to check for specific conditions:
//
//	_, err := workflows.Status(ctx, opts)
//	if errors.Is(err, kerrors.ErrInvalidPassword) {
//	    // Ask again
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// It is checked before any key material is touched; the key operations
// themselves are short and run to completion.
package workflows
