// Package errors provides typed error values for medkeys.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Store errors: persistence and session state (ErrIO, ErrCorruptStore,
//     ErrStoreNotInitialized, ErrManagerClosed)
//   - Access errors: wrong secret or missing key (ErrInvalidPassword,
//     ErrKeyNotFound)
//   - Crypto errors: sealing and opening values (ErrEncryptFailed,
//     ErrDecryptFailed, ErrEncryptionRequired)
//   - Recovery errors: recovery blobs and secret shares (ErrRecovery,
//     ErrNotEnoughShares, ErrInvalidShares)
//   - Collaborator errors: audit sink and configuration (ErrLogging,
//     ErrInvalidConfig)
//
// # Usage
//
// Return errors from internal packages:
//
//	if m.master == nil {
//	    return nil, errors.ErrStoreNotInitialized
//	}
//
// Handle errors in the CLI layer:
//
//	_, err := manager.Initialize(password)
//	if errors.Is(err, kerrors.ErrInvalidPassword) {
//	    // Ask for the password again
//	}
//
// Wrap errors with additional context:
//
//	return fmt.Errorf("loading key for %s: %w", purpose, errors.ErrKeyNotFound)
package errors
