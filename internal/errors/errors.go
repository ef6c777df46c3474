package errors

import "errors"

// Store errors indicate problems reading or writing the persisted key store.
var (
	// ErrIO indicates the key store could not be read or written.
	ErrIO = errors.New("key store i/o failed")

	// ErrCorruptStore indicates the key store document is structurally invalid.
	ErrCorruptStore = errors.New("key store is corrupt")

	// ErrStoreNotInitialized indicates no master key is active for this session.
	ErrStoreNotInitialized = errors.New("key store has not been initialized")

	// ErrManagerClosed indicates the key manager was shut down.
	ErrManagerClosed = errors.New("key manager is closed")
)

// Access errors indicate the caller supplied the wrong secret or asked for a
// key that does not exist. They are kept distinct so a UI can tell a retry
// prompt apart from "nothing to recover".
var (
	// ErrInvalidPassword indicates the password did not unlock the key store.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrKeyNotFound indicates no key record exists for the requested purpose.
	ErrKeyNotFound = errors.New("encryption key not found")
)

// Cryptographic errors indicate failures during encryption or decryption.
var (
	// ErrEncryptFailed indicates sealing a value failed.
	ErrEncryptFailed = errors.New("encryption failed")

	// ErrDecryptFailed indicates a value could not be authenticated or decrypted.
	// Tampering, a wrong key and truncated input all map to this error.
	ErrDecryptFailed = errors.New("decryption failed")

	// ErrInvalidKeyLength indicates a symmetric key has an unexpected length.
	ErrInvalidKeyLength = errors.New("invalid symmetric key length")

	// ErrEncryptionRequired indicates a production deployment tried to run
	// without encryption or with weakened key derivation.
	ErrEncryptionRequired = errors.New("encryption is required in production")
)

// Recovery errors indicate problems with recovery data or secret shares.
var (
	// ErrRecovery indicates invalid recovery parameters or a failed recovery check.
	ErrRecovery = errors.New("recovery failed")

	// ErrNotEnoughShares indicates fewer shares than the threshold were supplied.
	ErrNotEnoughShares = errors.New("not enough shares")

	// ErrInvalidShares indicates the supplied shares are malformed or inconsistent.
	ErrInvalidShares = errors.New("invalid shares")
)

// Collaborator errors.
var (
	// ErrLogging indicates the audit sink could not record an event.
	ErrLogging = errors.New("audit logging failed")

	// ErrInvalidConfig indicates the configuration is malformed.
	ErrInvalidConfig = errors.New("configuration is invalid")

	// ErrInvalidFormat indicates a value failed format validation.
	ErrInvalidFormat = errors.New("invalid value format")
)
