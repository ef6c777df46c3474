// Package secrets provides the cryptographic primitives of medkeys.
//
// Nothing in this package holds state. Key lifecycle, caching and persistence
// live in the keys and keystore packages; this package only derives, seals
// and splits bytes.
//
// # Encryption Architecture
//
// medkeys uses envelope encryption:
//
//  1. A master key is derived from the user's password with Argon2id
//  2. One random 256-bit data key exists per purpose, wrapped by the master key
//  3. Data keys encrypt individual field values with AES-256-GCM
//
// Rotating a data key or changing the password never re-encrypts the master
// key itself, because the master key is never stored.
//
// # Field Encryption
//
// FieldCipher output is nonce||ciphertext||tag with a random 12-byte nonce
// per call. Encrypting the same value twice yields different output.
// Every decryption failure is reported as ErrDecryptFailed so callers cannot
// tell a wrong key from a tampered value.
//
// # Recovery
//
// WrapRecovery wraps the master key under a second password. Split and
// Combine implement Shamir secret sharing over GF(2^8): any threshold of the
// shares rebuild the master key and fewer reveal nothing about it.
//
// # Security Considerations
//
// Callers own every key slice returned here and should Wipe it when done.
// Hash is for lookup keys only and must never be used to derive keys.
package secrets
