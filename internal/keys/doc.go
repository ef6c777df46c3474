// Package keys manages the lifecycle of medkeys encryption keys.
//
// A Manager owns one key store file. Initialize derives the master key from
// the user's password and either creates the store (one random data key per
// purpose, each wrapped by the master key) or unlocks an existing one. After
// that, GetKey hands out data keys for field encryption, and the
// administrative operations rotate data keys, change the master password,
// and export recovery material.
//
// # Security Properties
//
//   - The master key is never written to disk; it lives in a memguard
//     enclave for the session and is re-derived on every start.
//   - A wrong password leaves the store file byte-for-byte unchanged.
//   - Every mutation is saved atomically before it becomes visible in
//     memory, so a failed save has no effect.
//   - Every sensitive operation is reported to the audit sink. Audit
//     failures never abort an operation; events are queued and replayed.
//
// # Rotation
//
// Each purpose has a rotation interval derived from the configured base:
// database keys use the base, backup keys a third, and field keys twice the
// base. A key is due soon within seven days of its due date and overdue
// after it.
//
// # Recovery
//
// CreateRecoveryData and CreateShamirShares export the master key for
// custody outside the store. The store keeps only a digest of the recovery
// data, and changing the master password invalidates it.
package keys
