// Package keystore defines the persisted key store and reads and writes it.
//
// The store is a single JSON document holding the master key salt, one
// wrapped data key per Purpose, rotation metadata, and an optional recovery
// verifier. Save replaces the file atomically, so a crash leaves either the
// previous or the new store on disk.
package keystore
