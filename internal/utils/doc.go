// Package utils provides shared utility functions for the medkeys application.
//
// # Filesystem Utilities
//
//   - WriteFileAtomic: replaces a file via temp file, fsync and rename;
//     ErrNotSynced marks a replace whose directory sync failed
//   - EnsureDir, FileExists
//
// # System Utilities
//
//   - GetUsername, GetHostname
//   - DefaultActorID: user@host identity recorded in the audit log
//   - SanitizeActorID: normalizes actor ids
//
// # I/O Utilities
//
//   - ReadStdin: reads all data from standard input
//   - ReadLines: reads passwords for --password-stdin
//
// # String Utilities
//
//   - MaskSecret: hides the middle of long secrets in output
//
// # Terminal Utilities
//
//   - ReadPassphrase, ReadNewPassphrase: hidden password prompts
//   - IsTerminal: checks if stdin is a terminal
package utils
