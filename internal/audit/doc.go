// Package audit records security-relevant events of the key manager.
//
// Every key lifecycle operation (store creation, unlock, rotation, password
// change, recovery export) reports to a Sink. The file-backed sink appends
// JSON Lines entries to the configured log path.
//
// # Log Format
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - A UUID identifying the entry
//   - Component and actor id
//   - Action (create, login, key_rotation, security_event, ...)
//   - Message, replaced by "[redacted]" for sensitive events
//
// # Failure Handling
//
// Audit logging is best-effort. Wrap a sink with NewBestEffort: failed
// events are queued and replayed once the sink recovers, followed by a
// security_event entry stating how many events were deferred. Key
// operations never fail just because audit logging failed.
//
// # Reading Logs
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit
