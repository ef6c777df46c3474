package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	kerrors "github.com/medeasy/medkeys/internal/errors"
)

// Action classifies an audit event.
type Action string

const (
	Create        Action = "create"
	Read          Action = "read"
	Update        Action = "update"
	Delete        Action = "delete"
	Login         Action = "login"
	Logout        Action = "logout"
	KeyCreation   Action = "key_creation"
	KeyRotation   Action = "key_rotation"
	KeyAccess     Action = "key_access"
	ConfigChange  Action = "config_change"
	SecurityEvent Action = "security_event"
)

// RedactedMessage replaces the message of sensitive events on disk.
const RedactedMessage = "[redacted]"

// TimestampFormat is RFC3339 with microseconds, always UTC.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Sink records audit events. Implementations must be safe for concurrent use.
type Sink interface {
	Log(component, actorID string, action Action, message string, sensitive bool) error
}

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`
	ID        string `json:"id"`
	Component string `json:"component"`
	Actor     string `json:"actor"`
	Action    Action `json:"action"`
	Message   string `json:"message"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// FileSink appends entries to a JSON Lines file.
type FileSink struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewFileSink returns a sink appending to path. The file and its directory
// are created on first write.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path, now: time.Now}
}

// Path returns the path of the log file.
func (s *FileSink) Path() string {
	return s.path
}

// Log appends one entry. Sensitive messages are replaced by RedactedMessage.
func (s *FileSink) Log(component, actorID string, action Action, message string, sensitive bool) error {
	entry := Entry{
		Timestamp: s.now().UTC().Format(TimestampFormat),
		ID:        uuid.NewString(),
		Component: component,
		Actor:     actorID,
		Action:    action,
		Message:   message,
		Sensitive: sensitive,
	}
	if sensitive {
		entry.Message = RedactedMessage
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrLogging, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrLogging, err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrLogging, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %w", kerrors.ErrLogging, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", kerrors.ErrLogging, err)
	}
	return nil
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Skip malformed entries.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// MemorySink keeps entries in memory. Hosts embedding the key manager
// without a log file use it, as do tests.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// Log records the entry. Sensitive messages are redacted as in FileSink.
func (s *MemorySink) Log(component, actorID string, action Action, message string, sensitive bool) error {
	if sensitive {
		message = RedactedMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		Timestamp: time.Now().UTC().Format(TimestampFormat),
		ID:        uuid.NewString(),
		Component: component,
		Actor:     actorID,
		Action:    action,
		Message:   message,
		Sensitive: sensitive,
	})
	return nil
}

// Entries returns a copy of everything logged so far.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}
