package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medeasy/medkeys/internal/audit"
	kerrors "github.com/medeasy/medkeys/internal/errors"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	// ConfigPath is the config.toml naming the audit log. Empty means default.
	ConfigPath string

	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// Actor filters entries by actor id.
	Actor string

	// Actions filters entries by action (comma-separated, e.g. "key_rotation,login").
	Actions string

	// Since filters entries after this date (YYYY-MM-DD format).
	Since string

	// Until filters entries before this date (YYYY-MM-DD format).
	Until string
}

// LogResult contains the outcome of a log operation.
type LogResult struct {
	// Path is the audit log that was read.
	Path string

	// Entries are the filtered audit log entries.
	Entries []audit.Entry

	// TotalEntriesBeforeFilter is the count of entries before filtering.
	TotalEntriesBeforeFilter int
}

// Log reads and filters the audit log. It does not unlock the key store.
//
// Returns ErrInvalidFormat if a date is not YYYY-MM-DD.
func Log(ctx context.Context, opts LogOptions) (*LogResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, _, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logPath := config.Audit.LogPath

	entries, err := audit.ReadEntries(logPath)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	result := &LogResult{
		Path:                     logPath,
		TotalEntriesBeforeFilter: len(entries),
	}

	if len(entries) == 0 {
		result.Entries = entries
		return result, nil
	}

	filtered := entries

	if opts.Actor != "" {
		filtered = filterByActor(filtered, opts.Actor)
	}

	if opts.Actions != "" {
		actions := strings.Split(opts.Actions, ",")
		for i := range actions {
			actions[i] = strings.TrimSpace(actions[i])
		}
		filtered = filterByActions(filtered, actions)
	}

	if opts.Since != "" {
		since, err := time.Parse("2006-01-02", opts.Since)
		if err != nil {
			return nil, fmt.Errorf("%w: --since date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidFormat)
		}
		filtered = filterTime(filtered, func(t time.Time) bool { return !t.Before(since) })
	}

	if opts.Until != "" {
		until, err := time.Parse("2006-01-02", opts.Until)
		if err != nil {
			return nil, fmt.Errorf("%w: --until date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidFormat)
		}
		// Include the entire day.
		until = until.Add(24*time.Hour - time.Nanosecond)
		filtered = filterTime(filtered, func(t time.Time) bool { return !t.After(until) })
	}

	if opts.Reverse {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	// The limit always keeps the most recent entries.
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		if opts.Reverse {
			filtered = filtered[:opts.Limit]
		} else {
			filtered = filtered[len(filtered)-opts.Limit:]
		}
	}

	result.Entries = filtered
	return result, nil
}

func filterByActor(entries []audit.Entry, actor string) []audit.Entry {
	var result []audit.Entry
	for _, e := range entries {
		if strings.EqualFold(e.Actor, actor) {
			result = append(result, e)
		}
	}
	return result
}

func filterByActions(entries []audit.Entry, actions []string) []audit.Entry {
	set := make(map[string]bool)
	for _, a := range actions {
		set[strings.ToLower(a)] = true
	}

	var result []audit.Entry
	for _, e := range entries {
		if set[strings.ToLower(string(e.Action))] {
			result = append(result, e)
		}
	}
	return result
}

// filterTime keeps entries whose timestamp satisfies keep. Entries with an
// unreadable timestamp are dropped.
func filterTime(entries []audit.Entry, keep func(time.Time) bool) []audit.Entry {
	var result []audit.Entry
	for _, e := range entries {
		t, err := parseTimestamp(e.Timestamp)
		if err != nil {
			continue
		}
		if keep(t) {
			result = append(result, e)
		}
	}
	return result
}

func parseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(audit.TimestampFormat, ts)
	if err != nil {
		t, err = time.Parse(time.RFC3339, ts)
	}
	return t, err
}

// FormatDateTime formats a timestamp string to YYYY-MM-DD HH:MM:SS format.
func FormatDateTime(ts string) string {
	t, err := parseTimestamp(ts)
	if err != nil {
		if len(ts) >= 19 {
			return ts[:19]
		}
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}
