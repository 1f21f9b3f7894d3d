package calib

import (
	"fmt"
	"os"
	"sync"
)

// TrialLog is an append-only diagnostics file shared by concurrent trials
// (goroutine-safe). Each Append is written with a single write call.
type TrialLog struct {
	mu   sync.Mutex
	path string
}

// NewTrialLog truncates (or creates) the file at path and returns a log
// appending to it. An empty path returns a log that discards everything.
func NewTrialLog(path string) (*TrialLog, error) {
	if path == "" {
		return &TrialLog{}, nil
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return nil, fmt.Errorf("initializing trial log %s: %w", path, err)
	}
	return &TrialLog{path: path}, nil
}

// Path returns the file backing the log, or "" when discarding.
func (l *TrialLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes one formatted entry.
func (l *TrialLog) Append(format string, args ...any) error {
	if l == nil || l.path == "" {
		return nil
	}
	entry := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening trial log: %w", err)
	}
	if _, err := f.WriteString(entry); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing trial log: %w", err)
	}
	return f.Close()
}
