package resultlog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrorLog holds one line per candidate that exhausted its retries. It is
// cleared at the start of every run.
type ErrorLog struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	file *os.File
}

// NewErrorLog creates an error log at path. now defaults to time.Now.
func NewErrorLog(path string, now func() time.Time) *ErrorLog {
	if now == nil {
		now = time.Now
	}
	return &ErrorLog{path: path, now: now}
}

// Path returns the error log location.
func (l *ErrorLog) Path() string { return l.path }

// Reset removes any error log left by a previous run.
func (l *ErrorLog) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove error log %s: %w", l.path, err)
	}
	return nil
}

// Append writes a timestamped failure line for url.
func (l *ErrorLog) Append(url, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		if dir := filepath.Dir(l.path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create error log dir %s: %w", dir, err)
			}
		}
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 -- operator-supplied error path
		if err != nil {
			return fmt.Errorf("open error log %s: %w", l.path, err)
		}
		l.file = f
	}
	if _, err := l.file.WriteString(FormatErrorLine(l.now(), url, msg)); err != nil {
		return fmt.Errorf("append error log %s: %w", l.path, err)
	}
	return nil
}

// Close closes the underlying file if it was opened.
func (l *ErrorLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("close error log %s: %w", l.path, err)
	}
	return nil
}
