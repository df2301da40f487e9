package resultlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Recorder appends hit and saved-page lines to the result log. The file is
// never truncated and each candidate number is written at most once.
type Recorder struct {
	path string
	seen *HitSet

	mu   sync.Mutex
	file *os.File
}

// NewRecorder creates a recorder over path, deduplicating against seen.
func NewRecorder(path string, seen *HitSet) *Recorder {
	if seen == nil {
		seen = NewHitSet()
	}
	return &Recorder{path: path, seen: seen}
}

// Path returns the result log location.
func (r *Recorder) Path() string { return r.path }

// Seen exposes the dedup set.
func (r *Recorder) Seen() *HitSet { return r.seen }

// RecordHit appends a heading line for n unless n is already recorded.
// It reports whether a line was written.
func (r *Recorder) RecordHit(n int, domain, url string) (bool, error) {
	return r.record(n, FormatHitLine(domain, url))
}

// RecordOK appends the bare URL for n unless n is already recorded.
func (r *Recorder) RecordOK(n int, url string) (bool, error) {
	return r.record(n, FormatOKLine(url))
}

func (r *Recorder) record(n int, line string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen.Has(n) {
		return false, nil
	}
	if err := r.openLocked(); err != nil {
		return false, err
	}
	if _, err := r.file.WriteString(line); err != nil {
		return false, fmt.Errorf("append result log %s: %w", r.path, err)
	}
	r.seen.Add(n)
	return true, nil
}

func (r *Recorder) openLocked() error {
	if r.file != nil {
		return nil
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create result dir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 -- operator-supplied result path
	if err != nil {
		return fmt.Errorf("open result log %s: %w", r.path, err)
	}
	r.file = f
	return nil
}

// Close flushes and closes the underlying file if it was opened.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	if err != nil {
		return fmt.Errorf("close result log %s: %w", r.path, err)
	}
	return nil
}
