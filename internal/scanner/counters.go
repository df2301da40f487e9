package scanner

import (
	"sync/atomic"
	"time"
)

// Summary is the aggregate report of a scan run.
type Summary struct {
	Total      int           `json:"total"`
	Processed  int64         `json:"processed"`
	Hits       int64         `json:"hits"`
	Duplicates int64         `json:"duplicates"`
	SavedOK    int64         `json:"saved_ok"`
	Errors     int64         `json:"errors"`
	Skipped    int           `json:"skipped"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Counters accumulates per-candidate outcomes from concurrent workers.
type Counters struct {
	total      int
	skipped    int
	started    time.Time
	processed  atomic.Int64
	hits       atomic.Int64
	duplicates atomic.Int64
	savedOK    atomic.Int64
	errors     atomic.Int64
}

// NewCounters starts counting a run of total candidates, skipped of which were filtered out.
func NewCounters(total, skipped int, started time.Time) *Counters {
	return &Counters{total: total, skipped: skipped, started: started}
}

// Record tallies one finished candidate.
func (c *Counters) Record(result ScanResult) {
	c.processed.Add(1)
	switch result.Outcome() {
	case OutcomeHit:
		c.hits.Add(1)
	case OutcomeDuplicate:
		c.duplicates.Add(1)
	case OutcomeSavedOK:
		c.savedOK.Add(1)
	case OutcomeError:
		c.errors.Add(1)
	case OutcomeMiss:
	}
}

// Snapshot returns the counters as of now.
func (c *Counters) Snapshot(now time.Time) Summary {
	return Summary{
		Total:      c.total,
		Processed:  c.processed.Load(),
		Hits:       c.hits.Load(),
		Duplicates: c.duplicates.Load(),
		SavedOK:    c.savedOK.Load(),
		Errors:     c.errors.Load(),
		Skipped:    c.skipped,
		Elapsed:    now.Sub(c.started),
	}
}
