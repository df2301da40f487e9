// Package scanner defines the core types shared across the domain scan pipeline.
package scanner

import (
	"net/http"
	"time"
)

// Outcome classifies how a single candidate finished.
type Outcome string

// Outcome values reported in logs, metrics and sinks.
const (
	OutcomeHit       Outcome = "hit"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSavedOK   Outcome = "saved_ok"
	OutcomeMiss      Outcome = "miss"
	OutcomeError     Outcome = "error"
)

// FetchRequest captures everything needed to fetch one candidate page.
type FetchRequest struct {
	URL     string
	Timeout time.Duration
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Engine     string
}

// OK reports whether the response carries a 2xx status.
func (r FetchResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ScanResult is produced once per candidate and never mutated afterwards.
type ScanResult struct {
	N           int
	Domain      string
	URL         string
	Hit         bool
	StatusCode  int
	Err         error
	Saved       bool
	Duplicate   bool
	Attempts    int
	Price       string
	ContentHash string
	CheckedAt   time.Time
}

// Outcome derives the classification of the result.
func (r ScanResult) Outcome() Outcome {
	switch {
	case r.Err != nil:
		return OutcomeError
	case r.Hit && r.Duplicate:
		return OutcomeDuplicate
	case r.Hit:
		return OutcomeHit
	case r.Saved:
		return OutcomeSavedOK
	default:
		return OutcomeMiss
	}
}

// ErrorText returns the terminal error message, or "" when the fetch succeeded.
func (r ScanResult) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
