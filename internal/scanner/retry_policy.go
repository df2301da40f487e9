package scanner

import (
	"time"
)

const (
	defaultMaxRetries  = 3
	defaultBlockedBase = 1200 * time.Millisecond
	defaultGenericBase = 700 * time.Millisecond
	defaultMaxJitter   = 600 * time.Millisecond
)

// LinearRetryPolicy retries any failure up to MaxRetries times. The delay
// grows linearly with the attempt number and blocked-type failures start
// from a longer base.
type LinearRetryPolicy struct {
	MaxRetries  int
	BlockedBase time.Duration
	GenericBase time.Duration
	MaxJitter   time.Duration
	Jitter      Jitter
}

// NewLinearRetryPolicy builds a policy with the scanner defaults and the given retry budget.
// A negative budget falls back to the default.
func NewLinearRetryPolicy(maxRetries int) *LinearRetryPolicy {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	return &LinearRetryPolicy{
		MaxRetries:  maxRetries,
		BlockedBase: defaultBlockedBase,
		GenericBase: defaultGenericBase,
		MaxJitter:   defaultMaxJitter,
		Jitter:      RandomJitter,
	}
}

// ShouldRetry decides whether another attempt is allowed after failures
// failed attempts.
func (p *LinearRetryPolicy) ShouldRetry(err error, failures int) bool {
	if err == nil {
		return false
	}
	return failures <= p.MaxRetries
}

// Backoff returns the wait before the attempt following failures failed attempts.
func (p *LinearRetryPolicy) Backoff(err error, failures int) time.Duration {
	base := p.GenericBase
	if IsBlocked(err) {
		base = p.BlockedBase
	}
	if failures < 1 {
		failures = 1
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = RandomJitter
	}
	return base*time.Duration(failures) + jitter(0, p.MaxJitter)
}

// MaxAttempts is the hard upper bound of fetch attempts per candidate.
func (p *LinearRetryPolicy) MaxAttempts() int {
	return p.MaxRetries + 1
}
