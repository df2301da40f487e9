// Package ratelimit caps the aggregate request rate of all workers in a run.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/domainscan/internal/metrics"
)

// Config holds limiter settings. RPS <= 0 disables limiting.
type Config struct {
	RPS   float64
	Burst int
}

// Limiter is a single token bucket shared by every worker.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(r, burst)}
}

// Enabled reports whether the limiter can ever delay a caller.
func (l *Limiter) Enabled() bool {
	return l.limiter.Limit() != rate.Inf
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitWait(waited)
	}
	return nil
}
