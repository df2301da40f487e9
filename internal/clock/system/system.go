// Package system provides the wall clock and timer used outside tests.
package system

import (
	"context"
	"time"
)

// Clock reads UTC wall time and sleeps on real timers.
type Clock struct{}

// New creates a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time.
func (*Clock) Now() time.Time {
	return time.Now().UTC()
}

// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
// A non-positive d only checks ctx.
func (*Clock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
