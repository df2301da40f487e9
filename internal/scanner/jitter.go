package scanner

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Jitter draws a duration from the inclusive interval [lo, hi].
type Jitter func(lo, hi time.Duration) time.Duration

// RandomJitter is the production Jitter backed by crypto/rand.
func RandomJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	bound := big.NewInt(int64(hi-lo) + 1)
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return lo + (hi-lo)/2
	}
	return lo + time.Duration(n.Int64())
}

// Window is a bounded random delay.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// Draw picks a delay inside the window.
func (w Window) Draw(j Jitter) time.Duration {
	if j == nil {
		j = RandomJitter
	}
	return j(w.Min, w.Max)
}

// Pacing groups the randomized delays that throttle a worker independently of retries.
type Pacing struct {
	PreRequest  Window
	PostRequest Window
	InterTask   Window
}

// DefaultPacing mirrors the request rhythm the scanner has always used.
func DefaultPacing() Pacing {
	return Pacing{
		PreRequest:  Window{Min: 120 * time.Millisecond, Max: 400 * time.Millisecond},
		PostRequest: Window{Min: 80 * time.Millisecond, Max: 200 * time.Millisecond},
		InterTask:   Window{Min: 200 * time.Millisecond, Max: 600 * time.Millisecond},
	}
}
