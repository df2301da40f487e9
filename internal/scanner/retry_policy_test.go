package scanner

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLinearRetryPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewLinearRetryPolicy(3)
	err := errors.New("boom")
	require.False(t, p.ShouldRetry(nil, 1))
	require.True(t, p.ShouldRetry(err, 1))
	require.True(t, p.ShouldRetry(err, 3))
	require.False(t, p.ShouldRetry(err, 4))
	require.Equal(t, 4, p.MaxAttempts())
}

func TestLinearRetryPolicyNegativeBudgetUsesDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, defaultMaxRetries, NewLinearRetryPolicy(-1).MaxRetries)
}

func TestLinearRetryPolicyBackoff(t *testing.T) {
	t.Parallel()

	p := NewLinearRetryPolicy(3)
	p.Jitter = func(_, hi time.Duration) time.Duration { return hi }

	generic := errors.New("network down")
	blocked := &StatusError{Code: http.StatusForbidden}

	require.Equal(t, 700*time.Millisecond+600*time.Millisecond, p.Backoff(generic, 1))
	require.Equal(t, 2100*time.Millisecond+600*time.Millisecond, p.Backoff(generic, 3))
	require.Equal(t, 1200*time.Millisecond+600*time.Millisecond, p.Backoff(blocked, 1))
	require.Equal(t, 2400*time.Millisecond+600*time.Millisecond, p.Backoff(blocked, 2))
}

func TestRandomJitterStaysInBounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		d := RandomJitter(100*time.Millisecond, 300*time.Millisecond)
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		require.LessOrEqual(t, d, 300*time.Millisecond)
	}
	require.Equal(t, 5*time.Millisecond, RandomJitter(5*time.Millisecond, time.Millisecond))
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	require.True(t, IsBlocked(&StatusError{Code: http.StatusForbidden}))
	require.True(t, IsBlocked(&StatusError{Code: http.StatusTooManyRequests}))
	require.False(t, IsBlocked(&StatusError{Code: http.StatusBadGateway}))
	require.False(t, IsBlocked(errors.New("HTTP 403")))
	require.Equal(t, "HTTP 502", (&StatusError{Code: http.StatusBadGateway}).Error())
}
