package scanner

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedFetcher struct {
	mu       sync.Mutex
	attempts int
	fails    int
	err      error
	status   int
	body     string
}

func (f *scriptedFetcher) Fetch(_ context.Context, req FetchRequest) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.fails < 0 || f.attempts <= f.fails {
		if f.err != nil {
			return FetchResponse{}, f.err
		}
		return FetchResponse{URL: req.URL, StatusCode: f.status}, nil
	}
	return FetchResponse{URL: req.URL, StatusCode: http.StatusOK, Body: []byte(f.body)}, nil
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func fixedJitter(lo, _ time.Duration) time.Duration { return lo }

func newTestRetrier(f Fetcher, retries int, sleeper Sleeper) *Retrier {
	policy := NewLinearRetryPolicy(retries)
	policy.Jitter = fixedJitter
	return NewRetrier(f, policy, Pacing{}, zap.NewNop(), WithSleeper(sleeper), WithJitter(fixedJitter))
}

func TestRetrierSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{fails: 2, err: errors.New("connection reset"), body: "ok"}
	r := newTestRetrier(fetcher, 3, &recordingSleeper{})

	resp, attempts, err := r.Fetch(context.Background(), FetchRequest{URL: "https://example.com/?query=1.xyz"})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, 3, fetcher.attempts)
	require.Equal(t, "ok", string(resp.Body))
}

func TestRetrierStopsAtRetryBound(t *testing.T) {
	t.Parallel()

	for _, retries := range []int{0, 1, 3, 5} {
		fetcher := &scriptedFetcher{fails: -1, err: errors.New("timeout")}
		r := newTestRetrier(fetcher, retries, &recordingSleeper{})

		_, attempts, err := r.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
		require.Error(t, err)
		require.Equal(t, retries+1, attempts)
		require.Equal(t, retries+1, fetcher.attempts)
	}
}

func TestRetrierNeverRetriesOnSuccess(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{body: "fine"}
	r := newTestRetrier(fetcher, 3, &recordingSleeper{})

	_, attempts, err := r.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, 1, attempts)
	require.Equal(t, 1, fetcher.attempts)
}

func TestRetrierTreatsNonSuccessStatusAsFailure(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{fails: -1, status: http.StatusForbidden}
	sleeper := &recordingSleeper{}
	r := newTestRetrier(fetcher, 2, sleeper)

	_, attempts, err := r.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
	require.Error(t, err)
	require.True(t, IsBlocked(err))
	require.Equal(t, "HTTP 403 (blocked)", err.Error())
	require.Equal(t, 3, attempts)

	// Pacing windows are zero, so the only non-zero delays are the two backoffs.
	var backoffs []time.Duration
	for _, d := range sleeper.delays {
		if d > 0 {
			backoffs = append(backoffs, d)
		}
	}
	require.Equal(t, []time.Duration{1200 * time.Millisecond, 2400 * time.Millisecond}, backoffs)
}

func TestRetrierHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &scriptedFetcher{body: "never"}
	r := newTestRetrier(fetcher, 3, &recordingSleeper{})

	_, _, err := r.Fetch(ctx, FetchRequest{URL: "https://example.com"})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, fetcher.attempts)
}

type countingLimiter struct {
	mu    sync.Mutex
	waits int
}

func (l *countingLimiter) Wait(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waits++
	return nil
}

func TestRetrierWaitsOnLimiterEveryAttempt(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{fails: 1, err: errors.New("eof"), body: "ok"}
	limiter := &countingLimiter{}
	policy := NewLinearRetryPolicy(3)
	policy.Jitter = fixedJitter
	r := NewRetrier(fetcher, policy, Pacing{}, nil,
		WithSleeper(&recordingSleeper{}), WithJitter(fixedJitter), WithLimiter(limiter))

	_, attempts, err := r.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Equal(t, 2, limiter.waits)
}

func TestRetrierAppliesPacingAroundRequests(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	pacing := Pacing{
		PreRequest:  Window{Min: 120 * time.Millisecond, Max: 400 * time.Millisecond},
		PostRequest: Window{Min: 80 * time.Millisecond, Max: 200 * time.Millisecond},
	}
	r := NewRetrier(&scriptedFetcher{body: "ok"}, NewLinearRetryPolicy(0), pacing, nil,
		WithSleeper(sleeper), WithJitter(fixedJitter))

	_, _, err := r.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{120 * time.Millisecond, 80 * time.Millisecond}, sleeper.delays)
}

func TestFetchWithRetryOneShot(t *testing.T) {
	t.Parallel()

	fetcher := &scriptedFetcher{fails: 1, err: errors.New("connection reset"), body: "ok"}
	policy := NewLinearRetryPolicy(1)
	policy.Jitter = fixedJitter
	sleeper := &recordingSleeper{}

	resp, attempts, err := FetchWithRetry(context.Background(), fetcher, FetchRequest{URL: "https://example.com"},
		policy, Pacing{}, WithSleeper(sleeper), WithJitter(fixedJitter))
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
	require.Equal(t, "ok", string(resp.Body))
	require.Contains(t, sleeper.delays, 700*time.Millisecond)
}
