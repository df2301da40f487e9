package scanner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/domainscan/internal/clock/system"
	"github.com/JakeFAU/domainscan/internal/metrics"
)

// Retrier turns one logical candidate check into content or a terminal failure.
type Retrier struct {
	fetcher Fetcher
	policy  *LinearRetryPolicy
	pacing  Pacing
	sleeper Sleeper
	limiter Limiter
	jitter  Jitter
	logger  *zap.Logger
}

// RetrierOption customizes a Retrier.
type RetrierOption func(*Retrier)

// WithSleeper replaces the timer-based sleeper.
func WithSleeper(s Sleeper) RetrierOption {
	return func(r *Retrier) { r.sleeper = s }
}

// WithLimiter applies a shared rate limiter before every attempt.
func WithLimiter(l Limiter) RetrierOption {
	return func(r *Retrier) { r.limiter = l }
}

// WithJitter replaces the random source used for pacing delays.
func WithJitter(j Jitter) RetrierOption {
	return func(r *Retrier) { r.jitter = j }
}

// NewRetrier wires a fetcher to a retry policy and pacing windows.
func NewRetrier(fetcher Fetcher, policy *LinearRetryPolicy, pacing Pacing, logger *zap.Logger, opts ...RetrierOption) *Retrier {
	if policy == nil {
		policy = NewLinearRetryPolicy(defaultMaxRetries)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retrier{
		fetcher: fetcher,
		policy:  policy,
		pacing:  pacing,
		sleeper: system.New(),
		jitter:  RandomJitter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch performs up to policy.MaxAttempts() attempts. It returns the
// response, the number of attempts made and the terminal error, if any.
// Non-2xx responses count as failures.
func (r *Retrier) Fetch(ctx context.Context, request FetchRequest) (FetchResponse, int, error) {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return FetchResponse{}, failures, fmt.Errorf("fetch %s: %w", request.URL, err)
		}
		resp, err := r.attempt(ctx, request)
		if err == nil {
			metrics.ObserveAttempt("success")
			if sleepErr := r.sleeper.Sleep(ctx, r.pacing.PostRequest.Draw(r.jitter)); sleepErr != nil {
				return resp, failures + 1, fmt.Errorf("post-request pause: %w", sleepErr)
			}
			return resp, failures + 1, nil
		}

		failures++
		if IsBlocked(err) {
			metrics.ObserveAttempt("blocked")
		} else {
			metrics.ObserveAttempt("failure")
		}
		if ctx.Err() != nil || !r.policy.ShouldRetry(err, failures) {
			return resp, failures, err
		}

		delay := r.policy.Backoff(err, failures)
		metrics.ObserveBackoff(IsBlocked(err), delay)
		r.logger.Debug("fetch attempt failed; backing off",
			zap.String("url", request.URL),
			zap.Int("attempt", failures),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if sleepErr := r.sleeper.Sleep(ctx, delay); sleepErr != nil {
			return resp, failures, fmt.Errorf("backoff pause: %w", sleepErr)
		}
	}
}

func (r *Retrier) attempt(ctx context.Context, request FetchRequest) (FetchResponse, error) {
	if err := r.sleeper.Sleep(ctx, r.pacing.PreRequest.Draw(r.jitter)); err != nil {
		return FetchResponse{}, fmt.Errorf("pre-request pause: %w", err)
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return FetchResponse{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	resp, err := r.fetcher.Fetch(ctx, request)
	if err != nil {
		return resp, err
	}
	if !resp.OK() {
		return resp, &StatusError{Code: resp.StatusCode}
	}
	return resp, nil
}

// FetchWithRetry is a one-shot helper around Retrier for callers that do not
// keep a Retrier around.
func FetchWithRetry(
	ctx context.Context,
	fetcher Fetcher,
	request FetchRequest,
	policy *LinearRetryPolicy,
	pacing Pacing,
	opts ...RetrierOption,
) (FetchResponse, int, error) {
	return NewRetrier(fetcher, policy, pacing, nil, opts...).Fetch(ctx, request)
}
