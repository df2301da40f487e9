// Package worker implements the per-candidate scan loop.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/domainscan/internal/clock/system"
	"github.com/JakeFAU/domainscan/internal/detector"
	"github.com/JakeFAU/domainscan/internal/metrics"
	"github.com/JakeFAU/domainscan/internal/resultlog"
	"github.com/JakeFAU/domainscan/internal/scanner"
)

// Config controls Worker behavior.
type Config struct {
	Target    scanner.Target
	Timeout   time.Duration
	SaveOK    bool
	InterTask scanner.Window
	Engine    string
}

// Deps are the collaborators shared by every worker of a run.
type Deps struct {
	Retrier  *scanner.Retrier
	Marker   detector.Marker
	Recorder *resultlog.Recorder
	Errors   *resultlog.ErrorLog
	Counters *scanner.Counters
	Sinks    []scanner.ResultSink
	Clock    scanner.Clock
	Sleeper  scanner.Sleeper
	Jitter   scanner.Jitter
	Hasher   scanner.Hasher
}

// Worker claims candidates from a shared cursor and classifies each one.
// One Worker value is safe to run from many goroutines.
type Worker struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker.
func New(deps Deps, cfg Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.Sleeper == nil {
		deps.Sleeper = system.New()
	}
	if deps.Jitter == nil {
		deps.Jitter = scanner.RandomJitter
	}
	return &Worker{deps: deps, cfg: cfg, logger: logger}
}

// Run processes candidates until the cursor is exhausted or ctx finishes.
func (w *Worker) Run(ctx context.Context, id int, cursor *scanner.Cursor, numbers []int) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	logger := w.logger.With(zap.Int("worker", id))
	for ctx.Err() == nil {
		idx, ok := cursor.Claim()
		if !ok {
			return
		}
		w.Process(ctx, numbers[idx], logger)
		if err := w.deps.Sleeper.Sleep(ctx, w.cfg.InterTask.Draw(w.deps.Jitter)); err != nil {
			return
		}
	}
}

// Process fetches and classifies candidate n, writes the outcome to the logs
// and hands it to every sink.
func (w *Worker) Process(ctx context.Context, n int, logger *zap.Logger) scanner.ScanResult {
	if logger == nil {
		logger = w.logger
	}
	url := w.cfg.Target.URL(n)
	result := scanner.ScanResult{
		N:      n,
		Domain: w.cfg.Target.Domain(n),
		URL:    url,
	}

	resp, attempts, err := w.deps.Retrier.Fetch(ctx, scanner.FetchRequest{URL: url, Timeout: w.cfg.Timeout})
	result.Attempts = attempts
	result.StatusCode = resp.StatusCode
	result.CheckedAt = w.deps.Clock.Now()

	if err != nil {
		result.Err = err
		w.logFailure(logger, result)
	} else {
		result.ContentHash = w.fingerprint(logger, n, resp.Body)
		w.classify(&result, resp.Body)
		w.logOutcome(logger, result)
	}

	w.deps.Counters.Record(result)
	metrics.ObserveCandidate(string(result.Outcome()))
	for _, sink := range w.deps.Sinks {
		if sinkErr := sink.Consume(ctx, result); sinkErr != nil {
			logger.Warn("result sink failed", zap.Int("n", n), zap.Error(sinkErr))
		}
	}
	return result
}

func (w *Worker) classify(result *scanner.ScanResult, body []byte) {
	result.Hit = w.deps.Marker.Match(body)
	switch {
	case result.Hit:
		result.Price = detector.ExtractPrice(body)
		wrote, err := w.deps.Recorder.RecordHit(result.N, result.Domain, result.URL)
		if err != nil {
			result.Err = fmt.Errorf("record hit: %w", err)
			return
		}
		result.Duplicate = !wrote
		result.Saved = wrote
	case w.cfg.SaveOK && result.StatusCode == 200:
		wrote, err := w.deps.Recorder.RecordOK(result.N, result.URL)
		if err != nil {
			result.Err = fmt.Errorf("record page: %w", err)
			return
		}
		result.Saved = wrote
	}
}

func (w *Worker) fingerprint(logger *zap.Logger, n int, body []byte) string {
	if w.deps.Hasher == nil {
		return ""
	}
	sum, err := w.deps.Hasher.Hash(body)
	if err != nil {
		logger.Debug("hash page body", zap.Int("n", n), zap.Error(err))
		return ""
	}
	return sum
}

func (w *Worker) logFailure(logger *zap.Logger, result scanner.ScanResult) {
	logger.Error("candidate failed",
		zap.Int("n", result.N),
		zap.String("url", result.URL),
		zap.Int("attempts", result.Attempts),
		zap.Error(result.Err),
	)
	if err := w.deps.Errors.Append(result.URL, result.ErrorText()); err != nil {
		logger.Error("append error log failed", zap.String("url", result.URL), zap.Error(err))
	}
}

func (w *Worker) logOutcome(logger *zap.Logger, result scanner.ScanResult) {
	if result.Err != nil {
		w.logFailure(logger, result)
		return
	}
	fields := []zap.Field{
		zap.Int("n", result.N),
		zap.String("domain", result.Domain),
		zap.Int("status", result.StatusCode),
		zap.Int("attempts", result.Attempts),
	}
	switch result.Outcome() {
	case scanner.OutcomeHit:
		logger.Info("candidate hit", append(fields, zap.String("price", result.Price))...)
	case scanner.OutcomeDuplicate:
		logger.Info("candidate duplicate", fields...)
	case scanner.OutcomeSavedOK:
		logger.Info("candidate saved", fields...)
	default:
		logger.Info("candidate miss", fields...)
	}
}
