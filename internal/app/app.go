// Package app assembles the long-lived services of one scan run: the fetch
// engine, the result and error logs, the optional sinks and the archive.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/domainscan/internal/api"
	"github.com/JakeFAU/domainscan/internal/archive/gcs"
	"github.com/JakeFAU/domainscan/internal/candidate"
	"github.com/JakeFAU/domainscan/internal/clock/system"
	"github.com/JakeFAU/domainscan/internal/config"
	"github.com/JakeFAU/domainscan/internal/detector"
	"github.com/JakeFAU/domainscan/internal/dispatcher"
	"github.com/JakeFAU/domainscan/internal/hash/sha256"
	"github.com/JakeFAU/domainscan/internal/logging"
	"github.com/JakeFAU/domainscan/internal/metrics"
	"github.com/JakeFAU/domainscan/internal/ratelimit"
	"github.com/JakeFAU/domainscan/internal/report"
	"github.com/JakeFAU/domainscan/internal/resultlog"
	"github.com/JakeFAU/domainscan/internal/scanner"
	"github.com/JakeFAU/domainscan/internal/sink/postgres"
	pubsubsink "github.com/JakeFAU/domainscan/internal/sink/pubsub"
	"github.com/JakeFAU/domainscan/internal/worker"
)

const archiveTimeout = time.Minute

// ErrEngineStart wraps a fetch engine that could not be launched.
var ErrEngineStart = errors.New("start fetch engine")

// App holds the services of a single run. It is built once by New and torn
// down by Close.
type App struct {
	cfg       config.Config
	runID     string
	logger    *zap.Logger
	clock     *system.Clock
	rng       candidate.Range
	set       candidate.Set
	engine    Engine
	limiter   *ratelimit.Limiter
	recorder  *resultlog.Recorder
	errorLog  *resultlog.ErrorLog
	collector *report.Collector
	store     *postgres.Sink
	notifier  *pubsubsink.Notifier
	archive   *gcs.Uploader
	sinks     []scanner.ResultSink
	startedAt time.Time
}

// New prepares a run: candidates are generated, the error log is truncated,
// known hits are loaded and the engine is started. Optional sinks that fail to
// connect are logged and skipped. An engine that cannot start is fatal.
func New(ctx context.Context, cfg config.Config, runID string, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := system.New()
	a := &App{
		cfg:       cfg,
		runID:     runID,
		logger:    logging.ForRun(logger, runID, cfg.Scan.Engine),
		clock:     clock,
		rng:       candidate.Range{Start: cfg.Scan.Start, End: cfg.Scan.End},
		limiter:   ratelimit.New(ratelimit.Config{RPS: cfg.Scan.MaxRPS}),
		collector: report.NewCollector(),
		startedAt: clock.Now(),
	}

	filter := candidate.NewFilter(cfg.Filter.SkipNumbers, cfg.Filter.SkipPatterns, a.logger)
	a.set = candidate.Generate(a.rng, filter)
	metrics.ObserveSkipped(len(a.set.Skipped))

	if err := a.openLogs(); err != nil {
		a.Close()
		return nil, err
	}
	a.openSinks(ctx)

	engine, err := NewEngine(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := engine.Start(ctx); err != nil {
		_ = engine.Close()
		a.Close()
		return nil, fmt.Errorf("%w %s: %w", ErrEngineStart, cfg.Scan.Engine, err)
	}
	a.engine = engine

	a.logger.Info("scan prepared",
		zap.Int("start", a.rng.Start),
		zap.Int("end", a.rng.End),
		zap.Int("candidates", len(a.set.Numbers)),
		zap.Int("skipped", len(a.set.Skipped)),
		zap.Int("known_hits", a.recorder.Seen().Len()),
		zap.Int("concurrency", cfg.Scan.Concurrency),
		zap.Bool("rate_limited", a.limiter.Enabled()),
	)
	return a, nil
}

func (a *App) openLogs() error {
	a.errorLog = resultlog.NewErrorLog(a.cfg.Output.ErrorFile, a.clock.Now)
	if err := a.errorLog.Reset(); err != nil {
		return fmt.Errorf("reset error log: %w", err)
	}

	pattern, err := a.cfg.ScanTarget().URLPattern()
	if err != nil {
		return fmt.Errorf("compile url pattern: %w", err)
	}
	seen, err := resultlog.LoadHitSet(a.cfg.Output.ResultFile, pattern)
	if err != nil {
		return fmt.Errorf("load existing hits: %w", err)
	}
	a.recorder = resultlog.NewRecorder(a.cfg.Output.ResultFile, seen)
	return nil
}

func (a *App) openSinks(ctx context.Context) {
	a.sinks = append(a.sinks, a.collector)

	if a.cfg.Store.DSN != "" {
		store, err := postgres.New(ctx, postgres.Config{DSN: a.cfg.Store.DSN, Table: a.cfg.Store.Table}, a.runID)
		if err == nil {
			err = store.EnsureSchema(ctx)
			if err != nil {
				store.Close()
			}
		}
		if err != nil {
			a.logger.Warn("postgres sink disabled", zap.Error(err))
		} else {
			a.store = store
			a.sinks = append(a.sinks, store)
			a.logger.Info("mirroring results to postgres", zap.String("table", store.Table()))
		}
	}

	if a.cfg.Notify.ProjectID != "" && a.cfg.Notify.Topic != "" {
		notifier, err := pubsubsink.New(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.Topic, a.runID)
		if err != nil {
			a.logger.Warn("pubsub notifier disabled", zap.Error(err))
		} else {
			a.notifier = notifier
			a.sinks = append(a.sinks, notifier)
			a.logger.Info("publishing hits", zap.String("topic", a.cfg.Notify.Topic))
		}
	}

	if a.cfg.Archive.Bucket != "" {
		uploader, err := gcs.Dial(ctx, gcs.Config{Bucket: a.cfg.Archive.Bucket, Prefix: a.cfg.Archive.Prefix})
		if err != nil {
			a.logger.Warn("result archive disabled", zap.Error(err))
		} else {
			a.archive = uploader
		}
	}
}

// RunID identifies the run in logs, sinks and the archive path.
func (a *App) RunID() string { return a.runID }

// Candidates returns the filtered candidate set.
func (a *App) Candidates() candidate.Set { return a.set }

// Run scans every candidate and then writes the summary and archive. The
// summary is returned even when ctx was canceled mid-scan.
func (a *App) Run(ctx context.Context) (scanner.Summary, error) {
	counters := scanner.NewCounters(a.rng.Size(), len(a.set.Skipped), a.startedAt)

	stopServer := a.serveProgress(ctx, counters)
	defer stopServer()

	opts := []scanner.RetrierOption{scanner.WithSleeper(a.clock)}
	if a.limiter.Enabled() {
		opts = append(opts, scanner.WithLimiter(a.limiter))
	}
	pacing := a.cfg.Pacing()
	retrier := scanner.NewRetrier(a.engine, scanner.NewLinearRetryPolicy(a.cfg.Scan.Retries), pacing, a.logger, opts...)

	w := worker.New(worker.Deps{
		Retrier:  retrier,
		Marker:   detector.NewMarker(a.cfg.Scan.TargetSnippet),
		Recorder: a.recorder,
		Errors:   a.errorLog,
		Counters: counters,
		Sinks:    a.sinks,
		Clock:    a.clock,
		Sleeper:  a.clock,
		Hasher:   sha256.New(),
	}, worker.Config{
		Target:    a.cfg.ScanTarget(),
		Timeout:   a.cfg.Timeout(),
		SaveOK:    a.cfg.Scan.SaveOK,
		InterTask: pacing.InterTask,
		Engine:    a.cfg.Scan.Engine,
	}, a.logger)

	summary, runErr := dispatcher.New(w, counters, a.clock, a.cfg.Scan.Concurrency, a.logger).Run(ctx, a.set.Numbers)

	a.logger.Info("scan finished",
		zap.Int("total", summary.Total),
		zap.Int64("processed", summary.Processed),
		zap.Int64("hits", summary.Hits),
		zap.Int64("duplicates", summary.Duplicates),
		zap.Int64("saved_ok", summary.SavedOK),
		zap.Int64("errors", summary.Errors),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("elapsed", summary.Elapsed),
		zap.String("result_file", a.cfg.Output.ResultFile),
		zap.String("error_file", a.cfg.Output.ErrorFile),
	)

	uri := a.archiveResults(ctx)
	a.writeSummary(summary, uri)
	return summary, runErr
}

func (a *App) serveProgress(ctx context.Context, counters *scanner.Counters) func() {
	if a.cfg.Metrics.Addr == "" {
		return func() {}
	}
	srvCtx, cancel := context.WithCancel(ctx)
	server := api.NewServer(counters, api.RunInfo{
		RunID:     a.runID,
		Engine:    a.cfg.Scan.Engine,
		Start:     a.rng.Start,
		End:       a.rng.End,
		StartedAt: a.startedAt,
	}, a.clock, a.logger)
	done, err := server.ListenAndServe(srvCtx, a.cfg.Metrics.Addr)
	if err != nil {
		cancel()
		a.logger.Warn("metrics server disabled", zap.Error(err))
		return func() {}
	}
	return func() {
		cancel()
		if err := <-done; err != nil {
			a.logger.Warn("metrics server stopped", zap.Error(err))
		}
	}
}

// archiveResults uploads the result file even after an interrupt so partial
// progress is kept.
func (a *App) archiveResults(ctx context.Context) string {
	if a.archive == nil {
		return ""
	}
	if _, err := os.Stat(a.cfg.Output.ResultFile); err != nil {
		a.logger.Info("no result file to archive", zap.String("path", a.cfg.Output.ResultFile))
		return ""
	}
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	uri, err := a.archive.Upload(uploadCtx, a.cfg.Output.ResultFile, a.runID)
	if err != nil {
		a.logger.Warn("archive result file failed", zap.Error(err))
		return ""
	}
	a.logger.Info("result file archived", zap.String("uri", uri))
	return uri
}

func (a *App) writeSummary(summary scanner.Summary, archiveURI string) {
	if a.cfg.Output.SummaryFile == "" {
		return
	}
	run := report.Run{
		ID:         a.runID,
		Engine:     a.cfg.Scan.Engine,
		Start:      a.rng.Start,
		End:        a.rng.End,
		ResultFile: a.cfg.Output.ResultFile,
		StartedAt:  a.startedAt,
		FinishedAt: a.clock.Now(),
		Archive:    archiveURI,
	}
	if err := report.WriteFile(a.cfg.Output.SummaryFile, run, summary, a.collector.Hits()); err != nil {
		a.logger.Warn("write summary failed", zap.Error(err))
		return
	}
	a.logger.Info("summary written", zap.String("path", a.cfg.Output.SummaryFile))
}

// Close shuts down every service the App opened. It is safe on a partially
// built App.
func (a *App) Close() {
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.logger.Warn("close engine", zap.Error(err))
		}
	}
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Warn("close pubsub notifier", zap.Error(err))
		}
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn("close storage client", zap.Error(err))
		}
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.logger.Warn("close result log", zap.Error(err))
		}
	}
	if a.errorLog != nil {
		if err := a.errorLog.Close(); err != nil {
			a.logger.Warn("close error log", zap.Error(err))
		}
	}
	a.logger.Debug("run services closed")
}
