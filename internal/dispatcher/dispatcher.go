// Package dispatcher fans a candidate list out to a fixed pool of workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/domainscan/internal/clock/system"
	"github.com/JakeFAU/domainscan/internal/scanner"
	"github.com/JakeFAU/domainscan/internal/worker"
)

// Dispatcher runs concurrency copies of the worker loop over one shared cursor.
type Dispatcher struct {
	worker      *worker.Worker
	counters    *scanner.Counters
	clock       scanner.Clock
	concurrency int
	logger      *zap.Logger
}

// New creates a Dispatcher. Concurrency below one is treated as one.
func New(w *worker.Worker, counters *scanner.Counters, clock scanner.Clock, concurrency int, logger *zap.Logger) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = system.New()
	}
	return &Dispatcher{
		worker:      w,
		counters:    counters,
		clock:       clock,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run blocks until every candidate has been claimed and processed, or ctx
// finishes. The summary is returned in both cases.
func (d *Dispatcher) Run(ctx context.Context, numbers []int) (scanner.Summary, error) {
	cursor := scanner.NewCursor(len(numbers))
	workers := d.concurrency
	if workers > len(numbers) && len(numbers) > 0 {
		workers = len(numbers)
	}
	d.logger.Info("dispatching candidates",
		zap.Int("candidates", len(numbers)),
		zap.Int("workers", workers),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		id := i + 1
		group.Go(func() error {
			d.worker.Run(groupCtx, id, cursor, numbers)
			return nil
		})
	}
	waitErr := group.Wait()

	summary := d.counters.Snapshot(d.clock.Now())
	return summary, runError(ctx.Err(), waitErr)
}

// runError reports an interrupted scan and any worker failure together.
func runError(ctxErr, waitErr error) error {
	if waitErr != nil {
		waitErr = fmt.Errorf("worker pool: %w", waitErr)
	}
	if ctxErr != nil {
		return errors.Join(fmt.Errorf("scan interrupted: %w", ctxErr), waitErr)
	}
	return waitErr
}
