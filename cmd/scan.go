package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/domainscan/internal/app"
	"github.com/JakeFAU/domainscan/internal/config"
	"github.com/JakeFAU/domainscan/internal/id/uuid"
	"github.com/JakeFAU/domainscan/internal/scanner"
)

// runIDs is replaced in tests.
var runIDs scanner.IDGenerator = uuid.New()

type scanFlags struct {
	engine      string
	start       int
	end         int
	concurrency int
	metricsAddr string
}

// newScanCmd creates the 'scan' subcommand.
func newScanCmd() *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scans the configured range for available domains",
		Long: `Scans every candidate in [scan.start, scan.end] that survives the skip
rules. Flags override the matching config keys for this run only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.engine, "engine", "", "fetch engine: http, chromedp or rod")
	cmd.Flags().IntVar(&flags.start, "start", 0, "first candidate number")
	cmd.Flags().IntVar(&flags.end, "end", 0, "last candidate number (inclusive)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "number of parallel workers")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve /metrics and /progress on this address")
	return cmd
}

func (f *scanFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("engine") {
		cfg.Scan.Engine = f.engine
	}
	if cmd.Flags().Changed("start") {
		cfg.Scan.Start = f.start
	}
	if cmd.Flags().Changed("end") {
		cfg.Scan.End = f.end
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Scan.Concurrency = f.concurrency
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
}

func runScan(cmd *cobra.Command, flags *scanFlags) error {
	cfg, loadErr := loadConfig()
	flags.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scan flags: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer syncLogger(logger, cmd.ErrOrStderr())

	if loadErr != nil {
		logger.Warn("config unusable; falling back to built-in defaults", zap.Error(loadErr))
	} else if cfg.Source != "" {
		logger.Info("config loaded", zap.String("path", cfg.Source))
	}

	runID, err := runIDs.NewID()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, runID, logger)
	if err != nil {
		if errors.Is(err, app.ErrEngineStart) {
			logger.Error("fetch engine failed to start", zap.String("engine", cfg.Scan.Engine), zap.Error(err))
		}
		return fmt.Errorf("prepare scan: %w", err)
	}
	defer a.Close()

	if _, err := a.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("scan interrupted", zap.String("run_id", runID))
			return nil
		}
		return fmt.Errorf("run scan: %w", err)
	}
	return nil
}
