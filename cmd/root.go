// Package cmd defines the domainscan CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/domainscan/internal/config"
	"github.com/JakeFAU/domainscan/internal/logging"
)

var cfgFile string

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domainscan",
		Short: "Checks a numeric range of domains for availability on a registrar search page.",
		Long: `domainscan walks an inclusive range of numbers, turns each into a domain
under the configured TLD and loads the registrar's search page for it. Pages
that contain the availability snippet are appended to a Markdown result file;
candidates that keep failing are written to a per-run error log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.{json,yaml} or $XDG_CONFIG_HOME/domainscan)")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newValidateCmd())
	return cmd
}

// loadConfig reads the config named by --config. A config that fails to load
// or validate is reported and replaced by the built-in defaults.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Default(), err
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func syncLogger(logger *zap.Logger, stderr io.Writer) {
	// Syncing a console logger fails with EINVAL on some terminals.
	if err := logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) {
		fmt.Fprintf(stderr, "logger sync failed: %v\n", err)
	}
}

// Execute runs the CLI until it finishes or receives SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "domainscan: %v\n", err)
		os.Exit(1)
	}
}
