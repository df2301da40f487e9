package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/domainscan/internal/candidate"
	"github.com/JakeFAU/domainscan/internal/config"
)

// newValidateCmd creates the 'validate' subcommand. It reports problems but
// never fails because a config is missing or incomplete.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Checks the config file and previews which candidates would be scanned",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runValidate(cmd.OutOrStdout())
			return nil
		},
	}
}

func runValidate(out io.Writer) {
	cfg, loadErr := loadConfig()
	switch {
	case loadErr != nil:
		fmt.Fprintf(out, "config: %v\n", loadErr)
		fmt.Fprintln(out, "using built-in defaults")
	case cfg.Source == "":
		fmt.Fprintf(out, "config: no file found in %s; using built-in defaults\n", strings.Join(config.SearchPaths(), ", "))
	default:
		fmt.Fprintf(out, "config: %s\n", cfg.Source)
		missing, err := config.MissingKeys(cfg.Source)
		if err != nil {
			fmt.Fprintf(out, "  could not inspect keys: %v\n", err)
		}
		for _, key := range missing {
			fmt.Fprintf(out, "  missing %s (default %v)\n", key, defaultValue(key))
		}
		if len(missing) == 0 && err == nil {
			fmt.Fprintln(out, "  all required keys present")
		}
	}

	fmt.Fprintf(out, "range: %d-%d, concurrency %d, engine %s\n",
		cfg.Scan.Start, cfg.Scan.End, cfg.Scan.Concurrency, cfg.Scan.Engine)
	fmt.Fprintf(out, "snippet: %q\n", cfg.Scan.TargetSnippet)

	filter := candidate.NewFilter(cfg.Filter.SkipNumbers, cfg.Filter.SkipPatterns, nil)
	for _, rule := range filter.Rules() {
		fmt.Fprintf(out, "skip rule: %s\n", rule)
	}
	for _, p := range filter.Invalid() {
		fmt.Fprintf(out, "skip rule ignored, invalid pattern: %q\n", p)
	}

	preview := candidate.NewPreview(candidate.Range{Start: cfg.Scan.Start, End: cfg.Scan.End}, filter)
	fmt.Fprintf(out, "candidates: %d total, %d to scan, %d skipped\n", preview.Total, preview.ToScan, preview.Skipped)
	fmt.Fprintf(out, "first to scan: %s\n", joinInts(preview.ScanExamples, preview.MoreToScan))
	if preview.Skipped > 0 {
		fmt.Fprintf(out, "first skipped: %s\n", joinInts(preview.SkipExamples, preview.MoreSkipped))
	}
}

func defaultValue(key string) any {
	cfg := config.Default()
	switch key {
	case "scan.start":
		return cfg.Scan.Start
	case "scan.end":
		return cfg.Scan.End
	case "scan.concurrency":
		return cfg.Scan.Concurrency
	case "scan.targetSnippet":
		return fmt.Sprintf("%q", cfg.Scan.TargetSnippet)
	case "filter.skipNumbers":
		return cfg.Filter.SkipNumbers
	case "output.resultFile":
		return cfg.Output.ResultFile
	case "output.errorFile":
		return cfg.Output.ErrorFile
	default:
		return "-"
	}
}

func joinInts(ns []int, more bool) string {
	if len(ns) == 0 {
		return "(none)"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	s := strings.Join(parts, ", ")
	if more {
		s += ", ..."
	}
	return s
}
