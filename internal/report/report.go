// Package report renders an end-of-run Markdown summary.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nao1215/markdown"

	"github.com/JakeFAU/domainscan/internal/scanner"
)

// TimeLayout formats timestamps in the summary.
const TimeLayout = "2006-01-02 15:04:05 MST"

// Run describes the scan the summary belongs to.
type Run struct {
	ID         string
	Engine     string
	Start      int
	End        int
	ResultFile string
	StartedAt  time.Time
	FinishedAt time.Time
	Archive    string
}

// Collector is a ResultSink that keeps the hits newly saved during the run.
type Collector struct {
	mu   sync.Mutex
	hits []scanner.ScanResult
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Consume implements scanner.ResultSink.
func (c *Collector) Consume(_ context.Context, result scanner.ScanResult) error {
	if result.Outcome() != scanner.OutcomeHit {
		return nil
	}
	c.mu.Lock()
	c.hits = append(c.hits, result)
	c.mu.Unlock()
	return nil
}

// Hits returns the collected hits ordered by candidate number.
func (c *Collector) Hits() []scanner.ScanResult {
	c.mu.Lock()
	out := make([]scanner.ScanResult, len(c.hits))
	copy(out, c.hits)
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].N < out[j].N })
	return out
}

// Write renders the summary to w.
func Write(w io.Writer, run Run, summary scanner.Summary, hits []scanner.ScanResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Domain Scan Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + run.ID + "`"},
			{"Engine", run.Engine},
			{"Range", fmt.Sprintf("%d-%d", run.Start, run.End)},
			{"Result File", "`" + run.ResultFile + "`"},
			{"Started", run.StartedAt.Format(TimeLayout)},
			{"Finished", run.FinishedAt.Format(TimeLayout)},
			{"Elapsed", summary.Elapsed.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	md.H2("Counters")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Total", strconv.Itoa(summary.Total)},
			{"Skipped", strconv.Itoa(summary.Skipped)},
			{"Processed", strconv.FormatInt(summary.Processed, 10)},
			{"Hits", strconv.FormatInt(summary.Hits, 10)},
			{"Duplicates", strconv.FormatInt(summary.Duplicates, 10)},
			{"Saved OK", strconv.FormatInt(summary.SavedOK, 10)},
			{"Errors", strconv.FormatInt(summary.Errors, 10)},
		},
	})
	md.PlainText("")

	if summary.Errors > 0 {
		md.Warningf("%d candidate(s) failed after all retries; see the error log.", summary.Errors)
		md.PlainText("")
	}

	md.H2("New Hits")
	md.PlainText("")
	if len(hits) == 0 {
		md.PlainText("No new hits this run.")
		md.PlainText("")
	} else {
		rows := make([][]string, 0, len(hits))
		for _, h := range hits {
			rows = append(rows, []string{h.Domain, orDash(h.Price), h.URL, h.CheckedAt.Format(TimeLayout)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Domain", "Price", "URL", "Found"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if run.Archive != "" {
		md.Note("Result file archived to " + run.Archive)
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}

// WriteFile renders the summary to path, replacing any previous summary.
func WriteFile(path string, run Run, summary scanner.Summary, hits []scanner.ScanResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create summary dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if err := Write(f, run, summary, hits); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close summary: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
