package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/domainscan/internal/scanner"
)

func sampleRun() Run {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return Run{
		ID:         "run-42",
		Engine:     "http",
		Start:      100,
		End:        104,
		ResultFile: "found.md",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}
}

func TestCollectorKeepsOnlyNewHits(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	ctx := context.Background()
	require.NoError(t, c.Consume(ctx, scanner.ScanResult{N: 103, Hit: true}))
	require.NoError(t, c.Consume(ctx, scanner.ScanResult{N: 101, Hit: true}))
	require.NoError(t, c.Consume(ctx, scanner.ScanResult{N: 102, Hit: true, Duplicate: true}))
	require.NoError(t, c.Consume(ctx, scanner.ScanResult{N: 104}))
	require.NoError(t, c.Consume(ctx, scanner.ScanResult{N: 105, Err: errors.New("boom")}))

	hits := c.Hits()
	require.Len(t, hits, 2)
	require.Equal(t, 101, hits[0].N)
	require.Equal(t, 103, hits[1].N)
}

func TestWriteWithHits(t *testing.T) {
	t.Parallel()

	run := sampleRun()
	summary := scanner.Summary{Total: 5, Processed: 5, Hits: 1, Errors: 1, Elapsed: 90 * time.Second}
	hits := []scanner.ScanResult{{
		N: 102, Domain: "102.xyz", URL: "https://example.test/?q=102", Hit: true,
		Price: "$0.98", CheckedAt: run.StartedAt,
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, run, summary, hits))
	out := buf.String()

	require.Contains(t, out, "# Domain Scan Summary")
	require.Contains(t, out, "run-42")
	require.Contains(t, out, "100-104")
	require.Contains(t, out, "1m30s")
	require.Contains(t, out, "102.xyz")
	require.Contains(t, out, "$0.98")
	require.Contains(t, out, "failed after all retries")
	require.NotContains(t, out, "No new hits")
}

func TestWriteWithoutHits(t *testing.T) {
	t.Parallel()

	run := sampleRun()
	run.Archive = "gs://bucket/run-42/found.md"
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, run, scanner.Summary{Total: 5, Processed: 5}, nil))
	out := buf.String()

	require.Contains(t, out, "No new hits this run.")
	require.Contains(t, out, "gs://bucket/run-42/found.md")
	require.NotContains(t, out, "failed after all retries")
}

func TestWriteFileReplaces(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reports", "summary.md")
	require.NoError(t, WriteFile(path, sampleRun(), scanner.Summary{}, nil))
	require.NoError(t, WriteFile(path, sampleRun(), scanner.Summary{}, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, bytes.Count(data, []byte("# Domain Scan Summary")))
}
