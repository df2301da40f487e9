package candidate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGenerateWithoutRulesEmitsEveryNumberAscending(t *testing.T) {
	t.Parallel()

	set := Generate(Range{Start: 100, End: 104}, nil)
	require.Equal(t, []int{100, 101, 102, 103, 104}, set.Numbers)
	require.Empty(t, set.Skipped)
}

func TestGenerateSkipsLiteralDigit(t *testing.T) {
	t.Parallel()

	f := NewFilter([]string{"9"}, nil, zap.NewNop())
	set := Generate(Range{Start: 8, End: 11}, f)
	require.Equal(t, []int{8, 10, 11}, set.Numbers)
	require.Equal(t, []int{9}, set.Skipped)
}

func TestGenerateSkipsPatternMatches(t *testing.T) {
	t.Parallel()

	f := NewFilter(nil, []string{`^1125(0|1)`, `44`}, zap.NewNop())
	set := Generate(Range{Start: 112498, End: 112520}, f)
	for _, n := range set.Numbers {
		require.False(t, n >= 112500 && n <= 112519, "number %d should be skipped", n)
	}
	require.Equal(t, []int{112498, 112499, 112520}, set.Numbers)
	require.Len(t, set.Skipped, 20)
}

func TestGenerateSingletonAndInvertedRange(t *testing.T) {
	t.Parallel()

	require.Equal(t, []int{7}, Generate(Range{Start: 7, End: 7}, nil).Numbers)
	require.Empty(t, Generate(Range{Start: 9, End: 7}, nil).Numbers)
	require.Error(t, Range{Start: 9, End: 7}.Validate())
	require.NoError(t, Range{Start: 7, End: 7}.Validate())
}

func TestGenerateEmitsEachNumberExactlyOnce(t *testing.T) {
	t.Parallel()

	f := NewFilter([]string{"3"}, []string{`5$`}, zap.NewNop())
	r := Range{Start: 0, End: 999}
	set := Generate(r, f)
	require.Equal(t, r.Size(), len(set.Numbers)+len(set.Skipped))

	prev := -1
	for _, n := range set.Numbers {
		require.Greater(t, n, prev)
		require.False(t, f.Excludes(n))
		prev = n
	}
	for _, n := range set.Skipped {
		require.True(t, f.Excludes(n))
	}
}

func TestGenerateStopsAtMaxInt(t *testing.T) {
	t.Parallel()

	done := make(chan Set, 1)
	go func() {
		done <- Generate(Range{Start: math.MaxInt - 1, End: math.MaxInt}, nil)
	}()

	select {
	case set := <-done:
		require.Equal(t, []int{math.MaxInt - 1, math.MaxInt}, set.Numbers)
	case <-time.After(3 * time.Second):
		t.Fatal("Generate did not terminate for a range ending at math.MaxInt")
	}
}

func TestPatternUsesECMAScriptSyntax(t *testing.T) {
	t.Parallel()

	f := NewFilter(nil, []string{`^(?!1125)`, `(\d)\1{2}`}, zap.NewNop())
	require.Empty(t, f.Invalid())
	require.Len(t, f.Rules(), 2)

	set := Generate(Range{Start: 112598, End: 112601}, f)
	require.Equal(t, []int{112598, 112599}, set.Numbers)
	require.Equal(t, []int{112600, 112601}, set.Skipped)

	require.True(t, f.Excludes(112555))
	require.False(t, f.Excludes(112556))
}

func TestInvalidPatternIsIgnoredWithWarning(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	f := NewFilter(nil, []string{`(`, `8`}, zap.New(core))

	require.Equal(t, []string{`(`}, f.Invalid())
	require.Len(t, f.Rules(), 1)
	require.Equal(t, 1, logs.FilterMessage("invalid skip pattern ignored").Len())

	set := Generate(Range{Start: 7, End: 9}, f)
	require.Equal(t, []int{7, 9}, set.Numbers)
}

func TestPreview(t *testing.T) {
	t.Parallel()

	f := NewFilter([]string{"4"}, []string{`[`}, nil)
	p := NewPreview(Range{Start: 1, End: 30}, f)
	require.Equal(t, 30, p.Total)
	require.Equal(t, 3, p.Skipped)
	require.Equal(t, 27, p.ToScan)
	require.Equal(t, []int{4, 14, 24}, p.SkipExamples)
	require.Len(t, p.ScanExamples, 10)
	require.True(t, p.MoreToScan)
	require.False(t, p.MoreSkipped)
	require.Equal(t, []string{`[`}, p.InvalidPattern)
}
