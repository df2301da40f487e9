package fetcher

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrowserWithDefaults(t *testing.T) {
	t.Parallel()

	b := Browser{}.WithDefaults()
	require.Equal(t, DefaultUserAgent, b.UserAgent)
	require.Equal(t, Viewport{Width: 1366, Height: 900, DeviceScaleFactor: 1}, b.Viewport)

	custom := Browser{UserAgent: "ua", Viewport: Viewport{Width: 800, Height: 600}}.WithDefaults()
	require.Equal(t, "ua", custom.UserAgent)
	require.Equal(t, Viewport{Width: 800, Height: 600, DeviceScaleFactor: 1}, custom.Viewport)
}

func TestHeaderPairsAndMerge(t *testing.T) {
	t.Parallel()

	base := http.Header{"Accept": {"text/html"}, "Accept-Language": {"en-US"}}
	merged := MergeHeaders(base, http.Header{"accept-language": {"fr"}, "Referer": {"https://r.test/"}})
	require.Equal(t, "en-US", base.Get("Accept-Language"))
	require.Equal(t, [][2]string{
		{"Accept", "text/html"},
		{"Accept-Language", "fr"},
		{"Referer", "https://r.test/"},
	}, HeaderPairs(merged))

	require.Empty(t, HeaderPairs(http.Header{"Empty": {}}))
	require.NotNil(t, MergeHeaders(nil, nil))
}
