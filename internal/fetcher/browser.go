// Package fetcher holds the browser identity shared by the rendering fetchers.
package fetcher

import (
	"net/http"
	"sort"
	"time"

	"github.com/JakeFAU/domainscan/internal/scanner"
)

// DefaultUserAgent is the desktop Chrome identity presented by browser engines.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// ContentSelector marks the search result block the page renders last.
const ContentSelector = `[class*="price"]`

// Viewport is the emulated window size.
type Viewport struct {
	Width             int64
	Height            int64
	DeviceScaleFactor float64
}

// Browser describes how a rendering engine presents itself and paces a page visit.
type Browser struct {
	UserAgent      string
	Viewport       Viewport
	Headers        http.Header
	SiteRoot       string
	PageLoad       scanner.Window
	WaitForContent time.Duration
	Settle         time.Duration
	Headless       bool
	ExecPath       string
}

// WithDefaults fills zero fields.
func (b Browser) WithDefaults() Browser {
	if b.UserAgent == "" {
		b.UserAgent = DefaultUserAgent
	}
	if b.Viewport.Width <= 0 || b.Viewport.Height <= 0 {
		b.Viewport = Viewport{Width: 1366, Height: 900, DeviceScaleFactor: 1}
	}
	if b.Viewport.DeviceScaleFactor <= 0 {
		b.Viewport.DeviceScaleFactor = 1
	}
	return b
}

// HeaderPairs flattens headers into sorted key/value pairs, first value per key.
func HeaderPairs(h http.Header) [][2]string {
	keys := make([]string, 0, len(h))
	for k, v := range h {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, h[k][0]})
	}
	return out
}

// MergeHeaders overlays extra on base without mutating either.
func MergeHeaders(base, extra http.Header) http.Header {
	out := base.Clone()
	if out == nil {
		out = http.Header{}
	}
	for k, v := range extra {
		out[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	return out
}

// StealthScript masks the automation signals checked by common bot filters.
// It runs before any page script on every new document.
const StealthScript = `(() => {
  Object.defineProperty(navigator, 'webdriver', { get: () => false });
  window.chrome = window.chrome || { runtime: {} };
  Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
  Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
})();`
