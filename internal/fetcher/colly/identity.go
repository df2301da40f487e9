package collyfetcher

import (
	"math/rand/v2"
	"net/http"
)

// DefaultUserAgents is the desktop browser pool rotated per request.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
}

// DefaultCookie mimics a visitor that already landed on the search page.
const DefaultCookie = "landing=1; sspref=domain-search"

// browserHeaders returns the navigation headers a desktop browser sends when
// following a link from siteRoot.
func browserHeaders(siteRoot, cookie string) http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9,zh-CN;q=0.8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("Sec-Fetch-User", "?1")
	if siteRoot != "" {
		h.Set("Referer", siteRoot)
	}
	if cookie != "" {
		h.Set("Cookie", cookie)
	}
	return h
}

// pickUserAgent chooses one entry uniformly, or "" for an empty pool.
func pickUserAgent(pool []string, intn func(int) int) string {
	if len(pool) == 0 {
		return ""
	}
	if intn == nil {
		intn = rand.IntN
	}
	return pool[intn(len(pool))]
}
