package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/domainscan/internal/scanner"
)

func TestFetchReturnsBodyAndBrowserHeaders(t *testing.T) {
	t.Parallel()

	seen := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Clone()
		_, _ = w.Write([]byte("<p>102.xyz is available</p>"))
	}))
	t.Cleanup(srv.Close)

	f, err := New(Config{SiteRoot: "https://registrar.test/", Cookie: DefaultCookie})
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), scanner.FetchRequest{URL: srv.URL + "/search?q=102.xyz"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, Engine, resp.Engine)
	require.Contains(t, string(resp.Body), "is available")

	hdr := <-seen
	require.Contains(t, DefaultUserAgents, hdr.Get("User-Agent"))
	require.Equal(t, "https://registrar.test/", hdr.Get("Referer"))
	require.Equal(t, "en-US,en;q=0.9,zh-CN;q=0.8", hdr.Get("Accept-Language"))
	require.Equal(t, "navigate", hdr.Get("Sec-Fetch-Mode"))
	require.Equal(t, DefaultCookie, hdr.Get("Cookie"))
}

func TestFetchRevisitsSameURLAndSurfacesErrorStatus(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("blocked"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	f, err := New(Config{})
	require.NoError(t, err)
	target := srv.URL + "/same"

	first, err := f.Fetch(context.Background(), scanner.FetchRequest{URL: target})
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, first.StatusCode)
	require.False(t, first.OK())

	second, err := f.Fetch(context.Background(), scanner.FetchRequest{URL: target})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, second.StatusCode)
	require.EqualValues(t, 2, hits.Load())
}

func TestFetchTimesOut(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	f, err := New(Config{})
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), scanner.FetchRequest{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
}

func TestNewRejectsUnknownFingerprint(t *testing.T) {
	t.Parallel()

	_, err := New(Config{TLSFingerprint: "netscape"})
	require.ErrorContains(t, err, "unknown tls fingerprint")
}

func TestChromeFingerprintInstallsDialer(t *testing.T) {
	t.Parallel()

	transport, err := newHTTPTransport(TLSFingerprintChrome)
	require.NoError(t, err)
	require.NotNil(t, transport.DialTLSContext)
	require.False(t, transport.ForceAttemptHTTP2)

	plain, err := newHTTPTransport("")
	require.NoError(t, err)
	require.Nil(t, plain.DialTLSContext)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f, err := New(Config{UserAgents: []string{"agent-a", "agent-b"}, Headers: http.Header{"accept-language": {"fr"}}})
	require.NoError(t, err)
	f.intn = func(int) int { return 1 }

	req := scanner.FetchRequest{URL: "https://example.com", Headers: http.Header{"X-Trace": {"yes"}}}
	var (
		result   scanner.FetchResponse
		fetchErr error
	)
	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, req, time.Unix(0, 0), &result, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{"User-Agent": {"colly"}}}
	hooks.onRequest(collyReq)
	require.Equal(t, "agent-b", collyReq.Headers.Get("User-Agent"))
	require.Equal(t, "yes", collyReq.Headers.Get("X-Trace"))
	require.Equal(t, "fr", collyReq.Headers.Get("Accept-Language"))
	require.Equal(t, "no-cache", collyReq.Headers.Get("Pragma"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       []byte("slow down"),
		Headers:    &http.Header{"Retry-After": {"3"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com")},
	})
	require.Equal(t, http.StatusTooManyRequests, result.StatusCode)
	require.Equal(t, "slow down", string(result.Body))
	require.Equal(t, "3", result.Headers.Get("Retry-After"))

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
}

func TestPickUserAgent(t *testing.T) {
	t.Parallel()

	require.Empty(t, pickUserAgent(nil, nil))
	require.Equal(t, "b", pickUserAgent([]string{"a", "b"}, func(n int) int { return n - 1 }))
	require.Contains(t, DefaultUserAgents, pickUserAgent(DefaultUserAgents, nil))
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback)   { s.onRequest = cb }
func (s *stubHooks) OnResponse(cb colly.ResponseCallback) { s.onResponse = cb }
func (s *stubHooks) OnError(cb colly.ErrorCallback)       { s.onError = cb }
