// Package collyfetcher implements scanner.Fetcher with a plain gocolly collector.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/domainscan/internal/scanner"
)

// Engine names this fetcher in responses and logs.
const Engine = "http"

const defaultTimeout = 30 * time.Second

// Config controls collector behavior.
type Config struct {
	Timeout        time.Duration
	UserAgents     []string
	SiteRoot       string
	Cookie         string
	Headers        http.Header
	TLSFingerprint string
}

// Fetcher fetches candidate pages over HTTP with a rotating browser identity.
type Fetcher struct {
	cfg           Config
	baseHeaders   http.Header
	baseCollector *colly.Collector
	intn          func(int) int
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Retries revisit the same URL, so revisits are
// allowed, and error statuses are parsed so the caller sees the code.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = DefaultUserAgents
	}
	transport, err := newHTTPTransport(cfg.TLSFingerprint)
	if err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
	)
	c.WithTransport(transport)
	c.SetRequestTimeout(cfg.Timeout)

	headers := browserHeaders(cfg.SiteRoot, cfg.Cookie)
	for key, values := range cfg.Headers {
		headers[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	return &Fetcher{
		cfg:           cfg,
		baseHeaders:   headers,
		baseCollector: c,
	}, nil
}

// Fetch executes a single GET. Non-2xx statuses are returned as responses
// with a nil error; transport failures and timeouts are errors.
func (f *Fetcher) Fetch(ctx context.Context, request scanner.FetchRequest) (scanner.FetchResponse, error) {
	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		result   scanner.FetchResponse
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	collector.Context = reqCtx
	f.configureCollectorHooks(collector, request, time.Now(), &result, &fetchErr)

	if err := f.runCollector(reqCtx, collector, request.URL, &fetchErr); err != nil {
		return scanner.FetchResponse{}, err
	}
	return result, nil
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request scanner.FetchRequest,
	start time.Time,
	result *scanner.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.applyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		*result = scanner.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
			Engine:     Engine,
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("http fetch %s: %w", url, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("http visit %s: %w", url, err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("http response %s: %w", url, *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) applyHeaders(request scanner.FetchRequest, r *colly.Request) {
	for key, values := range f.baseHeaders {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
	if ua := pickUserAgent(f.cfg.UserAgents, f.intn); ua != "" {
		r.Headers.Set("User-Agent", ua)
	}
	for key, values := range request.Headers {
		r.Headers.Del(key)
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport(fingerprint string) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	switch fingerprint {
	case "", "go":
		return transport, nil
	case TLSFingerprintChrome:
		dial, err := chromeDialer(10 * time.Second)
		if err != nil {
			return nil, err
		}
		transport.DialTLSContext = dial
		transport.ForceAttemptHTTP2 = false
		return transport, nil
	default:
		return nil, fmt.Errorf("unknown tls fingerprint %q", fingerprint)
	}
}
