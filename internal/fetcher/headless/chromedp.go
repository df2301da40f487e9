// Package headless renders candidate pages in Chrome through chromedp.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/domainscan/internal/fetcher"
	"github.com/JakeFAU/domainscan/internal/scanner"
)

// Engine names this fetcher in responses and logs.
const Engine = "chromedp"

const defaultNavigationTimeout = 30 * time.Second

// Config controls the behavior of the chromedp fetcher.
type Config struct {
	Browser     fetcher.Browser
	MaxParallel int
	Timeout     time.Duration
	Jitter      scanner.Jitter
}

// Fetcher implements scanner.Fetcher with one shared Chrome process and a tab per fetch.
type Fetcher struct {
	cfg           Config
	limiter       chan struct{}
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChromedp prepares a fetcher. Chrome is not started until Start.
func NewChromedp(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNavigationTimeout
	}
	if cfg.Jitter == nil {
		cfg.Jitter = scanner.RandomJitter
	}
	cfg.Browser = cfg.Browser.WithDefaults()

	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg.Browser)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func allocatorOptions(b fetcher.Browser) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.UserAgent),
		chromedp.WindowSize(int(b.Viewport.Width), int(b.Viewport.Height)),
	)
	if b.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if b.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.ExecPath))
	}
	return opts
}

// Start launches Chrome. A failure here means no candidate can be fetched.
func (f *Fetcher) Start(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(f.browserCtx) }()
	select {
	case <-ctx.Done():
		return fmt.Errorf("start chrome: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("start chrome: %w", err)
		}
		return nil
	}
}

// Close shuts Chrome down.
func (f *Fetcher) Close() error {
	f.browserCancel()
	f.allocCancel()
	return nil
}

// Fetch opens a fresh tab, warms up on the site root, then renders request.URL.
func (f *Fetcher) Fetch(ctx context.Context, request scanner.FetchRequest) (scanner.FetchResponse, error) {
	if err := f.acquire(ctx); err != nil {
		return scanner.FetchResponse{}, err
	}
	defer f.release()

	tabCtx, tabCancel := chromedp.NewContext(f.browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	meta := newResponseMeta()
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	start := time.Now()
	html, finalURL, err := f.render(tabCtx, request, meta)
	if err != nil {
		if ctx.Err() != nil {
			return scanner.FetchResponse{}, fmt.Errorf("chromedp fetch %s: %w", request.URL, ctx.Err())
		}
		return scanner.FetchResponse{}, err
	}

	status, headers, responseURL := meta.snapshotWithFallbacks(request.URL, finalURL)
	if headers == nil {
		headers = http.Header{}
	}
	return scanner.FetchResponse{
		URL:        responseURL,
		StatusCode: status,
		Headers:    headers,
		Body:       []byte(html),
		Duration:   time.Since(start),
		Engine:     Engine,
	}, nil
}

func (f *Fetcher) render(ctx context.Context, request scanner.FetchRequest, meta *responseMeta) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	timeout := f.navTimeout(request.Timeout)
	b := f.cfg.Browser
	actions := []chromedp.Action{
		f.setupAction(request.Headers),
	}
	if b.SiteRoot != "" {
		actions = append(actions,
			navigateWithin(b.SiteRoot, timeout),
			chromedp.Sleep(b.PageLoad.Draw(f.cfg.Jitter)),
		)
	}
	actions = append(actions,
		chromedp.ActionFunc(func(ctx context.Context) error {
			meta.reset(mainFrameID(ctx))
			return nil
		}),
		navigateWithin(request.URL, timeout),
		waitBestEffort(fetcher.ContentSelector, b.WaitForContent),
		chromedp.Sleep(b.Settle),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run %s: %w", request.URL, err)
	}
	return html, finalURL, nil
}

func (f *Fetcher) setupAction(extra http.Header) chromedp.Action {
	b := f.cfg.Browser
	headers := fetcher.MergeHeaders(b.Headers, extra)
	if b.SiteRoot != "" && headers.Get("Referer") == "" {
		headers.Set("Referer", b.SiteRoot)
	}
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		override := emulation.SetUserAgentOverride(b.UserAgent)
		if lang := headers.Get("Accept-Language"); lang != "" {
			override = override.WithAcceptLanguage(lang)
		}
		if err := override.Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		if len(headers) > 0 {
			if err := network.SetExtraHTTPHeaders(toNetworkHeaders(headers)).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		vp := b.Viewport
		if err := emulation.SetDeviceMetricsOverride(vp.Width, vp.Height, vp.DeviceScaleFactor, false).Do(ctx); err != nil {
			return fmt.Errorf("set viewport: %w", err)
		}
		if _, err := page.AddScriptToEvaluateOnNewDocument(fetcher.StealthScript).Do(ctx); err != nil {
			return fmt.Errorf("install stealth script: %w", err)
		}
		return nil
	})
}

func navigateWithin(url string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		navCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := chromedp.Navigate(url).Do(navCtx); err != nil {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
		return nil
	})
}

// waitBestEffort waits for sel to exist in the DOM; running out of time is not an error.
func waitBestEffort(sel string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if timeout <= 0 {
			return nil
		}
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		_ = chromedp.WaitReady(sel, chromedp.ByQuery).Do(waitCtx)
		return ctx.Err()
	})
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter == nil {
		return
	}
	select {
	case <-f.limiter:
	default:
	}
}

func (f *Fetcher) navTimeout(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	if f.cfg.Timeout > 0 {
		return f.cfg.Timeout
	}
	return defaultNavigationTimeout
}

// mainFrameID is the tab's top-level frame, which shares the target's ID.
func mainFrameID(ctx context.Context) cdp.FrameID {
	if c := chromedp.FromContext(ctx); c != nil && c.Target != nil {
		return cdp.FrameID(c.Target.TargetID)
	}
	return ""
}

type responseMeta struct {
	mu      sync.RWMutex
	frame   cdp.FrameID
	status  int
	headers http.Header
	url     string
}

func newResponseMeta() *responseMeta {
	return &responseMeta{headers: http.Header{}}
}

// reset drops what was captured so far and, when frame is set, ignores
// documents loaded by any other frame from now on.
func (m *responseMeta) reset(frame cdp.FrameID) {
	m.mu.Lock()
	m.frame = frame
	m.status = 0
	m.headers = http.Header{}
	m.url = ""
	m.mu.Unlock()
}

// capture keeps the most recent main-frame document response; redirects and
// the warm-up page are superseded by the final navigation. Iframe documents
// never replace it.
func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	m.mu.RLock()
	frame := m.frame
	m.mu.RUnlock()
	if frame != "" && event.FrameID != frame {
		return
	}
	headers := http.Header{}
	for key, value := range event.Response.Headers {
		switch v := value.(type) {
		case string:
			headers.Add(key, v)
		case []any:
			for _, entry := range v {
				headers.Add(key, fmt.Sprint(entry))
			}
		default:
			headers.Add(key, fmt.Sprint(v))
		}
	}
	m.mu.Lock()
	m.status = int(event.Response.Status)
	m.headers = headers
	m.url = event.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

func (m *responseMeta) snapshotWithFallbacks(requestURL, finalURL string) (int, http.Header, string) {
	m.mu.RLock()
	status, headers, url := m.status, m.headers.Clone(), m.url
	m.mu.RUnlock()

	switch {
	case url != "":
	case finalURL != "":
		url = finalURL
	default:
		url = requestURL
	}
	if status == 0 {
		status = http.StatusOK
	}
	return status, headers, url
}

func toNetworkHeaders(h http.Header) network.Headers {
	headers := network.Headers{}
	for key, values := range h {
		switch len(values) {
		case 0:
		case 1:
			headers[key] = values[0]
		default:
			headers[key] = append([]string(nil), values...)
		}
	}
	return headers
}
