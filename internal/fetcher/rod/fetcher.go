// Package rodfetcher renders candidate pages with go-rod and its stealth patches.
package rodfetcher

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/JakeFAU/domainscan/internal/clock/system"
	"github.com/JakeFAU/domainscan/internal/fetcher"
	"github.com/JakeFAU/domainscan/internal/scanner"
)

// Engine names this fetcher in responses and logs.
const Engine = "rod"

const defaultNavigationTimeout = 30 * time.Second

const navigationStatusJS = `() => {
	try {
		const entries = performance.getEntriesByType("navigation");
		if (entries.length > 0) return entries[0].responseStatus || 0;
	} catch (e) {}
	return 0;
}`

// Config controls the rod fetcher.
type Config struct {
	Browser fetcher.Browser
	Timeout time.Duration
	Jitter  scanner.Jitter
	Sleeper scanner.Sleeper
}

// Fetcher implements scanner.Fetcher with one Chromium process and a stealth page per fetch.
type Fetcher struct {
	cfg      Config
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// New prepares a fetcher. The browser is launched by Start.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNavigationTimeout
	}
	if cfg.Jitter == nil {
		cfg.Jitter = scanner.RandomJitter
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = system.New()
	}
	cfg.Browser = cfg.Browser.WithDefaults()
	return &Fetcher{cfg: cfg, launcher: newLauncher(cfg.Browser)}
}

func newLauncher(b fetcher.Browser) *launcher.Launcher {
	l := launcher.New().
		Headless(b.Headless).
		NoSandbox(runtime.GOOS == "linux")
	if b.ExecPath != "" {
		l = l.Bin(b.ExecPath)
	}
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", b.Viewport.Width, b.Viewport.Height))
	return l
}

// Start launches and connects to the browser.
func (f *Fetcher) Start(ctx context.Context) error {
	controlURL, err := f.launcher.Context(ctx).Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		f.launcher.Kill()
		return fmt.Errorf("connect browser: %w", err)
	}
	f.browser = browser
	return nil
}

// Close closes the browser and kills the launched process.
func (f *Fetcher) Close() error {
	var err error
	if f.browser != nil {
		err = f.browser.Close()
		f.browser = nil
	}
	f.launcher.Kill()
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// Fetch renders request.URL in a new stealth page after a warm-up visit to the site root.
func (f *Fetcher) Fetch(ctx context.Context, request scanner.FetchRequest) (scanner.FetchResponse, error) {
	if f.browser == nil {
		return scanner.FetchResponse{}, fmt.Errorf("rod fetcher not started")
	}
	pg, err := stealth.Page(f.browser)
	if err != nil {
		return scanner.FetchResponse{}, fmt.Errorf("open stealth page: %w", err)
	}
	defer func() { _ = pg.Close() }()

	start := time.Now()
	p := pg.Context(ctx)
	if err := f.prepare(p, request.Headers); err != nil {
		return scanner.FetchResponse{}, err
	}

	timeout := f.navTimeout(request.Timeout)
	b := f.cfg.Browser
	if b.SiteRoot != "" {
		if err := navigate(p, b.SiteRoot, timeout); err != nil {
			return scanner.FetchResponse{}, err
		}
		if err := f.pause(ctx, "warm-up", b.PageLoad.Draw(f.cfg.Jitter)); err != nil {
			return scanner.FetchResponse{}, err
		}
	}
	if err := navigate(p, request.URL, timeout); err != nil {
		return scanner.FetchResponse{}, err
	}
	if b.WaitForContent > 0 {
		_, _ = p.Timeout(b.WaitForContent).Element(fetcher.ContentSelector)
	}
	if err := f.pause(ctx, "settle", b.Settle); err != nil {
		return scanner.FetchResponse{}, err
	}

	status := http.StatusOK
	if res, evalErr := p.Eval(navigationStatusJS); evalErr == nil {
		if code := res.Value.Int(); code > 0 {
			status = code
		}
	}
	html, err := p.HTML()
	if err != nil {
		return scanner.FetchResponse{}, fmt.Errorf("read page html: %w", err)
	}
	finalURL := request.URL
	if info, infoErr := p.Info(); infoErr == nil && info.URL != "" {
		finalURL = info.URL
	}
	return scanner.FetchResponse{
		URL:        finalURL,
		StatusCode: status,
		Headers:    http.Header{},
		Body:       []byte(html),
		Duration:   time.Since(start),
		Engine:     Engine,
	}, nil
}

func (f *Fetcher) prepare(p *rod.Page, extra http.Header) error {
	b := f.cfg.Browser
	headers := fetcher.MergeHeaders(b.Headers, extra)
	if b.SiteRoot != "" && headers.Get("Referer") == "" {
		headers.Set("Referer", b.SiteRoot)
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      b.UserAgent,
		AcceptLanguage: headers.Get("Accept-Language"),
	}); err != nil {
		return fmt.Errorf("set user-agent: %w", err)
	}
	if dict := flattenHeaders(headers); len(dict) > 0 {
		if _, err := p.SetExtraHeaders(dict); err != nil {
			return fmt.Errorf("set extra headers: %w", err)
		}
	}
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(b.Viewport.Width),
		Height:            int(b.Viewport.Height),
		DeviceScaleFactor: b.Viewport.DeviceScaleFactor,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	return nil
}

func navigate(p *rod.Page, url string, timeout time.Duration) error {
	tp := p.Timeout(timeout)
	if err := tp.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := tp.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (f *Fetcher) pause(ctx context.Context, step string, d time.Duration) error {
	if err := f.cfg.Sleeper.Sleep(ctx, d); err != nil {
		return fmt.Errorf("page %s: %w", step, err)
	}
	return nil
}

func (f *Fetcher) navTimeout(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	return f.cfg.Timeout
}

// flattenHeaders turns headers into the key, value, key, value form rod expects.
func flattenHeaders(h http.Header) []string {
	pairs := fetcher.HeaderPairs(h)
	out := make([]string, 0, len(pairs)*2)
	for _, kv := range pairs {
		out = append(out, kv[0], kv[1])
	}
	return out
}
