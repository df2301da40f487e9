package app

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/domainscan/internal/config"
	"github.com/JakeFAU/domainscan/internal/fetcher"
	collyfetcher "github.com/JakeFAU/domainscan/internal/fetcher/colly"
	"github.com/JakeFAU/domainscan/internal/fetcher/headless"
	rodfetcher "github.com/JakeFAU/domainscan/internal/fetcher/rod"
	"github.com/JakeFAU/domainscan/internal/scanner"
)

// Engine is a Fetcher with a lifecycle. Browser engines launch their process
// in Start; the HTTP engine has nothing to start.
type Engine interface {
	scanner.Fetcher
	Start(ctx context.Context) error
	Close() error
}

type httpEngine struct {
	*collyfetcher.Fetcher
}

func (httpEngine) Start(context.Context) error { return nil }
func (httpEngine) Close() error                { return nil }

// NewEngine builds the engine named by scan.engine without starting it.
func NewEngine(cfg config.Config) (Engine, error) {
	switch cfg.Scan.Engine {
	case collyfetcher.Engine:
		f, err := collyfetcher.New(collyfetcher.Config{
			Timeout:        cfg.Timeout(),
			UserAgents:     cfg.HTTP.UserAgents,
			SiteRoot:       cfg.Target.SiteRoot,
			Cookie:         cfg.HTTP.Cookie,
			TLSFingerprint: cfg.HTTP.TLSFingerprint,
		})
		if err != nil {
			return nil, fmt.Errorf("init http engine: %w", err)
		}
		return httpEngine{f}, nil
	case headless.Engine:
		f, err := headless.NewChromedp(headless.Config{
			Browser:     browserProfile(cfg),
			MaxParallel: cfg.Scan.Concurrency,
			Timeout:     cfg.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("init chromedp engine: %w", err)
		}
		return f, nil
	case rodfetcher.Engine:
		return rodfetcher.New(rodfetcher.Config{
			Browser: browserProfile(cfg),
			Timeout: cfg.Timeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Scan.Engine)
	}
}

func browserProfile(cfg config.Config) fetcher.Browser {
	return fetcher.Browser{
		UserAgent: cfg.Browser.UserAgent,
		Viewport: fetcher.Viewport{
			Width:             int64(cfg.Browser.Viewport.Width),
			Height:            int64(cfg.Browser.Viewport.Height),
			DeviceScaleFactor: cfg.Browser.Viewport.DeviceScaleFactor,
		},
		Headers:        cfg.BrowserHeaders(),
		SiteRoot:       cfg.Target.SiteRoot,
		PageLoad:       cfg.PageLoad(),
		WaitForContent: time.Duration(cfg.Delays.WaitForContent) * time.Millisecond,
		Settle:         time.Duration(cfg.Delays.Settle) * time.Millisecond,
		Headless:       cfg.Browser.Headless,
		ExecPath:       cfg.Browser.ExecPath,
	}
}
