// Package config loads and validates scan configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/JakeFAU/domainscan/internal/scanner"
)

// EnvPrefix namespaces environment overrides, e.g. DOMAINSCAN_SCAN_START.
const EnvPrefix = "DOMAINSCAN"

// AppName is the directory searched under the XDG config home.
const AppName = "domainscan"

// Engines lists the accepted scan.engine values.
var Engines = []string{"http", "chromedp", "rod"}

// Config captures every knob of a scan run.
type Config struct {
	Scan    ScanConfig    `mapstructure:"scan"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Output  OutputConfig  `mapstructure:"output"`
	Browser BrowserConfig `mapstructure:"browser"`
	Delays  DelaysConfig  `mapstructure:"delays"`
	Target  TargetConfig  `mapstructure:"target"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Store   StoreConfig   `mapstructure:"store"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Archive ArchiveConfig `mapstructure:"archive"`

	// Source is the file the config was read from, empty for built-in defaults.
	Source string `mapstructure:"-"`
}

// ScanConfig controls the candidate range and worker behavior.
type ScanConfig struct {
	Start         int     `mapstructure:"start"`
	End           int     `mapstructure:"end"`
	Concurrency   int     `mapstructure:"concurrency"`
	TimeoutMs     int     `mapstructure:"timeoutMs"`
	TargetSnippet string  `mapstructure:"targetSnippet"`
	SaveOK        bool    `mapstructure:"saveOk"`
	Retries       int     `mapstructure:"retries"`
	Engine        string  `mapstructure:"engine"`
	MaxRPS        float64 `mapstructure:"maxRps"`
}

// FilterConfig lists candidate exclusion rules. Numbers in skipNumbers are
// matched as substrings of the decimal candidate.
type FilterConfig struct {
	SkipNumbers  []string `mapstructure:"skipNumbers"`
	SkipPatterns []string `mapstructure:"skipPatterns"`
}

// OutputConfig names the files a run writes.
type OutputConfig struct {
	ResultFile  string `mapstructure:"resultFile"`
	ErrorFile   string `mapstructure:"errorFile"`
	SummaryFile string `mapstructure:"summaryFile"`
}

// ViewportConfig is the emulated browser window.
type ViewportConfig struct {
	Width             int     `mapstructure:"width"`
	Height            int     `mapstructure:"height"`
	DeviceScaleFactor float64 `mapstructure:"deviceScaleFactor"`
}

// BrowserConfig is used only by the rendering engines.
type BrowserConfig struct {
	UserAgent string            `mapstructure:"userAgent"`
	Viewport  ViewportConfig    `mapstructure:"viewport"`
	Headers   map[string]string `mapstructure:"headers"`
	Headless  bool              `mapstructure:"headless"`
	ExecPath  string            `mapstructure:"execPath"`
}

// DelaysConfig holds pacing values in milliseconds.
type DelaysConfig struct {
	MinJitter      int `mapstructure:"minJitter"`
	MaxJitter      int `mapstructure:"maxJitter"`
	PageLoadMin    int `mapstructure:"pageLoadMin"`
	PageLoadMax    int `mapstructure:"pageLoadMax"`
	WaitForContent int `mapstructure:"waitForContent"`
	Settle         int `mapstructure:"settle"`
}

// TargetConfig describes the search page being scanned.
type TargetConfig struct {
	URLTemplate string `mapstructure:"urlTemplate"`
	SiteRoot    string `mapstructure:"siteRoot"`
	TLD         string `mapstructure:"tld"`
}

// HTTPConfig tunes the plain HTTP engine.
type HTTPConfig struct {
	TLSFingerprint string   `mapstructure:"tlsFingerprint"`
	Cookie         string   `mapstructure:"cookie"`
	UserAgents     []string `mapstructure:"userAgents"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig enables the metrics and progress server when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// StoreConfig enables the Postgres result mirror when DSN is set.
type StoreConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// NotifyConfig enables Pub/Sub hit notifications when both fields are set.
type NotifyConfig struct {
	ProjectID string `mapstructure:"projectId"`
	Topic     string `mapstructure:"topic"`
}

// ArchiveConfig enables uploading the result file to GCS when Bucket is set.
type ArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// Load builds a Config from disk and environment. With an empty path the
// working directory and the XDG config home are searched for config.{json,yaml};
// finding nothing there is not an error.
func Load(path string) (Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		for _, dir := range SearchPaths() {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}
	cfg.Source = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in conservative config.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("decode built-in defaults: %v", err))
	}
	return cfg
}

// SearchPaths lists the directories searched when no path is given.
func SearchPaths() []string {
	return []string{".", filepath.Join(xdg.ConfigHome, AppName)}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.start", 112509)
	v.SetDefault("scan.end", 112510)
	v.SetDefault("scan.concurrency", 1)
	v.SetDefault("scan.timeoutMs", 30000)
	v.SetDefault("scan.targetSnippet", "is available")
	v.SetDefault("scan.saveOk", false)
	v.SetDefault("scan.retries", 3)
	v.SetDefault("scan.engine", "chromedp")
	v.SetDefault("scan.maxRps", 0)
	v.SetDefault("filter.skipNumbers", []string{})
	v.SetDefault("filter.skipPatterns", []string{})
	v.SetDefault("output.resultFile", "found_0_67.md")
	v.SetDefault("output.errorFile", "errors.log")
	v.SetDefault("output.summaryFile", "")
	v.SetDefault("browser.userAgent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("browser.viewport.width", 1366)
	v.SetDefault("browser.viewport.height", 900)
	v.SetDefault("browser.viewport.deviceScaleFactor", 1)
	v.SetDefault("browser.headers", map[string]any{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	})
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.execPath", "")
	v.SetDefault("delays.minJitter", 200)
	v.SetDefault("delays.maxJitter", 600)
	v.SetDefault("delays.pageLoadMin", 300)
	v.SetDefault("delays.pageLoadMax", 900)
	v.SetDefault("delays.waitForContent", 10000)
	v.SetDefault("delays.settle", 8000)
	v.SetDefault("target.urlTemplate", "https://www.spaceship.com/domain-search/?query={n}.xyz&beast=false&tab=domains")
	v.SetDefault("target.siteRoot", "https://www.spaceship.com/")
	v.SetDefault("target.tld", "xyz")
	v.SetDefault("http.tlsFingerprint", "")
	v.SetDefault("http.cookie", "landing=1; sspref=domain-search")
	v.SetDefault("http.userAgents", []string{})
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "scan_results")
	v.SetDefault("notify.projectId", "")
	v.SetDefault("notify.topic", "")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "domainscan")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	if c.Scan.Start > c.Scan.End {
		errs = append(errs, fmt.Errorf("scan.start (%d) must be <= scan.end (%d)", c.Scan.Start, c.Scan.End))
	}
	if c.Scan.Concurrency <= 0 {
		errs = append(errs, errors.New("scan.concurrency must be > 0"))
	}
	if c.Scan.TimeoutMs <= 0 {
		errs = append(errs, errors.New("scan.timeoutMs must be > 0"))
	}
	if c.Scan.TargetSnippet == "" {
		errs = append(errs, errors.New("scan.targetSnippet must be set"))
	}
	if c.Scan.Retries < 0 {
		errs = append(errs, errors.New("scan.retries must be >= 0"))
	}
	if !validEngine(c.Scan.Engine) {
		errs = append(errs, fmt.Errorf("scan.engine must be one of %s", strings.Join(Engines, ", ")))
	}
	if c.Scan.MaxRPS < 0 {
		errs = append(errs, errors.New("scan.maxRps must be >= 0"))
	}
	if c.Output.ResultFile == "" {
		errs = append(errs, errors.New("output.resultFile must be set"))
	}
	if c.Output.ErrorFile == "" {
		errs = append(errs, errors.New("output.errorFile must be set"))
	}
	if c.Delays.MinJitter > c.Delays.MaxJitter {
		errs = append(errs, errors.New("delays.minJitter must be <= delays.maxJitter"))
	}
	if c.Delays.PageLoadMin > c.Delays.PageLoadMax {
		errs = append(errs, errors.New("delays.pageLoadMin must be <= delays.pageLoadMax"))
	}
	if !strings.Contains(c.Target.URLTemplate, scanner.Placeholder) {
		errs = append(errs, fmt.Errorf("target.urlTemplate must contain %s", scanner.Placeholder))
	}
	if c.Target.TLD == "" {
		errs = append(errs, errors.New("target.tld must be set"))
	}
	switch c.HTTP.TLSFingerprint {
	case "", "go", "chrome":
	default:
		errs = append(errs, fmt.Errorf("http.tlsFingerprint %q is not supported", c.HTTP.TLSFingerprint))
	}
	if (c.Notify.ProjectID == "") != (c.Notify.Topic == "") {
		errs = append(errs, errors.New("notify.projectId and notify.topic must be set together"))
	}
	return errors.Join(errs...)
}

func validEngine(engine string) bool {
	for _, e := range Engines {
		if e == engine {
			return true
		}
	}
	return false
}

// Timeout is the per-fetch timeout.
func (c Config) Timeout() time.Duration {
	return ms(c.Scan.TimeoutMs)
}

// ScanTarget builds the URL and domain mapping.
func (c Config) ScanTarget() scanner.Target {
	return scanner.Target{
		URLTemplate: c.Target.URLTemplate,
		SiteRoot:    c.Target.SiteRoot,
		TLD:         c.Target.TLD,
	}
}

// Pacing returns the request pacing windows. Only the inter-task window is configurable.
func (c Config) Pacing() scanner.Pacing {
	p := scanner.DefaultPacing()
	p.InterTask = scanner.Window{Min: ms(c.Delays.MinJitter), Max: ms(c.Delays.MaxJitter)}
	return p
}

// PageLoad is the randomized settle after the warm-up navigation.
func (c Config) PageLoad() scanner.Window {
	return scanner.Window{Min: ms(c.Delays.PageLoadMin), Max: ms(c.Delays.PageLoadMax)}
}

// BrowserHeaders converts browser.headers into an http.Header.
func (c Config) BrowserHeaders() http.Header {
	h := http.Header{}
	for k, v := range c.Browser.Headers {
		h.Set(k, v)
	}
	return h
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
