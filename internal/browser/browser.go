package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Options configures the browser session
type Options struct {
	Width      int
	Height     int
	Timeout    time.Duration // page load and initial render
	Headless   bool
	ProfileDir string // Chrome/Chromium profile directory for authenticated sessions

	// ReadySelector must match at least one element before Launch returns.
	ReadySelector string

	// DiagnosticsDir receives a screenshot whenever a wait times out.
	// Empty disables captures.
	DiagnosticsDir   string
	DiagnosticsWidth uint

	// ClickTimeout bounds the native mouse click before falling back to a
	// scripted click.
	ClickTimeout time.Duration

	Logger *slog.Logger
}

// DefaultOptions returns a headless 1280x800 session
func DefaultOptions() Options {
	return Options{
		Width:            1280,
		Height:           800,
		Timeout:          30 * time.Second,
		Headless:         true,
		DiagnosticsWidth: 800,
		ClickTimeout:     2 * time.Second,
	}
}

// PageInfo describes the loaded menu page
type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Browser wraps the Rod browser and page. It implements crawler.Page and
// crawler.Diagnostics.
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
	opts    Options
	logger  *slog.Logger

	seq atomic.Int64
}

// Launch starts Chromium, opens url and waits until the page has rendered
// its ready selector.
func Launch(ctx context.Context, url string, opts Options) (*Browser, error) {
	def := DefaultOptions()
	if opts.Width == 0 || opts.Height == 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}
	if opts.DiagnosticsWidth == 0 {
		opts.DiagnosticsWidth = def.DiagnosticsWidth
	}
	if opts.ClickTimeout == 0 {
		opts.ClickTimeout = def.ClickTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Context(ctx).Bin(path).Headless(opts.Headless)
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	logger.Debug("browser launched", "control_url", u, "headless", opts.Headless)

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	b := &Browser{browser: browser, opts: opts, logger: logger}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	b.page = page

	if err := b.waitReady(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Browser) waitReady() error {
	page := b.page

	err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.opts.Width,
		Height:            b.opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if err := page.Timeout(b.opts.Timeout).WaitLoad(); err != nil {
		return fmt.Errorf("wait for page load: %w", err)
	}

	// Don't hang on persistent connections (WebSockets, polling, etc.)
	page.Timeout(5*time.Second).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	if b.opts.ReadySelector == "" {
		return nil
	}
	if _, err := page.Timeout(b.opts.Timeout).Element(b.opts.ReadySelector); err != nil {
		return fmt.Errorf("wait for %q: %w", b.opts.ReadySelector, err)
	}
	return nil
}

// Close cleans up browser resources
func (b *Browser) Close() error {
	var errs []error
	if b.page != nil {
		errs = append(errs, b.page.Close())
	}
	if b.browser != nil {
		errs = append(errs, b.browser.Close())
	}
	return errors.Join(errs...)
}

// Info returns the current URL and document title
func (b *Browser) Info(ctx context.Context) (PageInfo, error) {
	res, err := b.page.Context(ctx).Eval(`() => ({url: window.location.href, title: document.title})`)
	if err != nil {
		return PageInfo{}, fmt.Errorf("read page info: %w", err)
	}
	return PageInfo{
		URL:   res.Value.Get("url").Str(),
		Title: res.Value.Get("title").Str(),
	}, nil
}
