package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Options configures a chromedp session.
type Options struct {
	UserAgent      string
	Headless       bool
	SettleDelay    time.Duration // wait after navigation before reading the DOM
	RequestTimeout time.Duration // per-navigation budget
}

func (o *Options) defaults() {
	if o.UserAgent == "" {
		o.UserAgent = "Mozilla/5.0"
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
}

// Session is the chromedp-backed Renderer. Each session owns its own
// allocator and browser context pair; Recreate tears both down and builds
// fresh ones so no browser state survives a failed page check.
type Session struct {
	opts Options

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewSession starts a browser and returns it as a Renderer.
func NewSession(opts Options) (*Session, error) {
	opts.defaults()
	s := &Session{opts: opts}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) start() error {
	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(s.opts.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Force the browser process to start now so a broken environment
	// surfaces here rather than on the first Load.
	if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to start browser session: %w", err)
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	return nil
}

// Load implements Renderer.
func (s *Session) Load(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(s.browserCtx, s.opts.RequestTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", url, err)
	}
	return html, nil
}

// Content implements Renderer.
func (s *Session) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(s.browserCtx, s.opts.RequestTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

// Click implements Renderer.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(s.browserCtx, s.opts.RequestTimeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Sleep(s.opts.SettleDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

// Recreate implements Renderer: the whole session is discarded, not just
// the page.
func (s *Session) Recreate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.teardown()
	return s.start()
}

// Close implements Renderer.
func (s *Session) Close() error {
	s.teardown()
	return nil
}

func (s *Session) teardown() {
	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
}
