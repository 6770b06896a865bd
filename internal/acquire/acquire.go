// Package acquire obtains a validated rendering of one logical page,
// tolerating transient misrenders. Each attempt loads and then checks; a
// failed check discards the whole rendering session and recreates it
// before retrying, because a stale session tends to keep serving the same
// wrong variant. After the retry budget the acquisition terminates with a
// non-fatal failure the caller records as section-unavailable.
package acquire

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"finscrape/internal/browser"
)

// DefaultRetries is the default attempt budget.
const DefaultRetries = 10

// ValidateFunc inspects a rendered document and reports whether the
// correct page variant loaded. The predicate is opaque to the acquirer.
type ValidateFunc func(doc *goquery.Document) bool

// Acquirer drives one renderer through load/check/retry cycles.
type Acquirer struct {
	renderer browser.Renderer
	validate ValidateFunc
	retries  int
	delay    time.Duration
	logger   *slog.Logger
}

// New builds an acquirer over a renderer. retries <= 0 selects the
// default budget.
func New(renderer browser.Renderer, validate ValidateFunc, retries int, delay time.Duration, logger *slog.Logger) *Acquirer {
	if retries <= 0 {
		retries = DefaultRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{
		renderer: renderer,
		validate: validate,
		retries:  retries,
		delay:    delay,
		logger:   logger,
	}
}

// Acquire loads url until the validation predicate accepts the rendered
// document or the retry budget is exhausted. ticker and page label the
// acquisition for logging and the failure signal.
func (a *Acquirer) Acquire(ctx context.Context, ticker, page, url string) (*goquery.Document, error) {
	var lastReason Reason

	for attempt := 1; attempt <= a.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Ticker: ticker, Page: page, Reason: ReasonRender, Attempts: attempt - 1, Cause: err}
		}

		doc, reason, err := a.attempt(ctx, url)
		if doc != nil {
			a.logger.Debug("page accepted",
				"ticker", ticker, "page", page, "attempt", attempt)
			return doc, nil
		}

		lastReason = reason
		a.logger.Warn("page check failed, recreating session",
			"ticker", ticker, "page", page, "attempt", attempt,
			"reason", string(reason), "error", errString(err))

		// Session reuse across a failed check is disallowed.
		if attempt < a.retries {
			if rerr := a.renderer.Recreate(ctx); rerr != nil {
				return nil, &Error{Ticker: ticker, Page: page, Reason: ReasonRender, Attempts: attempt, Cause: rerr}
			}
			if a.delay > 0 {
				select {
				case <-time.After(a.delay):
				case <-ctx.Done():
					return nil, &Error{Ticker: ticker, Page: page, Reason: ReasonRender, Attempts: attempt, Cause: ctx.Err()}
				}
			}
		}
	}

	return nil, &Error{Ticker: ticker, Page: page, Reason: lastReason, Attempts: a.retries}
}

// ReadBack re-reads the renderer's current DOM, for callers that interact
// with an already-accepted page (e.g. expanding a statement) and need the
// updated document.
func (a *Acquirer) ReadBack(ctx context.Context) (*goquery.Document, error) {
	html, err := a.renderer.Content(ctx)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// Renderer exposes the owned renderer for page-level interaction.
func (a *Acquirer) Renderer() browser.Renderer {
	return a.renderer
}

// attempt runs one load-and-check cycle.
func (a *Acquirer) attempt(ctx context.Context, url string) (*goquery.Document, Reason, error) {
	html, err := a.renderer.Load(ctx, url)
	if err != nil {
		return nil, classify(err), err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, ReasonRender, err
	}

	if !a.validate(doc) {
		return nil, ReasonWrongVariant, nil
	}
	return doc, "", nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
