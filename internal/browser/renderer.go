// Package browser is the page-rendering collaborator: it loads a URL in a
// real browser session and hands back the rendered DOM. The rest of the
// pipeline only sees the Renderer interface; any implementation that can
// load, re-create its session, and report its current content will do.
package browser

import "context"

// Renderer renders pages for one worker. A renderer is exclusively owned
// by the worker that created it and is never shared across tickers.
type Renderer interface {
	// Load navigates to url, waits for the page to settle, and returns
	// the rendered HTML.
	Load(ctx context.Context, url string) (string, error)

	// Recreate discards the entire rendering session and builds a fresh
	// one. Used when a page check fails: a stale session tends to keep
	// serving the same wrong variant.
	Recreate(ctx context.Context) error

	// Content returns the current DOM without navigating, for re-reading
	// a page after in-page interaction.
	Content(ctx context.Context) (string, error)

	// Click activates the element at the selector, tolerating pages that
	// do not carry it.
	Click(ctx context.Context, selector string) error

	// Close releases the session.
	Close() error
}

// Factory builds a fresh renderer per worker.
type Factory func() (Renderer, error)
