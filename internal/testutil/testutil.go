// Package testutil holds shared fakes for tests.
package testutil

import (
	"context"
	"sync"

	"finscrape/internal/browser"
)

// FakeRenderer is a function-field fake of the rendering collaborator.
// Unset fields behave as no-ops; the counters record how the acquirer
// drove the session.
type FakeRenderer struct {
	LoadFunc     func(ctx context.Context, url string) (string, error)
	ContentFunc  func(ctx context.Context) (string, error)
	ClickFunc    func(ctx context.Context, selector string) error
	RecreateFunc func(ctx context.Context) error

	mu        sync.Mutex
	loads     int
	recreates int
	closed    bool
}

// NewFakeRenderer returns a renderer that always serves html.
func NewFakeRenderer(html string) *FakeRenderer {
	return &FakeRenderer{
		LoadFunc: func(context.Context, string) (string, error) {
			return html, nil
		},
		ContentFunc: func(context.Context) (string, error) {
			return html, nil
		},
	}
}

// Load implements browser.Renderer.
func (f *FakeRenderer) Load(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.loads++
	f.mu.Unlock()
	if f.LoadFunc != nil {
		return f.LoadFunc(ctx, url)
	}
	return "<html><body></body></html>", nil
}

// Content implements browser.Renderer.
func (f *FakeRenderer) Content(ctx context.Context) (string, error) {
	if f.ContentFunc != nil {
		return f.ContentFunc(ctx)
	}
	return "<html><body></body></html>", nil
}

// Click implements browser.Renderer.
func (f *FakeRenderer) Click(ctx context.Context, selector string) error {
	if f.ClickFunc != nil {
		return f.ClickFunc(ctx, selector)
	}
	return nil
}

// Recreate implements browser.Renderer.
func (f *FakeRenderer) Recreate(ctx context.Context) error {
	f.mu.Lock()
	f.recreates++
	f.mu.Unlock()
	if f.RecreateFunc != nil {
		return f.RecreateFunc(ctx)
	}
	return nil
}

// Close implements browser.Renderer.
func (f *FakeRenderer) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Loads returns how many times Load ran.
func (f *FakeRenderer) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// Recreates returns how many times the session was recreated.
func (f *FakeRenderer) Recreates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recreates
}

// Closed reports whether Close ran.
func (f *FakeRenderer) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var _ browser.Renderer = (*FakeRenderer)(nil)
