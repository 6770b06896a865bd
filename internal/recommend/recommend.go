// Package recommend expands a seed ticker into the related symbols the
// summary page advertises next to it.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"resty.dev/v3"

	"finscrape/internal/page"
	"finscrape/internal/ratelimit"
)

// DefaultCount is how many related tickers to pull per seed.
const DefaultCount = 3

// Expander reads the recommendation strip from summary pages over the
// static client.
type Expander struct {
	Links     page.Links
	Selectors page.Selectors
	Client    *resty.Client
	Limiter   *ratelimit.Limiter
	Count     int
	Logger    *slog.Logger
}

func (e *Expander) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Expander) count() int {
	if e.Count > 0 {
		return e.Count
	}
	return DefaultCount
}

// Expand returns the seeds plus their related tickers, deduplicated in
// discovery order. A seed whose page cannot be fetched contributes only
// itself.
func (e *Expander) Expand(ctx context.Context, seeds []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(ticker string) {
		ticker = strings.ToUpper(strings.TrimSpace(ticker))
		if ticker == "" || seen[ticker] {
			return
		}
		seen[ticker] = true
		out = append(out, ticker)
	}

	for _, seed := range seeds {
		add(seed)
		for _, related := range e.related(ctx, seed) {
			add(related)
		}
	}
	return out
}

func (e *Expander) related(ctx context.Context, seed string) []string {
	doc, err := e.fetch(ctx, e.Links.Summary(seed))
	if err != nil {
		e.logger().Warn("recommendation fetch failed", "ticker", seed, "error", err)
		return nil
	}
	related := page.RelatedTickers(doc, e.Selectors, e.count())
	e.logger().Info("recommendations obtained", "ticker", seed, "related", related)
	return related
}

func (e *Expander) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if e.Limiter != nil {
		if err := e.Limiter.Wait(ctx, ratelimit.SourceStatic); err != nil {
			return nil, err
		}
	}
	resp, err := e.Client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("recommend: fetching %s returned status %d", url, resp.StatusCode())
	}
	return goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
}
