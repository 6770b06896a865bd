// Package scrape implements the per-stage workers the scheduler runs: the
// rendered fundamentals pass over one browser session per ticker, and the
// static profile, holders and insider-transactions fetches. Workers return
// partial records; the aggregator merges them across stages.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"resty.dev/v3"

	"finscrape/internal/acquire"
	"finscrape/internal/browser"
	"finscrape/internal/page"
	"finscrape/internal/ratelimit"
	"finscrape/internal/record"
	"finscrape/internal/scheduler"
)

// Stages builds the stage workers over shared transport resources. The
// resty client and limiter are safe for concurrent use; each fundamentals
// worker invocation creates its own rendering session.
type Stages struct {
	Links      page.Links
	Selectors  page.Selectors
	Browser    browser.Factory
	Client     *resty.Client
	Limiter    *ratelimit.Limiter
	Retries    int
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Worker returns the worker for a stage.
func (s *Stages) Worker(stage scheduler.Stage) (scheduler.Worker, error) {
	switch stage {
	case scheduler.StageFundamentals:
		return s.fundamentals, nil
	case scheduler.StageProfile:
		return s.profile, nil
	case scheduler.StageHolders:
		return s.holders, nil
	case scheduler.StageInsider:
		return s.insider, nil
	}
	return nil, fmt.Errorf("scrape: no worker for stage %q", stage)
}

func (s *Stages) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// pace blocks on the rendered-traffic bucket before a browser navigation.
func (s *Stages) pace(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Wait(ctx, ratelimit.SourceRendered)
}

// fundamentals acquires the five rendered pages for one ticker in their
// fixed order. A summary failure abandons the ticker; a statistics or
// statement failure degrades only that section.
func (s *Stages) fundamentals(ctx context.Context, ticker string) (*record.Record, error) {
	rec := record.New(ticker)

	renderer, err := s.Browser()
	if err != nil {
		return nil, fmt.Errorf("scrape: starting rendering session for %s: %w", ticker, err)
	}
	defer renderer.Close()

	acq := acquire.New(renderer, page.Validate(s.Selectors), s.Retries, s.RetryDelay, s.logger())

	if err := s.pace(ctx); err != nil {
		return rec, err
	}
	doc, err := acq.Acquire(ctx, ticker, string(page.KindSummary), s.Links.Summary(ticker))
	if err != nil {
		rec.SummaryAvail = record.Unavailable
		rec.StatisticsAvail = record.Unavailable
		rec.FinancialsAvail = record.Unavailable
		return rec, err
	}

	sum := page.ExtractSummary(doc, s.Selectors)
	rec.Name = sum.Name
	rec.Price = sum.Price
	rec.ChangeIntraday = sum.ChangeIntraday
	rec.ChangeAfterHours = sum.ChangeAfterHours
	rec.Summary = sum.Table
	rec.SummaryAvail = record.Available

	// The side tabs on the summary page announce which sections exist at
	// all for the instrument; a missing tab is not a failure.
	tabs := page.SideTabs(doc, s.Selectors)

	if !page.HasTab(tabs, page.TabStatistics) {
		s.logger().Info("statistics section not offered", "ticker", ticker)
		rec.StatisticsAvail = record.Unavailable
	} else {
		s.statistics(ctx, acq, rec)
	}

	if !page.HasTab(tabs, page.TabFinancials) {
		s.logger().Info("financials section not offered", "ticker", ticker)
		rec.FinancialsAvail = record.Unavailable
	} else {
		s.statements(ctx, acq, renderer, rec)
	}

	return rec, nil
}

func (s *Stages) statistics(ctx context.Context, acq *acquire.Acquirer, rec *record.Record) {
	if err := s.pace(ctx); err != nil {
		rec.StatisticsAvail = record.Unavailable
		return
	}
	doc, err := acq.Acquire(ctx, rec.Ticker, string(page.KindStatistics), s.Links.Statistics(rec.Ticker))
	if err != nil {
		s.logger().Warn("statistics page unavailable", "ticker", rec.Ticker, "error", err)
		rec.StatisticsAvail = record.Unavailable
		return
	}
	rec.StatisticsValuations = page.ExtractStatisticsValuations(doc, s.Selectors)
	rec.StatisticsHighlights = page.ExtractStatisticsHighlights(doc, s.Selectors)
	rec.StatisticsAvail = record.Available
}

func (s *Stages) statements(ctx context.Context, acq *acquire.Acquirer, renderer browser.Renderer, rec *record.Record) {
	extracted := false

	for _, st := range s.Links.Statements(rec.Ticker) {
		if err := s.pace(ctx); err != nil {
			break
		}
		doc, err := acq.Acquire(ctx, rec.Ticker, string(st.Kind), st.URL)
		if err != nil {
			s.logger().Warn("statement page unavailable",
				"ticker", rec.Ticker, "page", string(st.Kind), "error", err)
			continue
		}

		// Row groups arrive collapsed; expanding them rewrites the DOM,
		// so the document is read back afterwards.
		if s.Selectors.ExpandAll != "" {
			if err := renderer.Click(ctx, s.Selectors.ExpandAll); err != nil {
				s.logger().Debug("expand-all click failed",
					"ticker", rec.Ticker, "page", string(st.Kind), "error", err)
			} else if reread, rerr := acq.ReadBack(ctx); rerr == nil {
				doc = reread
			}
		}

		tbl := page.ExtractStatement(doc, s.Selectors)
		switch st.Kind {
		case page.KindIncome:
			rec.IncomeStatement = tbl
		case page.KindBalance:
			rec.BalanceSheet = tbl
		case page.KindCashFlow:
			rec.CashFlow = tbl
		}
		if !tbl.Empty() {
			extracted = true
		}
	}

	if extracted {
		rec.FinancialsAvail = record.Available
	} else {
		rec.FinancialsAvail = record.Unavailable
	}
}

// profile fetches the company profile page statically.
func (s *Stages) profile(ctx context.Context, ticker string) (*record.Record, error) {
	doc, err := fetchDocument(ctx, s.Client, s.Limiter, s.Links.Profile(ticker))
	if err != nil {
		return nil, err
	}
	p := page.ExtractProfile(doc, s.Selectors)

	rec := record.New(ticker)
	rec.Sector = p.Sector
	rec.Industry = p.Industry
	rec.Employees = p.Employees
	rec.KeyExecutives = p.Executives
	return rec, nil
}

// holders fetches the major-holders breakdown statically.
func (s *Stages) holders(ctx context.Context, ticker string) (*record.Record, error) {
	doc, err := fetchDocument(ctx, s.Client, s.Limiter, s.Links.Holders(ticker))
	if err != nil {
		return nil, err
	}
	h := page.ExtractHolders(doc, s.Selectors)

	rec := record.New(ticker)
	rec.InsiderSharesHeld = h.InsiderSharesHeld
	rec.InstitutionSharesHeld = h.InstitutionSharesHeld
	rec.InstitutionFloatHeld = h.InstitutionFloatHeld
	rec.InstitutionHolderCount = h.InstitutionHolderCount
	return rec, nil
}

// insider fetches the insider-transactions activity table statically.
func (s *Stages) insider(ctx context.Context, ticker string) (*record.Record, error) {
	doc, err := fetchDocument(ctx, s.Client, s.Limiter, s.Links.InsiderTransactions(ticker))
	if err != nil {
		return nil, err
	}

	rec := record.New(ticker)
	rec.InsiderTransactions = page.ExtractInsiderTransactions(doc, s.Selectors)
	return rec, nil
}
