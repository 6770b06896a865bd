package main

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finscrape/internal/aggregate"
	"finscrape/internal/browser"
	"finscrape/internal/derive"
	"finscrape/internal/export"
	"finscrape/internal/page"
	"finscrape/internal/ratelimit"
	"finscrape/internal/record"
	"finscrape/internal/scheduler"
	"finscrape/internal/scrape"
	"finscrape/internal/testutil"
)

func pipelineSelectors() page.Selectors {
	return page.Selectors{
		LiveMarker: "fin-streamer.livePrice",

		Name:         "div.longName",
		Price:        "fin-streamer.livePrice",
		Change:       "fin-streamer.priceChange",
		SummaryLabel: "span.label",
		SummaryValue: "span.value",

		SideTab:            "a[category]",
		StatsValuationHead: "th.vh",
		StatsValuationRow:  "tr.vrow",
		StatsValuationCell: "td.vcell",
		StatsHighlightRow:  "tr.hrow",
		StatsHighlightCell: "td.hcell",

		ExpandAll:         "button.expandAll",
		StatementHeadRow:  "div.fs-header",
		StatementHeadCell: "div.column",
		StatementRow:      "div.fs-row",
		StatementCell:     "div.fs-cell",

		SectorIndustry:  "a.subtle-link",
		Employees:       "dd",
		ProfileHeadCell: "th.ph",
		ProfileRow:      "tr.prow",
		ProfileCell:     "td.pcell",

		MajorHolders: "td.majorHolders",

		InsiderRow:      "tr.irow",
		InsiderHeadCell: "th.ihead",
		InsiderCell:     "td.icell",
	}
}

const pipelineMarker = `<fin-streamer class="livePrice">231.50</fin-streamer>`

const aaplSummary = `<html><body>` + pipelineMarker + `
<div class="longName">Apple Inc. (AAPL)</div>
<a category="statistics">Statistics</a>
<a category="financials">Financials</a>
<span class="label">Market Cap</span><span class="value">3.52T</span>
<span class="label">EPS (TTM)</span><span class="value">6.59</span>
</body></html>`

const msftSummary = `<html><body>` + pipelineMarker + `
<div class="longName">Microsoft Corporation (MSFT)</div>
<a category="statistics">Statistics</a>
<a category="financials">Financials</a>
<span class="label">Market Cap</span><span class="value">3.10T</span>
</body></html>`

const statisticsFixture = `<html><body>` + pipelineMarker + `<table>
<tr><th class="vh">Breakdown</th><th class="vh">Current</th><th class="vh">6/30/2025</th></tr>
<tr class="vrow"><td class="vcell">Trailing P/E</td><td class="vcell">35.12</td><td class="vcell">33.40</td></tr>
</table><table>
<tr class="hrow"><td class="hcell">Profit Margin</td><td class="hcell">24.30%</td></tr>
<tr class="hrow"><td class="hcell">Return on Assets (ttm)</td><td class="hcell">11.20%</td></tr>
<tr class="hrow"><td class="hcell">Diluted EPS (ttm)</td><td class="hcell">6.59</td></tr>
</table></body></html>`

const incomeFixture = `<html><body>` + pipelineMarker + `
<div class="fs-header">
  <div class="column">Breakdown</div><div class="column">TTM</div><div class="column">9/30/2024</div>
  <div class="column">9/30/2023</div><div class="column">9/30/2022</div><div class="column">9/30/2021</div>
</div>
<div class="fs-row">
  <div class="fs-cell">w</div><div class="fs-cell">Total Revenue</div><div class="fs-cell">133,100</div>
  <div class="fs-cell">129,000</div><div class="fs-cell">118,000</div><div class="fs-cell">107,000</div>
  <div class="fs-cell">100,000</div>
</div>
</body></html>`

const balanceFixture = `<html><body>` + pipelineMarker + `
<div class="fs-header">
  <div class="column">Breakdown</div><div class="column">9/30/2024</div>
</div>
<div class="fs-row">
  <div class="fs-cell">w</div><div class="fs-cell">Current Assets</div><div class="fs-cell">400</div>
</div>
<div class="fs-row">
  <div class="fs-cell">w</div><div class="fs-cell">Current Liabilities</div><div class="fs-cell">200</div>
</div>
<div class="fs-row">
  <div class="fs-cell">w</div><div class="fs-cell">Inventory</div><div class="fs-cell">100</div>
</div>
</body></html>`

const cashflowFixture = `<html><body>` + pipelineMarker + `
<div class="fs-header">
  <div class="column">Breakdown</div><div class="column">TTM</div>
</div>
<div class="fs-row">
  <div class="fs-cell">w</div><div class="fs-cell">Free Cash Flow</div><div class="fs-cell">108,807</div>
</div>
</body></html>`

// pipelineRenderer routes rendered-page loads by URL and remembers the
// last page served, so a post-click re-read returns the same document.
// Each fundamentals worker owns its own instance.
func pipelineRenderer() *testutil.FakeRenderer {
	fake := &testutil.FakeRenderer{}
	current := ""
	fake.LoadFunc = func(_ context.Context, url string) (string, error) {
		switch {
		case strings.Contains(url, "key-statistics"):
			current = statisticsFixture
		case strings.Contains(url, "financials"):
			current = incomeFixture
		case strings.Contains(url, "balance-sheet"):
			current = balanceFixture
		case strings.Contains(url, "cash-flow"):
			current = cashflowFixture
		case strings.Contains(url, "MSFT"):
			current = msftSummary
		default:
			current = aaplSummary
		}
		return current, nil
	}
	fake.ContentFunc = func(context.Context) (string, error) {
		return current, nil
	}
	return fake
}

// staticServer serves the profile, holders and insider pages for AAPL
// only; every other ticker 404s.
func staticServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/quote/AAPL/profile/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>
		<a class="subtle-link">Technology</a>
		<a class="subtle-link">Consumer Electronics</a>
		<dl><dd>Full Time Employees:</dd><dd>164,000</dd></dl>
		<table>
		<tr><th class="ph">Name</th></tr>
		<tr class="prow"><td class="pcell"></td></tr>
		<tr class="prow"><td class="pcell">Mr. Timothy D. Cook</td><td class="pcell">CEO &amp; Director</td><td class="pcell">16.52M</td><td class="pcell">--</td><td class="pcell">1960</td></tr>
		</table></html>`))
	})
	mux.HandleFunc("/quote/AAPL/holders/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><table><tr>
		<td class="majorHolders">2.05%</td><td class="majorHolders">insiders</td>
		<td class="majorHolders">62.31%</td><td class="majorHolders">institutions</td>
		<td class="majorHolders">63.62%</td><td class="majorHolders">float</td>
		<td class="majorHolders">6,702</td><td class="majorHolders">holders</td>
		</tr></table></html>`))
	})
	mux.HandleFunc("/quote/AAPL/insider-transactions/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><table>
		<tr class="irow"><th class="ihead">Insider Purchases Last 6 Months</th><th class="ihead">Shares</th><th class="ihead">Trans</th></tr>
		<tr class="irow"><td class="icell">Purchases</td><td class="icell">84,931</td><td class="icell">4</td></tr>
		<tr class="irow"><td class="icell">Sales</td><td class="icell">1,349,951</td><td class="icell">49</td></tr>
		<tr class="irow"><td class="icell">spill-1</td></tr>
		<tr class="irow"><td class="icell">spill-2</td></tr>
		<tr class="irow"><td class="icell">spill-3</td></tr>
		</table></html>`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func runPipeline(t *testing.T, stages []scheduler.Stage, tickers []string, workers *scrape.Stages) []*record.Record {
	t.Helper()

	sched := scheduler.New(1, 2, nil)
	results := aggregate.New()

	for _, stage := range stages {
		worker, err := workers.Worker(stage)
		if err != nil {
			t.Fatalf("Worker(%q): %v", stage, err)
		}
		if err := sched.Run(context.Background(), stage, tickers, worker, results); err != nil {
			t.Fatalf("Run(%q): %v", stage, err)
		}
	}

	engine := derive.New("TTM", 2, nil)
	var records []*record.Record
	for _, ticker := range tickers {
		rec := results.Get(ticker)
		if rec == nil {
			t.Fatalf("no record aggregated for %s", ticker)
		}
		engine.Fundamentals(rec)
		engine.Profile(rec)
		engine.InsiderTransactions(rec)
		records = append(records, rec)
	}
	return records
}

func readExported(t *testing.T, path string) (map[string]int, [][]string) {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening export: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if len(rows) < 1 {
		t.Fatal("export has no header row")
	}

	head := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		head[name] = i
	}
	return head, rows[1:]
}

// TestPipeline_EndToEnd drives the whole flow the front-end wires up:
// scheduler over all four stages, rendered and static workers, the
// aggregate map, the derivation cascade, and the CSV export. The static
// pages exist only for AAPL, so MSFT also proves that one worker's
// failure never disturbs its siblings.
func TestPipeline_EndToEnd(t *testing.T) {
	server := staticServer(t)

	workers := &scrape.Stages{
		Links:     page.Links{Base: server.URL + "/quote"},
		Selectors: pipelineSelectors(),
		Browser: func() (browser.Renderer, error) {
			return pipelineRenderer(), nil
		},
		Client:  scrape.NewHTTPClient("", 0),
		Limiter: ratelimit.Unlimited(),
		Retries: 2,
	}

	stages, err := scheduler.ParseStages("all")
	if err != nil {
		t.Fatalf("ParseStages: %v", err)
	}
	records := runPipeline(t, stages, []string{"AAPL", "MSFT"}, workers)

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := export.Write(path, records); err != nil {
		t.Fatalf("Write: %v", err)
	}

	head, rows := readExported(t, path)
	if len(rows) != 2 {
		t.Fatalf("exported %d rows, want 2", len(rows))
	}
	aapl, msft := rows[0], rows[1]

	cell := func(row []string, col string) string {
		i, ok := head[col]
		if !ok {
			t.Fatalf("no column %q in export header", col)
		}
		return row[i]
	}

	checks := []struct {
		col, want string
	}{
		{"ticker", "AAPL"},
		{"name", "Apple Inc. (AAPL)"},
		{"price", "231.50"},
		{"summary_availability", "✓"},
		{"statistics_availability", "✓"},
		{"fs_availability", "✓"},
		{"calculation_mode", "TTM"},
		{"latest_10q", "6/30/2025"},
		{"latest_10k", "9/30/2024"},
		{"market_cap", "3.52T"},
		{"eps", "6.59"},
		{"price_to_earnings", "35.12"},
		{"profit_margin", "24.30%"},
		{"return_on_assets", "11.20%"},
		// (133,100 / 100,000)^(1/3) - 1 over the three-year offset.
		{"revenue_growth", "10.0%"},
		{"operating_income_growth", export.AbsentMarker},
		{"quick_ratio", "1.5"},
		{"current_ratio", "2.0"},
		{"sector", "Technology"},
		{"industry", "Consumer Electronics"},
		{"employees", "164,000"},
		{"ceo", "Mr. Timothy D. Cook"},
		{"director", "Mr. Timothy D. Cook"},
		{"cfo", export.AbsentMarker},
		{"insider_shares_held", "2.05%"},
		{"institution_holder_count", "6,702"},
		{"purchase_transactions", "4"},
		{"sell_transactions", "49"},
	}
	for _, c := range checks {
		if got := cell(aapl, c.col); got != c.want {
			t.Errorf("AAPL %s = %q, want %q", c.col, got, c.want)
		}
	}

	// MSFT's rendered pages succeeded but its static pages 404'd.
	if got := cell(msft, "name"); got != "Microsoft Corporation (MSFT)" {
		t.Errorf("MSFT name = %q", got)
	}
	if got := cell(msft, "market_cap"); got != "3.10T" {
		t.Errorf("MSFT market_cap = %q", got)
	}
	if got := cell(msft, "sector"); got != export.AbsentMarker {
		t.Errorf("MSFT sector = %q, want absent", got)
	}
	if got := cell(msft, "purchase_transactions"); got != export.AbsentMarker {
		t.Errorf("MSFT purchase_transactions = %q, want absent", got)
	}
}

// TestPipeline_SummaryFailure exports a ticker whose summary page never
// validated: the row survives with unavailable marks and absent metrics.
func TestPipeline_SummaryFailure(t *testing.T) {
	server := staticServer(t)

	workers := &scrape.Stages{
		Links:     page.Links{Base: server.URL + "/quote"},
		Selectors: pipelineSelectors(),
		Browser: func() (browser.Renderer, error) {
			return testutil.NewFakeRenderer(`<html><body>wrong variant</body></html>`), nil
		},
		Client:  scrape.NewHTTPClient("", 0),
		Limiter: ratelimit.Unlimited(),
		Retries: 2,
	}

	records := runPipeline(t, []scheduler.Stage{scheduler.StageFundamentals}, []string{"GME"}, workers)

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := export.Write(path, records); err != nil {
		t.Fatalf("Write: %v", err)
	}

	head, rows := readExported(t, path)
	if len(rows) != 1 {
		t.Fatalf("exported %d rows, want 1", len(rows))
	}
	row := rows[0]

	if got := row[head["summary_availability"]]; got != "x" {
		t.Errorf("summary availability = %q, want x", got)
	}
	if got := row[head["fs_availability"]]; got != "x" {
		t.Errorf("financials availability = %q, want x", got)
	}
	if got := row[head["market_cap"]]; got != export.AbsentMarker {
		t.Errorf("market_cap = %q, want absent", got)
	}
}
