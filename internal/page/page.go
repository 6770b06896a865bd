// Package page knows the logical pages of the quote source: how to locate
// them for a ticker and how to lift their rendered DOM into raw tables and
// scalars. The structural locators come in wholesale as configuration; the
// package computes nothing about them.
package page

import "fmt"

// Kind names one logical page of the source.
type Kind string

const (
	KindSummary    Kind = "summary"
	KindStatistics Kind = "statistics"
	KindIncome     Kind = "income_statement"
	KindBalance    Kind = "balance_sheet"
	KindCashFlow   Kind = "cash_flow"
	KindProfile    Kind = "profile"
	KindHolders    Kind = "holders"
	KindInsider    Kind = "insider_transactions"
)

// Side-tab labels that announce section availability on the statistics page.
const (
	TabStatistics = "Statistics"
	TabFinancials = "Financials"
)

// Links builds the per-ticker URLs of the logical pages.
type Links struct {
	Base string // e.g. https://finance.yahoo.com/quote
}

func (l Links) Summary(ticker string) string {
	return fmt.Sprintf("%s/%s", l.Base, ticker)
}

func (l Links) Statistics(ticker string) string {
	return fmt.Sprintf("%s/%s/key-statistics", l.Base, ticker)
}

// StatementLink pairs a statement page kind with its URL.
type StatementLink struct {
	Kind Kind
	URL  string
}

// Statements returns the three statement pages in their fixed acquisition
// order: income statement, balance sheet, cash flow.
func (l Links) Statements(ticker string) []StatementLink {
	return []StatementLink{
		{KindIncome, fmt.Sprintf("%s/%s/financials?p=%s", l.Base, ticker, ticker)},
		{KindBalance, fmt.Sprintf("%s/%s/balance-sheet?p=%s", l.Base, ticker, ticker)},
		{KindCashFlow, fmt.Sprintf("%s/%s/cash-flow?p=%s", l.Base, ticker, ticker)},
	}
}

func (l Links) Profile(ticker string) string {
	return fmt.Sprintf("%s/%s/profile/", l.Base, ticker)
}

func (l Links) Holders(ticker string) string {
	return fmt.Sprintf("%s/%s/holders/", l.Base, ticker)
}

func (l Links) InsiderTransactions(ticker string) string {
	return fmt.Sprintf("%s/%s/insider-transactions/", l.Base, ticker)
}

// Selectors is the opaque structural locator set, supplied wholesale by
// configuration. Every field is a CSS selector unless noted.
type Selectors struct {
	// Render validation.
	WrongVariant     string // element marking the alternate/legacy variant
	WrongVariantText string // its expected text content
	LiveMarker       string // element present only on a correct live render

	// Summary page.
	Name         string
	Price        string
	Change       string
	SummaryLabel string
	SummaryValue string

	// Statistics page.
	SideTab            string // availability probe, e.g. a[category]
	StatsValuationHead string
	StatsValuationRow  string
	StatsValuationCell string
	StatsHighlightRow  string
	StatsHighlightCell string

	// Statement pages.
	ExpandAll         string
	StatementHeadRow  string
	StatementHeadCell string
	StatementRow      string
	StatementCell     string

	// Profile page.
	SectorIndustry  string
	Employees       string
	ProfileHeadCell string
	ProfileRow      string
	ProfileCell     string

	// Holders page.
	MajorHolders string

	// Insider transactions page.
	InsiderRow      string
	InsiderHeadCell string
	InsiderCell     string

	// Recommendation strip on the summary page.
	RelatedTicker string
	TickerSymbol  string
}
