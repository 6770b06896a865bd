// Package record defines the per-ticker entity record: identity fields, the
// raw tabular sections captured from each logical page, availability flags,
// and the map of derived metrics. Fields are set-once; a derivation stage
// never overwrites a value a higher-priority source already resolved.
package record

import (
	"finscrape/internal/table"
	"finscrape/internal/value"
)

// Availability is the ternary per-section flag: a section can be fetched,
// legitimately missing for the instrument, or never attempted.
type Availability int

const (
	NotAttempted Availability = iota
	Available
	Unavailable
)

// Mark renders the flag the way the export surface shows it.
func (a Availability) Mark() string {
	switch a {
	case Available:
		return "✓"
	case Unavailable:
		return "x"
	default:
		return ""
	}
}

// Derived metric names. Stage workers and the derivation engine agree on
// these keys; the exporter emits them in this order.
const (
	MetricDividendAndYield  = "forward_dividend_and_yield"
	MetricNetAssets         = "net_assets"
	MetricMarketCap         = "market_cap"
	MetricEPS               = "eps"
	MetricDilutedEPS        = "diluted_eps"
	MetricPriceToBook       = "price_to_book"
	MetricPriceToSales      = "price_to_sales"
	MetricPriceToEarnings   = "price_to_earnings"
	MetricPriceToCashFlow   = "price_to_cash_flow"
	MetricRevenueGrowth     = "revenue_growth"
	MetricOpIncomeGrowth    = "operating_income_growth"
	MetricNetIncomeGrowth   = "net_income_growth"
	MetricDilutedEPSGrowth  = "diluted_eps_growth"
	MetricQuickRatio        = "quick_ratio"
	MetricCurrentRatio      = "current_ratio"
	MetricInterestCoverage  = "interest_coverage"
	MetricDebtToEquity      = "debt_to_equity"
	MetricReturnOnAssets    = "return_on_assets"
	MetricReturnOnEquity    = "return_on_equity"
	MetricReturnOnInvested  = "return_on_invested_capital"
	MetricProfitMargin      = "profit_margin"
	MetricOperatingCashFlow = "operating_cash_flow"
)

// Insider-transaction metric names, from the purchase/sale activity table.
const (
	MetricInsiderSharesTotal   = "total_insider_shares_held"
	MetricNetSharesPurchased   = "net_shares_purchased"
	MetricNetSharesSold        = "net_shares_sold"
	MetricNetSharesChange      = "net_shares_change"
	MetricNetSharesChangePct   = "percent_net_shares_change"
	MetricPurchaseTransactions = "purchase_transactions"
	MetricSellTransactions     = "sell_transactions"
	MetricNetTransactions      = "net_transactions"
)

// Provenance keys stored in Meta.
const (
	MetaCalculationMode = "calculation_mode"
	MetaLatest10Q       = "latest_10q"
	MetaLatest10K       = "latest_10k"
	MetaRevenueOffset   = "revenue_growth_years"
	MetaOpIncomeOffset  = "operating_income_growth_years"
	MetaNetIncomeOffset = "net_income_growth_years"
	MetaEPSOffset       = "diluted_eps_growth_years"
)

// Record holds everything scraped and derived for one ticker. It is
// mutated by exactly one worker per stage and becomes effectively
// immutable once the run's batches have joined.
type Record struct {
	Ticker string

	// Identity, from the summary page.
	Name             value.Value
	Price            value.Value
	ChangeIntraday   value.Value
	ChangeAfterHours value.Value

	// Raw sections per logical page.
	Summary              *table.Table
	StatisticsValuations *table.Table
	StatisticsHighlights *table.Table
	IncomeStatement      *table.Table
	BalanceSheet         *table.Table
	CashFlow             *table.Table
	KeyExecutives        *table.Table
	InsiderTransactions  *table.Table

	// Section availability.
	SummaryAvail    Availability
	StatisticsAvail Availability
	FinancialsAvail Availability

	// Profile scalars.
	Sector    value.Value
	Industry  value.Value
	Employees value.Value

	// Holders scalars.
	InsiderSharesHeld      value.Value
	InstitutionSharesHeld  value.Value
	InstitutionFloatHeld   value.Value
	InstitutionHolderCount value.Value

	// Derived metric name -> resolved value or absent.
	Metrics map[string]value.Value

	// Meta is the small open extension map for provenance only
	// (growth offsets, calculation mode, filing labels).
	Meta map[string]string
}

// New creates an empty record for a ticker.
func New(ticker string) *Record {
	return &Record{
		Ticker:  ticker,
		Metrics: make(map[string]value.Value),
		Meta:    make(map[string]string),
	}
}

// Metric returns the named derived metric, absent when never set.
func (r *Record) Metric(name string) value.Value {
	return r.Metrics[name]
}

// SetMetric records a derived metric, set-once: a present value already in
// place is never overwritten by a later cascade stage.
func (r *Record) SetMetric(name string, v value.Value) {
	if r.Metrics == nil {
		r.Metrics = make(map[string]value.Value)
	}
	if r.Metrics[name].Present() {
		return
	}
	r.Metrics[name] = v
}

// SetMeta records a provenance note.
func (r *Record) SetMeta(key, val string) {
	if r.Meta == nil {
		r.Meta = make(map[string]string)
	}
	r.Meta[key] = val
}

// Merge shallow-copies every set field of the partial into the receiver.
// Present scalar values, non-nil tables, attempted availability flags, and
// all metric/meta entries of the partial win; unset partial fields leave
// the receiver untouched. The set-once discipline on metrics is the
// producing stage's responsibility, not Merge's.
func (r *Record) Merge(p *Record) {
	if p == nil {
		return
	}
	mergeValue(&r.Name, p.Name)
	mergeValue(&r.Price, p.Price)
	mergeValue(&r.ChangeIntraday, p.ChangeIntraday)
	mergeValue(&r.ChangeAfterHours, p.ChangeAfterHours)

	mergeTable(&r.Summary, p.Summary)
	mergeTable(&r.StatisticsValuations, p.StatisticsValuations)
	mergeTable(&r.StatisticsHighlights, p.StatisticsHighlights)
	mergeTable(&r.IncomeStatement, p.IncomeStatement)
	mergeTable(&r.BalanceSheet, p.BalanceSheet)
	mergeTable(&r.CashFlow, p.CashFlow)
	mergeTable(&r.KeyExecutives, p.KeyExecutives)
	mergeTable(&r.InsiderTransactions, p.InsiderTransactions)

	if p.SummaryAvail != NotAttempted {
		r.SummaryAvail = p.SummaryAvail
	}
	if p.StatisticsAvail != NotAttempted {
		r.StatisticsAvail = p.StatisticsAvail
	}
	if p.FinancialsAvail != NotAttempted {
		r.FinancialsAvail = p.FinancialsAvail
	}

	mergeValue(&r.Sector, p.Sector)
	mergeValue(&r.Industry, p.Industry)
	mergeValue(&r.Employees, p.Employees)
	mergeValue(&r.InsiderSharesHeld, p.InsiderSharesHeld)
	mergeValue(&r.InstitutionSharesHeld, p.InstitutionSharesHeld)
	mergeValue(&r.InstitutionFloatHeld, p.InstitutionFloatHeld)
	mergeValue(&r.InstitutionHolderCount, p.InstitutionHolderCount)

	for name, v := range p.Metrics {
		if r.Metrics == nil {
			r.Metrics = make(map[string]value.Value)
		}
		r.Metrics[name] = v
	}
	for k, v := range p.Meta {
		r.SetMeta(k, v)
	}
}

func mergeValue(dst *value.Value, src value.Value) {
	if src.Present() {
		*dst = src
	}
}

func mergeTable(dst **table.Table, src *table.Table) {
	if src != nil {
		*dst = src
	}
}
