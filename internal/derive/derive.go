// Package derive turns the raw tabular sections of a record into the final
// metric set. Resolution is a cascade: the summary and statistics sections
// are authoritative, the financial statements back them up, and a handful of
// ratios are computed outright when no section reports them. Every write
// goes through the record's set-once metric store, so a later cascade stage
// can never clobber an earlier source.
package derive

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"finscrape/internal/record"
	"finscrape/internal/table"
	"finscrape/internal/value"
)

// Monetary figures on statement pages are reported in thousands; summary
// figures are absolute. Mixing the two needs this factor.
const statementUnits = 1000

// Calculation modes: trailing-twelve-month or latest annual filing.
const (
	ModeTTM = "TTM"
	Mode10K = "10K"

	defaultPrec = 2
)

// Engine resolves metrics for one record at a time. It is stateless across
// records and safe to share between goroutines.
type Engine struct {
	period    int // statement/statistics value column: 1 = TTM, 2 = annual
	mode      string
	precision int
	logger    *slog.Logger
}

// New builds an engine for the given calculation mode. Anything other than
// "10K" selects TTM. precision <= 0 falls back to two decimals.
func New(mode string, precision int, logger *slog.Logger) *Engine {
	e := &Engine{period: 1, mode: ModeTTM, precision: precision, logger: logger}
	if strings.EqualFold(strings.TrimSpace(mode), Mode10K) {
		e.period = 2
		e.mode = Mode10K
	}
	if e.precision <= 0 {
		e.precision = defaultPrec
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Mode returns the calculation mode label the engine stamps on records.
func (e *Engine) Mode() string {
	return e.mode
}

// Fundamentals runs the full metric cascade for one record. A record with
// no summary section yields nothing; a record without statistics gets the
// reduced summary-only set (funds and some indices report that way).
func (e *Engine) Fundamentals(rec *record.Record) {
	rec.SetMeta(record.MetaCalculationMode, e.mode)

	if rec.Summary.Empty() {
		e.logger.Warn("no summary data, skipping analysis", "ticker", rec.Ticker)
		rec.SummaryAvail = record.Unavailable
		rec.StatisticsAvail = record.Unavailable
		rec.FinancialsAvail = record.Unavailable
		return
	}
	rec.SummaryAvail = record.Available

	if rec.StatisticsValuations.Empty() {
		e.logger.Warn("no statistics data, summary-only analysis", "ticker", rec.Ticker)
		rec.StatisticsAvail = record.Unavailable
		rec.FinancialsAvail = record.Unavailable
		rec.SetMetric(record.MetricDividendAndYield, rec.Summary.Lookup(1, "Yield"))
		rec.SetMetric(record.MetricNetAssets, rec.Summary.Lookup(1, "Net Assets"))
		rec.SetMetric(record.MetricPriceToEarnings, rec.Summary.Lookup(1, "PE Ratio"))
		return
	}

	if rec.StatisticsAvail == record.NotAttempted {
		rec.StatisticsAvail = record.Available
	}

	summary := rec.Summary
	valuations := rec.StatisticsValuations
	highlights := rec.StatisticsHighlights
	income := rec.IncomeStatement
	balance := rec.BalanceSheet
	cashflow := rec.CashFlow

	// Primary sources: reported figures taken verbatim.
	rec.SetMetric(record.MetricDividendAndYield, summary.Lookup(1, "Forward Dividend & Yield"))
	rec.SetMetric(record.MetricMarketCap, summary.Lookup(1, "Market Cap"))
	rec.SetMetric(record.MetricEPS, summary.Lookup(1, "EPS"))
	rec.SetMetric(record.MetricDilutedEPS, highlights.Lookup(1, "Diluted EPS"))

	rec.SetMetric(record.MetricPriceToBook, valuations.Lookup(e.period, "Price/Book"))
	rec.SetMetric(record.MetricPriceToSales, valuations.Lookup(e.period, "Price/Sales"))
	rec.SetMetric(record.MetricPriceToEarnings, valuations.Lookup(e.period, "Trailing P/E"))

	rec.SetMetric(record.MetricCurrentRatio, highlights.Lookup(1, "Current Ratio"))
	rec.SetMetric(record.MetricReturnOnAssets, highlights.Lookup(1, "Return on Assets"))
	rec.SetMetric(record.MetricReturnOnEquity, highlights.Lookup(1, "Return on Equity"))
	rec.SetMetric(record.MetricProfitMargin, highlights.Lookup(1, "Profit Margin"))

	// Operands for the computed block. Summary and statistics figures use
	// magnitude suffixes; statement figures use comma grouping.
	marketCap, marketCapOK := summary.Lookup(1, "Market Cap").AbbrevFloat()
	ocf, ocfOK := highlights.Lookup(1, "Operating Cash Flow").AbbrevFloat()

	totalRevenue, totalRevenueOK := statementFloat(income, e.period, "Total Revenue")
	netIncome, netIncomeOK := statementFloat(income, e.period, "Net Income")
	ebit, ebitOK := statementFloat(income, e.period, "EBIT")
	interestExpense, interestOK := statementFloat(income, e.period, "Interest Expense")
	taxProvision, taxOK := statementFloat(income, e.period, "Tax Provision")

	currentAssets, currentAssetsOK := statementFloat(balance, e.period, "Current Assets")
	currentLiabilities, currentLiabilitiesOK := statementFloat(balance, e.period, "Current Liabilities")
	inventory, inventoryOK := statementFloat(balance, e.period, "Inventory")
	totalDebt, totalDebtOK := statementFloat(balance, e.period, "Total Debt")
	equity, equityOK := statementFloat(balance, e.period, "Stockholders' Equity")
	investedCapital, investedCapitalOK := statementFloat(balance, e.period, "Invested Capital")
	tangibleBook, tangibleBookOK := statementFloat(balance, e.period, "Tangible Book Value")
	totalAssets, totalAssetsOK := statementFloat(balance, e.period, "Total Assets")

	// Price/cash flow has no reported source at all.
	rec.SetMetric(record.MetricPriceToCashFlow,
		e.ratio(marketCap, marketCapOK, ocf, ocfOK))

	// Growth metrics over the three-year history, degrading to two years
	// when the statement shows fewer columns.
	e.growthMetric(rec, income, "Total Revenue",
		record.MetricRevenueGrowth, record.MetaRevenueOffset)
	e.growthMetric(rec, income, "Operating Income",
		record.MetricOpIncomeGrowth, record.MetaOpIncomeOffset)
	e.growthMetric(rec, income, "Net Income",
		record.MetricNetIncomeGrowth, record.MetaNetIncomeOffset)
	e.growthMetric(rec, income, "Diluted EPS",
		record.MetricDilutedEPSGrowth, record.MetaEPSOffset)

	// Statement-only ratios.
	if currentAssetsOK && inventoryOK {
		rec.SetMetric(record.MetricQuickRatio,
			e.ratio(currentAssets-inventory, true, currentLiabilities, currentLiabilitiesOK))
	} else {
		rec.SetMetric(record.MetricQuickRatio, value.Absent())
	}
	rec.SetMetric(record.MetricInterestCoverage,
		e.ratio(ebit, ebitOK, interestExpense, interestOK))
	rec.SetMetric(record.MetricDebtToEquity,
		e.ratio(totalDebt, totalDebtOK, equity, equityOK))
	if ebitOK && taxOK {
		rec.SetMetric(record.MetricReturnOnInvested,
			e.percent(ebit-taxProvision, true, investedCapital, investedCapitalOK))
	} else {
		rec.SetMetric(record.MetricReturnOnInvested, value.Absent())
	}

	// Secondary sources: statement figures stand in where the summary and
	// statistics sections came up empty. SetMetric ignores these when the
	// primary already resolved.
	if !rec.Metric(record.MetricDilutedEPS).Present() {
		e.fallback(rec.Ticker, record.MetricDilutedEPS, "income statement")
		rec.Metrics[record.MetricDilutedEPS] = income.Lookup(e.period, "Diluted EPS")
	}
	if !ocfOK {
		if ocf, ocfOK = statementFloat(cashflow, e.period, "Operating Cash Flow"); ocfOK {
			e.fallback(rec.Ticker, record.MetricOperatingCashFlow, "cash flow statement")
			ocf *= statementUnits
		}
	}
	if ocfOK {
		rec.SetMetric(record.MetricOperatingCashFlow,
			value.Of(value.FormatFloat(ocf, e.precision)))
	}

	// Computed fallbacks that mix the absolute market cap with statement
	// figures carry the units factor.
	if !rec.Metric(record.MetricPriceToBook).Present() && tangibleBookOK {
		e.fallback(rec.Ticker, record.MetricPriceToBook, "balance sheet")
		rec.Metrics[record.MetricPriceToBook] =
			e.ratio(marketCap, marketCapOK, tangibleBook*statementUnits, true)
	}
	if !rec.Metric(record.MetricPriceToSales).Present() && totalRevenueOK {
		e.fallback(rec.Ticker, record.MetricPriceToSales, "income statement")
		rec.Metrics[record.MetricPriceToSales] =
			e.ratio(marketCap, marketCapOK, totalRevenue*statementUnits, true)
	}
	if !rec.Metric(record.MetricPriceToEarnings).Present() && netIncomeOK {
		e.fallback(rec.Ticker, record.MetricPriceToEarnings, "income statement")
		rec.Metrics[record.MetricPriceToEarnings] =
			e.ratio(marketCap, marketCapOK, netIncome*statementUnits, true)
	}
	if !rec.Metric(record.MetricPriceToCashFlow).Present() && ocfOK {
		e.fallback(rec.Ticker, record.MetricPriceToCashFlow, "cash flow statement")
		rec.Metrics[record.MetricPriceToCashFlow] =
			e.ratio(marketCap, marketCapOK, ocf, true)
	}
	if !rec.Metric(record.MetricCurrentRatio).Present() {
		e.fallback(rec.Ticker, record.MetricCurrentRatio, "balance sheet")
		rec.Metrics[record.MetricCurrentRatio] =
			e.ratio(currentAssets, currentAssetsOK, currentLiabilities, currentLiabilitiesOK)
	}
	if !rec.Metric(record.MetricReturnOnAssets).Present() {
		e.fallback(rec.Ticker, record.MetricReturnOnAssets, "income statement, balance sheet")
		rec.Metrics[record.MetricReturnOnAssets] =
			e.percent(netIncome, netIncomeOK, totalAssets, totalAssetsOK)
	}
	if !rec.Metric(record.MetricReturnOnEquity).Present() {
		e.fallback(rec.Ticker, record.MetricReturnOnEquity, "income statement, balance sheet")
		rec.Metrics[record.MetricReturnOnEquity] =
			e.percent(netIncome, netIncomeOK, equity, equityOK)
	}
	// Recomputed only when genuinely unreported; a reported 0.00% margin
	// is a valid final value.
	if !rec.Metric(record.MetricProfitMargin).Present() {
		e.fallback(rec.Ticker, record.MetricProfitMargin, "income statement")
		rec.Metrics[record.MetricProfitMargin] =
			e.percent(netIncome, netIncomeOK, totalRevenue, totalRevenueOK)
	}

	if rec.FinancialsAvail == record.NotAttempted {
		if income.Empty() && balance.Empty() && cashflow.Empty() {
			rec.FinancialsAvail = record.Unavailable
		} else {
			rec.FinancialsAvail = record.Available
		}
	}

	// Filing labels from the first dated column headers.
	if d, err := valuations.CellAt(0, 2, "Breakdown"); err == nil && d.Present() {
		rec.SetMeta(record.MetaLatest10Q, d.String())
	}
	if !income.Empty() && len(income.Rows[0]) > 2 {
		if d := value.Clean(income.Rows[0][2]); d.Present() {
			rec.SetMeta(record.MetaLatest10K, d.String())
		}
	}
}

// growthMetric resolves one growth figure: current value at the engine's
// period column against the value three annual columns back, or two when
// the statement's history is short. The offset used lands in Meta.
func (e *Engine) growthMetric(rec *record.Record, income *table.Table, label, metric, offsetKey string) {
	cur, curOK := statementFloat(income, e.period, label)

	years := 3
	prevV, err := income.Cell(5, label)
	if errors.Is(err, table.ErrColumnRange) {
		e.logger.Warn("short statement history, two-year growth used",
			"ticker", rec.Ticker, "metric", metric)
		years = 2
		prevV, _ = income.Cell(4, label)
	}
	prev, prevOK := prevV.Float()

	rec.SetMetric(metric, e.growthValue(cur, curOK, prev, prevOK, years))
	if curOK && prevOK {
		rec.SetMeta(offsetKey, strconv.Itoa(years))
	}
}

// fallback logs one cascade degradation.
func (e *Engine) fallback(ticker, metric, source string) {
	e.logger.Info("primary source unavailable, using fallback",
		"ticker", ticker, "metric", metric, "source", source)
}

// statementFloat reads a comma-grouped statement figure as a float.
func statementFloat(t *table.Table, col int, label string) (float64, bool) {
	return t.Lookup(col, label).Float()
}
