// Package export persists finished records as CSV. Write replaces the file
// wholesale; Append merges by ticker so successive runs over different
// stages fill one sheet incrementally.
package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"finscrape/internal/derive"
	"finscrape/internal/record"
)

// AbsentMarker is how a missing value renders in the output.
const AbsentMarker = "---"

// identity and provenance columns preceding the metric block.
var headColumns = []string{
	"ticker",
	"name",
	"price",
	"change_intraday",
	"change_afterhours",
	"summary_availability",
	"statistics_availability",
	"fs_availability",
	"latest_10q",
	"latest_10k",
	"calculation_mode",
}

// fundamentalsColumns is the metric block in its reporting order.
var fundamentalsColumns = []string{
	record.MetricDividendAndYield,
	record.MetricNetAssets,
	record.MetricMarketCap,
	record.MetricEPS,
	record.MetricDilutedEPS,
	record.MetricPriceToBook,
	record.MetricPriceToSales,
	record.MetricPriceToEarnings,
	record.MetricPriceToCashFlow,
	record.MetricRevenueGrowth,
	record.MetricOpIncomeGrowth,
	record.MetricNetIncomeGrowth,
	record.MetricDilutedEPSGrowth,
	record.MetricQuickRatio,
	record.MetricCurrentRatio,
	record.MetricInterestCoverage,
	record.MetricDebtToEquity,
	record.MetricReturnOnAssets,
	record.MetricReturnOnEquity,
	record.MetricReturnOnInvested,
	record.MetricProfitMargin,
	record.MetricOperatingCashFlow,
}

var profileColumns = []string{"sector", "industry", "employees"}

var insiderColumns = []string{
	record.MetricInsiderSharesTotal,
	record.MetricNetSharesPurchased,
	record.MetricNetSharesSold,
	record.MetricNetSharesChange,
	record.MetricNetSharesChangePct,
	record.MetricPurchaseTransactions,
	record.MetricSellTransactions,
	record.MetricNetTransactions,
}

var holdersColumns = []string{
	"insider_shares_held",
	"institution_shares_held",
	"institution_float_held",
	"institution_holder_count",
}

// Columns returns the full stable column order of the sheet.
func Columns() []string {
	var cols []string
	cols = append(cols, headColumns...)
	cols = append(cols, fundamentalsColumns...)
	cols = append(cols, profileColumns...)
	cols = append(cols, derive.ExecutiveMetricKeys()...)
	cols = append(cols, insiderColumns...)
	cols = append(cols, holdersColumns...)
	return cols
}

// cell renders one column of a record.
func cell(rec *record.Record, col string) string {
	switch col {
	case "ticker":
		return rec.Ticker
	case "name":
		return present(rec.Name.String(), rec.Name.Present())
	case "price":
		return present(rec.Price.String(), rec.Price.Present())
	case "change_intraday":
		return present(rec.ChangeIntraday.String(), rec.ChangeIntraday.Present())
	case "change_afterhours":
		return present(rec.ChangeAfterHours.String(), rec.ChangeAfterHours.Present())
	case "summary_availability":
		return rec.SummaryAvail.Mark()
	case "statistics_availability":
		return rec.StatisticsAvail.Mark()
	case "fs_availability":
		return rec.FinancialsAvail.Mark()
	case "latest_10q":
		return meta(rec, record.MetaLatest10Q)
	case "latest_10k":
		return meta(rec, record.MetaLatest10K)
	case "calculation_mode":
		return meta(rec, record.MetaCalculationMode)
	case "sector":
		return present(rec.Sector.String(), rec.Sector.Present())
	case "industry":
		return present(rec.Industry.String(), rec.Industry.Present())
	case "employees":
		return present(rec.Employees.String(), rec.Employees.Present())
	case "insider_shares_held":
		return present(rec.InsiderSharesHeld.String(), rec.InsiderSharesHeld.Present())
	case "institution_shares_held":
		return present(rec.InstitutionSharesHeld.String(), rec.InstitutionSharesHeld.Present())
	case "institution_float_held":
		return present(rec.InstitutionFloatHeld.String(), rec.InstitutionFloatHeld.Present())
	case "institution_holder_count":
		return present(rec.InstitutionHolderCount.String(), rec.InstitutionHolderCount.Present())
	default:
		v := rec.Metric(col)
		return present(v.String(), v.Present())
	}
}

func present(s string, ok bool) string {
	if !ok {
		return AbsentMarker
	}
	return s
}

func meta(rec *record.Record, key string) string {
	if v, ok := rec.Meta[key]; ok && v != "" {
		return v
	}
	return AbsentMarker
}

func row(rec *record.Record, cols []string) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = cell(rec, col)
	}
	return out
}

// Write replaces path with the given records in order.
func Write(path string, records []*record.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	cols := Columns()
	if err := w.Write(cols); err != nil {
		return fmt.Errorf("export: writing header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(row(rec, cols)); err != nil {
			return fmt.Errorf("export: writing row for %s: %w", rec.Ticker, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: flushing %s: %w", path, err)
	}
	return nil
}

// Append merges records into an existing sheet by ticker. A new non-absent
// cell overwrites; otherwise the existing cell survives. Tickers absent
// from the file are appended after the existing rows; a missing file
// degrades to Write.
func Append(path string, records []*record.Record) error {
	existing, order, err := readSheet(path)
	if os.IsNotExist(err) {
		return Write(path, records)
	}
	if err != nil {
		return err
	}

	cols := Columns()
	for _, rec := range records {
		fresh := row(rec, cols)
		old, seen := existing[rec.Ticker]
		if !seen {
			existing[rec.Ticker] = fresh
			order = append(order, rec.Ticker)
			continue
		}
		for i := range cols {
			if fresh[i] != "" && fresh[i] != AbsentMarker {
				old[i] = fresh[i]
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return fmt.Errorf("export: writing header: %w", err)
	}
	for _, ticker := range order {
		if err := w.Write(existing[ticker]); err != nil {
			return fmt.Errorf("export: writing row for %s: %w", ticker, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("export: flushing %s: %w", path, err)
	}
	return nil
}

// readSheet loads path keyed by ticker, remapping the stored columns onto
// the current canonical order so older sheets merge cleanly.
func readSheet(path string) (map[string][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("export: reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return map[string][]string{}, nil, nil
	}

	headerIdx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		headerIdx[name] = i
	}
	tickerIdx, ok := headerIdx["ticker"]
	if !ok {
		return nil, nil, fmt.Errorf("export: %s has no ticker column", path)
	}

	cols := Columns()
	byTicker := make(map[string][]string, len(rows)-1)
	var order []string
	for _, raw := range rows[1:] {
		if tickerIdx >= len(raw) || raw[tickerIdx] == "" {
			continue
		}
		mapped := make([]string, len(cols))
		for i, col := range cols {
			mapped[i] = AbsentMarker
			if j, ok := headerIdx[col]; ok && j < len(raw) && raw[j] != "" {
				mapped[i] = raw[j]
			}
		}
		ticker := raw[tickerIdx]
		if _, dup := byTicker[ticker]; !dup {
			order = append(order, ticker)
		}
		byTicker[ticker] = mapped
	}
	return byTicker, order, nil
}
