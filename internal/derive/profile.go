package derive

import (
	"finscrape/internal/record"
	"finscrape/internal/table"
)

// Executive roles resolved from the key-executives table, searched by the
// title column. Each role yields three metrics: the name (the role key
// itself), the birth year ("<role>_year") and the pay ("<role>_salary").
var executiveRoles = []struct {
	Key     string
	Aliases []string
}{
	{"chairman", []string{"Chairman"}},
	{"director", []string{"Director"}},
	{"ceo", []string{"CEO", "Chief Executive Officer"}},
	{"cfo", []string{"CFO", "Chief Financial Officer"}},
	{"clo", []string{"CLO", "Chief Legal Officer"}},
	{"cmo", []string{"CMO", "Chief Marketing Officer"}},
	{"coo", []string{"COO", "Chief Operating Officer"}},
	{"cso", []string{"CSO", "Chief Strategy Officer"}},
}

// ExecutiveMetricKeys returns the metric names Profile produces, in a
// stable order for the export surface.
func ExecutiveMetricKeys() []string {
	var keys []string
	for _, role := range executiveRoles {
		keys = append(keys, role.Key, role.Key+"_year", role.Key+"_salary")
	}
	return keys
}

// Key-executives table columns: name, title, pay, exercised, year born.
const (
	execColName  = 0
	execColTitle = 1
	execColPay   = 2
	execColYear  = 4
)

// Profile resolves executive names, birth years and pay per role from the
// key-executives table. A record without the table is left untouched.
func (e *Engine) Profile(rec *record.Record) {
	if rec.KeyExecutives.Empty() {
		e.logger.Warn("no key executives data", "ticker", rec.Ticker)
		return
	}
	for _, role := range executiveRoles {
		rec.SetMetric(role.Key,
			rec.KeyExecutives.LookupAt(execColTitle, execColName, role.Aliases...))
		rec.SetMetric(role.Key+"_year",
			rec.KeyExecutives.LookupAt(execColTitle, execColYear, role.Aliases...))
		rec.SetMetric(role.Key+"_salary",
			rec.KeyExecutives.LookupAt(execColTitle, execColPay, role.Aliases...))
	}
}

// InsiderTransactions resolves the purchase/sale activity figures. Column 1
// carries share counts, column 2 transaction counts. Alias containment and
// the table's row order disambiguate the overlapping labels ("Purchases"
// matches its own row before "Net Shares Purchased (Sold)" only because the
// purchases row comes first).
func (e *Engine) InsiderTransactions(rec *record.Record) {
	if rec.InsiderTransactions.Empty() || len(rec.InsiderTransactions.Rows) < 2 {
		e.logger.Warn("no insider transactions data", "ticker", rec.Ticker)
		return
	}
	// The header cell "Insider Purchases Last 6 Months" would itself match
	// the Purchases alias, so only body rows are searched.
	tbl := table.New(rec.InsiderTransactions.Rows[1:])
	rec.SetMetric(record.MetricInsiderSharesTotal, tbl.Lookup(1, "Total Insider Shares Held"))
	rec.SetMetric(record.MetricNetSharesPurchased, tbl.Lookup(1, "Purchases"))
	rec.SetMetric(record.MetricNetSharesSold, tbl.Lookup(1, "Sales"))
	rec.SetMetric(record.MetricNetSharesChange, tbl.Lookup(1, "Net Shares Purchased"))
	rec.SetMetric(record.MetricNetSharesChangePct, tbl.Lookup(1, "% Net Shares Purchased"))
	rec.SetMetric(record.MetricPurchaseTransactions, tbl.Lookup(2, "Purchases"))
	rec.SetMetric(record.MetricSellTransactions, tbl.Lookup(2, "Sales"))
	rec.SetMetric(record.MetricNetTransactions, tbl.Lookup(2, "Net Shares Purchased"))
}
