package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"finscrape/internal/record"
	"finscrape/internal/value"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func colIndex(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, h := range header {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %q not in header", name)
	return -1
}

func fundamentalsRecord(ticker string) *record.Record {
	rec := record.New(ticker)
	rec.Name = value.Of("Apple Inc.")
	rec.Price = value.Of("231.50")
	rec.SummaryAvail = record.Available
	rec.FinancialsAvail = record.Unavailable
	rec.SetMetric(record.MetricMarketCap, value.Of("3.52T"))
	rec.SetMetric(record.MetricProfitMargin, value.Of("24.30%"))
	rec.SetMeta(record.MetaCalculationMode, "TTM")
	return rec
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := Write(path, []*record.Record{fundamentalsRecord("AAPL")}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	header, row := rows[0], rows[1]
	if len(header) != len(Columns()) {
		t.Fatalf("header width = %d, want %d", len(header), len(Columns()))
	}

	if got := row[colIndex(t, header, "ticker")]; got != "AAPL" {
		t.Errorf("ticker = %q", got)
	}
	if got := row[colIndex(t, header, "market_cap")]; got != "3.52T" {
		t.Errorf("market_cap = %q", got)
	}
	if got := row[colIndex(t, header, "summary_availability")]; got != "✓" {
		t.Errorf("summary_availability = %q", got)
	}
	if got := row[colIndex(t, header, "fs_availability")]; got != "x" {
		t.Errorf("fs_availability = %q", got)
	}
	// Never-attempted flags render empty, absent values render the marker.
	if got := row[colIndex(t, header, "statistics_availability")]; got != "" {
		t.Errorf("statistics_availability = %q, want empty", got)
	}
	if got := row[colIndex(t, header, "eps")]; got != AbsentMarker {
		t.Errorf("eps = %q, want %q", got, AbsentMarker)
	}
	if got := row[colIndex(t, header, "sector")]; got != AbsentMarker {
		t.Errorf("sector = %q, want %q", got, AbsentMarker)
	}
}

func TestWriteReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := Write(path, []*record.Record{fundamentalsRecord("AAPL"), fundamentalsRecord("MSFT")}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Write(path, []*record.Record{fundamentalsRecord("GOOG")}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want full replacement with 1 record", len(rows))
	}
	if got := rows[1][colIndex(t, rows[0], "ticker")]; got != "GOOG" {
		t.Errorf("ticker = %q", got)
	}
}

func TestAppendMergesByTicker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := Write(path, []*record.Record{fundamentalsRecord("AAPL")}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// A later profile-stage run for the same ticker plus a new one.
	update := record.New("AAPL")
	update.Sector = value.Of("Technology")
	update.SetMetric("ceo", value.Of("Mr. Timothy D. Cook"))
	other := record.New("NVDA")
	other.Name = value.Of("NVIDIA Corporation")

	if err := Append(path, []*record.Record{update, other}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	header := rows[0]
	aapl, nvda := rows[1], rows[2]

	if got := aapl[colIndex(t, header, "ticker")]; got != "AAPL" {
		t.Fatalf("row order changed, first ticker = %q", got)
	}
	// Existing cells survive the merge.
	if got := aapl[colIndex(t, header, "market_cap")]; got != "3.52T" {
		t.Errorf("market_cap after append = %q, want preserved", got)
	}
	// New non-absent cells fill in.
	if got := aapl[colIndex(t, header, "sector")]; got != "Technology" {
		t.Errorf("sector after append = %q", got)
	}
	if got := aapl[colIndex(t, header, "ceo")]; got != "Mr. Timothy D. Cook" {
		t.Errorf("ceo after append = %q", got)
	}
	// Absent cells in the update must not clobber existing data.
	if got := aapl[colIndex(t, header, "name")]; got != "Apple Inc." {
		t.Errorf("name after append = %q, want preserved", got)
	}
	if got := nvda[colIndex(t, header, "ticker")]; got != "NVDA" {
		t.Errorf("appended ticker = %q", got)
	}
}

func TestAppendOverwritesWithFreshData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := Write(path, []*record.Record{fundamentalsRecord("AAPL")}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	update := record.New("AAPL")
	update.Price = value.Of("250.00")
	update.SetMetric(record.MetricMarketCap, value.Of("3.80T"))

	if err := Append(path, []*record.Record{update}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rows := readCSV(t, path)
	header, row := rows[0], rows[1]
	if got := row[colIndex(t, header, "price")]; got != "250.00" {
		t.Errorf("price = %q, want the fresh value", got)
	}
	if got := row[colIndex(t, header, "market_cap")]; got != "3.80T" {
		t.Errorf("market_cap = %q, want the fresh value", got)
	}
}

func TestAppendWithoutExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := Append(path, []*record.Record{fundamentalsRecord("AAPL")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	rows := readCSV(t, path)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
}
