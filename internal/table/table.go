// Package table models the raw tabular sections scraped from a quote page
// (ordered rows of label + column cells) and resolves fields out of them by
// label alias. Label matching is containment, not equality, so footnote
// markers and stray whitespace on the page do not break resolution.
package table

import (
	"errors"
	"strings"

	"finscrape/internal/value"
)

// ErrColumnRange reports that a row matched an alias but is narrower than
// the requested column. Callers use it to fall back to a shorter history
// offset when a statement shows fewer columns than expected.
var ErrColumnRange = errors.New("table: column out of range")

// Table is an ordered sequence of rows of string cells. Row 0 is
// conventionally the header for sections that carry one. Labels are not
// unique; duplicates resolve to the first match.
type Table struct {
	Rows [][]string
}

// New builds a table from rows.
func New(rows [][]string) *Table {
	return &Table{Rows: rows}
}

// Empty reports whether the table holds no rows. A nil table is empty.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Width returns the cell count of the widest row.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	w := 0
	for _, row := range t.Rows {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// match returns the first row whose cell at searchCol contains any of the
// aliases, tested in alias order.
func (t *Table) match(searchCol int, aliases []string) []string {
	if t.Empty() {
		return nil
	}
	for _, alias := range aliases {
		for _, row := range t.Rows {
			if searchCol >= len(row) {
				continue
			}
			if strings.Contains(row[searchCol], alias) {
				return row
			}
		}
	}
	return nil
}

// Lookup finds the first row whose label cell (column 0) contains any alias
// and returns the cleaned cell at col. A missing row, an out-of-range
// column, or a placeholder cell all yield absent.
func (t *Table) Lookup(col int, aliases ...string) value.Value {
	v, err := t.Cell(col, aliases...)
	if err != nil {
		return value.Absent()
	}
	return v
}

// Cell is Lookup that distinguishes a narrow row: when a row matches but
// has no cell at col, it returns ErrColumnRange so the caller can retry at
// a shorter offset. No match at all is not an error, just absent.
func (t *Table) Cell(col int, aliases ...string) (value.Value, error) {
	return t.CellAt(0, col, aliases...)
}

// LookupAt resolves against an arbitrary search column, for sections keyed
// by something other than the first cell (e.g. executive tables searched
// by title).
func (t *Table) LookupAt(searchCol, outCol int, aliases ...string) value.Value {
	v, err := t.CellAt(searchCol, outCol, aliases...)
	if err != nil {
		return value.Absent()
	}
	return v
}

// CellAt is the general form of Cell with a configurable search column.
func (t *Table) CellAt(searchCol, outCol int, aliases ...string) (value.Value, error) {
	row := t.match(searchCol, aliases)
	if row == nil {
		return value.Absent(), nil
	}
	if outCol >= len(row) {
		return value.Absent(), ErrColumnRange
	}
	return value.Clean(row[outCol]), nil
}
