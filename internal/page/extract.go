package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"finscrape/internal/acquire"
	"finscrape/internal/table"
	"finscrape/internal/value"
)

// Validate builds the page-variant predicate for the acquirer: the wrong
// variant's indicator must be absent and, when configured, the live marker
// present.
func Validate(sel Selectors) acquire.ValidateFunc {
	return func(doc *goquery.Document) bool {
		if sel.WrongVariant != "" {
			wrong := false
			doc.Find(sel.WrongVariant).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if sel.WrongVariantText == "" ||
					strings.Contains(s.Text(), sel.WrongVariantText) {
					wrong = true
					return false
				}
				return true
			})
			if wrong {
				return false
			}
		}
		if sel.LiveMarker != "" && doc.Find(sel.LiveMarker).Length() == 0 {
			return false
		}
		return true
	}
}

// texts collects the text of every node the selector matches.
func texts(doc *goquery.Document, selector string) []string {
	var out []string
	if selector == "" {
		return out
	}
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// cells collects the trimmed text of each child the cell selector matches
// inside the row selection.
func cells(row *goquery.Selection, selector string) []string {
	var out []string
	row.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// Summary is the identity data and key/value table of the summary page.
type Summary struct {
	Name             value.Value
	Price            value.Value
	ChangeIntraday   value.Value
	ChangeAfterHours value.Value
	Table            *table.Table
}

// ExtractSummary lifts the summary page. The price and change markers
// double as evidence that the live variant rendered, so a page missing
// them yields absent identity fields rather than an error.
func ExtractSummary(doc *goquery.Document, sel Selectors) Summary {
	var out Summary

	if names := texts(doc, sel.Name); len(names) > 0 {
		out.Name = value.Clean(names[0])
	}
	if prices := texts(doc, sel.Price); len(prices) > 0 {
		out.Price = value.Clean(prices[0])
	}

	// Change nodes arrive as (amount, percent) pairs: intraday first,
	// after-hours second when the market is closed.
	changes := texts(doc, sel.Change)
	if len(changes) >= 2 {
		out.ChangeIntraday = value.Clean(changes[0] + " " + changes[1])
	}
	if len(changes) >= 4 {
		out.ChangeAfterHours = value.Clean(changes[2] + " " + changes[3])
	}

	labels := texts(doc, sel.SummaryLabel)
	values := texts(doc, sel.SummaryValue)
	var rows [][]string
	for i := range labels {
		if i < len(values) {
			rows = append(rows, []string{labels[i], values[i]})
		}
	}
	out.Table = table.New(rows)
	return out
}

// SideTabs returns the section labels offered in the page's navigation,
// used to distinguish a structurally missing section from a failed fetch.
func SideTabs(doc *goquery.Document, sel Selectors) []string {
	return texts(doc, sel.SideTab)
}

// HasTab reports whether the label appears among the side tabs.
func HasTab(tabs []string, label string) bool {
	for _, t := range tabs {
		if t == label {
			return true
		}
	}
	return false
}

// ExtractStatisticsValuations lifts the valuation-measures table. Row 0 is
// the header; its first cell is normalized to "Breakdown".
func ExtractStatisticsValuations(doc *goquery.Document, sel Selectors) *table.Table {
	header := texts(doc, sel.StatsValuationHead)
	if len(header) == 0 {
		return table.New(nil)
	}
	header[0] = "Breakdown"

	rows := [][]string{header}
	doc.Find(sel.StatsValuationRow).Each(func(_ int, row *goquery.Selection) {
		if cs := cells(row, sel.StatsValuationCell); len(cs) > 0 {
			rows = append(rows, cs)
		}
	})
	return table.New(rows)
}

// ExtractStatisticsHighlights lifts the financial-highlights rows.
func ExtractStatisticsHighlights(doc *goquery.Document, sel Selectors) *table.Table {
	var rows [][]string
	doc.Find(sel.StatsHighlightRow).Each(func(_ int, row *goquery.Selection) {
		if cs := cells(row, sel.StatsHighlightCell); len(cs) > 0 {
			rows = append(rows, cs)
		}
	})
	return table.New(rows)
}

// ExtractStatement lifts one financial-statement page into a table. The
// first cell of every content row repeats the row label wrapper and is
// dropped.
func ExtractStatement(doc *goquery.Document, sel Selectors) *table.Table {
	var rows [][]string

	headRow := doc.Find(sel.StatementHeadRow).First()
	if head := cells(headRow, sel.StatementHeadCell); len(head) > 0 {
		rows = append(rows, head)
	}

	doc.Find(sel.StatementRow).Each(func(_ int, row *goquery.Selection) {
		cs := cells(row, sel.StatementCell)
		if len(cs) > 1 {
			rows = append(rows, cs[1:])
		}
	})
	return table.New(rows)
}

// Profile is the company profile page's scalars plus the key-executives
// table.
type Profile struct {
	Sector     value.Value
	Industry   value.Value
	Employees  value.Value
	Executives *table.Table
}

// ExtractProfile lifts the profile page. Sector and industry share one
// link style, in that order; the employee count is the second definition
// node when present.
func ExtractProfile(doc *goquery.Document, sel Selectors) Profile {
	var out Profile

	si := texts(doc, sel.SectorIndustry)
	if len(si) > 0 {
		out.Sector = value.Clean(si[0])
	}
	if len(si) > 1 {
		out.Industry = value.Clean(si[1])
	}

	if emp := texts(doc, sel.Employees); len(emp) > 1 {
		out.Employees = value.Clean(emp[1])
	}

	rows := [][]string{texts(doc, sel.ProfileHeadCell)}
	doc.Find(sel.ProfileRow).Each(func(_ int, row *goquery.Selection) {
		if cs := cells(row, sel.ProfileCell); len(cs) > 0 {
			rows = append(rows, cs)
		}
	})
	// The first two rows are the header wrapper and an empty spacer row.
	if len(rows) > 2 {
		rows = rows[2:]
	} else {
		rows = nil
	}
	out.Executives = table.New(rows)
	return out
}

// Holders is the major-holders breakdown.
type Holders struct {
	InsiderSharesHeld      value.Value
	InstitutionSharesHeld  value.Value
	InstitutionFloatHeld   value.Value
	InstitutionHolderCount value.Value
}

// ExtractHolders lifts the four-figure major-holders strip; figures and
// their captions alternate, so only the even cells carry data.
func ExtractHolders(doc *goquery.Document, sel Selectors) Holders {
	cs := texts(doc, sel.MajorHolders)
	at := func(i int) value.Value {
		if i < len(cs) {
			return value.Clean(cs[i])
		}
		return value.Absent()
	}
	return Holders{
		InsiderSharesHeld:      at(0),
		InstitutionSharesHeld:  at(2),
		InstitutionFloatHeld:   at(4),
		InstitutionHolderCount: at(6),
	}
}

// ExtractInsiderTransactions lifts the purchase/sale activity table. Only
// the first three columns belong to it, and the trailing rows spill into
// unrelated tables below, so both axes are clipped.
func ExtractInsiderTransactions(doc *goquery.Document, sel Selectors) *table.Table {
	head := texts(doc, sel.InsiderHeadCell)
	if len(head) > 3 {
		head = head[:3]
	}
	rows := [][]string{head}

	var content [][]string
	doc.Find(sel.InsiderRow).Each(func(_ int, row *goquery.Selection) {
		cs := cells(row, sel.InsiderCell)
		if len(cs) > 3 {
			cs = cs[:3]
		}
		content = append(content, cs)
	})
	// Row 0 duplicates the header; the last three rows belong to the
	// tables below.
	if len(content) > 4 {
		rows = append(rows, content[1:len(content)-3]...)
	}
	return table.New(rows)
}

// RelatedTickers reads up to n ticker symbols from the recommendation
// strip on a summary page.
func RelatedTickers(doc *goquery.Document, sel Selectors, n int) []string {
	var out []string
	doc.Find(sel.RelatedTicker).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		sym := strings.TrimSpace(s.Find(sel.TickerSymbol).First().Text())
		if sym != "" {
			out = append(out, sym)
		}
		return len(out) < n
	})
	return out
}
