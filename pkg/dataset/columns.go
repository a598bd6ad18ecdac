package dataset

import (
	"math/bits"
	"strings"
)

// Column names a field of a company record. Values match the spreadsheet headers.
type Column string

// Source columns read from the input file, plus the derived COSTS column.
const (
	ColRank      Column = "RANK"
	ColName      Column = "NAME"
	ColState     Column = "STATE"
	ColCounty    Column = "COUNTY"
	ColLatitude  Column = "LATITUDE"
	ColLongitude Column = "LONGITUDE"
	ColEmployees Column = "EMPLOYEES"
	ColRevenues  Column = "REVENUES"
	ColProfit    Column = "PROFIT"
	ColCosts     Column = "COSTS"
)

// SourceColumns lists the columns every input file must provide, in header order.
var SourceColumns = []Column{
	ColRank, ColName, ColState, ColCounty, ColLatitude,
	ColLongitude, ColEmployees, ColRevenues, ColProfit,
}

// AllColumns is SourceColumns followed by the derived columns.
var AllColumns = append(append([]Column{}, SourceColumns...), ColCosts)

// MetricColumns are the financial columns a summary can be computed over.
var MetricColumns = []Column{ColRevenues, ColProfit, ColCosts}

var columnDescriptions = map[Column]string{
	ColRank:      "Company rank in the Fortune 500 list",
	ColName:      "Company name",
	ColState:     "State of the corporate headquarters",
	ColCounty:    "County of the corporate headquarters",
	ColLatitude:  "Headquarters latitude",
	ColLongitude: "Headquarters longitude",
	ColEmployees: "Number of employees",
	ColRevenues:  "Annual revenues (in USD)",
	ColProfit:    "Net profit (in USD)",
	ColCosts:     "Annual Costs (in USD)",
}

// ParseColumn resolves a column name case-insensitively, ignoring surrounding space.
func ParseColumn(name string) (Column, bool) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for _, c := range AllColumns {
		if string(c) == want {
			return c, true
		}
	}
	return "", false
}

// Description returns the human-readable description shown next to the column.
func (c Column) Description() string {
	return columnDescriptions[c]
}

// Numeric reports whether the column holds a number.
func (c Column) Numeric() bool {
	switch c {
	case ColName, ColState, ColCounty:
		return false
	}
	_, known := columnDescriptions[c]
	return known
}

// Textual reports whether the column holds a string.
func (c Column) Textual() bool {
	return c == ColName || c == ColState || c == ColCounty
}

func (c Column) bit() ColumnSet {
	for i, known := range AllColumns {
		if known == c {
			return 1 << uint(i)
		}
	}
	return 0
}

// ColumnSet is a small bitset of columns. The zero value is empty.
type ColumnSet uint16

// SetOf builds a set holding the given columns.
func SetOf(cols ...Column) ColumnSet {
	var s ColumnSet
	for _, c := range cols {
		s = s.With(c)
	}
	return s
}

// Has reports whether c is in the set.
func (s ColumnSet) Has(c Column) bool {
	b := c.bit()
	return b != 0 && s&b != 0
}

// With returns the set with c added.
func (s ColumnSet) With(c Column) ColumnSet {
	return s | c.bit()
}

// Without returns the set with c removed.
func (s ColumnSet) Without(c Column) ColumnSet {
	return s &^ c.bit()
}

// Empty reports whether the set has no columns.
func (s ColumnSet) Empty() bool {
	return s == 0
}

// Len returns the number of columns in the set.
func (s ColumnSet) Len() int {
	return bits.OnesCount16(uint16(s))
}

// Columns lists the members in AllColumns order.
func (s ColumnSet) Columns() []Column {
	out := make([]Column, 0, s.Len())
	for _, c := range AllColumns {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
