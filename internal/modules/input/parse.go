package input

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/pkg/dataset"
)

// header maps each known column to its position in a source row.
type header map[dataset.Column]int

// parseHeader resolves header cells to columns. Unknown headers are ignored and the
// first occurrence of a duplicated header wins. COSTS is never read from the source.
func parseHeader(cells []string) (header, error) {
	h := make(header, len(dataset.SourceColumns))
	for i, cell := range cells {
		col, ok := dataset.ParseColumn(strings.TrimPrefix(cell, "\ufeff"))
		if !ok || col == dataset.ColCosts {
			continue
		}
		if _, dup := h[col]; !dup {
			h[col] = i
		}
	}

	var missing []string
	for _, col := range dataset.SourceColumns {
		if _, ok := h[col]; !ok {
			missing = append(missing, string(col))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return h, nil
}

// cell returns the trimmed value for col, or "" when the row is too short.
func (h header) cell(row []string, col dataset.Column) string {
	i := h[col]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// blank reports whether every cell of row is empty.
func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseCompany converts one row into a company. Blank or unparsable cells are
// recorded in Missing instead of failing the row. COSTS starts missing until derived.
func parseCompany(h header, row []string) dataset.Company {
	c := dataset.Company{Missing: dataset.SetOf(dataset.ColCosts)}
	mark := func(col dataset.Column) { c.Missing = c.Missing.With(col) }

	text := func(col dataset.Column, dst *string) {
		if v := h.cell(row, col); v != "" {
			*dst = v
		} else {
			mark(col)
		}
	}
	text(dataset.ColName, &c.Name)
	text(dataset.ColState, &c.State)
	text(dataset.ColCounty, &c.County)

	if v, ok := parseInt(h.cell(row, dataset.ColRank)); ok {
		c.Rank = int(v)
	} else {
		mark(dataset.ColRank)
	}
	if v, ok := parseInt(h.cell(row, dataset.ColEmployees)); ok {
		c.Employees = v
	} else {
		mark(dataset.ColEmployees)
	}
	if v, ok := parseFloat(h.cell(row, dataset.ColLatitude)); ok {
		c.Latitude = v
	} else {
		mark(dataset.ColLatitude)
	}
	if v, ok := parseFloat(h.cell(row, dataset.ColLongitude)); ok {
		c.Longitude = v
	} else {
		mark(dataset.ColLongitude)
	}
	if v, ok := parseCurrency(h.cell(row, dataset.ColRevenues)); ok {
		c.Revenues = v
	} else {
		mark(dataset.ColRevenues)
	}
	if v, ok := parseCurrency(h.cell(row, dataset.ColProfit)); ok {
		c.Profit = v
	} else {
		mark(dataset.ColProfit)
	}
	return c
}

// parseInt accepts plain integers and integral decimals such as "12.0" or "1,234".
func parseInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, true
	}
	d, ok := parseCurrency(s)
	if !ok || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return d.IntPart(), true
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCurrency parses amounts like "500343", "-1,234.5" or "$9,862.00" exactly.
// Accounting negatives such as "(1,234)" are accepted too.
func parseCurrency(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// rowsToTable turns a header row plus data rows into a table, skipping blank rows.
func rowsToTable(rows [][]string) (*dataset.Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	h, err := parseHeader(rows[0])
	if err != nil {
		return nil, err
	}
	companies := make([]dataset.Company, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		companies = append(companies, parseCompany(h, row))
	}
	return dataset.NewTable(companies), nil
}
