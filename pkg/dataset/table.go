package dataset

import (
	"github.com/shopspring/decimal"
)

// Table is an immutable, ordered collection of companies.
//
// A Table is never modified after construction. Every operation that narrows or
// rewrites rows returns a new Table, so a loaded table can be shared read-only
// between goroutines. A nil *Table behaves like an empty one.
type Table struct {
	rows []Company
}

// NewTable builds a table from rows. The slice is copied.
func NewTable(rows []Company) *Table {
	owned := make([]Company, len(rows))
	copy(owned, rows)
	return &Table{rows: owned}
}

// EmptyTable returns a table with no rows.
func EmptyTable() *Table {
	return &Table{}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns the i-th row. It panics if i is out of range, like a slice index.
func (t *Table) Row(i int) Company {
	return t.rows[i]
}

// Rows returns a copy of all rows in order.
func (t *Table) Rows() []Company {
	if t == nil {
		return nil
	}
	out := make([]Company, len(t.rows))
	copy(out, t.rows)
	return out
}

// Each calls fn for every row in order until fn returns false.
func (t *Table) Each(fn func(i int, c Company) bool) {
	if t == nil {
		return
	}
	for i, c := range t.rows {
		if !fn(i, c) {
			return
		}
	}
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Company) bool) *Table {
	out := &Table{rows: make([]Company, 0, t.Len())}
	t.Each(func(_ int, c Company) bool {
		if keep(c) {
			out.rows = append(out.rows, c)
		}
		return true
	})
	return out
}

// Map returns a new table with fn applied to every row. Row order and count are kept.
func (t *Table) Map(fn func(Company) Company) *Table {
	out := &Table{rows: make([]Company, 0, t.Len())}
	t.Each(func(_ int, c Company) bool {
		out.rows = append(out.rows, fn(c))
		return true
	})
	return out
}

// Unique returns the distinct non-missing values of a string column in first-seen order.
func (t *Table) Unique(col Column) []string {
	seen := make(map[string]bool)
	var out []string
	t.Each(func(_ int, c Company) bool {
		v, ok := c.Text(col)
		if ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
		return true
	})
	return out
}

// Bounds returns the smallest and largest value of a numeric column.
// ok is false when no row has a value for the column.
func (t *Table) Bounds(col Column) (lo, hi decimal.Decimal, ok bool) {
	t.Each(func(_ int, c Company) bool {
		v, has := c.Number(col)
		if !has {
			return true
		}
		if !ok {
			lo, hi, ok = v, v, true
			return true
		}
		if v.LessThan(lo) {
			lo = v
		}
		if v.GreaterThan(hi) {
			hi = v
		}
		return true
	})
	return lo, hi, ok
}
