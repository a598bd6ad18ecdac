// Package summary reduces a filtered table to the figures shown next to it:
// the N largest rows by a metric and the metric's mean.
package summary

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/pkg/dataset"
)

// DefaultTop is the number of rows shown when no N is chosen.
const DefaultTop = 5

// MaxTop caps N for interactive requests.
const MaxTop = 500

// ErrNotNumeric is returned when a reducer is asked to rank a text column.
var ErrNotNumeric = errors.New("column is not numeric")

// TopN returns at most n rows with the largest values of col, in descending order.
// Ties keep their table order. Rows missing col are ignored. n <= 0 yields no rows.
func TopN(table *dataset.Table, col dataset.Column, n int) ([]dataset.Company, error) {
	if !col.Numeric() {
		return nil, fmt.Errorf("%w: %s", ErrNotNumeric, col)
	}
	if n <= 0 {
		return []dataset.Company{}, nil
	}

	type ranked struct {
		row   dataset.Company
		value decimal.Decimal
	}
	candidates := make([]ranked, 0, table.Len())
	table.Each(func(_ int, c dataset.Company) bool {
		if v, ok := c.Number(col); ok {
			candidates = append(candidates, ranked{row: c, value: v})
		}
		return true
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].value.GreaterThan(candidates[j].value)
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]dataset.Company, n)
	for i := range out {
		out[i] = candidates[i].row
	}
	return out, nil
}

// Mean returns the arithmetic mean of col over every row that has a value.
// ok is false when no row has one.
func Mean(table *dataset.Table, col dataset.Column) (mean decimal.Decimal, count int, ok bool, err error) {
	if !col.Numeric() {
		return decimal.Zero, 0, false, fmt.Errorf("%w: %s", ErrNotNumeric, col)
	}
	sum := decimal.Zero
	table.Each(func(_ int, c dataset.Company) bool {
		if v, has := c.Number(col); has {
			sum = sum.Add(v)
			count++
		}
		return true
	})
	if count == 0 {
		return decimal.Zero, 0, false, nil
	}
	return sum.Div(decimal.NewFromInt(int64(count))), count, true, nil
}

// Summarize computes the mean of metric over the whole table and its top rows.
func Summarize(table *dataset.Table, metric dataset.Column, top int) (*dataset.Summary, error) {
	rows, err := TopN(table, metric, top)
	if err != nil {
		return nil, err
	}
	mean, count, _, err := Mean(table, metric)
	if err != nil {
		return nil, err
	}
	return &dataset.Summary{
		Metric:        metric,
		Count:         count,
		Mean:          mean,
		MeanFormatted: FormatCurrency(mean),
		Top:           rows,
	}, nil
}

// FormatCurrency renders d as dollars with thousands separators and two decimals,
// e.g. "$1,234.56" or "-$12.50".
func FormatCurrency(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var sb strings.Builder
	if d.Round(2).IsNegative() {
		sb.WriteByte('-')
	}
	sb.WriteByte('$')
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('.')
	sb.WriteString(frac)
	return sb.String()
}

// ParseMetric resolves a metric name, accepting only the financial columns.
func ParseMetric(name string) (dataset.Column, error) {
	col, ok := dataset.ParseColumn(name)
	if ok {
		for _, m := range dataset.MetricColumns {
			if m == col {
				return col, nil
			}
		}
	}
	names := make([]string, len(dataset.MetricColumns))
	for i, m := range dataset.MetricColumns {
		names[i] = string(m)
	}
	return "", fmt.Errorf("unknown metric %q (want one of %s)", name, strings.Join(names, ", "))
}
