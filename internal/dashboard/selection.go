package dashboard

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/internal/modules/filter"
	"github.com/hqdash/runtime/internal/summary"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Widget defaults and limits.
const (
	DefaultProfitMin = 0
	DefaultProfitMax = 100000
	DefaultRankMin   = 1
	DefaultRankMax   = 50
	MinTop           = 1
	MaxTop           = 50
)

// ErrInvalidSelection is wrapped by every selection validation error.
var ErrInvalidSelection = errors.New("invalid selection")

// Selection is the set of choices a user makes in the sidebar.
//
// Empty States or Counties mean "no restriction". Range bounds are inclusive;
// a nil bound is open.
type Selection struct {
	States    []string
	Counties  []string
	ProfitMin *decimal.Decimal
	ProfitMax *decimal.Decimal
	RankMin   *decimal.Decimal
	RankMax   *decimal.Decimal
	Top       int
	Metric    dataset.Column
}

// DefaultSelection returns the selection shown before the user touches anything.
func DefaultSelection() Selection {
	return Selection{
		ProfitMin: bound(DefaultProfitMin),
		ProfitMax: bound(DefaultProfitMax),
		RankMin:   bound(DefaultRankMin),
		RankMax:   bound(DefaultRankMax),
		Top:       summary.DefaultTop,
		Metric:    dataset.ColRevenues,
	}
}

func bound(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

// Validate checks ranges, N and the metric.
func (s Selection) Validate() error {
	if s.ProfitMin != nil && s.ProfitMax != nil && s.ProfitMin.GreaterThan(*s.ProfitMax) {
		return fmt.Errorf("%w: profit range %s > %s", ErrInvalidSelection, s.ProfitMin, s.ProfitMax)
	}
	if s.RankMin != nil && s.RankMax != nil && s.RankMin.GreaterThan(*s.RankMax) {
		return fmt.Errorf("%w: rank range %s > %s", ErrInvalidSelection, s.RankMin, s.RankMax)
	}
	if s.Top < MinTop || s.Top > MaxTop {
		return fmt.Errorf("%w: top must be between %d and %d, got %d", ErrInvalidSelection, MinTop, MaxTop, s.Top)
	}
	if _, err := summary.ParseMetric(string(s.Metric)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return nil
}

// ParseSelection reads a selection from query parameters, starting from
// DefaultSelection. Several states or counties are given by repeating the
// parameter; a value is taken whole, commas included.
func ParseSelection(q url.Values) (Selection, error) {
	sel := DefaultSelection()
	sel.States = listParam(q, "state")
	sel.Counties = listParam(q, "county")

	bounds := []struct {
		key string
		dst **decimal.Decimal
	}{
		{"profitMin", &sel.ProfitMin},
		{"profitMax", &sel.ProfitMax},
		{"rankMin", &sel.RankMin},
		{"rankMax", &sel.RankMax},
	}
	for _, b := range bounds {
		if !q.Has(b.key) {
			continue
		}
		v, err := filter.ParseBound(q.Get(b.key))
		if err != nil {
			return sel, fmt.Errorf("%w: %s: %v", ErrInvalidSelection, b.key, err)
		}
		*b.dst = v
	}

	if raw := strings.TrimSpace(q.Get("top")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return sel, fmt.Errorf("%w: top: %v", ErrInvalidSelection, err)
		}
		sel.Top = n
	}
	if raw := strings.TrimSpace(q.Get("metric")); raw != "" {
		metric, err := summary.ParseMetric(raw)
		if err != nil {
			return sel, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
		sel.Metric = metric
	}
	return sel, sel.Validate()
}

func listParam(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		if v := strings.TrimSpace(raw); v != "" {
			out = append(out, v)
		}
	}
	return out
}
