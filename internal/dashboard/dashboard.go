// Package dashboard computes the views of the headquarters dashboard for a user
// selection: location options, the map, the profit table, the top-N table, the two
// charts and the metric summary.
//
// All views borrow the prepared table from a Source and never modify it.
package dashboard

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/internal/geo"
	"github.com/hqdash/runtime/internal/modules/filter"
	"github.com/hqdash/runtime/internal/summary"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Dashboard serves views over one Source.
type Dashboard struct {
	source *Source
	geo    geo.Options
}

// New creates a dashboard over source.
func New(source *Source, geoOpts geo.Options) *Dashboard {
	return &Dashboard{source: source, geo: geoOpts}
}

// Source returns the dashboard's data handle.
func (d *Dashboard) Source() *Source {
	return d.source
}

// Frame is the working table for one selection: the prepared table narrowed to the
// selected states and counties. Every view is computed from a Frame.
type Frame struct {
	Selection Selection
	// All is the prepared table, before any selection
	All *dataset.Table
	// Located is All restricted to the selected states and counties. Every
	// view reads it, so the county choice narrows the table, top list, charts
	// and summary as well as the map.
	Located *dataset.Table
	// DataError is set when the source could not be loaded; the tables are then empty
	DataError error
}

// Frame validates sel and narrows the prepared table to its location.
// The returned error is a selection or cancellation error; a load failure is
// reported in Frame.DataError instead.
func (d *Dashboard) Frame(ctx context.Context, sel Selection) (*Frame, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	all, dataErr := d.source.Table(ctx)

	states, err := filter.NewSetFromConfig(filter.SetConfig{Column: dataset.ColState, Values: sel.States})
	if err != nil {
		return nil, err
	}
	counties, err := filter.NewSetFromConfig(filter.SetConfig{Column: dataset.ColCounty, Values: sel.Counties})
	if err != nil {
		return nil, err
	}
	located, err := filter.Apply(ctx, all, states, counties)
	if err != nil {
		return nil, err
	}
	return &Frame{Selection: sel, All: all, Located: located, DataError: dataErr}, nil
}

// Range is an inclusive integer interval for a slider.
type Range struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Options lists what the sidebar widgets can offer.
type Options struct {
	States   []string         `json:"states"`
	Counties []string         `json:"counties"`
	Profit   Range            `json:"profit"`
	Rank     Range            `json:"rank"`
	Top      Range            `json:"top"`
	Metrics  []dataset.Column `json:"metrics"`
	Defaults SelectionView    `json:"defaults"`
}

// SelectionView is the JSON form of a Selection.
type SelectionView struct {
	States    []string         `json:"states"`
	Counties  []string         `json:"counties"`
	ProfitMin *decimal.Decimal `json:"profitMin,omitempty"`
	ProfitMax *decimal.Decimal `json:"profitMax,omitempty"`
	RankMin   *decimal.Decimal `json:"rankMin,omitempty"`
	RankMax   *decimal.Decimal `json:"rankMax,omitempty"`
	Top       int              `json:"top"`
	Metric    dataset.Column   `json:"metric"`
}

// View converts s to its JSON form.
func (s Selection) View() SelectionView {
	return SelectionView{
		States:    nonNil(s.States),
		Counties:  nonNil(s.Counties),
		ProfitMin: s.ProfitMin,
		ProfitMax: s.ProfitMax,
		RankMin:   s.RankMin,
		RankMax:   s.RankMax,
		Top:       s.Top,
		Metric:    s.Metric,
	}
}

// Options returns the widget choices. County options only cover the selected
// states; slider bounds come from the whole prepared table.
func (f *Frame) Options() Options {
	stateScoped := f.All
	if len(f.Selection.States) > 0 {
		set, _ := filter.NewSetFromConfig(filter.SetConfig{Column: dataset.ColState, Values: f.Selection.States})
		stateScoped = f.All.Filter(set.Match)
	}
	return Options{
		States:   sortedUnique(f.All, dataset.ColState),
		Counties: sortedUnique(stateScoped, dataset.ColCounty),
		Profit:   intBounds(f.All, dataset.ColProfit),
		Rank:     intBounds(f.All, dataset.ColRank),
		Top:      Range{Min: MinTop, Max: MaxTop},
		Metrics:  append([]dataset.Column(nil), dataset.MetricColumns...),
		Defaults: DefaultSelection().View(),
	}
}

func sortedUnique(table *dataset.Table, col dataset.Column) []string {
	values := nonNil(table.Unique(col))
	sort.Strings(values)
	return values
}

// intBounds truncates the column bounds toward zero, like a slider built from them.
func intBounds(table *dataset.Table, col dataset.Column) Range {
	lo, hi, ok := table.Bounds(col)
	if !ok {
		return Range{}
	}
	return Range{Min: lo.Truncate(0).IntPart(), Max: hi.Truncate(0).IntPart()}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Map returns the map view of the located companies.
func (d *Dashboard) Map(f *Frame) geo.View {
	return geo.BuildView(f.Located, d.geo)
}

// CompanyRow is one line of the profit table.
type CompanyRow struct {
	Name      string          `json:"NAME"`
	Rank      int             `json:"RANK"`
	Employees int64           `json:"EMPLOYEES"`
	Profit    decimal.Decimal `json:"PROFIT"`
	Revenues  decimal.Decimal `json:"REVENUES"`
}

// CompanyColumns is the column order of CompanyRow.
var CompanyColumns = []dataset.Column{
	dataset.ColName, dataset.ColRank, dataset.ColEmployees, dataset.ColProfit, dataset.ColRevenues,
}

func companyRows(rows []dataset.Company) []CompanyRow {
	out := make([]CompanyRow, len(rows))
	for i, c := range rows {
		out[i] = CompanyRow{Name: c.Name, Rank: c.Rank, Employees: c.Employees, Profit: c.Profit, Revenues: c.Revenues}
	}
	return out
}

// Companies returns the located companies whose profit lies in the selected range.
func (f *Frame) Companies(ctx context.Context) ([]CompanyRow, error) {
	profit, err := filter.NewRangeFromConfig(filter.RangeConfig{
		Column: dataset.ColProfit,
		Min:    f.Selection.ProfitMin,
		Max:    f.Selection.ProfitMax,
	})
	if err != nil {
		return nil, err
	}
	table, err := profit.Process(ctx, f.Located)
	if err != nil {
		return nil, err
	}
	return companyRows(table.Rows()), nil
}

// Top returns the N located companies with the largest profit. The profit range
// does not apply here.
func (f *Frame) Top() ([]CompanyRow, error) {
	rows, err := summary.TopN(f.Located, dataset.ColProfit, f.Selection.Top)
	if err != nil {
		return nil, err
	}
	return companyRows(rows), nil
}

// ranked returns the located companies within the selected rank range.
func (f *Frame) ranked(ctx context.Context) (*dataset.Table, error) {
	rank, err := filter.NewRangeFromConfig(filter.RangeConfig{
		Column: dataset.ColRank,
		Min:    f.Selection.RankMin,
		Max:    f.Selection.RankMax,
	})
	if err != nil {
		return nil, err
	}
	return rank.Process(ctx, f.Located)
}

// FinancialBar is one stacked bar of the financial chart.
type FinancialBar struct {
	Name     string          `json:"name"`
	Revenues decimal.Decimal `json:"revenues"`
	Costs    decimal.Decimal `json:"costs"`
	Profit   decimal.Decimal `json:"profit"`
}

// Financials returns revenues, costs and profit per company in the rank range.
func (f *Frame) Financials(ctx context.Context) ([]FinancialBar, error) {
	table, err := f.ranked(ctx)
	if err != nil {
		return nil, err
	}
	bars := make([]FinancialBar, 0, table.Len())
	table.Each(func(_ int, c dataset.Company) bool {
		bars = append(bars, FinancialBar{Name: c.Name, Revenues: c.Revenues, Costs: c.Costs, Profit: c.Profit})
		return true
	})
	return bars, nil
}

// EmployeePoint is one dot of the employees versus revenues scatter chart.
type EmployeePoint struct {
	Name      string          `json:"name"`
	State     string          `json:"state"`
	Employees int64           `json:"employees"`
	Revenues  decimal.Decimal `json:"revenues"`
}

// Employees returns employee count against revenues for companies in the rank range,
// coloured by state.
func (f *Frame) Employees(ctx context.Context) ([]EmployeePoint, error) {
	table, err := f.ranked(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]EmployeePoint, 0, table.Len())
	table.Each(func(_ int, c dataset.Company) bool {
		points = append(points, EmployeePoint{Name: c.Name, State: c.State, Employees: c.Employees, Revenues: c.Revenues})
		return true
	})
	return points, nil
}

// Summary returns the mean of the selected metric over the located companies and
// the companies ranked by it.
func (f *Frame) Summary() (*dataset.Summary, error) {
	s, err := summary.Summarize(f.Located, f.Selection.Metric, summary.MaxTop)
	if err != nil {
		return nil, fmt.Errorf("summary of %s: %w", f.Selection.Metric, err)
	}
	return s, nil
}

// ColumnInfo describes one dataset column.
type ColumnInfo struct {
	Name        dataset.Column `json:"name"`
	Description string         `json:"description"`
	Numeric     bool           `json:"numeric"`
}

// Columns describes every column, derived ones included.
func Columns() []ColumnInfo {
	out := make([]ColumnInfo, len(dataset.AllColumns))
	for i, c := range dataset.AllColumns {
		out[i] = ColumnInfo{Name: c, Description: c.Description(), Numeric: c.Numeric()}
	}
	return out
}
