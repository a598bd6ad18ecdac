package dashboard

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/internal/geo"
	"github.com/hqdash/runtime/pkg/dataset"
)

type tableModule struct {
	table   *dataset.Table
	err     error
	fetches int
}

func (m *tableModule) Fetch(context.Context) (*dataset.Table, error) {
	m.fetches++
	return m.table, m.err
}

func (m *tableModule) Close() error { return nil }

func row(rank int, name, state, county string, employees int64, revenues, profit string) dataset.Company {
	return dataset.Company{
		Rank: rank, Name: name, State: state, County: county,
		Latitude: 35, Longitude: -95,
		Employees: employees,
		Revenues:  decimal.RequireFromString(revenues),
		Profit:    decimal.RequireFromString(profit),
		Missing:   dataset.SetOf(dataset.ColCosts),
	}
}

func fixture() *dataset.Table {
	incomplete := row(99, "No County", "TX", "", 1, "1", "1")
	incomplete.Missing = incomplete.Missing.With(dataset.ColCounty)
	return dataset.NewTable([]dataset.Company{
		row(1, "Walmart", "AR", "Benton", 2300000, "500343", "9862"),
		row(2, "Berkshire Hathaway", "NE", "Douglas", 377000, "242137", "44940"),
		row(3, "Apple", "CA", "Santa Clara", 123000, "229234", "48351"),
		row(4, "Exxon Mobil", "TX", "Dallas", 71100, "244363", "19710"),
		row(60, "AT&T", "TX", "Dallas", 254000, "160546", "29450"),
		row(70, "Loss Maker", "TX", "Harris", 100, "1000", "-250"),
		incomplete,
	})
}

func newDashboard(t *testing.T) (*Dashboard, *tableModule) {
	t.Helper()
	m := &tableModule{table: fixture()}
	return New(NewSource(m), geo.Options{}), m
}

func frame(t *testing.T, d *Dashboard, mutate func(*Selection)) *Frame {
	t.Helper()
	sel := DefaultSelection()
	if mutate != nil {
		mutate(&sel)
	}
	f, err := d.Frame(context.Background(), sel)
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	return f
}

func rowNames(rows []CompanyRow) []string {
	out := []string{}
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func TestSource_PreparesOnce(t *testing.T) {
	d, m := newDashboard(t)
	for i := 0; i < 3; i++ {
		table, err := d.Source().Table(context.Background())
		if err != nil {
			t.Fatalf("Table() error = %v", err)
		}
		if table.Len() != 6 {
			t.Fatalf("prepared rows = %d, want 6", table.Len())
		}
		table.Each(func(_ int, c dataset.Company) bool {
			if !c.Costs.Equal(c.Revenues.Sub(c.Profit)) {
				t.Errorf("%s costs = %s", c.Name, c.Costs)
			}
			return true
		})
	}
	if m.fetches != 1 {
		t.Errorf("fetches = %d, want 1", m.fetches)
	}
	loaded, dropped := d.Source().Stats()
	if loaded != 7 || dropped != 1 {
		t.Errorf("Stats() = %d/%d, want 7/1", loaded, dropped)
	}
}

func TestFrame_EmptySelectionKeepsAll(t *testing.T) {
	d, _ := newDashboard(t)
	f := frame(t, d, nil)
	if diff := cmp.Diff(f.All.Rows(), f.Located.Rows()); diff != "" {
		t.Errorf("located differs from prepared (-want +got):\n%s", diff)
	}
}

func TestFrame_StateAndCounty(t *testing.T) {
	d, _ := newDashboard(t)

	f := frame(t, d, func(s *Selection) { s.States = []string{"TX"} })
	if got := f.Located.Len(); got != 3 {
		t.Errorf("TX rows = %d, want 3", got)
	}

	f = frame(t, d, func(s *Selection) {
		s.States = []string{"TX"}
		s.Counties = []string{"Dallas"}
	})
	if got := f.Located.Len(); got != 2 {
		t.Errorf("TX/Dallas rows = %d, want 2", got)
	}

	f = frame(t, d, func(s *Selection) {
		s.States = []string{"CA"}
		s.Counties = []string{"Dallas"}
	})
	if f.Located.Len() != 0 {
		t.Errorf("county outside selected states should yield no rows, got %d", f.Located.Len())
	}
}

func TestFrame_CountyNarrowsEveryView(t *testing.T) {
	d, _ := newDashboard(t)
	f := frame(t, d, func(s *Selection) {
		s.States = []string{"TX"}
		s.Counties = []string{"Dallas"}
		s.Metric = dataset.ColProfit
	})
	ctx := context.Background()

	companies, err := f.Companies(ctx)
	if err != nil {
		t.Fatalf("Companies() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Exxon Mobil", "AT&T"}, rowNames(companies)); diff != "" {
		t.Errorf("Companies mismatch (-want +got):\n%s", diff)
	}

	top, err := f.Top()
	if err != nil {
		t.Fatalf("Top() error = %v", err)
	}
	if diff := cmp.Diff([]string{"AT&T", "Exxon Mobil"}, rowNames(top)); diff != "" {
		t.Errorf("Top mismatch (-want +got):\n%s", diff)
	}

	bars, err := f.Financials(ctx)
	if err != nil {
		t.Fatalf("Financials() error = %v", err)
	}
	if len(bars) != 1 || bars[0].Name != "Exxon Mobil" {
		t.Errorf("Financials = %+v, want Exxon Mobil only", bars)
	}

	sum, err := f.Summary()
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if sum.Count != 2 {
		t.Errorf("Summary count = %d, want 2 (Harris excluded)", sum.Count)
	}

	if points := d.Map(f).Points; len(points) != 2 {
		t.Errorf("map points = %d, want 2", len(points))
	}
}

func TestOptions(t *testing.T) {
	d, _ := newDashboard(t)
	f := frame(t, d, func(s *Selection) { s.States = []string{"TX", "NE"} })
	opts := f.Options()

	if diff := cmp.Diff([]string{"AR", "CA", "NE", "TX"}, opts.States); diff != "" {
		t.Errorf("States mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Dallas", "Douglas", "Harris"}, opts.Counties); diff != "" {
		t.Errorf("Counties mismatch (-want +got):\n%s", diff)
	}
	if opts.Profit != (Range{Min: -250, Max: 48351}) {
		t.Errorf("Profit = %+v", opts.Profit)
	}
	if opts.Rank != (Range{Min: 1, Max: 70}) {
		t.Errorf("Rank = %+v", opts.Rank)
	}
	if opts.Defaults.Metric != dataset.ColRevenues || opts.Defaults.Top != 5 {
		t.Errorf("Defaults = %+v", opts.Defaults)
	}
}

func TestCompanies_ProfitRange(t *testing.T) {
	d, _ := newDashboard(t)

	f := frame(t, d, nil)
	rows, err := f.Companies(context.Background())
	if err != nil {
		t.Fatalf("Companies() error = %v", err)
	}
	want := []string{"Walmart", "Berkshire Hathaway", "Apple", "Exxon Mobil", "AT&T"}
	if diff := cmp.Diff(want, rowNames(rows)); diff != "" {
		t.Errorf("default range mismatch (-want +got):\n%s", diff)
	}

	f = frame(t, d, func(s *Selection) {
		lo, hi := decimal.NewFromInt(19710), decimal.NewFromInt(44940)
		s.ProfitMin, s.ProfitMax = &lo, &hi
	})
	rows, err = f.Companies(context.Background())
	if err != nil {
		t.Fatalf("Companies() error = %v", err)
	}
	want = []string{"Berkshire Hathaway", "Exxon Mobil", "AT&T"}
	if diff := cmp.Diff(want, rowNames(rows)); diff != "" {
		t.Errorf("inclusive range mismatch (-want +got):\n%s", diff)
	}
}

func TestTop_IgnoresProfitRange(t *testing.T) {
	d, _ := newDashboard(t)
	f := frame(t, d, func(s *Selection) {
		s.States = []string{"TX"}
		s.Top = 5
		hi := decimal.NewFromInt(0)
		s.ProfitMax = &hi
	})
	rows, err := f.Top()
	if err != nil {
		t.Fatalf("Top() error = %v", err)
	}
	want := []string{"AT&T", "Exxon Mobil", "Loss Maker"}
	if diff := cmp.Diff(want, rowNames(rows)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCharts_RankRange(t *testing.T) {
	d, _ := newDashboard(t)
	f := frame(t, d, nil)

	bars, err := f.Financials(context.Background())
	if err != nil {
		t.Fatalf("Financials() error = %v", err)
	}
	if len(bars) != 4 {
		t.Fatalf("got %d bars, want 4 (ranks 1..50)", len(bars))
	}
	if !bars[0].Costs.Equal(decimal.NewFromInt(490481)) {
		t.Errorf("Walmart costs = %s", bars[0].Costs)
	}

	f = frame(t, d, func(s *Selection) {
		lo := decimal.NewFromInt(60)
		s.RankMin, s.RankMax = &lo, nil
	})
	points, err := f.Employees(context.Background())
	if err != nil {
		t.Fatalf("Employees() error = %v", err)
	}
	want := []EmployeePoint{
		{Name: "AT&T", State: "TX", Employees: 254000, Revenues: decimal.NewFromInt(160546)},
		{Name: "Loss Maker", State: "TX", Employees: 100, Revenues: decimal.NewFromInt(1000)},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSummary(t *testing.T) {
	d, _ := newDashboard(t)
	f := frame(t, d, func(s *Selection) {
		s.States = []string{"TX"}
		s.Metric = dataset.ColProfit
	})
	s, err := f.Summary()
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	// (19710 + 29450 - 250) / 3
	if s.Count != 3 || s.MeanFormatted != "$16,303.33" {
		t.Errorf("Summary = %d rows, %s", s.Count, s.MeanFormatted)
	}
	if len(s.Top) != 3 || s.Top[0].Name != "AT&T" {
		t.Errorf("Top = %v", s.Top)
	}
}

func TestMap(t *testing.T) {
	d, _ := newDashboard(t)
	view := d.Map(frame(t, d, func(s *Selection) { s.States = []string{"AR"} }))
	if len(view.Points) != 1 || view.Points[0].Name != "Walmart" {
		t.Errorf("Points = %+v", view.Points)
	}
}

func TestDataUnavailable(t *testing.T) {
	m := &tableModule{err: errhandling.NewDataUnavailableError("missing.xlsx", errors.New("file not found"))}
	d := New(NewSource(m), geo.Options{})

	f, err := d.Frame(context.Background(), DefaultSelection())
	if err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	if !errhandling.IsDataUnavailable(f.DataError) {
		t.Errorf("DataError = %v, want data unavailable", f.DataError)
	}
	if f.Located.Len() != 0 {
		t.Errorf("Located has %d rows, want 0", f.Located.Len())
	}
	rows, err := f.Companies(context.Background())
	if err != nil || len(rows) != 0 {
		t.Errorf("Companies() = %v, %v", rows, err)
	}
	s, err := f.Summary()
	if err != nil || s.Count != 0 {
		t.Errorf("Summary() = %+v, %v", s, err)
	}
	if opts := f.Options(); len(opts.States) != 0 || opts.Profit != (Range{}) {
		t.Errorf("Options() = %+v", opts)
	}
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		check   func(t *testing.T, s Selection)
		wantErr bool
	}{
		{
			name:  "defaults",
			query: "",
			check: func(t *testing.T, s Selection) {
				if s.Top != 5 || s.Metric != dataset.ColRevenues || s.ProfitMax.IntPart() != 100000 {
					t.Errorf("defaults = %+v", s)
				}
			},
		},
		{
			name:  "lists and bounds",
			query: "state=TX&state=CA&state=+NE+&state=&county=Dallas&profitMin=-500&rankMax=&top=10&metric=costs",
			check: func(t *testing.T, s Selection) {
				if diff := cmp.Diff([]string{"TX", "CA", "NE"}, s.States); diff != "" {
					t.Errorf("States mismatch (-want +got):\n%s", diff)
				}
				if s.ProfitMin.IntPart() != -500 || s.RankMax != nil {
					t.Errorf("bounds = %v / %v", s.ProfitMin, s.RankMax)
				}
				if s.Top != 10 || s.Metric != dataset.ColCosts {
					t.Errorf("top/metric = %d/%s", s.Top, s.Metric)
				}
			},
		},
		{
			name:  "county with comma",
			query: "county=Anchorage%2C+Municipality+of&county=Dallas",
			check: func(t *testing.T, s Selection) {
				if diff := cmp.Diff([]string{"Anchorage, Municipality of", "Dallas"}, s.Counties); diff != "" {
					t.Errorf("Counties mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{name: "inverted profit", query: "profitMin=10&profitMax=1", wantErr: true},
		{name: "top too large", query: "top=51", wantErr: true},
		{name: "top not a number", query: "top=five", wantErr: true},
		{name: "bad metric", query: "metric=RANK", wantErr: true},
		{name: "bad bound", query: "rankMin=abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			sel, err := ParseSelection(q)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSelection) {
					t.Errorf("err = %v, want ErrInvalidSelection", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSelection() error = %v", err)
			}
			tt.check(t, sel)
		})
	}
}

func TestColumns(t *testing.T) {
	cols := Columns()
	if len(cols) != len(dataset.AllColumns) {
		t.Fatalf("got %d columns", len(cols))
	}
	last := cols[len(cols)-1]
	if last.Name != dataset.ColCosts || last.Description != "Annual Costs (in USD)" || !last.Numeric {
		t.Errorf("COSTS = %+v", last)
	}
}
