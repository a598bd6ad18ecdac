package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/internal/modules/filter"
	"github.com/hqdash/runtime/internal/modules/output"
	"github.com/hqdash/runtime/pkg/dataset"
)

// =============================================================================
// Mock Implementations for Testing
// =============================================================================

// MockSource is a test mock for the Source interface
type MockSource struct {
	table   *dataset.Table
	err     error
	loaded  int
	dropped int
}

func (m *MockSource) Table(context.Context) (*dataset.Table, error) {
	return m.table, m.err
}

func (m *MockSource) Stats() (int, int) {
	return m.loaded, m.dropped
}

var _ Source = (*MockSource)(nil)

// MockOutputModule is a test mock for output.Module interface
type MockOutputModule struct {
	report *dataset.Report
	err    error
	closed bool
}

func (m *MockOutputModule) Write(_ context.Context, report *dataset.Report) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.report = report
	return report.Companies.Len(), nil
}

func (m *MockOutputModule) Close() error {
	m.closed = true
	return nil
}

var _ output.Module = (*MockOutputModule)(nil)

func company(rank int, name, state string, revenues, profit int64) dataset.Company {
	r, p := decimal.NewFromInt(revenues), decimal.NewFromInt(profit)
	return dataset.Company{Rank: rank, Name: name, State: state, Revenues: r, Profit: p, Costs: r.Sub(p)}
}

func preparedSource() *MockSource {
	return &MockSource{
		table: dataset.NewTable([]dataset.Company{
			company(1, "Walmart", "AR", 500343, 9862),
			company(4, "Exxon Mobil", "TX", 244363, 19710),
			company(13, "AT&T", "TX", 160546, 29450),
		}),
		loaded:  4,
		dropped: 1,
	}
}

func testDashboard() *dataset.Dashboard {
	return &dataset.Dashboard{
		ID:      "fortune500",
		Name:    "Fortune 500 HQ",
		Summary: &dataset.SummaryConfig{Metric: dataset.ColProfit, Top: 1},
	}
}

func stateFilter(t *testing.T, states ...string) filter.Module {
	t.Helper()
	m, err := filter.NewSetFromConfig(filter.SetConfig{Column: dataset.ColState, Values: states})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// =============================================================================
// Unit Tests for Run Execution
// =============================================================================

func TestExecutor_Execute_Success(t *testing.T) {
	out := &MockOutputModule{}
	e := NewExecutorWithModules(preparedSource(), []filter.Module{stateFilter(t, "TX")}, []output.Module{out}, false)

	result, err := e.Execute(context.Background(), testDashboard())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Status != StatusSuccess {
		t.Errorf("Status = %s, want success", result.Status)
	}
	if result.RunID == "" || result.DashboardID != "fortune500" {
		t.Errorf("ids = %q/%q", result.RunID, result.DashboardID)
	}
	if result.RecordsLoaded != 4 || result.RecordsDropped != 1 || result.RecordsSelected != 2 || result.RecordsWritten != 2 {
		t.Errorf("counts = %+v", result)
	}
	if result.Summary == nil || len(result.Summary.Top) != 1 || result.Summary.Top[0].Name != "AT&T" {
		t.Errorf("Summary = %+v", result.Summary)
	}
	if result.Summary.MeanFormatted != "$24,580.00" {
		t.Errorf("MeanFormatted = %s", result.Summary.MeanFormatted)
	}
	if out.report == nil || out.report.RunID != result.RunID {
		t.Error("output did not receive the report")
	}
	if !out.closed {
		t.Error("output module should be closed")
	}
}

func TestExecutor_Execute_DataUnavailable(t *testing.T) {
	src := &MockSource{
		table: dataset.EmptyTable(),
		err:   errhandling.NewDataUnavailableError("missing.xlsx", errors.New("file not found")),
	}
	out := &MockOutputModule{}
	e := NewExecutorWithModules(src, nil, []output.Module{out}, false)

	result, err := e.Execute(context.Background(), testDashboard())
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if result.Status != StatusPartial {
		t.Errorf("Status = %s, want partial", result.Status)
	}
	if result.DataError == "" || out.report.DataError != result.DataError {
		t.Errorf("DataError = %q / %q", result.DataError, out.report.DataError)
	}
	if result.RecordsSelected != 0 || result.Summary == nil || result.Summary.Count != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestExecutor_Execute_FilterFailure(t *testing.T) {
	boom := errors.New("boom")
	failing := filter.Func(func(context.Context, *dataset.Table) (*dataset.Table, error) {
		return nil, boom
	})
	out := &MockOutputModule{}
	e := NewExecutorWithModules(preparedSource(), []filter.Module{stateFilter(t), failing}, []output.Module{out}, false)

	result, err := e.Execute(context.Background(), testDashboard())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if result.Status != StatusError || result.Error == nil || result.Error.Code != ErrCodeFilterFailed {
		t.Fatalf("result = %+v", result)
	}
	if result.Error.Details["filterIndex"] != 1 {
		t.Errorf("filterIndex = %v, want 1", result.Error.Details["filterIndex"])
	}
	if out.report != nil {
		t.Error("output should not run after a filter failure")
	}
	if !out.closed {
		t.Error("output module should still be closed")
	}
}

func TestExecutor_Execute_OutputFailure(t *testing.T) {
	ok := &MockOutputModule{}
	bad := &MockOutputModule{err: errors.New("disk full")}
	e := NewExecutorWithModules(preparedSource(), nil, []output.Module{bad, ok}, false)

	result, err := e.Execute(context.Background(), testDashboard())
	if err == nil {
		t.Fatal("expected error")
	}
	if result.Error.Code != ErrCodeOutputFailed || result.Error.Details["outputIndex"] != 0 {
		t.Errorf("Error = %+v", result.Error)
	}
	if ok.report == nil {
		t.Error("remaining outputs should still be written")
	}
	if result.RecordsWritten != 3 {
		t.Errorf("RecordsWritten = %d, want 3", result.RecordsWritten)
	}
}

func TestExecutor_Execute_DryRun(t *testing.T) {
	out := &MockOutputModule{}
	e := NewExecutorWithModules(preparedSource(), nil, []output.Module{out}, true)

	result, err := e.Execute(context.Background(), testDashboard())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.report != nil || result.RecordsWritten != 0 {
		t.Error("dry run should not write outputs")
	}
	if result.RecordsSelected != 3 {
		t.Errorf("RecordsSelected = %d", result.RecordsSelected)
	}

	// Dry runs need no outputs at all.
	if _, err := NewExecutorWithModules(preparedSource(), nil, nil, true).Execute(context.Background(), testDashboard()); err != nil {
		t.Errorf("dry run without outputs: %v", err)
	}
}

func TestExecutor_Execute_Validation(t *testing.T) {
	tests := []struct {
		name string
		e    *Executor
		d    *dataset.Dashboard
		want error
	}{
		{"nil dashboard", NewExecutorWithModules(preparedSource(), nil, []output.Module{&MockOutputModule{}}, false), nil, ErrNilDashboard},
		{"nil source", NewExecutor(false), testDashboard(), ErrNilSource},
		{"no outputs", NewExecutorWithModules(preparedSource(), nil, nil, false), testDashboard(), ErrNoOutputs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.e.Execute(context.Background(), tt.d)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if result.Status != StatusError || result.Error.Code != ErrCodeInvalidInput {
				t.Errorf("result = %+v", result)
			}
		})
	}
}

func TestExecutor_Execute_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewExecutorWithModules(preparedSource(), nil, []output.Module{&MockOutputModule{}}, false)

	result, err := e.Execute(ctx, testDashboard())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.Error.Category != string(errhandling.CategoryCanceled) {
		t.Errorf("Category = %s", result.Error.Category)
	}
}
