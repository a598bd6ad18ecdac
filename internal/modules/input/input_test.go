package input

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/pkg/dataset"
)

var fixtureHeader = []interface{}{
	"RANK", "NAME", "STATE", "COUNTY", "LATITUDE", "LONGITUDE", "EMPLOYEES", "REVENUES", "PROFIT",
}

var fixtureRows = [][]interface{}{
	{1, "Walmart", "AR", "BENTON", 36.3729, -94.2088, 2300000, 500343, 9862},
	{2, "Exxon Mobil", "TX", "DALLAS", 32.8140, -96.9489, 71200, 244363, 19710},
	{3, "Berkshire Hathaway", "NE", "DOUGLAS", 41.2565, -95.9345, 377000, 242137, 44940},
	{4, "No County Inc", "CA", nil, 37.3318, -122.0312, 123000, 229234, 48351},
}

func writeXLSX(t *testing.T, sheet string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatalf("SetSheetName: %v", err)
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &fixtureHeader); err != nil {
		t.Fatalf("SetSheetRow header: %v", err)
	}
	for i, row := range fixtureRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow %d: %v", i, err)
		}
	}
	path := filepath.Join(t.TempDir(), "fortune_500_hq.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func fetch(t *testing.T, cfg *dataset.SourceConfig) (*dataset.Table, error) {
	t.Helper()
	m, err := NewFileFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFileFromConfig() error = %v", err)
	}
	return Load(context.Background(), m)
}

func names(table *dataset.Table) []string {
	var out []string
	table.Each(func(_ int, c dataset.Company) bool {
		out = append(out, c.Name)
		return true
	})
	return out
}

func TestFile_XLSX(t *testing.T) {
	path := writeXLSX(t, "Sheet1")
	table, err := fetch(t, &dataset.SourceConfig{Path: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"Walmart", "Exxon Mobil", "Berkshire Hathaway", "No County Inc"}
	if diff := cmp.Diff(want, names(table)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	walmart := table.Row(0)
	if walmart.Rank != 1 || walmart.Employees != 2300000 {
		t.Errorf("Walmart rank/employees = %d/%d", walmart.Rank, walmart.Employees)
	}
	if walmart.Revenues.String() != "500343" || walmart.Profit.String() != "9862" {
		t.Errorf("Walmart revenues/profit = %s/%s", walmart.Revenues, walmart.Profit)
	}
	if !walmart.Missing.Has(dataset.ColCosts) || walmart.Missing.Len() != 1 {
		t.Errorf("fresh rows should only miss COSTS, got %v", walmart.Missing.Columns())
	}

	noCounty := table.Row(3)
	if !noCounty.Missing.Has(dataset.ColCounty) {
		t.Error("blank COUNTY cell should be marked missing")
	}
}

func TestFile_XLSX_NamedSheet(t *testing.T) {
	path := writeXLSX(t, "HQ")

	table, err := fetch(t, &dataset.SourceConfig{Path: path, Sheet: "HQ"})
	if err != nil || table.Len() != 4 {
		t.Fatalf("Load(HQ) = %d rows, err %v", table.Len(), err)
	}

	table, err = fetch(t, &dataset.SourceConfig{Path: path, Sheet: "Nope"})
	if !errhandling.IsDataUnavailable(err) {
		t.Errorf("missing sheet err = %v, want data unavailable", err)
	}
	if table.Len() != 0 {
		t.Errorf("missing sheet returned %d rows", table.Len())
	}
}

func TestFile_CSV(t *testing.T) {
	path := writeFile(t, "hq.csv", "\ufeffrank,Name,STATE,COUNTY,LATITUDE,LONGITUDE,EMPLOYEES,REVENUES,PROFIT,SECTOR\n"+
		"1,Walmart,AR,BENTON,36.37,-94.2,2300000,\"$500,343\",9862,Retail\n"+
		",,,,,,,,\n"+
		"2,Loss Co,TX,DALLAS,32.8,-96.9,100,1000,(250)\n"+
		"3,Short Row,TX\n")

	table, err := fetch(t, &dataset.SourceConfig{Path: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected blank row skipped, got %d rows", table.Len())
	}
	if got := table.Row(0).Revenues.String(); got != "500343" {
		t.Errorf("currency cell parsed as %s", got)
	}
	if got := table.Row(1).Profit.String(); got != "-250" {
		t.Errorf("accounting negative parsed as %s", got)
	}
	short := table.Row(2)
	for _, col := range []dataset.Column{dataset.ColCounty, dataset.ColRevenues, dataset.ColProfit} {
		if !short.Missing.Has(col) {
			t.Errorf("short row should miss %s", col)
		}
	}
}

func TestFile_JSON(t *testing.T) {
	path := writeFile(t, "hq.json", `[
		{"RANK": 1, "NAME": "Walmart", "STATE": "AR", "COUNTY": "BENTON", "LATITUDE": 36.37,
		 "LONGITUDE": -94.2, "EMPLOYEES": 2300000, "REVENUES": 500343.25, "PROFIT": "9862"},
		{"RANK": 2, "NAME": "Nulls", "STATE": "TX", "COUNTY": null, "LATITUDE": 1,
		 "LONGITUDE": 1, "EMPLOYEES": 1, "REVENUES": 1, "PROFIT": true}
	]`)

	table, err := fetch(t, &dataset.SourceConfig{Path: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := table.Row(0).Revenues.String(); got != "500343.25" {
		t.Errorf("REVENUES = %s, want exact 500343.25", got)
	}
	nulls := table.Row(1)
	if !nulls.Missing.Has(dataset.ColCounty) || !nulls.Missing.Has(dataset.ColProfit) {
		t.Errorf("null/bool cells should be missing, got %v", nulls.Missing.Columns())
	}
}

func TestFile_JSON_NotArray(t *testing.T) {
	path := writeFile(t, "hq.json", `{"RANK": 1}`)
	_, err := fetch(t, &dataset.SourceConfig{Path: path})
	if !errors.Is(err, ErrInvalidJSONRecords) {
		t.Errorf("err = %v, want ErrInvalidJSONRecords", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.xlsx")
	table, err := fetch(t, &dataset.SourceConfig{Path: path})

	if table == nil || table.Len() != 0 {
		t.Fatalf("expected empty table, got %v", table)
	}
	if !errhandling.IsDataUnavailable(err) {
		t.Fatalf("err = %v, want data unavailable", err)
	}
	if msg := errhandling.UserMessage(err); msg == "" {
		t.Error("expected a user-visible message")
	}
}

func TestLoad_MissingColumns(t *testing.T) {
	path := writeFile(t, "hq.csv", "RANK,NAME\n1,Walmart\n")
	table, err := fetch(t, &dataset.SourceConfig{Path: path})
	if !errors.Is(err, ErrMissingColumns) {
		t.Errorf("err = %v, want ErrMissingColumns", err)
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d rows", table.Len())
	}
}

func TestNewFileFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *dataset.SourceConfig
		wantErr error
	}{
		{"nil", nil, ErrNilConfig},
		{"no path", &dataset.SourceConfig{}, ErrMissingPath},
		{"bad format", &dataset.SourceConfig{Path: "hq.parquet"}, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFileFromConfig(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewFileFromConfig(&dataset.SourceConfig{Path: "../hq.xlsx"}); err == nil {
		t.Error("expected path traversal to be rejected")
	}
}

type panicModule struct{}

func (panicModule) Fetch(context.Context) (*dataset.Table, error) { panic("corrupt workbook") }
func (panicModule) Close() error                                  { return nil }

func TestLoad_RecoversPanic(t *testing.T) {
	table, err := Load(context.Background(), panicModule{})
	if table.Len() != 0 || !errhandling.IsDataUnavailable(err) {
		t.Errorf("Load() = (%d rows, %v), want empty + data unavailable", table.Len(), err)
	}
}

type countingModule struct {
	mu    sync.Mutex
	calls int
	table *dataset.Table
	err   error
}

func (m *countingModule) Fetch(context.Context) (*dataset.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.table, m.err
}

func (m *countingModule) Close() error { return nil }

func TestCached_LoadsOnce(t *testing.T) {
	m := &countingModule{table: dataset.NewTable([]dataset.Company{{Name: "Walmart"}})}
	cached := NewCached(m)

	var wg sync.WaitGroup
	tables := make([]*dataset.Table, 8)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tables[i], _ = cached.Load(context.Background())
		}(i)
	}
	wg.Wait()

	if m.calls != 1 || cached.Loads() != 1 {
		t.Fatalf("source read %d times, want 1", m.calls)
	}
	for i, table := range tables {
		if table != tables[0] {
			t.Errorf("call %d returned a different table handle", i)
		}
	}
}

func TestCached_MemoizesFailure(t *testing.T) {
	m := &countingModule{err: errors.New("disk on fire")}
	cached := NewCached(m)

	_, first := cached.Load(context.Background())
	table, second := cached.Load(context.Background())

	if m.calls != 1 {
		t.Errorf("source read %d times, want 1", m.calls)
	}
	if first != second || !errhandling.IsDataUnavailable(second) {
		t.Errorf("errors differ or unclassified: %v / %v", first, second)
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d rows", table.Len())
	}
}

func TestCached_IgnoresCallerCancellation(t *testing.T) {
	m := &countingModule{table: dataset.NewTable([]dataset.Company{{Name: "Apple"}})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table, err := NewCached(m).Load(ctx)
	if err != nil || table.Len() != 1 {
		t.Errorf("Load(canceled ctx) = (%d, %v)", table.Len(), err)
	}
}
