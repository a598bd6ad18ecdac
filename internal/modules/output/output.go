// Package output provides implementations for output modules.
// Output modules write the report produced by a dashboard run to a destination:
// a JSON or CSV file, an Excel workbook, a SQLite table or the console.
package output

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/internal/pathutil"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Module represents an output module that writes a report.
type Module interface {
	// Write stores the report at the destination.
	// Returns the number of company rows written and any error.
	Write(ctx context.Context, report *dataset.Report) (int, error)

	// Close releases any resources held by the module.
	Close() error
}

// Error types shared by output modules
var (
	ErrNilReport   = errors.New("report is nil")
	ErrMissingPath = errors.New("path is required")
)

// pathFromConfig reads and validates the "path" field.
func pathFromConfig(cfg map[string]interface{}) (string, error) {
	path, _ := cfg["path"].(string)
	if path == "" {
		return "", ErrMissingPath
	}
	if err := pathutil.ValidateFilePath(path); err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	return path, nil
}

// cellValue returns a column value typed for a writer: string for text, int64 for
// counts, float64 for coordinates and decimal for currency. Missing values are nil.
func cellValue(c dataset.Company, col dataset.Column) interface{} {
	if c.Missing.Has(col) {
		return nil
	}
	switch col {
	case dataset.ColName:
		return c.Name
	case dataset.ColState:
		return c.State
	case dataset.ColCounty:
		return c.County
	case dataset.ColRank:
		return int64(c.Rank)
	case dataset.ColEmployees:
		return c.Employees
	case dataset.ColLatitude:
		return c.Latitude
	case dataset.ColLongitude:
		return c.Longitude
	case dataset.ColRevenues:
		return c.Revenues
	case dataset.ColProfit:
		return c.Profit
	case dataset.ColCosts:
		return c.Costs
	default:
		return nil
	}
}

// cellString formats a column value as text. Missing values are empty.
func cellString(c dataset.Company, col dataset.Column) string {
	switch v := cellValue(c, col).(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case decimal.Decimal:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// companies returns the report rows, tolerating a nil table.
func companies(report *dataset.Report) []dataset.Company {
	if report == nil || report.Companies == nil {
		return nil
	}
	return report.Companies.Rows()
}
