package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/pathutil"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Default sheet names of the XLSX report.
const (
	DefaultCompaniesSheet = "Companies"
	DefaultSummarySheet   = "Summary"
)

// XLSXOutput writes an Excel workbook with the filtered companies on one sheet
// and, when present, the summary on another.
type XLSXOutput struct {
	path           string
	companiesSheet string
	summarySheet   string
}

// NewXLSXFromConfig creates an XLSX output module from configuration.
func NewXLSXFromConfig(cfg map[string]interface{}) (*XLSXOutput, error) {
	path, err := pathFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	o := &XLSXOutput{
		path:           path,
		companiesSheet: DefaultCompaniesSheet,
		summarySheet:   DefaultSummarySheet,
	}
	if v, ok := cfg["sheet"].(string); ok && v != "" {
		o.companiesSheet = v
	}
	if o.companiesSheet == o.summarySheet {
		return nil, fmt.Errorf("sheet name %q is reserved for the summary", o.summarySheet)
	}
	return o, nil
}

// Write implements Module.
func (o *XLSXOutput) Write(ctx context.Context, report *dataset.Report) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("failed to close workbook", slog.String("error", err.Error()))
		}
	}()

	if err := f.SetSheetName("Sheet1", o.companiesSheet); err != nil {
		return 0, fmt.Errorf("naming sheet: %w", err)
	}
	written, err := o.writeCompanies(ctx, f, companies(report))
	if err != nil {
		return 0, err
	}
	if report.Summary != nil {
		if err := o.writeSummary(f, report.Summary); err != nil {
			return 0, err
		}
	}

	if err := pathutil.EnsureDir(o.path); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}
	if err := f.SaveAs(o.path); err != nil {
		return 0, fmt.Errorf("saving workbook %s: %w", o.path, err)
	}

	logger.Info("xlsx output written",
		slog.String("module_type", "xlsx"),
		slog.String("path", o.path),
		slog.Int("record_count", written),
		slog.Duration("duration", time.Since(start)),
	)
	return written, nil
}

func (o *XLSXOutput) writeCompanies(ctx context.Context, f *excelize.File, rows []dataset.Company) (int, error) {
	header := make([]interface{}, len(dataset.AllColumns))
	for i, col := range dataset.AllColumns {
		header[i] = string(col)
	}
	if err := f.SetSheetRow(o.companiesSheet, "A1", &header); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	values := make([]interface{}, len(dataset.AllColumns))
	for i, c := range rows {
		if i&0xff == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		for j, col := range dataset.AllColumns {
			values[j] = excelValue(cellValue(c, col))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		if err := f.SetSheetRow(o.companiesSheet, cell, &values); err != nil {
			return 0, fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return len(rows), nil
}

func (o *XLSXOutput) writeSummary(f *excelize.File, s *dataset.Summary) error {
	if _, err := f.NewSheet(o.summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	cells := [][]interface{}{
		{"Metric", string(s.Metric)},
		{"Companies", s.Count},
		{"Mean", s.MeanFormatted},
		{},
		{"Rank", string(dataset.ColName), string(s.Metric)},
	}
	for i, c := range s.Top {
		v, _ := c.Number(s.Metric)
		cells = append(cells, []interface{}{i + 1, c.Name, v.InexactFloat64()})
	}
	for i := range cells {
		if len(cells[i]) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(o.summarySheet, cell, &cells[i]); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}
	return nil
}

// excelValue converts decimals to float64 so Excel stores numbers, not text.
func excelValue(v interface{}) interface{} {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return v
}

// Close implements Module.
func (o *XLSXOutput) Close() error {
	return nil
}
