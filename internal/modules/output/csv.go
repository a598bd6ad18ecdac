package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/pathutil"
	"github.com/hqdash/runtime/pkg/dataset"
)

// CSVOutput writes the filtered companies as a CSV file with a header row.
type CSVOutput struct {
	path    string
	columns []dataset.Column
}

// NewCSVFromConfig creates a CSV output module from configuration.
// "columns" optionally restricts and orders the written columns.
func NewCSVFromConfig(cfg map[string]interface{}) (*CSVOutput, error) {
	path, err := pathFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	columns, err := columnsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &CSVOutput{path: path, columns: columns}, nil
}

// columnsFromConfig reads the optional "columns" list, defaulting to every column.
func columnsFromConfig(cfg map[string]interface{}) ([]dataset.Column, error) {
	raw, ok := cfg["columns"].([]interface{})
	if !ok || len(raw) == 0 {
		return append([]dataset.Column(nil), dataset.AllColumns...), nil
	}
	columns := make([]dataset.Column, 0, len(raw))
	for _, item := range raw {
		name, _ := item.(string)
		col, ok := dataset.ParseColumn(name)
		if !ok {
			return nil, fmt.Errorf("unknown column %v", item)
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// Write implements Module.
func (o *CSVOutput) Write(ctx context.Context, report *dataset.Report) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}
	start := time.Now()

	if err := pathutil.EnsureDir(o.path); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(o.path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", o.path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logger.Warn("failed to close output file",
				slog.String("path", o.path),
				slog.String("error", closeErr.Error()),
			)
		}
	}()

	w := csv.NewWriter(f)
	header := make([]string, len(o.columns))
	for i, col := range o.columns {
		header[i] = string(col)
	}
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	written := 0
	record := make([]string, len(o.columns))
	for i, c := range companies(report) {
		if i&0xff == 0 {
			if err := ctx.Err(); err != nil {
				return written, err
			}
		}
		for j, col := range o.columns {
			record[j] = cellString(c, col)
		}
		if err := w.Write(record); err != nil {
			return written, fmt.Errorf("writing row %d: %w", i, err)
		}
		written++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("flushing csv: %w", err)
	}

	logger.Info("csv output written",
		slog.String("module_type", "csv"),
		slog.String("path", o.path),
		slog.Int("record_count", written),
		slog.Duration("duration", time.Since(start)),
	)
	return written, nil
}

// Close implements Module.
func (o *CSVOutput) Close() error {
	return nil
}
