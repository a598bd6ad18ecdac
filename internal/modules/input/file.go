package input

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/pathutil"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Supported source formats
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// File reads the dataset from a local spreadsheet, CSV or JSON file.
type File struct {
	path   string
	format string
	sheet  string
}

// NewFileFromConfig creates a file input module from the dashboard source configuration.
//
// Required config fields:
//   - path: the source file
//
// Optional config fields:
//   - format: "xlsx", "csv" or "json" (detected from the extension when empty)
//   - sheet: worksheet name for xlsx sources (first sheet when empty)
func NewFileFromConfig(config *dataset.SourceConfig) (*File, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if strings.TrimSpace(config.Path) == "" {
		return nil, ErrMissingPath
	}
	if err := pathutil.ValidateFilePath(config.Path); err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(config.Format))
	if format == "" {
		format = pathutil.FormatFromExtension(config.Path)
	}
	switch format {
	case FormatXLSX, FormatCSV, FormatJSON:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return &File{
		path:   config.Path,
		format: format,
		sheet:  config.Sheet,
	}, nil
}

// Path returns the source file path.
func (f *File) Path() string {
	return f.path
}

// Format returns the resolved source format.
func (f *File) Format() string {
	return f.format
}

// Fetch reads the file. Every failure is returned as a data unavailable error.
func (f *File) Fetch(ctx context.Context) (*dataset.Table, error) {
	start := time.Now()
	log := logger.WithModule("input", f.format).With("path", f.path)
	log.Debug("reading source")

	if err := ctx.Err(); err != nil {
		return nil, errhandling.NewDataUnavailableError(f.path, err)
	}

	var (
		table *dataset.Table
		err   error
	)
	switch f.format {
	case FormatXLSX:
		table, err = f.readXLSX()
	case FormatCSV:
		table, err = f.readCSV()
	case FormatJSON:
		table, err = f.readJSON()
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, f.format)
	}
	if err != nil {
		return nil, errhandling.NewDataUnavailableError(f.path, err)
	}

	log.Info("source loaded",
		"record_count", table.Len(),
		"duration", time.Since(start),
	)
	return table, nil
}

// Close implements Module. File holds no open handles between fetches.
func (f *File) Close() error {
	return nil
}

func (f *File) readXLSX() (*dataset.Table, error) {
	book, err := excelize.OpenFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() {
		if cerr := book.Close(); cerr != nil {
			logger.Warn("failed to close workbook", "path", f.path, "error", cerr.Error())
		}
	}()

	sheet := f.sheet
	if sheet == "" {
		sheet = book.GetSheetName(0)
	}
	if idx, err := book.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("worksheet %q not found", sheet)
	}

	rows, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading worksheet %q: %w", sheet, err)
	}
	return rowsToTable(rows)
}

func (f *File) readCSV() (*dataset.Table, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rowsToTable(rows)
}

func (f *File) readJSON() (*dataset.Table, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.UseNumber()
	var records []map[string]interface{}
	if err := dec.Decode(&records); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrInvalidJSONRecords
		}
		return nil, fmt.Errorf("parsing json: %w", err)
	}
	return recordsToTable(records)
}

// recordsToTable converts JSON objects to rows using the union of their keys as header.
func recordsToTable(records []map[string]interface{}) (*dataset.Table, error) {
	var keys []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	if len(records) == 0 {
		keys = make([]string, 0, len(dataset.SourceColumns))
		for _, c := range dataset.SourceColumns {
			keys = append(keys, string(c))
		}
	}

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, keys)
	for _, rec := range records {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = jsonCell(rec[k])
		}
		rows = append(rows, row)
	}
	return rowsToTable(rows)
}

// jsonCell renders a decoded JSON value as a cell. null and non-scalars are blank.
func jsonCell(v interface{}) string {
	switch val := v.(type) {
	case json.Number:
		return val.String()
	case string:
		return val
	default:
		return ""
	}
}
