package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/pathutil"
	"github.com/hqdash/runtime/pkg/dataset"
)

// StdoutPath selects standard output instead of a file.
const StdoutPath = "-"

// JSONConfig holds configuration for the JSON output module.
type JSONConfig struct {
	// Path is the file to write, or "-" for stdout
	Path string `json:"path"`
	// Indent pretty-prints the document
	Indent bool `json:"indent"`
}

// JSONOutput writes the whole report as one JSON document.
type JSONOutput struct {
	config JSONConfig
	stdout io.Writer
}

type jsonDocument struct {
	*dataset.Report
	Companies []dataset.Company `json:"companies"`
}

// NewJSONFromConfig creates a JSON output module from configuration.
func NewJSONFromConfig(cfg map[string]interface{}) (*JSONOutput, error) {
	config := JSONConfig{Path: StdoutPath}
	if p, ok := cfg["path"].(string); ok && p != "" && p != StdoutPath {
		path, err := pathFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		config.Path = path
	}
	if v, ok := cfg["indent"].(bool); ok {
		config.Indent = v
	}
	return &JSONOutput{config: config, stdout: os.Stdout}, nil
}

// Write implements Module.
func (o *JSONOutput) Write(ctx context.Context, report *dataset.Report) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()

	rows := companies(report)
	if rows == nil {
		rows = []dataset.Company{}
	}
	doc := jsonDocument{Report: report, Companies: rows}

	var w io.Writer = o.stdout
	if o.config.Path != StdoutPath {
		if err := pathutil.EnsureDir(o.config.Path); err != nil {
			return 0, fmt.Errorf("creating output directory: %w", err)
		}
		f, err := os.Create(o.config.Path)
		if err != nil {
			return 0, fmt.Errorf("creating %s: %w", o.config.Path, err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil {
				logger.Warn("failed to close output file",
					slog.String("path", o.config.Path),
					slog.String("error", closeErr.Error()),
				)
			}
		}()
		w = f
	}

	enc := json.NewEncoder(w)
	if o.config.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("encoding report: %w", err)
	}

	logger.Info("json output written",
		slog.String("module_type", "json"),
		slog.String("path", o.config.Path),
		slog.Int("record_count", len(rows)),
		slog.Duration("duration", time.Since(start)),
	)
	return len(rows), nil
}

// Close implements Module.
func (o *JSONOutput) Close() error {
	return nil
}
