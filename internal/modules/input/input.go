// Package input provides implementations for input modules.
// Input modules are responsible for reading the headquarters dataset from a source.
package input

import (
	"context"
	"errors"
	"fmt"

	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Error types for input modules
var (
	ErrNilConfig          = errors.New("source configuration is nil")
	ErrMissingPath        = errors.New("source path is required")
	ErrUnsupportedFormat  = errors.New("unsupported source format")
	ErrNoHeader           = errors.New("source has no header row")
	ErrMissingColumns     = errors.New("source is missing required columns")
	ErrInvalidJSONRecords = errors.New("json source must be an array of objects")
)

// Module represents an input module that reads the dataset.
type Module interface {
	// Fetch reads the source and returns its rows as a table.
	// The context can be used to cancel long-running reads.
	Fetch(ctx context.Context) (*dataset.Table, error)
	// Close releases any resources held by the module.
	Close() error
}

// Load fetches from m and never lets a failure escape as anything but the returned
// error: on any read, parse or panic the result is an empty table and a
// data unavailable error describing what went wrong.
func Load(ctx context.Context, m Module) (table *dataset.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			table = dataset.EmptyTable()
			err = errhandling.NewDataUnavailableError("", fmt.Errorf("panic while loading source: %v", r))
			logger.Error("source load panicked", "error", err.Error())
		}
	}()

	if m == nil {
		return dataset.EmptyTable(), errhandling.NewDataUnavailableError("", ErrNilConfig)
	}

	table, err = m.Fetch(ctx)
	if err != nil {
		if !errhandling.IsDataUnavailable(err) {
			err = errhandling.NewDataUnavailableError("", err)
		}
		logger.Warn("data unavailable", "error", err.Error())
		return dataset.EmptyTable(), err
	}
	if table == nil {
		table = dataset.EmptyTable()
	}
	return table, nil
}
