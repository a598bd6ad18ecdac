package filter

import (
	"context"
	"fmt"

	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/pkg/dataset"
)

// CompleteConfig represents the configuration for a completeness filter.
type CompleteConfig struct {
	// Columns limits the check to these columns; empty means every column
	Columns []dataset.Column `json:"columns,omitempty"`
}

// CompleteModule drops rows with a missing value.
type CompleteModule struct {
	required dataset.ColumnSet
}

// NewComplete creates a completeness filter over every column.
func NewComplete() *CompleteModule {
	return &CompleteModule{required: dataset.SetOf(dataset.AllColumns...)}
}

// NewCompleteFromConfig creates a completeness filter from configuration.
func NewCompleteFromConfig(config CompleteConfig) (*CompleteModule, error) {
	if len(config.Columns) == 0 {
		return NewComplete(), nil
	}
	return &CompleteModule{required: dataset.SetOf(config.Columns...)}, nil
}

// ParseCompleteConfig parses a completeness filter configuration from raw config.
func ParseCompleteConfig(cfg map[string]interface{}) (CompleteConfig, error) {
	var config CompleteConfig
	raw, ok := cfg["columns"]
	if !ok || raw == nil {
		return config, nil
	}
	names, err := stringList(raw)
	if err != nil {
		return config, fmt.Errorf("field 'columns': %w", err)
	}
	for _, name := range names {
		col, ok := dataset.ParseColumn(name)
		if !ok {
			return config, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		config.Columns = append(config.Columns, col)
	}
	return config, nil
}

// Process implements Module.
func (m *CompleteModule) Process(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := table.Filter(func(c dataset.Company) bool {
		return c.Missing&m.required == 0
	})
	if dropped := table.Len() - out.Len(); dropped > 0 {
		logger.Debug("incomplete rows dropped",
			"module_type", "complete",
			"input_records", table.Len(),
			"dropped_records", dropped,
		)
	}
	return out, nil
}
