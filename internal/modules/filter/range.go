package filter

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/pkg/dataset"
)

// RangeConfig represents the configuration for an inclusive numeric range filter.
type RangeConfig struct {
	// Column is the numeric column tested
	Column dataset.Column `json:"column"`
	// Min is the inclusive lower bound; nil means unbounded
	Min *decimal.Decimal `json:"min,omitempty"`
	// Max is the inclusive upper bound; nil means unbounded
	Max *decimal.Decimal `json:"max,omitempty"`
}

// RangeModule keeps rows with Min <= column <= Max.
// Rows missing the column never match.
type RangeModule struct {
	column dataset.Column
	min    *decimal.Decimal
	max    *decimal.Decimal
}

// NewRangeFromConfig creates a new range filter from configuration.
// It rejects text columns and inverted bounds.
func NewRangeFromConfig(config RangeConfig) (*RangeModule, error) {
	if config.Column == "" {
		return nil, ErrColumnRequired
	}
	if !config.Column.Numeric() {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotNumeric, config.Column)
	}
	if config.Min != nil && config.Max != nil && config.Min.GreaterThan(*config.Max) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvertedRange, config.Min, config.Max)
	}

	logger.Debug("range filter module initialized",
		"column", string(config.Column),
		"min", boundString(config.Min),
		"max", boundString(config.Max),
	)
	return &RangeModule{column: config.Column, min: config.Min, max: config.Max}, nil
}

// ParseRangeConfig parses a range filter configuration from raw config.
func ParseRangeConfig(cfg map[string]interface{}) (RangeConfig, error) {
	var config RangeConfig
	col, err := parseColumn(cfg)
	if err != nil {
		return config, err
	}
	config.Column = col

	if config.Min, err = decimalValue(cfg["min"]); err != nil {
		return config, fmt.Errorf("field 'min': %w", err)
	}
	if config.Max, err = decimalValue(cfg["max"]); err != nil {
		return config, fmt.Errorf("field 'max': %w", err)
	}
	return config, nil
}

// Process implements Module.
func (m *RangeModule) Process(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return table.Filter(m.Match), nil
}

// Match reports whether c's value lies within the bounds.
func (m *RangeModule) Match(c dataset.Company) bool {
	v, ok := c.Number(m.column)
	if !ok {
		return false
	}
	if m.min != nil && v.LessThan(*m.min) {
		return false
	}
	if m.max != nil && v.GreaterThan(*m.max) {
		return false
	}
	return true
}

func boundString(d *decimal.Decimal) string {
	if d == nil {
		return "unbounded"
	}
	return d.String()
}
