package filter

import (
	"context"
	"fmt"

	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/pkg/dataset"
)

// SetConfig represents the configuration for a set membership filter.
type SetConfig struct {
	// Column is the text column tested (STATE, COUNTY or NAME)
	Column dataset.Column `json:"column"`
	// Values is the selection; empty keeps every row
	Values []string `json:"values"`
}

// SetModule keeps rows whose column value is one of the selected values.
// An empty selection means "no filter", not "nothing".
type SetModule struct {
	column  dataset.Column
	values  map[string]struct{}
	ordered []string
}

// NewSetFromConfig creates a new set membership filter from configuration.
func NewSetFromConfig(config SetConfig) (*SetModule, error) {
	if config.Column == "" {
		return nil, ErrColumnRequired
	}
	if !config.Column.Textual() {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotText, config.Column)
	}

	m := &SetModule{
		column: config.Column,
		values: make(map[string]struct{}, len(config.Values)),
	}
	for _, v := range config.Values {
		if _, dup := m.values[v]; dup {
			continue
		}
		m.values[v] = struct{}{}
		m.ordered = append(m.ordered, v)
	}

	logger.Debug("set filter module initialized",
		"column", string(config.Column),
		"values", m.ordered,
	)
	return m, nil
}

// ParseSetConfig parses a set filter configuration from raw config.
func ParseSetConfig(cfg map[string]interface{}) (SetConfig, error) {
	var config SetConfig
	col, err := parseColumn(cfg)
	if err != nil {
		return config, err
	}
	config.Column = col

	if raw, ok := cfg["values"]; ok && raw != nil {
		values, err := stringList(raw)
		if err != nil {
			return config, fmt.Errorf("field 'values': %w", err)
		}
		config.Values = values
	}
	return config, nil
}

// Column returns the filtered column.
func (m *SetModule) Column() dataset.Column {
	return m.column
}

// Values returns the selection in configuration order, without duplicates.
func (m *SetModule) Values() []string {
	return append([]string(nil), m.ordered...)
}

// Process implements Module.
func (m *SetModule) Process(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.values) == 0 {
		return table, nil
	}
	return table.Filter(m.Match), nil
}

// Match reports whether c passes the filter.
func (m *SetModule) Match(c dataset.Company) bool {
	if len(m.values) == 0 {
		return true
	}
	v, ok := c.Text(m.column)
	if !ok {
		return false
	}
	_, in := m.values[v]
	return in
}
