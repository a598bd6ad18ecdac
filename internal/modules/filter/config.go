package filter

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hqdash/runtime/pkg/dataset"
)

// Configuration errors shared by filter modules
var (
	ErrUnknownColumn    = errors.New("unknown column")
	ErrColumnRequired   = errors.New("column is required")
	ErrColumnNotNumeric = errors.New("column is not numeric")
	ErrColumnNotText    = errors.New("column is not a text column")
	ErrInvertedRange    = errors.New("range minimum is greater than maximum")
)

// parseColumn reads the required "column" field.
func parseColumn(cfg map[string]interface{}) (dataset.Column, error) {
	raw, ok := cfg["column"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		if cfg["column"] != nil {
			return "", fmt.Errorf("field 'column' must be a string")
		}
		return "", ErrColumnRequired
	}
	col, ok := dataset.ParseColumn(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, raw)
	}
	return col, nil
}

// stringList accepts a single string or a list of scalars.
func stringList(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			switch s := item.(type) {
			case string:
				out = append(out, s)
			case float64, int, int64, json.Number:
				out = append(out, fmt.Sprint(s))
			default:
				return nil, fmt.Errorf("item %d must be a string, got %T", i, item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be a string or a list of strings, got %T", raw)
	}
}

// decimalValue converts a YAML/JSON scalar to a decimal.
// nil yields (nil, nil) so optional bounds stay unset.
func decimalValue(raw interface{}) (*decimal.Decimal, error) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		d = decimal.NewFromFloat(v)
	case float32:
		d = decimal.NewFromFloat32(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case json.Number:
		parsed, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, err
		}
		d = parsed
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", v)
		}
		d = parsed
	case decimal.Decimal:
		d = v
	default:
		return nil, fmt.Errorf("must be a number, got %T", raw)
	}
	return &d, nil
}

// ParseBound parses an optional query or config bound. Blank input is unset.
func ParseBound(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return decimalValue(s)
}
