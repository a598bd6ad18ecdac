package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Error codes for condition module
const (
	ErrCodeInvalidExpression = "INVALID_EXPRESSION"
	ErrCodeEvaluationFailed  = "EVALUATION_FAILED"
)

// Common errors for condition module
var (
	// ErrEmptyExpression is returned when no expression is configured
	ErrEmptyExpression = errors.New("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression syntax is invalid
	ErrInvalidExpression = errors.New("invalid expression syntax")
)

// ConditionConfig represents the configuration for a condition filter module.
type ConditionConfig struct {
	// Expression is a boolean expression over the record columns, e.g.
	// `EMPLOYEES > 100000 && STATE == "TX"` (required)
	Expression string `json:"expression"`
	// OnError specifies error handling mode: "fail" (default), "skip", "log"
	OnError string `json:"onError,omitempty"`
}

// ConditionModule keeps rows for which an expr-lang expression is truthy.
// Columns are exposed by name; missing values are nil.
type ConditionModule struct {
	expression string
	onError    errhandling.OnErrorStrategy
	program    *vm.Program
}

// ConditionError carries structured context for condition evaluation failures.
type ConditionError struct {
	Code        string
	Message     string
	Expression  string
	RecordIndex int
}

func (e *ConditionError) Error() string {
	return e.Message
}

// NewConditionFromConfig creates a new condition filter module from configuration.
// The expression is compiled once; a syntax error is a configuration error.
func NewConditionFromConfig(config ConditionConfig) (*ConditionModule, error) {
	expression := strings.TrimSpace(config.Expression)
	if expression == "" {
		return nil, ErrEmptyExpression
	}

	onError := errhandling.ParseOnErrorStrategy(config.OnError)
	if config.OnError != "" && string(onError) != strings.ToLower(strings.TrimSpace(config.OnError)) {
		logger.Warn("invalid onError value for condition module; defaulting to fail",
			slog.String("on_error", config.OnError),
		)
	}

	// Undefined names evaluate to nil.
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, &ConditionError{
			Code:        ErrCodeInvalidExpression,
			Message:     fmt.Sprintf("%v: %v", ErrInvalidExpression, err),
			Expression:  expression,
			RecordIndex: -1,
		}
	}

	logger.Debug("condition module initialized",
		slog.String("expression", expression),
		slog.String("on_error", string(onError)),
	)

	return &ConditionModule{
		expression: expression,
		onError:    onError,
		program:    program,
	}, nil
}

// ParseConditionConfig parses a condition filter configuration from raw config.
func ParseConditionConfig(cfg map[string]interface{}) (ConditionConfig, error) {
	var config ConditionConfig
	expression, ok := cfg["expression"].(string)
	if !ok {
		if cfg["expression"] != nil {
			return config, fmt.Errorf("field 'expression' must be a string")
		}
		return config, ErrEmptyExpression
	}
	config.Expression = expression
	if onError, ok := cfg["onError"].(string); ok {
		config.OnError = onError
	}
	return config, nil
}

// Process keeps the rows the expression accepts.
// Evaluation errors are handled according to onError.
func (c *ConditionModule) Process(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	kept := make([]dataset.Company, 0, table.Len())
	skipped := 0
	var failure error

	table.Each(func(i int, record dataset.Company) bool {
		if err := checkEvery(ctx, i); err != nil {
			failure = err
			return false
		}

		pass, err := c.Match(record)
		if err != nil {
			condErr := &ConditionError{
				Code:        ErrCodeEvaluationFailed,
				Message:     fmt.Sprintf("condition evaluation failed at record %d: %v", i, err),
				Expression:  c.expression,
				RecordIndex: i,
			}
			switch c.onError {
			case errhandling.OnErrorSkip:
				skipped++
				logger.Warn("skipping record due to condition evaluation error",
					slog.Int("record_index", i),
					slog.String("expression", c.expression),
					slog.String("error", err.Error()),
				)
			case errhandling.OnErrorLog:
				logger.Error("condition evaluation error (continuing)",
					slog.Int("record_index", i),
					slog.String("expression", c.expression),
					slog.String("error", err.Error()),
				)
				kept = append(kept, record)
			default:
				failure = condErr
				return false
			}
			return true
		}
		if pass {
			kept = append(kept, record)
		}
		return true
	})
	if failure != nil {
		return nil, failure
	}

	logger.Debug("filter processing completed",
		slog.String("module_type", "condition"),
		slog.Int("input_records", table.Len()),
		slog.Int("output_records", len(kept)),
		slog.Int("skipped_records", skipped),
		slog.Duration("duration", time.Since(start)),
	)
	return dataset.NewTable(kept), nil
}

// Match evaluates the expression against one record.
func (c *ConditionModule) Match(record dataset.Company) (bool, error) {
	output, err := expr.Run(c.program, record.Fields())
	if err != nil {
		return false, err
	}
	if b, ok := output.(bool); ok {
		return b, nil
	}
	return toBool(output), nil
}

// toBool converts a non-boolean expression result to a truth value.
func toBool(value interface{}) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
