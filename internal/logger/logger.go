// Package logger provides structured logging functionality.
// It wraps the standard log/slog package for consistent logging across the runtime.
//
// Run helpers (LogRunStart, LogStageEnd, LogMetrics, LogError) attach the same
// snake_case keys everywhere so a run can be followed across stages.
//
// Two console formats are supported:
//   - JSON (default): Machine-readable structured logging
//   - Human: Console output with level glyphs and optional colors
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is the default logger instance.
var Logger *slog.Logger

// console is where logs go. Reports may be written to stdout, so logs use stderr.
var console io.Writer = os.Stderr

func init() {
	Logger = slog.New(slog.NewJSONHandler(console, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// SetLevel configures the logging level, keeping JSON output.
func SetLevel(level slog.Level) {
	SetLevelAndFormat(level, FormatJSON)
}

// SetLevelAndFormat sets both the log level and console format.
func SetLevelAndFormat(level slog.Level, format OutputFormat) {
	Logger = slog.New(newConsoleHandler(level, format))
}

func newConsoleHandler(level slog.Level, format OutputFormat) slog.Handler {
	if format == FormatHuman {
		return NewHumanHandler(console, &HumanHandlerOptions{
			Level:     level,
			UseColors: isTerminal(console),
		})
	}
	return slog.NewJSONHandler(console, &slog.HandlerOptions{Level: level})
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}

// WithDashboard returns a logger with dashboard context.
func WithDashboard(dashboardID string) *slog.Logger {
	return Logger.With("dashboard_id", dashboardID)
}

// WithModule returns a logger with module context.
func WithModule(kind string, moduleType string) *slog.Logger {
	return Logger.With("module_kind", kind, "module_type", moduleType)
}

// RunContext identifies a dashboard run in log output.
type RunContext struct {
	// RunID is the unique identifier for the run (required)
	RunID string
	// DashboardID is the dashboard being run
	DashboardID string
	// Stage is the current stage (input, prepare, filter, summary, output)
	Stage string
	// ModuleType is the module type within the stage (range, xlsx, ...)
	ModuleType string
	// DryRun indicates outputs are skipped
	DryRun bool
	// FilterIndex is the position in the filter chain; negative when not applicable
	FilterIndex int
}

// RunMetrics contains timing and volume figures for a completed run.
type RunMetrics struct {
	TotalDuration   time.Duration
	InputDuration   time.Duration
	FilterDuration  time.Duration
	OutputDuration  time.Duration
	RecordsLoaded   int
	RecordsDropped  int
	RecordsSelected int
	RecordsWritten  int
}

// StageError is the error summary attached to a failed stage.
type StageError struct {
	Code    string
	Message string
}

// ErrorContext contains structured context for error logging.
type ErrorContext struct {
	RunID       string
	DashboardID string
	Stage       string
	ModuleType  string

	ErrorCode string
	Err       error

	Path     string
	Duration time.Duration
	Extra    map[string]interface{}
}

// WithRun returns a logger carrying the run context fields.
func WithRun(ctx RunContext) *slog.Logger {
	return Logger.With(runAttrs(ctx)...)
}

// LogRunStart logs the start of a dashboard run.
func LogRunStart(ctx RunContext) {
	Logger.Info("run started", runAttrs(ctx)...)
}

// LogRunEnd logs the end of a dashboard run with its final status.
func LogRunEnd(ctx RunContext, status string, recordsSelected int, duration time.Duration) {
	attrs := append(runAttrs(ctx),
		slog.String("status", status),
		slog.Int("records_selected", recordsSelected),
		slog.Duration("duration", duration),
	)
	Logger.Info("run completed", attrs...)
}

// LogStageStart logs the start of a run stage.
func LogStageStart(ctx RunContext) {
	Logger.Debug("stage started", runAttrs(ctx)...)
}

// LogStageEnd logs the completion of a run stage.
// A non-nil err logs the stage as failed.
func LogStageEnd(ctx RunContext, recordCount int, duration time.Duration, err *StageError) {
	attrs := append(runAttrs(ctx),
		slog.Int("record_count", recordCount),
		slog.Duration("duration", duration),
	)
	if err != nil {
		attrs = append(attrs,
			slog.String("error_code", err.Code),
			slog.String("error", err.Message),
		)
		Logger.Error("stage failed", attrs...)
		return
	}
	Logger.Info("stage completed", attrs...)
}

// LogMetrics logs run metrics after completion.
func LogMetrics(ctx RunContext, m RunMetrics) {
	attrs := append(runAttrs(ctx),
		slog.Duration("total_duration", m.TotalDuration),
		slog.Duration("input_duration", m.InputDuration),
		slog.Duration("filter_duration", m.FilterDuration),
		slog.Duration("output_duration", m.OutputDuration),
		slog.Int("records_loaded", m.RecordsLoaded),
		slog.Int("records_dropped", m.RecordsDropped),
		slog.Int("records_selected", m.RecordsSelected),
		slog.Int("records_written", m.RecordsWritten),
	)
	Logger.Info("run metrics", attrs...)
}

// LogError logs an error with its run context and unwrapped error chain.
func LogError(message string, errCtx ErrorContext) {
	attrs := make([]any, 0, 12)
	if errCtx.RunID != "" {
		attrs = append(attrs, slog.String("run_id", errCtx.RunID))
	}
	if errCtx.DashboardID != "" {
		attrs = append(attrs, slog.String("dashboard_id", errCtx.DashboardID))
	}
	if errCtx.Stage != "" {
		attrs = append(attrs, slog.String("stage", errCtx.Stage))
	}
	if errCtx.ModuleType != "" {
		attrs = append(attrs, slog.String("module_type", errCtx.ModuleType))
	}
	if errCtx.ErrorCode != "" {
		attrs = append(attrs, slog.String("error_code", errCtx.ErrorCode))
	}
	if errCtx.Err != nil {
		attrs = append(attrs,
			slog.String("error", errCtx.Err.Error()),
			slog.String("error_type", fmt.Sprintf("%T", errCtx.Err)),
		)
		if chain := errorChain(errCtx.Err); len(chain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(chain, " -> ")))
		}
	}
	if errCtx.Path != "" {
		attrs = append(attrs, slog.String("path", errCtx.Path))
	}
	if errCtx.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", errCtx.Duration))
	}
	for k, v := range errCtx.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}
	Logger.Error(message, attrs...)
}

func errorChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}

func runAttrs(ctx RunContext) []any {
	attrs := make([]any, 0, 6)
	attrs = append(attrs, slog.String("run_id", ctx.RunID))
	if ctx.DashboardID != "" {
		attrs = append(attrs, slog.String("dashboard_id", ctx.DashboardID))
	}
	if ctx.Stage != "" {
		attrs = append(attrs, slog.String("stage", ctx.Stage))
	}
	if ctx.ModuleType != "" {
		attrs = append(attrs, slog.String("module_type", ctx.ModuleType))
	}
	if ctx.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}
	if ctx.FilterIndex >= 0 {
		attrs = append(attrs, slog.Int("filter_index", ctx.FilterIndex))
	}
	return attrs
}

// OutputFormat represents the console log format.
type OutputFormat int

const (
	// FormatJSON is the default machine-readable JSON format
	FormatJSON OutputFormat = iota
	// FormatHuman is a console format with glyphs and colors
	FormatHuman
)

// ParseFormat maps "json" or "human" to an OutputFormat.
func ParseFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "human", "text":
		return FormatHuman, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q (want json or human)", name)
	}
}

func (f OutputFormat) String() string {
	if f == FormatHuman {
		return "human"
	}
	return "json"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
