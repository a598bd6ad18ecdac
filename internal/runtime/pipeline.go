// Package runtime provides the dashboard run engine.
// It orchestrates one report run: load and prepare the source, apply the filter
// chain, reduce to a summary and write every output.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/modules/filter"
	"github.com/hqdash/runtime/internal/modules/output"
	"github.com/hqdash/runtime/internal/summary"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Error codes for run errors
const (
	ErrCodeInputFailed   = "INPUT_FAILED"
	ErrCodeFilterFailed  = "FILTER_FAILED"
	ErrCodeSummaryFailed = "SUMMARY_FAILED"
	ErrCodeOutputFailed  = "OUTPUT_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
)

// Run status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
	// StatusPartial means the run completed on an empty table because the
	// source was unavailable.
	StatusPartial = "partial"
)

// Common errors
var (
	// ErrNilDashboard is returned when the dashboard configuration is nil
	ErrNilDashboard = errors.New("dashboard configuration is nil")

	// ErrNilSource is returned when no source is configured
	ErrNilSource = errors.New("source is nil")

	// ErrNoOutputs is returned when a non dry-run has nowhere to write
	ErrNoOutputs = errors.New("no output modules configured")
)

// Source hands out the prepared table: COSTS derived and incomplete rows dropped.
// A load failure yields an empty table and a data unavailable error.
type Source interface {
	Table(ctx context.Context) (*dataset.Table, error)
	Stats() (loaded, dropped int)
}

// Executor runs one dashboard: Source → Filters → Summary → Outputs.
//
// The Executor only sees modules through their interfaces.
type Executor struct {
	source  Source
	filters []filter.Module
	outputs []output.Module
	dryRun  bool
	now     func() time.Time
}

// NewExecutor creates an executor with no modules.
func NewExecutor(dryRun bool) *Executor {
	return &Executor{dryRun: dryRun, now: time.Now}
}

// NewExecutorWithModules creates an executor with every module configured.
//
// Parameters:
//   - source: the prepared table handle
//   - filters: the filter chain, applied in order (can be nil)
//   - outputs: the report sinks (skipped in dry-run mode)
//   - dryRun: if true, outputs are not written
func NewExecutorWithModules(source Source, filters []filter.Module, outputs []output.Module, dryRun bool) *Executor {
	return &Executor{
		source:  source,
		filters: filters,
		outputs: outputs,
		dryRun:  dryRun,
		now:     time.Now,
	}
}

// stageTimings holds timing measurements for each stage
type stageTimings struct {
	input  time.Duration
	filter time.Duration
	output time.Duration
}

// Execute runs the dashboard with the given context.
//
// A source that cannot be read does not fail the run: the filters, summary and
// outputs run on the empty table, the report carries the data error and the
// status is StatusPartial. Any other stage error stops the run with StatusError.
//
// Output modules are closed when Execute returns.
func (e *Executor) Execute(ctx context.Context, d *dataset.Dashboard) (*dataset.RunResult, error) {
	startedAt := e.now()
	result := &dataset.RunResult{
		RunID:     uuid.NewString(),
		StartedAt: startedAt,
		Status:    StatusError,
	}
	if err := e.validate(d, result); err != nil {
		return result, err
	}
	result.DashboardID = d.ID

	runCtx := logger.RunContext{RunID: result.RunID, DashboardID: d.ID, DryRun: e.dryRun}
	logger.LogRunStart(runCtx)
	defer e.closeOutputs(runCtx)

	var timings stageTimings

	table, dur, dataErr := e.executeInput(ctx, runCtx, result)
	timings.input = dur
	if err := ctx.Err(); err != nil {
		return e.fail(runCtx, result, ErrCodeInputFailed, "input", err, startedAt)
	}

	table, dur, err := e.executeFilters(ctx, runCtx, table, result)
	timings.filter = dur
	if err != nil {
		return result, e.finishError(runCtx, result, startedAt, err)
	}
	result.RecordsSelected = table.Len()

	report := &dataset.Report{
		DashboardID: d.ID,
		RunID:       result.RunID,
		GeneratedAt: e.now(),
		Companies:   table,
	}
	if dataErr != nil {
		report.DataError = errhandling.UserMessage(dataErr)
		result.DataError = report.DataError
	}

	if d.Summary != nil {
		s, err := summary.Summarize(table, d.Summary.Metric, d.Summary.Top)
		if err != nil {
			return e.fail(runCtx, result, ErrCodeSummaryFailed, "summary", err, startedAt)
		}
		report.Summary = s
		result.Summary = s
	}

	dur, err = e.executeOutputs(ctx, runCtx, report, result)
	timings.output = dur
	if err != nil {
		return result, e.finishError(runCtx, result, startedAt, err)
	}

	status := StatusSuccess
	if dataErr != nil {
		status = StatusPartial
	}
	e.finalize(runCtx, result, status, startedAt, timings)
	return result, nil
}

// validate checks the dashboard and modules before running.
func (e *Executor) validate(d *dataset.Dashboard, result *dataset.RunResult) error {
	var err error
	module := ""
	switch {
	case d == nil:
		err = ErrNilDashboard
	case e.source == nil:
		err, module = ErrNilSource, "input"
	case len(e.outputs) == 0 && !e.dryRun:
		err, module = ErrNoOutputs, "output"
	}
	if err == nil {
		return nil
	}
	logger.Error("dashboard run failed", slog.String("error", err.Error()))
	result.CompletedAt = e.now()
	result.Error = buildRunError(ErrCodeInvalidInput, module, err)
	return err
}

// buildRunError creates a RunError with a classified category.
func buildRunError(code, module string, err error) *dataset.RunError {
	return &dataset.RunError{
		Code:     code,
		Message:  err.Error(),
		Module:   module,
		Category: string(errhandling.GetErrorCategory(err)),
	}
}

// executeInput obtains the prepared table. The data error, if any, is returned
// separately; the table is then empty.
func (e *Executor) executeInput(ctx context.Context, runCtx logger.RunContext, result *dataset.RunResult) (*dataset.Table, time.Duration, error) {
	stageCtx := runCtx
	stageCtx.Stage = "input"
	logger.LogStageStart(stageCtx)

	start := time.Now()
	table, err := e.source.Table(ctx)
	dur := time.Since(start)
	if table == nil {
		table = dataset.EmptyTable()
	}
	result.RecordsLoaded, result.RecordsDropped = e.source.Stats()

	var stageErr *logger.StageError
	if err != nil {
		stageErr = &logger.StageError{Code: ErrCodeInputFailed, Message: err.Error()}
	}
	logger.LogStageEnd(stageCtx, table.Len(), dur, stageErr)
	return table, dur, err
}

// executeFilters runs the filter chain in order.
func (e *Executor) executeFilters(ctx context.Context, runCtx logger.RunContext, table *dataset.Table, result *dataset.RunResult) (*dataset.Table, time.Duration, error) {
	stageCtx := runCtx
	stageCtx.Stage = "filter"
	logger.LogStageStart(stageCtx)

	start := time.Now()
	for i, m := range e.filters {
		if m == nil {
			logger.Warn("nil filter module encountered; skipping",
				slog.String("run_id", runCtx.RunID),
				slog.Int("filter_index", i),
			)
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, time.Since(start), e.filterError(stageCtx, result, i, err, start)
		}

		filterStart := time.Now()
		next, err := m.Process(ctx, table)
		if err != nil {
			return nil, time.Since(start), e.filterError(stageCtx, result, i, err, start)
		}
		logger.Debug("filter module completed",
			slog.String("run_id", runCtx.RunID),
			slog.Int("filter_index", i),
			slog.Int("input_records", table.Len()),
			slog.Int("output_records", next.Len()),
			slog.Duration("duration", time.Since(filterStart)),
		)
		table = next
	}

	dur := time.Since(start)
	logger.LogStageEnd(stageCtx, table.Len(), dur, nil)
	return table, dur, nil
}

func (e *Executor) filterError(stageCtx logger.RunContext, result *dataset.RunResult, idx int, err error, start time.Time) error {
	msg := fmt.Sprintf("filter module %d failed: %v", idx, err)
	result.Error = buildRunError(ErrCodeFilterFailed, "filter", err)
	result.Error.Message = msg
	result.Error.Details = map[string]interface{}{"filterIndex": idx}
	logger.LogStageEnd(stageCtx, 0, time.Since(start), &logger.StageError{Code: ErrCodeFilterFailed, Message: msg})
	return fmt.Errorf("executing filter module %d: %w", idx, err)
}

// executeOutputs writes the report to every output. All outputs are attempted;
// the first failure is reported.
func (e *Executor) executeOutputs(ctx context.Context, runCtx logger.RunContext, report *dataset.Report, result *dataset.RunResult) (time.Duration, error) {
	stageCtx := runCtx
	stageCtx.Stage = "output"

	if e.dryRun {
		logger.Debug("dry-run mode: skipping output modules",
			slog.String("run_id", runCtx.RunID),
			slog.Int("output_count", len(e.outputs)),
			slog.Int("records_would_write", report.Companies.Len()),
		)
		return 0, nil
	}
	logger.LogStageStart(stageCtx)

	start := time.Now()
	var errs []error
	failedIdx := -1
	for i, m := range e.outputs {
		if m == nil {
			continue
		}
		n, err := m.Write(ctx, report)
		result.RecordsWritten += n
		if err != nil {
			logger.Error("output module execution failed",
				slog.String("run_id", runCtx.RunID),
				slog.Int("output_index", i),
				slog.String("error", err.Error()),
			)
			if failedIdx < 0 {
				failedIdx = i
			}
			errs = append(errs, fmt.Errorf("output module %d: %w", i, err))
		}
	}
	dur := time.Since(start)

	if len(errs) > 0 {
		err := errors.Join(errs...)
		result.Error = buildRunError(ErrCodeOutputFailed, "output", err)
		result.Error.Details = map[string]interface{}{"outputIndex": failedIdx, "failedOutputs": len(errs)}
		logger.LogStageEnd(stageCtx, result.RecordsWritten, dur, &logger.StageError{Code: ErrCodeOutputFailed, Message: err.Error()})
		return dur, fmt.Errorf("executing output modules: %w", err)
	}
	logger.LogStageEnd(stageCtx, result.RecordsWritten, dur, nil)
	return dur, nil
}

// fail records a stage error and ends the run.
func (e *Executor) fail(runCtx logger.RunContext, result *dataset.RunResult, code, module string, err error, startedAt time.Time) (*dataset.RunResult, error) {
	result.Error = buildRunError(code, module, err)
	return result, e.finishError(runCtx, result, startedAt, fmt.Errorf("%s: %w", module, err))
}

func (e *Executor) finishError(runCtx logger.RunContext, result *dataset.RunResult, startedAt time.Time, err error) error {
	result.Status = StatusError
	result.CompletedAt = e.now()
	logger.LogRunEnd(runCtx, StatusError, result.RecordsSelected, result.CompletedAt.Sub(startedAt))
	return err
}

// finalize marks the run complete and logs metrics.
func (e *Executor) finalize(runCtx logger.RunContext, result *dataset.RunResult, status string, startedAt time.Time, timings stageTimings) {
	result.Status = status
	result.CompletedAt = e.now()
	result.Error = nil

	total := result.CompletedAt.Sub(startedAt)
	logger.LogRunEnd(runCtx, status, result.RecordsSelected, total)
	logger.LogMetrics(runCtx, logger.RunMetrics{
		TotalDuration:   total,
		InputDuration:   timings.input,
		FilterDuration:  timings.filter,
		OutputDuration:  timings.output,
		RecordsLoaded:   result.RecordsLoaded,
		RecordsDropped:  result.RecordsDropped,
		RecordsSelected: result.RecordsSelected,
		RecordsWritten:  result.RecordsWritten,
	})
}

// closeOutputs closes every output and logs failures.
func (e *Executor) closeOutputs(runCtx logger.RunContext) {
	for i, m := range e.outputs {
		if m == nil {
			continue
		}
		if err := m.Close(); err != nil {
			logger.Warn("failed to close module",
				slog.String("run_id", runCtx.RunID),
				slog.String("module", "output"),
				slog.Int("output_index", i),
				slog.String("error", err.Error()),
			)
		}
	}
}
