package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hqdash/runtime/internal/dashboard"
	"github.com/hqdash/runtime/internal/factory"
	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/modules/output"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Runner executes dashboards from their configuration. Every call builds fresh
// filter and output modules, so one Runner can serve a scheduler.
type Runner struct {
	// DryRun skips the outputs.
	DryRun bool

	// Source, when set, is shared by every run instead of opening the
	// configured file each time.
	Source Source
}

// Execute builds the modules named by d and runs it.
func (r *Runner) Execute(ctx context.Context, d *dataset.Dashboard) (*dataset.RunResult, error) {
	if d == nil {
		return NewExecutor(r.DryRun).Execute(ctx, nil)
	}

	source := r.Source
	if source == nil {
		in, err := factory.CreateInputModule(d.Source)
		if err != nil {
			return constructionFailure(d, "input", err)
		}
		owned := dashboard.NewSource(in)
		defer func() {
			if err := owned.Close(); err != nil {
				logger.Warn("failed to close input module", "dashboard_id", d.ID, "error", err.Error())
			}
		}()
		source = owned
	}

	filters, err := factory.CreateFilterModules(d.Filters)
	if err != nil {
		return constructionFailure(d, "filter", err)
	}

	var outputs []output.Module
	if !r.DryRun {
		outputs, err = factory.CreateOutputModules(d.Outputs)
		if err != nil {
			return constructionFailure(d, "output", err)
		}
	}
	return NewExecutorWithModules(source, filters, outputs, r.DryRun).Execute(ctx, d)
}

// constructionFailure reports a module that could not be built from configuration.
func constructionFailure(d *dataset.Dashboard, module string, err error) (*dataset.RunResult, error) {
	now := time.Now()
	logger.Error("failed to create module",
		"dashboard_id", d.ID,
		"module", module,
		"error", err.Error(),
	)
	return &dataset.RunResult{
		RunID:       uuid.NewString(),
		DashboardID: d.ID,
		Status:      StatusError,
		StartedAt:   now,
		CompletedAt: now,
		Error:       buildRunError(ErrCodeInvalidInput, module, err),
	}, fmt.Errorf("creating %s module: %w", module, err)
}
