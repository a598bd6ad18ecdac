// Package scheduler provides CRON-based scheduling for dashboard report runs.
// It allows dashboards to be executed on a recurring schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Scheduler errors
var (
	ErrNilDashboard      = errors.New("dashboard is nil")
	ErrEmptySchedule     = errors.New("dashboard has no schedule")
	ErrInvalidSchedule   = errors.New("invalid CRON expression")
	ErrAlreadyRunning    = errors.New("scheduler is already running")
	ErrDashboardNotFound = errors.New("dashboard not registered")
)

// parser accepts standard 5-field expressions and an optional leading seconds field.
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Executor runs one dashboard report.
type Executor interface {
	Execute(ctx context.Context, d *dataset.Dashboard) (*dataset.RunResult, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, d *dataset.Dashboard) (*dataset.RunResult, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, d *dataset.Dashboard) (*dataset.RunResult, error) {
	return f(ctx, d)
}

type entry struct {
	dashboard *dataset.Dashboard
	id        cron.EntryID

	// running is held while a run is in progress; ticks that find it taken are skipped
	running sync.Mutex
}

// Scheduler manages scheduled dashboard runs.
type Scheduler struct {
	executor Executor

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]*entry
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ValidateCronExpression checks a 5-field (or 6-field with seconds) expression.
func ValidateCronExpression(expr string) error {
	if expr == "" {
		return ErrEmptySchedule
	}
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, expr, err)
	}
	return nil
}

// New creates a scheduler that runs dashboards with executor.
func New(executor Executor) *Scheduler {
	return &Scheduler{
		executor: executor,
		cron:     cron.New(cron.WithParser(parser)),
		entries:  make(map[string]*entry),
	}
}

// Register adds a dashboard, replacing any registration with the same ID.
// Dashboards may be registered before or after Start.
func (s *Scheduler) Register(d *dataset.Dashboard) error {
	if d == nil {
		return ErrNilDashboard
	}
	if err := ValidateCronExpression(d.Schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[d.ID]; ok {
		s.cron.Remove(old.id)
		delete(s.entries, d.ID)
	}

	e := &entry{dashboard: d}
	id, err := s.cron.AddFunc(d.Schedule, func() { s.run(e) })
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, d.Schedule, err)
	}
	e.id = id
	s.entries[d.ID] = e

	logger.Info("dashboard scheduled",
		"dashboard_id", d.ID,
		"schedule", d.Schedule,
	)
	return nil
}

// Unregister removes a dashboard from the schedule.
func (s *Scheduler) Unregister(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDashboardNotFound, id)
	}
	s.cron.Remove(e.id)
	delete(s.entries, id)
	return nil
}

// Start begins executing scheduled dashboards. Runs receive a context derived
// from ctx; canceling ctx cancels in-flight runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.cron.Start()
	logger.Info("scheduler started", "dashboards", len(s.entries))
	return nil
}

// Stop halts scheduling and waits for in-flight runs until ctx is done.
// Registrations are cleared, whether or not the scheduler was started.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	for id, e := range s.entries {
		s.cron.Remove(e.id)
		delete(s.entries, id)
	}
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cronDone := s.cron.Stop()
	cancel := s.cancel
	s.started = false
	s.mu.Unlock()

	runsDone := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(runsDone)
	}()

	select {
	case <-runsDone:
		cancel()
		logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// IsStarted reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Has reports whether a dashboard is registered.
func (s *Scheduler) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// IsRunning reports whether a run of the dashboard is in progress.
func (s *Scheduler) IsRunning(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return false
	}
	if !e.running.TryLock() {
		return true
	}
	e.running.Unlock()
	return false
}

// Count returns the number of registered dashboards.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// IDs returns the registered dashboard IDs, sorted.
func (s *Scheduler) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NextRun returns the next scheduled time of a dashboard. It is the zero time
// until the scheduler has been started.
func (s *Scheduler) NextRun(id string) (time.Time, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrDashboardNotFound, id)
	}
	return s.cron.Entry(e.id).Next, nil
}

// run executes one tick. Overlapping ticks for the same dashboard are skipped.
func (s *Scheduler) run(e *entry) {
	d := e.dashboard
	if !e.running.TryLock() {
		logger.Warn("previous run still in progress; skipping",
			"dashboard_id", d.ID,
			"schedule", d.Schedule,
		)
		return
	}
	defer e.running.Unlock()

	s.mu.Lock()
	ctx := s.ctx
	if ctx == nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	start := time.Now()
	result, err := s.executor.Execute(ctx, d)
	attrs := []any{
		"dashboard_id", d.ID,
		"duration", time.Since(start),
	}
	if result != nil {
		attrs = append(attrs, "run_id", result.RunID, "status", result.Status, "records_selected", result.RecordsSelected)
	}
	if err != nil {
		logger.Error("scheduled run failed", append(attrs, "error", err.Error())...)
		return
	}
	logger.Info("scheduled run completed", attrs...)
}
