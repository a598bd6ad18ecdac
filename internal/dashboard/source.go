package dashboard

import (
	"context"
	"sync"

	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/modules/filter"
	"github.com/hqdash/runtime/internal/modules/input"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Source is the immutable data handle every view borrows from.
//
// It loads the input once, derives COSTS and drops incomplete rows once, and then
// hands the same prepared table to every caller. A load failure is remembered:
// Table keeps returning an empty table together with the data unavailable error.
type Source struct {
	cached *input.Cached

	once     sync.Once
	prepared *dataset.Table
	loaded   int
	dropped  int
	err      error
}

// NewSource wraps m in a memoized handle.
func NewSource(m input.Module) *Source {
	return &Source{cached: input.NewCached(m)}
}

// Table returns the prepared table. err is non-nil only when the source could not be
// read, in which case the table is empty but usable.
func (s *Source) Table(ctx context.Context) (*dataset.Table, error) {
	s.once.Do(func() {
		raw, err := s.cached.Load(ctx)
		s.loaded = raw.Len()
		prepared, dropped, prepErr := filter.Prepare(context.WithoutCancel(ctx), raw)
		if prepErr != nil {
			prepared = dataset.EmptyTable()
			if err == nil {
				err = prepErr
			}
		}
		s.prepared, s.dropped, s.err = prepared, dropped, err

		logger.Info("dataset prepared",
			"records_loaded", s.loaded,
			"records_dropped", s.dropped,
			"records_ready", prepared.Len(),
		)
	})
	return s.prepared, s.err
}

// Stats reports how many rows were read and how many preparation removed.
// Both are zero until Table has been called.
func (s *Source) Stats() (loaded, dropped int) {
	return s.loaded, s.dropped
}

// Close releases the underlying input module.
func (s *Source) Close() error {
	return s.cached.Close()
}
