// Package filter provides implementations for filter modules.
// Filter modules narrow or rewrite a table. Every module is pure: it reads the
// input table and returns a new one, never modifying rows in place.
package filter

import (
	"context"

	"github.com/hqdash/runtime/pkg/dataset"
)

// Module represents a filter module that transforms a table.
type Module interface {
	// Process returns a new table derived from table.
	// The input table is never modified.
	Process(ctx context.Context, table *dataset.Table) (*dataset.Table, error)
}

// Func adapts an ordinary function to Module.
type Func func(ctx context.Context, table *dataset.Table) (*dataset.Table, error)

// Process calls f.
func (f Func) Process(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
	return f(ctx, table)
}

// Apply runs modules in order, stopping at the first error or cancellation.
func Apply(ctx context.Context, table *dataset.Table, modules ...Module) (*dataset.Table, error) {
	for _, m := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := m.Process(ctx, table)
		if err != nil {
			return nil, err
		}
		table = next
	}
	return table, nil
}

// Prepare derives COSTS and drops incomplete rows. It is the preprocessing run once
// on a freshly loaded table, before any user selection. dropped counts removed rows.
func Prepare(ctx context.Context, table *dataset.Table) (prepared *dataset.Table, dropped int, err error) {
	prepared, err = Apply(ctx, table, NewDeriveCosts(), NewComplete())
	if err != nil {
		return nil, 0, err
	}
	return prepared, table.Len() - prepared.Len(), nil
}

// checkEvery reports ctx's error every 256 rows so long scans can be canceled.
func checkEvery(ctx context.Context, i int) error {
	if i&0xff != 0 {
		return nil
	}
	return ctx.Err()
}
