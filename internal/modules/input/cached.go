package input

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hqdash/runtime/pkg/dataset"
)

// Cached memoizes a single Load of a module for the lifetime of the process.
//
// The first call reads the source; every later call, from any goroutine, returns the
// same table and the same error without touching the source again. A failed load is
// memoized too. The returned table is immutable and safe to share.
type Cached struct {
	module Module

	once  sync.Once
	table *dataset.Table
	err   error
	loads atomic.Int32
}

// NewCached wraps m in a memoizing handle.
func NewCached(m Module) *Cached {
	return &Cached{module: m}
}

// Load returns the memoized table, reading the source on first use.
// The read is detached from ctx cancellation so an abandoned request cannot poison
// the cache.
func (c *Cached) Load(ctx context.Context) (*dataset.Table, error) {
	c.once.Do(func() {
		c.loads.Add(1)
		c.table, c.err = Load(context.WithoutCancel(ctx), c.module)
	})
	return c.table, c.err
}

// Loads reports how many times the source has been read (0 or 1).
func (c *Cached) Loads() int {
	return int(c.loads.Load())
}

// Close releases the underlying module.
func (c *Cached) Close() error {
	if c.module == nil {
		return nil
	}
	return c.module.Close()
}
