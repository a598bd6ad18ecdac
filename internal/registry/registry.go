// Package registry maps module type names to constructors.
//
// Sources are keyed by file format, filters and outputs by the "type" field of
// their configuration. The factory resolves every configured module here, so a
// type that is not registered fails at construction with the list of known
// names.
//
// A new module type needs two things: a constructor registered from init(), and
// its name added to the matching enum in internal/config/schema, which the
// config validator checks before the factory runs.
//
//	func init() {
//	    registry.RegisterOutput("parquet", func(cfg dataset.ModuleConfig) (output.Module, error) {
//	        return NewParquetFromConfig(cfg.Config)
//	    })
//	}
//
// The built-in set is registered in builtins.go.
package registry

import (
	"sort"
	"sync"

	"github.com/hqdash/runtime/internal/modules/filter"
	"github.com/hqdash/runtime/internal/modules/input"
	"github.com/hqdash/runtime/internal/modules/output"
	"github.com/hqdash/runtime/pkg/dataset"
)

// InputConstructor creates the source module for one file format.
type InputConstructor func(cfg *dataset.SourceConfig) (input.Module, error)

// FilterConstructor creates a filter from its configuration and chain position.
type FilterConstructor func(cfg dataset.ModuleConfig, index int) (filter.Module, error)

// OutputConstructor creates a report sink from its configuration.
type OutputConstructor func(cfg dataset.ModuleConfig) (output.Module, error)

// table is a concurrency-safe name → constructor map.
type table[C any] struct {
	mu    sync.RWMutex
	byKey map[string]C
}

func newTable[C any]() *table[C] {
	return &table[C]{byKey: make(map[string]C)}
}

func (t *table[C]) set(name string, c C) {
	t.mu.Lock()
	t.byKey[name] = c
	t.mu.Unlock()
}

func (t *table[C]) get(name string) C {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byKey[name]
}

func (t *table[C]) names() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.byKey))
	for name := range t.byKey {
		names = append(names, name)
	}
	t.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (t *table[C]) reset() {
	t.mu.Lock()
	t.byKey = make(map[string]C)
	t.mu.Unlock()
}

var (
	inputs  = newTable[InputConstructor]()
	filters = newTable[FilterConstructor]()
	outputs = newTable[OutputConstructor]()
)

// RegisterInput registers the source constructor for a file format, replacing
// any previous one.
func RegisterInput(format string, constructor InputConstructor) {
	inputs.set(format, constructor)
}

// RegisterFilter registers a filter constructor, replacing any previous one.
func RegisterFilter(moduleType string, constructor FilterConstructor) {
	filters.set(moduleType, constructor)
}

// RegisterOutput registers an output constructor, replacing any previous one.
func RegisterOutput(moduleType string, constructor OutputConstructor) {
	outputs.set(moduleType, constructor)
}

// GetInputConstructor returns the constructor for format, or nil.
func GetInputConstructor(format string) InputConstructor { return inputs.get(format) }

// GetFilterConstructor returns the constructor for moduleType, or nil.
func GetFilterConstructor(moduleType string) FilterConstructor { return filters.get(moduleType) }

// GetOutputConstructor returns the constructor for moduleType, or nil.
func GetOutputConstructor(moduleType string) OutputConstructor { return outputs.get(moduleType) }

// ListInputTypes returns the registered source formats, sorted.
func ListInputTypes() []string { return inputs.names() }

// ListFilterTypes returns the registered filter types, sorted.
func ListFilterTypes() []string { return filters.names() }

// ListOutputTypes returns the registered output types, sorted.
func ListOutputTypes() []string { return outputs.names() }

// ClearRegistries removes every registration. Tests only.
func ClearRegistries() {
	inputs.reset()
	filters.reset()
	outputs.reset()
}
