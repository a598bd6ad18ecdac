// Package factory provides module creation functions for the dashboard runtime.
// It centralizes the logic for instantiating input, filter, and output modules
// from their configuration using the module registry.
//
// # Adding New Module Types
//
// To add a new module type, see the documentation in internal/registry.
// You do NOT need to modify this factory; just register your constructor.
package factory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hqdash/runtime/internal/modules/filter"
	"github.com/hqdash/runtime/internal/modules/input"
	"github.com/hqdash/runtime/internal/modules/output"
	"github.com/hqdash/runtime/internal/pathutil"
	"github.com/hqdash/runtime/internal/registry"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Errors returned for configurations naming unregistered modules
var (
	ErrNilSource           = errors.New("source configuration is nil")
	ErrUnknownSourceFormat = errors.New("unknown source format")
	ErrUnknownFilterType   = errors.New("unknown filter type")
	ErrUnknownOutputType   = errors.New("unknown output type")
)

// CreateInputModule creates the input module for a source.
// The format is taken from the configuration or, when empty, from the file extension.
func CreateInputModule(cfg *dataset.SourceConfig) (input.Module, error) {
	if cfg == nil {
		return nil, ErrNilSource
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = pathutil.FormatFromExtension(cfg.Path)
	}

	constructor := registry.GetInputConstructor(format)
	if constructor == nil {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownSourceFormat, format, strings.Join(registry.ListInputTypes(), ", "))
	}
	return constructor(cfg)
}

// CreateFilterModules creates filter module instances from configuration, in order.
func CreateFilterModules(cfgs []dataset.ModuleConfig) ([]filter.Module, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	modules := make([]filter.Module, 0, len(cfgs))
	for i, cfg := range cfgs {
		constructor := registry.GetFilterConstructor(cfg.Type)
		if constructor == nil {
			return nil, fmt.Errorf("%w %q at index %d", ErrUnknownFilterType, cfg.Type, i)
		}
		module, err := constructor(cfg, i)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, nil
}

// CreateOutputModules creates output module instances from configuration.
// Modules created before a failure are closed.
func CreateOutputModules(cfgs []dataset.ModuleConfig) ([]output.Module, error) {
	modules := make([]output.Module, 0, len(cfgs))
	for i, cfg := range cfgs {
		module, err := createOutputModule(cfg, i)
		if err != nil {
			for _, m := range modules {
				_ = m.Close()
			}
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, nil
}

func createOutputModule(cfg dataset.ModuleConfig, index int) (output.Module, error) {
	constructor := registry.GetOutputConstructor(cfg.Type)
	if constructor == nil {
		return nil, fmt.Errorf("%w %q at index %d", ErrUnknownOutputType, cfg.Type, index)
	}
	module, err := constructor(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid %s output config at index %d: %w", cfg.Type, index, err)
	}
	return module, nil
}

// KnownTypes lists every registered module type by kind, for help output.
func KnownTypes() map[string][]string {
	types := map[string][]string{
		"input":  registry.ListInputTypes(),
		"filter": registry.ListFilterTypes(),
		"output": registry.ListOutputTypes(),
	}
	for _, list := range types {
		sort.Strings(list)
	}
	return types
}
