package registry

import (
	"fmt"

	"github.com/hqdash/runtime/internal/modules/filter"
	"github.com/hqdash/runtime/internal/modules/input"
	"github.com/hqdash/runtime/internal/modules/output"
	"github.com/hqdash/runtime/pkg/dataset"
)

func init() {
	registerBuiltinInputModules()
	registerBuiltinFilterModules()
	registerBuiltinOutputModules()
}

// registerBuiltinInputModules registers the file source for every format it reads.
func registerBuiltinInputModules() {
	newFile := func(cfg *dataset.SourceConfig) (input.Module, error) {
		return input.NewFileFromConfig(cfg)
	}
	for _, format := range []string{input.FormatXLSX, input.FormatCSV, input.FormatJSON} {
		RegisterInput(format, newFile)
	}
}

// registerBuiltinFilterModules registers all built-in filter module types.
func registerBuiltinFilterModules() {
	RegisterFilter("derive", func(_ dataset.ModuleConfig, _ int) (filter.Module, error) {
		return filter.NewDeriveCosts(), nil
	})

	RegisterFilter("complete", func(cfg dataset.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseCompleteConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid complete config at index %d: %w", index, err)
		}
		return filter.NewCompleteFromConfig(config)
	})

	RegisterFilter("set", func(cfg dataset.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseSetConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid set config at index %d: %w", index, err)
		}
		m, err := filter.NewSetFromConfig(config)
		if err != nil {
			return nil, fmt.Errorf("invalid set config at index %d: %w", index, err)
		}
		return m, nil
	})

	RegisterFilter("range", func(cfg dataset.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseRangeConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid range config at index %d: %w", index, err)
		}
		m, err := filter.NewRangeFromConfig(config)
		if err != nil {
			return nil, fmt.Errorf("invalid range config at index %d: %w", index, err)
		}
		return m, nil
	})

	RegisterFilter("condition", func(cfg dataset.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseConditionConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid condition config at index %d: %w", index, err)
		}
		m, err := filter.NewConditionFromConfig(config)
		if err != nil {
			return nil, fmt.Errorf("invalid condition config at index %d: %w", index, err)
		}
		return m, nil
	})

	RegisterFilter("script", func(cfg dataset.ModuleConfig, index int) (filter.Module, error) {
		config, err := filter.ParseScriptConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid script config at index %d: %w", index, err)
		}
		m, err := filter.NewScriptFromConfig(config)
		if err != nil {
			return nil, fmt.Errorf("invalid script config at index %d: %w", index, err)
		}
		return m, nil
	})
}

// registerBuiltinOutputModules registers all built-in output module types.
func registerBuiltinOutputModules() {
	RegisterOutput("json", func(cfg dataset.ModuleConfig) (output.Module, error) {
		return output.NewJSONFromConfig(cfg.Config)
	})
	RegisterOutput("csv", func(cfg dataset.ModuleConfig) (output.Module, error) {
		return output.NewCSVFromConfig(cfg.Config)
	})
	RegisterOutput("xlsx", func(cfg dataset.ModuleConfig) (output.Module, error) {
		return output.NewXLSXFromConfig(cfg.Config)
	})
	RegisterOutput("sqlite", func(cfg dataset.ModuleConfig) (output.Module, error) {
		return output.NewSQLiteFromConfig(cfg.Config)
	})
	RegisterOutput("console", func(cfg dataset.ModuleConfig) (output.Module, error) {
		return output.NewConsoleFromConfig(cfg.Config)
	})
}
