// Package config provides functionality for parsing and validating
// dashboard configuration files (JSON/YAML).
//
// Loading goes through three steps: decoding (parse errors), schema validation
// against the embedded JSON schema, and conversion into a dataset.Dashboard
// followed by semantic checks (validation errors).
package config

import (
	"path/filepath"

	"github.com/hqdash/runtime/pkg/dataset"
)

// ParseConfig parses and schema-validates a configuration file.
func ParseConfig(path string) *Result {
	return validateParsed(ParseFile(path))
}

// ParseConfigString parses and schema-validates configuration content.
// If format is empty, it is detected from the content.
func ParseConfigString(content, format string) *Result {
	return validateParsed(ParseBytes([]byte(content), format))
}

func validateParsed(parsed *ParseResult) *Result {
	result := &Result{
		Data:        parsed.Data,
		ParseErrors: parsed.Errors,
		FilePath:    parsed.FilePath,
		Format:      parsed.Format,
	}
	if !parsed.IsValid() {
		return result
	}
	result.ValidationErrors = ValidateConfig(parsed.Data).Errors
	return result
}

// Load parses, validates and converts a dashboard configuration file.
// The dashboard is nil whenever the result carries errors. A relative source
// path is resolved against the directory holding the configuration file.
func Load(path string) (*dataset.Dashboard, *Result) {
	result := ParseConfig(path)
	if !result.IsValid() {
		return nil, result
	}
	d := convert(result)
	if d != nil && d.Source != nil && !filepath.IsAbs(d.Source.Path) {
		d.Source.Path = filepath.Join(filepath.Dir(path), d.Source.Path)
	}
	return d, result
}

// LoadString is Load for in-memory content. Source paths are left as written.
func LoadString(content, format string) (*dataset.Dashboard, *Result) {
	result := ParseConfigString(content, format)
	if !result.IsValid() {
		return nil, result
	}
	return convert(result), result
}

func convert(result *Result) *dataset.Dashboard {
	d, err := ConvertToDashboard(result.Data)
	if err != nil {
		result.ValidationErrors = append(result.ValidationErrors, ValidationError{
			Path:    "/dashboard",
			Type:    "conversion",
			Message: err.Error(),
		})
		return nil
	}
	if errs := CheckDashboard(d); len(errs) > 0 {
		result.ValidationErrors = append(result.ValidationErrors, errs...)
		return nil
	}
	return d
}
