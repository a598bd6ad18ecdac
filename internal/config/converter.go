package config

import (
	"errors"
	"fmt"

	"github.com/hqdash/runtime/internal/factory"
	"github.com/hqdash/runtime/internal/scheduler"
	"github.com/hqdash/runtime/internal/summary"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Errors returned for structurally invalid documents
var (
	ErrNilData          = errors.New("configuration data is nil")
	ErrMissingDashboard = errors.New("missing or invalid 'dashboard' section")
	ErrMissingSource    = errors.New("missing or invalid 'dashboard.source' section")
)

// ConvertToDashboard converts a decoded configuration document into a Dashboard.
// The document should have been validated against the schema first.
//
// The configuration is expected to have this structure:
//
//	dashboard:
//	  id: fortune500
//	  source: { path: fortune_500_hq.xlsx }
//	  filters: [{ type: set, column: STATE, values: [TX] }]
//	  summary: { metric: PROFIT, top: 5 }
//	  outputs: [{ type: console }]
func ConvertToDashboard(data map[string]interface{}) (*dataset.Dashboard, error) {
	if data == nil {
		return nil, ErrNilData
	}
	section, ok := data["dashboard"].(map[string]interface{})
	if !ok {
		return nil, ErrMissingDashboard
	}

	d := &dataset.Dashboard{}
	if d.ID, ok = section["id"].(string); !ok || d.ID == "" {
		return nil, fmt.Errorf("missing required field 'dashboard.id'")
	}
	d.Name, _ = section["name"].(string)
	if d.Name == "" {
		d.Name = d.ID
	}
	d.Description, _ = section["description"].(string)
	d.Version, _ = section["version"].(string)
	d.Schedule, _ = section["schedule"].(string)

	source, ok := section["source"].(map[string]interface{})
	if !ok {
		return nil, ErrMissingSource
	}
	d.Source = &dataset.SourceConfig{}
	if d.Source.Path, ok = source["path"].(string); !ok || d.Source.Path == "" {
		return nil, fmt.Errorf("missing required field 'dashboard.source.path'")
	}
	d.Source.Format, _ = source["format"].(string)
	d.Source.Sheet, _ = source["sheet"].(string)

	var err error
	if d.Filters, err = convertModuleList(section["filters"], "filters"); err != nil {
		return nil, err
	}
	if d.Outputs, err = convertModuleList(section["outputs"], "outputs"); err != nil {
		return nil, err
	}
	if d.Summary, err = convertSummary(section["summary"]); err != nil {
		return nil, err
	}

	if server, ok := section["server"].(map[string]interface{}); ok {
		d.Server = &dataset.ServerConfig{}
		d.Server.Addr, _ = server["addr"].(string)
	}
	return d, nil
}

// convertModuleList converts a list of {type, ...} maps. Every key other than
// "type" becomes module configuration.
func convertModuleList(raw interface{}, field string) ([]dataset.ModuleConfig, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field 'dashboard.%s' must be a list", field)
	}
	modules := make([]dataset.ModuleConfig, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid entry at dashboard.%s[%d]", field, i)
		}
		moduleType, ok := m["type"].(string)
		if !ok {
			return nil, fmt.Errorf("missing required field 'type' at dashboard.%s[%d]", field, i)
		}
		cfg := make(map[string]interface{}, len(m))
		for k, v := range m {
			if k != "type" {
				cfg[k] = v
			}
		}
		modules = append(modules, dataset.ModuleConfig{Type: moduleType, Config: cfg})
	}
	return modules, nil
}

// convertSummary applies the defaults: REVENUES, top 5.
func convertSummary(raw interface{}) (*dataset.SummaryConfig, error) {
	s := &dataset.SummaryConfig{Metric: dataset.ColRevenues, Top: summary.DefaultTop}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return s, nil
	}
	if name, ok := m["metric"].(string); ok && name != "" {
		metric, err := summary.ParseMetric(name)
		if err != nil {
			return nil, fmt.Errorf("dashboard.summary.metric: %w", err)
		}
		s.Metric = metric
	}
	switch top := m["top"].(type) {
	case nil:
	case int:
		s.Top = top
	case float64:
		s.Top = int(top)
	default:
		return nil, fmt.Errorf("dashboard.summary.top: expected integer, got %T", top)
	}
	if s.Top < 1 || s.Top > summary.MaxTop {
		return nil, fmt.Errorf("dashboard.summary.top: %d out of range 1..%d", s.Top, summary.MaxTop)
	}
	return s, nil
}

// CheckDashboard performs the semantic checks a schema cannot express:
// every filter and output must construct, and the schedule must parse.
func CheckDashboard(d *dataset.Dashboard) []ValidationError {
	var errs []ValidationError

	for i, f := range d.Filters {
		if _, err := factory.CreateFilterModules([]dataset.ModuleConfig{f}); err != nil {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("/dashboard/filters/%d", i),
				Type:    "module",
				Message: err.Error(),
			})
		}
	}
	for i, o := range d.Outputs {
		modules, err := factory.CreateOutputModules([]dataset.ModuleConfig{o})
		if err != nil {
			errs = append(errs, ValidationError{
				Path:    fmt.Sprintf("/dashboard/outputs/%d", i),
				Type:    "module",
				Message: err.Error(),
			})
			continue
		}
		for _, m := range modules {
			_ = m.Close()
		}
	}
	if d.Schedule != "" {
		if err := scheduler.ValidateCronExpression(d.Schedule); err != nil {
			errs = append(errs, ValidationError{
				Path:    "/dashboard/schedule",
				Type:    "schedule",
				Message: err.Error(),
			})
		}
	}
	return errs
}
