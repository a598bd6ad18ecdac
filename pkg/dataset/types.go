// Package dataset provides public types for the headquarters dashboard runtime.
// This package is intended to be importable by external projects that need
// to read dashboard configurations or consume generated reports.
package dataset

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dashboard represents a complete dashboard configuration.
// It names the data source, the ordered filter chain, the summary to compute
// and the report outputs to write.
type Dashboard struct {
	// ID is the unique identifier for this dashboard
	ID string `json:"id"`

	// Name is the human-readable name of the dashboard
	Name string `json:"name"`

	// Description provides additional context about the dashboard
	Description string `json:"description,omitempty"`

	// Version is the configuration version
	Version string `json:"version,omitempty"`

	// Source defines the spreadsheet to load
	Source *SourceConfig `json:"source"`

	// Filters is an ordered list of filter modules applied after preparation
	Filters []ModuleConfig `json:"filters,omitempty"`

	// Summary configures the top-N / mean reducer
	Summary *SummaryConfig `json:"summary,omitempty"`

	// Outputs lists the report sinks
	Outputs []ModuleConfig `json:"outputs,omitempty"`

	// Schedule defines the CRON expression for periodic report runs
	Schedule string `json:"schedule,omitempty"`

	// Server configures the HTTP dashboard API
	Server *ServerConfig `json:"server,omitempty"`
}

// SourceConfig locates the input spreadsheet.
type SourceConfig struct {
	// Path is the file path (xlsx, csv or json)
	Path string `json:"path"`

	// Format overrides extension-based detection ("xlsx", "csv", "json")
	Format string `json:"format,omitempty"`

	// Sheet selects a worksheet for xlsx sources (first sheet when empty)
	Sheet string `json:"sheet,omitempty"`
}

// ModuleConfig represents the configuration for a filter or output module.
type ModuleConfig struct {
	// Type identifies the module type (e.g., "set", "range", "xlsx")
	Type string `json:"type"`

	// Config contains the module-specific configuration
	Config map[string]interface{} `json:"config"`
}

// SummaryConfig configures the reducer run at the end of the filter chain.
type SummaryConfig struct {
	// Metric is the column ranked and averaged (REVENUES, PROFIT or COSTS)
	Metric Column `json:"metric"`

	// Top is how many rows to keep (N of top-N)
	Top int `json:"top"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080"
	Addr string `json:"addr"`
}

// Summary is the output of the top-N / mean reducer.
type Summary struct {
	// Metric is the column the summary was computed over
	Metric Column `json:"metric"`

	// Count is the number of rows the mean was taken over
	Count int `json:"count"`

	// Mean is the arithmetic mean of Metric over the whole table
	Mean decimal.Decimal `json:"mean"`

	// MeanFormatted is Mean rendered as currency, e.g. "$1,234.56"
	MeanFormatted string `json:"meanFormatted"`

	// Top holds the rows with the largest Metric values, descending
	Top []Company `json:"top"`
}

// Report is what output modules receive at the end of a run.
type Report struct {
	// DashboardID is the ID of the dashboard that produced the report
	DashboardID string `json:"dashboardId"`

	// RunID identifies the run
	RunID string `json:"runId"`

	// GeneratedAt is when the report was assembled
	GeneratedAt time.Time `json:"generatedAt"`

	// Companies is the filtered table
	Companies *Table `json:"-"`

	// Summary is nil when no summary is configured
	Summary *Summary `json:"summary,omitempty"`

	// DataError carries the load failure message, if the source was unavailable
	DataError string `json:"dataError,omitempty"`
}

// RunResult represents the result of a dashboard run.
type RunResult struct {
	// RunID uniquely identifies the run
	RunID string `json:"runId"`

	// DashboardID is the ID of the dashboard that was run
	DashboardID string `json:"dashboardId"`

	// Status is the run status ("success", "error", "partial")
	Status string `json:"status"`

	// StartedAt is when the run started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when the run completed
	CompletedAt time.Time `json:"completedAt"`

	// RecordsLoaded is the number of rows read from the source
	RecordsLoaded int `json:"recordsLoaded"`

	// RecordsDropped is the number of incomplete rows removed during preparation
	RecordsDropped int `json:"recordsDropped"`

	// RecordsSelected is the number of rows left after the filter chain
	RecordsSelected int `json:"recordsSelected"`

	// RecordsWritten is the number of rows written by all outputs
	RecordsWritten int `json:"recordsWritten"`

	// Summary is the reducer output, if configured
	Summary *Summary `json:"summary,omitempty"`

	// DataError is set when the source could not be loaded
	DataError string `json:"dataError,omitempty"`

	// Error contains error details if the run failed
	Error *RunError `json:"error,omitempty"`
}

// RunError contains details about a run failure.
type RunError struct {
	// Code is the error code
	Code string `json:"code"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Module is the module where the error occurred
	Module string `json:"module,omitempty"`

	// Category is the error classification
	Category string `json:"category,omitempty"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`
}
