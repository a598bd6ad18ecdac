// Package cli provides CLI output formatting and display functions.
package cli

import (
	"fmt"

	"github.com/hqdash/runtime/internal/config"
)

// PrintParseErrors prints parse errors to the error stream.
func (p *Printer) PrintParseErrors(errs []config.ParseError) {
	fmt.Fprintln(p.Err, "✗ Parse errors:")
	for _, err := range errs {
		location := formatErrorLocation(err.Path, err.Line, err.Column)
		if location != "" {
			fmt.Fprintf(p.Err, "  %s: %s\n", location, err.Message)
		} else {
			fmt.Fprintf(p.Err, "  %s\n", err.Message)
		}
		if p.Verbose && err.Type != "" {
			fmt.Fprintf(p.Err, "    Type: %s\n", err.Type)
		}
	}
}

// formatErrorLocation formats path:line:column.
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}
	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// PrintValidationErrors prints validation errors to the error stream.
func (p *Printer) PrintValidationErrors(errs []config.ValidationError) {
	fmt.Fprintln(p.Err, "✗ Validation errors:")
	for _, err := range errs {
		path := err.Path
		if path == "" {
			path = "/"
		}
		if p.Verbose {
			fmt.Fprintf(p.Err, "  %s:\n", path)
			fmt.Fprintf(p.Err, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(p.Err, "    Type: %s\n", err.Type)
			}
			continue
		}
		msg := err.Message
		if len(msg) > 100 {
			msg = msg[:97] + "..."
		}
		fmt.Fprintf(p.Err, "  %s: %s\n", path, msg)
	}
	if !p.Quiet && !p.Verbose {
		fmt.Fprintln(p.Err)
		fmt.Fprintln(p.Err, "Hint: Use --verbose for detailed error information")
	}
}

// PrintConfigResult prints the outcome of loading a configuration.
// It returns false if the result carries errors.
func (p *Printer) PrintConfigResult(result *config.Result) bool {
	if len(result.ParseErrors) > 0 {
		p.PrintParseErrors(result.ParseErrors)
		return false
	}
	if len(result.ValidationErrors) > 0 {
		p.PrintValidationErrors(result.ValidationErrors)
		return false
	}
	return true
}
