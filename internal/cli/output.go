package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/hqdash/runtime/internal/dashboard"
	"github.com/hqdash/runtime/internal/summary"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Printer writes command results for humans.
type Printer struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
	Quiet   bool
}

// NewPrinter returns a printer on stdout and stderr.
func NewPrinter(verbose, quiet bool) *Printer {
	return &Printer{Out: os.Stdout, Err: os.Stderr, Verbose: verbose, Quiet: quiet}
}

// Infof prints a progress line unless quiet.
func (p *Printer) Infof(format string, args ...interface{}) {
	if !p.Quiet {
		fmt.Fprintf(p.Out, format+"\n", args...)
	}
}

// PrintDashboardSummary prints what a configuration describes.
func (p *Printer) PrintDashboardSummary(d *dataset.Dashboard, format string) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.Out, "✓ Configuration is valid (format: %s)\n", format)
	if !p.Verbose || d == nil {
		return
	}
	fmt.Fprintf(p.Out, "  Dashboard: %s (%s)\n", d.Name, d.ID)
	if d.Source != nil {
		fmt.Fprintf(p.Out, "  Source: %s\n", d.Source.Path)
	}
	fmt.Fprintf(p.Out, "  Filters: %s\n", moduleTypes(d.Filters))
	fmt.Fprintf(p.Out, "  Outputs: %s\n", moduleTypes(d.Outputs))
	if d.Summary != nil {
		fmt.Fprintf(p.Out, "  Summary: top %d by %s\n", d.Summary.Top, d.Summary.Metric)
	}
	if d.Schedule != "" {
		fmt.Fprintf(p.Out, "  Schedule: %s\n", d.Schedule)
	}
}

func moduleTypes(modules []dataset.ModuleConfig) string {
	if len(modules) == 0 {
		return "none"
	}
	types := make([]string, len(modules))
	for i, m := range modules {
		types[i] = m.Type
	}
	return strings.Join(types, ", ")
}

// PrintRunResult displays the result of a dashboard run.
func (p *Printer) PrintRunResult(result *dataset.RunResult, err error, dryRun bool) {
	if result == nil {
		fmt.Fprintln(p.Err, "✗ No run result available")
		return
	}

	if err != nil {
		fmt.Fprintln(p.Err, "✗ Dashboard run failed")
		if result.Error != nil {
			if result.Error.Module != "" {
				fmt.Fprintf(p.Err, "  Module: %s\n", result.Error.Module)
			}
			fmt.Fprintf(p.Err, "  Error: %s\n", result.Error.Message)
		} else {
			fmt.Fprintf(p.Err, "  Error: %v\n", err)
		}
		return
	}

	if result.DataError != "" {
		fmt.Fprintf(p.Err, "⚠ %s\n", result.DataError)
	}
	if p.Quiet {
		return
	}

	fmt.Fprintln(p.Out, "✓ Dashboard run completed")
	fmt.Fprintf(p.Out, "  Status: %s\n", result.Status)
	fmt.Fprintf(p.Out, "  Records loaded: %d (dropped %d incomplete)\n", result.RecordsLoaded, result.RecordsDropped)
	fmt.Fprintf(p.Out, "  Records selected: %d\n", result.RecordsSelected)
	if dryRun {
		fmt.Fprintln(p.Out, "  Outputs skipped (dry-run mode)")
	} else {
		fmt.Fprintf(p.Out, "  Records written: %d\n", result.RecordsWritten)
	}
	if p.Verbose {
		fmt.Fprintf(p.Out, "  Run ID: %s\n", result.RunID)
		fmt.Fprintf(p.Out, "  Duration: %v\n", result.CompletedAt.Sub(result.StartedAt))
	}
	if result.Summary != nil {
		p.printSummary(result.Summary)
	}
}

func (p *Printer) printSummary(s *dataset.Summary) {
	fmt.Fprintf(p.Out, "  Mean %s: %s over %d companies\n", s.Metric, s.MeanFormatted, s.Count)
	if len(s.Top) == 0 {
		return
	}
	tw := tabwriter.NewWriter(p.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "    RANK\tNAME\t%s\n", s.Metric)
	for _, c := range s.Top {
		v, _ := c.Number(s.Metric)
		fmt.Fprintf(tw, "    %d\t%s\t%s\n", c.Rank, c.Name, summary.FormatCurrency(v))
	}
	_ = tw.Flush()
}

// PrintOptions lists the sidebar choices for a selection.
func (p *Printer) PrintOptions(opts dashboard.Options, dataErr error) {
	if dataErr != nil {
		fmt.Fprintf(p.Err, "⚠ %v\n", dataErr)
	}
	fmt.Fprintf(p.Out, "States (%d): %s\n", len(opts.States), strings.Join(opts.States, ", "))
	fmt.Fprintf(p.Out, "Counties (%d): %s\n", len(opts.Counties), strings.Join(opts.Counties, ", "))
	fmt.Fprintf(p.Out, "Profit: %d..%d\n", opts.Profit.Min, opts.Profit.Max)
	fmt.Fprintf(p.Out, "Rank: %d..%d\n", opts.Rank.Min, opts.Rank.Max)
	fmt.Fprintf(p.Out, "Top N: %d..%d\n", opts.Top.Min, opts.Top.Max)
	metrics := make([]string, len(opts.Metrics))
	for i, m := range opts.Metrics {
		metrics[i] = string(m)
	}
	fmt.Fprintf(p.Out, "Metrics: %s\n", strings.Join(metrics, ", "))
}
