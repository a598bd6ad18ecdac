package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/hqdash/runtime/internal/summary"
	"github.com/hqdash/runtime/pkg/dataset"
)

// ConsoleOutput prints the summary and the first rows of the report.
type ConsoleOutput struct {
	w     io.Writer
	limit int
}

// defaultConsoleLimit is how many company rows are printed.
const defaultConsoleLimit = 10

// NewConsoleFromConfig creates a console output module from configuration.
func NewConsoleFromConfig(cfg map[string]interface{}) (*ConsoleOutput, error) {
	o := &ConsoleOutput{w: os.Stdout, limit: defaultConsoleLimit}
	switch v := cfg["limit"].(type) {
	case int:
		o.limit = v
	case float64:
		o.limit = int(v)
	case nil:
	default:
		return nil, fmt.Errorf("field 'limit' must be a number, got %T", v)
	}
	if o.limit < 0 {
		return nil, fmt.Errorf("field 'limit' must not be negative")
	}
	return o, nil
}

// NewConsole creates a console output writing to w.
func NewConsole(w io.Writer, limit int) *ConsoleOutput {
	return &ConsoleOutput{w: w, limit: limit}
}

// Write implements Module.
func (o *ConsoleOutput) Write(_ context.Context, report *dataset.Report) (int, error) {
	if report == nil {
		return 0, ErrNilReport
	}
	rows := companies(report)

	fmt.Fprintf(o.w, "Dashboard %s (run %s)\n", report.DashboardID, report.RunID)
	if report.DataError != "" {
		fmt.Fprintf(o.w, "  ✗ %s\n", report.DataError)
	}
	fmt.Fprintf(o.w, "  Companies: %d\n", len(rows))

	if s := report.Summary; s != nil {
		fmt.Fprintf(o.w, "  Mean %s: %s over %d companies\n", s.Metric, s.MeanFormatted, s.Count)
		if len(s.Top) > 0 {
			fmt.Fprintf(o.w, "  Top %d by %s:\n", len(s.Top), s.Metric)
			tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
			for i, c := range s.Top {
				v, _ := c.Number(s.Metric)
				fmt.Fprintf(tw, "    %d.\t%s\t%s\n", i+1, c.Name, summary.FormatCurrency(v))
			}
			if err := tw.Flush(); err != nil {
				return 0, err
			}
		}
	}

	shown := len(rows)
	if shown > o.limit {
		shown = o.limit
	}
	if shown > 0 {
		tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  RANK\tNAME\tSTATE\tCOUNTY\tREVENUES\tPROFIT")
		for _, c := range rows[:shown] {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\t%s\n", c.Rank, c.Name, c.State, c.County,
				summary.FormatCurrency(c.Revenues), summary.FormatCurrency(c.Profit))
		}
		if err := tw.Flush(); err != nil {
			return 0, err
		}
		if shown < len(rows) {
			fmt.Fprintf(o.w, "  ... (%d more)\n", len(rows)-shown)
		}
	}
	return len(rows), nil
}

// Close implements Module.
func (o *ConsoleOutput) Close() error {
	return nil
}
