// Package main provides the CLI entry point for the hqdash runtime.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hqdash/runtime/internal/cli"
	"github.com/hqdash/runtime/internal/config"
	"github.com/hqdash/runtime/internal/dashboard"
	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/internal/factory"
	"github.com/hqdash/runtime/internal/geo"
	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/runtime"
	"github.com/hqdash/runtime/internal/scheduler"
	"github.com/hqdash/runtime/internal/server"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
)

// Build information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// exitError carries the process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit code %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// app holds the flag values of one CLI invocation.
type app struct {
	verbose   bool
	quiet     bool
	logFormat string
	logFile   string

	dryRun    bool
	scheduled bool
	addr      string
	states    []string
	counties  []string
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	logger.CloseLogFile()
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitRuntimeError
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hqdash",
		Short: "hqdash - Fortune 500 headquarters dashboard runtime",
		Long: `hqdash loads a spreadsheet of Fortune 500 company headquarters, derives
costs, drops incomplete rows and serves filtered views of it.

Dashboards are described by a configuration file (JSON/YAML format) that
names the source spreadsheet, the filter chain, the summary and the outputs.

Examples:
  # Validate a configuration file
  hqdash validate dashboard.yaml

  # Write the configured reports once
  hqdash run dashboard.yaml

  # Serve the dashboard API
  hqdash serve dashboard.yaml --addr :8080`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setupLogging,
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "json", "Console log format (json or human)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "Also write JSON logs to this file")

	root.AddCommand(a.validateCmd(), a.runCmd(), a.serveCmd(), a.optionsCmd(), a.versionCmd())
	return root
}

func (a *app) setupLogging(_ *cobra.Command, _ []string) error {
	format, err := logger.ParseFormat(a.logFormat)
	if err != nil {
		return &exitError{code: ExitValidationError, err: err}
	}
	level := slog.LevelInfo
	switch {
	case a.verbose:
		level = slog.LevelDebug
	case a.quiet:
		level = slog.LevelError
	}
	logger.SetLevelAndFormat(level, format)
	if a.logFile != "" {
		if err := logger.SetLogFile(a.logFile, level, format); err != nil {
			return &exitError{code: ExitRuntimeError, err: err}
		}
	}
	return nil
}

func (a *app) printer(cmd *cobra.Command) *cli.Printer {
	return &cli.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Verbose: a.verbose, Quiet: a.quiet}
}

// load parses and validates a configuration, mapping failures to exit codes.
func (a *app) load(cmd *cobra.Command, path string) (*dataset.Dashboard, *config.Result, error) {
	d, result := config.Load(path)
	p := a.printer(cmd)
	if len(result.ParseErrors) > 0 {
		p.PrintParseErrors(result.ParseErrors)
		return nil, result, &exitError{code: ExitParseError}
	}
	if len(result.ValidationErrors) > 0 {
		p.PrintValidationErrors(result.ValidationErrors)
		return nil, result, &exitError{code: ExitValidationError}
	}
	return d, result, nil
}

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a dashboard configuration file",
		Long: `Validate a dashboard configuration file against the schema.

Supports both JSON and YAML formats. The format is auto-detected
based on file extension (.json, .yaml, .yml) or content.
Filter and output settings and the schedule are checked as well.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors (schema violations)
  2 - Parse errors (invalid JSON/YAML syntax)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.printer(cmd)
			p.Infof("Validating configuration: %s", args[0])
			d, result, err := a.load(cmd, args[0])
			if err != nil {
				return err
			}
			p.PrintDashboardSummary(d, result.Format)
			return nil
		},
	}
}

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config-file>",
		Short: "Run a dashboard report from configuration file",
		Long: `Run the dashboard defined in the configuration file: load the source,
apply the filters, compute the summary and write every output.

If the source cannot be read the run still completes on an empty table
with status "partial".

Flags:
  --dry-run     Run without writing outputs
  --scheduled   Keep running and repeat the run on the configured schedule

Exit codes:
  0 - Run completed
  1 - Validation errors
  2 - Parse errors
  3 - Runtime errors`,
		Args: cobra.ExactArgs(1),
		RunE: a.runDashboard,
	}
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Run without writing outputs")
	cmd.Flags().BoolVar(&a.scheduled, "scheduled", false, "Repeat the run on the configured schedule until interrupted")
	return cmd
}

func (a *app) runDashboard(cmd *cobra.Command, args []string) error {
	p := a.printer(cmd)
	p.Infof("Loading dashboard configuration: %s", args[0])
	d, _, err := a.load(cmd, args[0])
	if err != nil {
		return err
	}

	runner := &runtime.Runner{DryRun: a.dryRun}
	if a.scheduled {
		return a.runScheduled(cmd, d, runner)
	}

	if a.dryRun {
		p.Infof("Running dashboard %s (dry-run mode - outputs will not be written)...", d.ID)
	} else {
		p.Infof("Running dashboard %s...", d.ID)
	}
	result, err := runner.Execute(cmd.Context(), d)
	p.PrintRunResult(result, err, a.dryRun)
	if err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	return nil
}

func (a *app) runScheduled(cmd *cobra.Command, d *dataset.Dashboard, runner scheduler.Executor) error {
	if d.Schedule == "" {
		a.printer(cmd).PrintValidationErrors([]config.ValidationError{{
			Path:    "/dashboard/schedule",
			Type:    "required",
			Message: "--scheduled needs a schedule in the configuration",
		}})
		return &exitError{code: ExitValidationError}
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := scheduler.New(runner)
	if err := s.Register(d); err != nil {
		return &exitError{code: ExitValidationError, err: err}
	}
	if err := s.Start(ctx); err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	a.printer(cmd).Infof("Dashboard %s scheduled (%s); press Ctrl+C to stop", d.ID, d.Schedule)

	<-ctx.Done()
	if err := s.Stop(context.Background()); err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	return nil
}

// openDashboard builds the shared source and view model for d.
func openDashboard(d *dataset.Dashboard) (*dashboard.Dashboard, error) {
	in, err := factory.CreateInputModule(d.Source)
	if err != nil {
		return nil, err
	}
	return dashboard.New(dashboard.NewSource(in), geo.Options{}), nil
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <config-file>",
		Short: "Serve the dashboard API",
		Long: `Serve the dashboard views as a JSON HTTP API.

The source is loaded once and shared by every request. When the
configuration has a schedule, report runs are executed on it against the
same loaded source.`,
		Args: cobra.ExactArgs(1),
		RunE: a.serve,
	}
	cmd.Flags().StringVar(&a.addr, "addr", "", "Listen address (default from configuration, else :8080)")
	return cmd
}

func (a *app) serve(cmd *cobra.Command, args []string) error {
	d, _, err := a.load(cmd, args[0])
	if err != nil {
		return err
	}
	dash, err := openDashboard(d)
	if err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	defer dash.Source().Close()

	addr := a.addr
	if addr == "" && d.Server != nil {
		addr = d.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if d.Schedule != "" {
		s := scheduler.New(&runtime.Runner{Source: dash.Source()})
		if err := s.Register(d); err != nil {
			return &exitError{code: ExitValidationError, err: err}
		}
		if err := s.Start(ctx); err != nil {
			return &exitError{code: ExitRuntimeError, err: err}
		}
		defer func() { _ = s.Stop(context.Background()) }()
	}

	srv := server.New(dash, addr)
	a.printer(cmd).Infof("Serving dashboard %s on %s", d.ID, srv.Addr())
	if err := srv.ListenAndServe(ctx); err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	return nil
}

func (a *app) optionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options <config-file>",
		Short: "List the selectable states, counties and ranges",
		Long: `Load the source and list the sidebar choices: states, the counties
of the selected states, and the profit and rank slider bounds.`,
		Args: cobra.ExactArgs(1),
		RunE: a.options,
	}
	cmd.Flags().StringArrayVar(&a.states, "state", nil, "Restrict counties to these states (repeatable)")
	cmd.Flags().StringArrayVar(&a.counties, "county", nil, "Selected counties (repeatable)")
	return cmd
}

func (a *app) options(cmd *cobra.Command, args []string) error {
	d, _, err := a.load(cmd, args[0])
	if err != nil {
		return err
	}
	dash, err := openDashboard(d)
	if err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	defer dash.Source().Close()

	sel := dashboard.DefaultSelection()
	sel.States, sel.Counties = a.states, a.counties
	frame, err := dash.Frame(cmd.Context(), sel)
	if err != nil {
		return &exitError{code: ExitValidationError, err: err}
	}
	var dataErr error
	if frame.DataError != nil {
		dataErr = errors.New(errhandling.UserMessage(frame.DataError))
	}
	a.printer(cmd).PrintOptions(frame.Options(), dataErr)
	return nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Print version, commit hash, and build date information.",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
