package filter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/internal/logger"
	"github.com/hqdash/runtime/internal/pathutil"
	"github.com/hqdash/runtime/pkg/dataset"
)

// Error codes for script module
const (
	ErrCodeScriptEmpty          = "SCRIPT_EMPTY"
	ErrCodeScriptTooLong        = "SCRIPT_TOO_LONG"
	ErrCodeCompilationFailed    = "COMPILATION_FAILED"
	ErrCodeMissingFilterFunc    = "MISSING_FILTER"
	ErrCodeNotFunction          = "NOT_FUNCTION"
	ErrCodeExecutionFailed      = "EXECUTION_FAILED"
	ErrCodeInvalidScriptFile    = "INVALID_SCRIPT_FILE"
	ErrCodeScriptFileReadFailed = "SCRIPT_FILE_READ_FAILED"
)

// MaxScriptLength is the maximum allowed script length in bytes (100KB)
const MaxScriptLength = 100 * 1024

// Common errors for script module
var (
	// ErrScriptEmpty is returned when the script is empty or whitespace-only
	ErrScriptEmpty = fmt.Errorf("script cannot be empty")
	// ErrScriptTooLong is returned when the script exceeds MaxScriptLength
	ErrScriptTooLong = fmt.Errorf("script exceeds maximum length")
	// ErrMissingFilterFunc is returned when the script doesn't define filter(record)
	ErrMissingFilterFunc = fmt.Errorf("filter function not found in script")
	// ErrFilterNotFunction is returned when filter is defined but is not a function
	ErrFilterNotFunction = fmt.Errorf("filter is not a function")
)

// ScriptConfig represents the configuration for a script filter module.
// Either Script or ScriptFile must be provided (but not both).
type ScriptConfig struct {
	// Script is inline JavaScript defining filter(record)
	Script string `json:"script,omitempty"`
	// ScriptFile is the path to a JavaScript file defining filter(record)
	ScriptFile string `json:"scriptFile,omitempty"`
	// OnError specifies error handling mode: "fail" (default), "skip", "log"
	OnError string `json:"onError,omitempty"`
}

// ScriptModule keeps rows for which a JavaScript filter(record) function returns a
// truthy value. The record is a plain object keyed by column name.
//
// Goja runtimes are not goroutine-safe; Process serializes calls on one instance.
// A canceled context interrupts a running script.
type ScriptModule struct {
	onError     errhandling.OnErrorStrategy
	runtime     *goja.Runtime
	filterFn    goja.Callable
	runMu       sync.Mutex
	interruptMu sync.Mutex
}

// ScriptError carries structured context for script execution failures.
type ScriptError struct {
	Code        string
	Message     string
	RecordIndex int
	StackTrace  string
	Err         error
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func newScriptError(code, message string, recordIdx int, stackTrace string, err error) *ScriptError {
	return &ScriptError{
		Code:        code,
		Message:     message,
		RecordIndex: recordIdx,
		StackTrace:  stackTrace,
		Err:         err,
	}
}

// NewScriptFromConfig creates a new script filter module from configuration.
// The script is compiled once and must define filter(record).
func NewScriptFromConfig(config ScriptConfig) (*ScriptModule, error) {
	source, err := resolveScriptSource(config)
	if err != nil {
		return nil, err
	}
	if err := validateScript(source); err != nil {
		return nil, err
	}

	onError := errhandling.ParseOnErrorStrategy(config.OnError)

	rt := goja.New()
	if _, err := rt.RunString(source); err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("script compilation failed: %v", err), -1, "", err)
	}

	fnVal := rt.Get("filter")
	if fnVal == nil || goja.IsUndefined(fnVal) {
		return nil, newScriptError(ErrCodeMissingFilterFunc, ErrMissingFilterFunc.Error(), -1, "", ErrMissingFilterFunc)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, newScriptError(ErrCodeNotFunction, ErrFilterNotFunction.Error(), -1, "", ErrFilterNotFunction)
	}

	logger.Debug("script module initialized",
		slog.Int("script_length", len(source)),
		slog.String("on_error", string(onError)),
		slog.Bool("from_file", config.ScriptFile != ""),
	)

	return &ScriptModule{
		onError:  onError,
		runtime:  rt,
		filterFn: fn,
	}, nil
}

// resolveScriptSource returns the inline script or reads ScriptFile with a size cap.
func resolveScriptSource(config ScriptConfig) (string, error) {
	if config.Script != "" && config.ScriptFile != "" {
		return "", newScriptError(ErrCodeInvalidScriptFile, "cannot specify both 'script' and 'scriptFile' - use only one", -1, "", nil)
	}
	if config.Script != "" {
		return config.Script, nil
	}
	if config.ScriptFile == "" {
		return "", newScriptError(ErrCodeScriptEmpty, "either 'script' or 'scriptFile' must be provided", -1, "", ErrScriptEmpty)
	}

	if err := pathutil.ValidateFilePath(config.ScriptFile); err != nil {
		return "", newScriptError(ErrCodeInvalidScriptFile, err.Error(), -1, "", err)
	}
	if filepath.IsAbs(config.ScriptFile) {
		logger.Warn("scriptFile uses absolute path", slog.String("path", config.ScriptFile))
	}

	file, err := os.Open(config.ScriptFile)
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to open script file %q: %v", config.ScriptFile, err), -1, "", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close script file",
				slog.String("file", config.ScriptFile),
				slog.String("error", closeErr.Error()),
			)
		}
	}()

	// Read one byte past the limit to detect oversized files.
	content, err := io.ReadAll(io.LimitReader(file, MaxScriptLength+1))
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to read script file %q: %v", config.ScriptFile, err), -1, "", err)
	}
	if len(content) > MaxScriptLength {
		return "", newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script file %q is larger than %d bytes", config.ScriptFile, MaxScriptLength), -1, "", ErrScriptTooLong)
	}
	return string(content), nil
}

func validateScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return newScriptError(ErrCodeScriptEmpty, "script cannot be empty", -1, "", ErrScriptEmpty)
	}
	if len(script) > MaxScriptLength {
		return newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(script), MaxScriptLength), -1, "", ErrScriptTooLong)
	}
	return nil
}

// ParseScriptConfig parses a script filter configuration from raw config.
func ParseScriptConfig(cfg map[string]interface{}) (ScriptConfig, error) {
	config := ScriptConfig{}

	script, hasScript := cfg["script"].(string)
	scriptFile, hasScriptFile := cfg["scriptFile"].(string)

	if hasScript && hasScriptFile {
		return config, fmt.Errorf("cannot specify both 'script' and 'scriptFile' - use only one")
	}
	if !hasScript && !hasScriptFile {
		if cfg["script"] != nil {
			return config, fmt.Errorf("field 'script' must be a string")
		}
		if cfg["scriptFile"] != nil {
			return config, fmt.Errorf("field 'scriptFile' must be a string")
		}
		return config, fmt.Errorf("either 'script' or 'scriptFile' is required in script config")
	}

	config.Script = script
	config.ScriptFile = scriptFile
	if onError, ok := cfg["onError"].(string); ok {
		config.OnError = onError
	}
	return config, nil
}

// Process calls filter(record) for every row and keeps the truthy ones.
func (m *ScriptModule) Process(ctx context.Context, table *dataset.Table) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	start := time.Now()
	kept := make([]dataset.Company, 0, table.Len())
	errorCount := 0
	var failure error

	table.Each(func(i int, record dataset.Company) bool {
		if err := ctx.Err(); err != nil {
			failure = err
			return false
		}

		pass, err := m.evaluate(ctx, record, i)
		if err != nil {
			errorCount++
			switch m.onError {
			case errhandling.OnErrorSkip:
				logger.Warn("skipping record due to script error",
					slog.String("module_type", "script"),
					slog.Int("record_index", i),
					slog.String("error", err.Error()),
				)
			case errhandling.OnErrorLog:
				logger.Error("script error (continuing)",
					slog.String("module_type", "script"),
					slog.Int("record_index", i),
					slog.String("error", err.Error()),
				)
				kept = append(kept, record)
			default:
				failure = err
				return false
			}
			return true
		}
		if pass {
			kept = append(kept, record)
		}
		return true
	})
	if failure != nil {
		logger.Error("filter processing failed",
			slog.String("module_type", "script"),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", failure.Error()),
		)
		return nil, failure
	}

	logger.Debug("filter processing completed",
		slog.String("module_type", "script"),
		slog.Int("input_records", table.Len()),
		slog.Int("output_records", len(kept)),
		slog.Int("error_count", errorCount),
		slog.Duration("duration", time.Since(start)),
	)
	return dataset.NewTable(kept), nil
}

// evaluate runs filter(record) for one row, interrupting the runtime if ctx ends.
func (m *ScriptModule) evaluate(ctx context.Context, record dataset.Company, recordIdx int) (bool, error) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			m.interruptMu.Lock()
			m.runtime.Interrupt(ctx.Err().Error())
			m.interruptMu.Unlock()
		case <-done:
		}
	}()

	result, err := m.filterFn(goja.Undefined(), m.runtime.ToValue(record.Fields()))

	m.interruptMu.Lock()
	m.runtime.ClearInterrupt()
	m.interruptMu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, m.handleJSError(err, recordIdx)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return false, nil
	}
	return result.ToBoolean(), nil
}

// handleJSError converts a JavaScript error to a Go error with context.
func (m *ScriptModule) handleJSError(err error, recordIdx int) error {
	if jsErr, ok := err.(*goja.Exception); ok {
		stackTrace := ""
		if obj, ok := jsErr.Value().(*goja.Object); ok {
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				stackTrace = stack.String()
			}
		}
		message := fmt.Sprintf("script execution failed at record %d: %v", recordIdx, jsErr.Value())
		return newScriptError(ErrCodeExecutionFailed, message, recordIdx, stackTrace, err)
	}
	message := fmt.Sprintf("script execution failed at record %d: %v", recordIdx, err)
	return newScriptError(ErrCodeExecutionFailed, message, recordIdx, "", err)
}
