package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hqdash/runtime/internal/logger"
)

// captureJSON swaps the package logger for one writing JSON into a buffer.
func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := logger.Logger
	t.Cleanup(func() { logger.Logger = original })
	logger.Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log output: %v", err)
	}
	return entry
}

func TestLoggerInitialization(t *testing.T) {
	if logger.Logger == nil {
		t.Fatal("Logger should be initialized on package load")
	}
}

func TestWithRun(t *testing.T) {
	buf := captureJSON(t)

	logger.WithRun(logger.RunContext{
		RunID:       "run-1",
		DashboardID: "fortune500",
		Stage:       "filter",
		ModuleType:  "range",
		FilterIndex: 2,
	}).Info("test log")

	entry := lastEntry(t, buf)
	checks := map[string]interface{}{
		"run_id":       "run-1",
		"dashboard_id": "fortune500",
		"stage":        "filter",
		"module_type":  "range",
		"filter_index": float64(2),
	}
	for key, want := range checks {
		if entry[key] != want {
			t.Errorf("%s = %v, want %v", key, entry[key], want)
		}
	}
	if _, ok := entry["dry_run"]; ok {
		t.Error("dry_run should be omitted when false")
	}
}

func TestLogStageEnd_Failure(t *testing.T) {
	buf := captureJSON(t)

	logger.LogStageEnd(logger.RunContext{RunID: "run-2", Stage: "input", FilterIndex: -1}, 0, 5*time.Millisecond,
		&logger.StageError{Code: "INPUT_FAILED", Message: "file not found"})

	entry := lastEntry(t, buf)
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
	if entry["msg"] != "stage failed" {
		t.Errorf("msg = %v, want 'stage failed'", entry["msg"])
	}
	if entry["error_code"] != "INPUT_FAILED" {
		t.Errorf("error_code = %v", entry["error_code"])
	}
	if _, ok := entry["filter_index"]; ok {
		t.Error("filter_index should be omitted when negative")
	}
}

func TestLogError_IncludesChain(t *testing.T) {
	buf := captureJSON(t)

	base := errors.New("no such file")
	wrapped := fmt.Errorf("reading source: %w", base)
	logger.LogError("load failed", logger.ErrorContext{
		RunID:     "run-3",
		Stage:     "input",
		ErrorCode: "INPUT_FAILED",
		Err:       wrapped,
		Path:      "missing.xlsx",
	})

	entry := lastEntry(t, buf)
	if entry["error_chain"] != "reading source: no such file -> no such file" {
		t.Errorf("error_chain = %v", entry["error_chain"])
	}
	if entry["path"] != "missing.xlsx" {
		t.Errorf("path = %v", entry["path"])
	}
}

func TestLogMetrics(t *testing.T) {
	buf := captureJSON(t)

	logger.LogMetrics(logger.RunContext{RunID: "run-4", FilterIndex: -1}, logger.RunMetrics{
		TotalDuration:   time.Second,
		RecordsLoaded:   500,
		RecordsDropped:  3,
		RecordsSelected: 42,
	})

	entry := lastEntry(t, buf)
	if entry["records_loaded"] != float64(500) || entry["records_selected"] != float64(42) {
		t.Errorf("unexpected metrics entry: %v", entry)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.OutputFormat
		wantErr bool
	}{
		{"", logger.FormatJSON, false},
		{"JSON", logger.FormatJSON, false},
		{"human", logger.FormatHuman, false},
		{"xml", logger.FormatJSON, true},
	}
	for _, tt := range tests {
		got, err := logger.ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = (%v, %v), want (%v, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestHumanHandler(t *testing.T) {
	var buf bytes.Buffer
	h := logger.NewHumanHandler(&buf, &logger.HumanHandlerOptions{Level: slog.LevelInfo})
	log := slog.New(h).With("run_id", "r1")

	log.Debug("hidden")
	log.Info("stage completed", "duration", 1500*time.Microsecond, "ratio", 0.5)
	log.Error("stage failed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "✓ stage completed run_id=r1 duration=1ms ratio=0.50") {
		t.Errorf("unexpected info line: %q", out)
	}
	if !strings.Contains(out, "✗ stage failed") {
		t.Errorf("missing error line: %q", out)
	}
}

func TestHumanHandler_Group(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logger.NewHumanHandler(&buf, nil)).WithGroup("http")
	log.Info("request", "path", "/api/top")

	if !strings.Contains(buf.String(), "http.path=/api/top") {
		t.Errorf("group prefix missing: %q", buf.String())
	}
}

func TestSetLogFile(t *testing.T) {
	original := logger.Logger
	t.Cleanup(func() {
		logger.CloseLogFile()
		logger.Logger = original
	})

	path := filepath.Join(t.TempDir(), "hqdash.log")
	if err := logger.SetLogFile(path, slog.LevelInfo, logger.FormatJSON); err != nil {
		t.Fatalf("SetLogFile() error = %v", err)
	}
	logger.Info("written to file", "key", "value")
	logger.CloseLogFile()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"written to file"`) {
		t.Errorf("log file missing entry: %s", content)
	}
}
