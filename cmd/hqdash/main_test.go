package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testCSV = `RANK,NAME,STATE,COUNTY,LATITUDE,LONGITUDE,EMPLOYEES,REVENUES,PROFIT
1,Walmart,AR,Benton,36.37,-94.21,2300000,500343,9862
4,Exxon Mobil,TX,Dallas,32.87,-96.94,71100,244363,19710
13,AT&T,TX,Dallas,32.78,-96.80,254000,160546,29450
20,Incomplete,TX,,29.76,-95.37,100,1000,
`

// runCLI executes the CLI in-process and returns exit code, stdout and stderr.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func testdata(name string) string {
	return filepath.Join("..", "..", "internal", "config", "testdata", name)
}

// writeDashboard writes a CSV source and a config reading it; it returns the
// config path and the report path the config writes to.
func writeDashboard(t *testing.T, extra string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hq.csv"), []byte(testCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	report := filepath.Join(dir, "report.csv")
	cfg := fmt.Sprintf(`dashboard:
  id: cli-test
  source:
    path: hq.csv
  filters:
    - type: set
      column: STATE
      values: [TX]
  summary:
    metric: PROFIT
    top: 1
  outputs:
    - type: csv
      path: %q
%s`, report, extra)
	path := filepath.Join(dir, "dashboard.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return path, report
}

func TestCLI_Help(t *testing.T) {
	code, stdout, _ := runCLI(t, "--help")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	for _, cmd := range []string{"validate", "run", "serve", "options", "version"} {
		if !strings.Contains(stdout, cmd) {
			t.Errorf("help does not mention %q", cmd)
		}
	}
}

func TestCLI_Validate(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		stdout   string
		stderr   string
	}{
		{"valid JSON", []string{"validate", testdata("valid-dashboard.json")}, ExitSuccess, "format: json", ""},
		{"valid YAML", []string{"validate", testdata("valid-dashboard.yaml")}, ExitSuccess, "format: yaml", ""},
		{"verbose", []string{"validate", "-v", testdata("valid-dashboard.yaml")}, ExitSuccess, "Schedule: 0 6 * * *", ""},
		{"invalid JSON", []string{"validate", testdata("invalid-syntax.json")}, ExitParseError, "", "Parse errors"},
		{"unknown filter", []string{"validate", testdata("invalid-unknown-filter.yaml")}, ExitValidationError, "", "Validation errors"},
		{"inverted range", []string{"validate", testdata("invalid-inverted-range.yaml")}, ExitValidationError, "", "Validation errors"},
		{"missing source", []string{"validate", testdata("invalid-missing-source.yaml")}, ExitValidationError, "", "source"},
		{"nonexistent file", []string{"validate", "does-not-exist.yaml"}, ExitParseError, "", "does-not-exist.yaml"},
		{"missing argument", []string{"validate"}, ExitRuntimeError, "", "accepts 1 arg"},
		{"bad log format", []string{"validate", "--log-format", "xml", testdata("valid-dashboard.yaml")}, ExitValidationError, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(t, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d\nstdout: %s\nstderr: %s", code, tt.wantCode, stdout, stderr)
			}
			if tt.stdout != "" && !strings.Contains(stdout, tt.stdout) {
				t.Errorf("stdout missing %q:\n%s", tt.stdout, stdout)
			}
			if tt.stderr != "" && !strings.Contains(stderr, tt.stderr) {
				t.Errorf("stderr missing %q:\n%s", tt.stderr, stderr)
			}
		})
	}
}

func TestCLI_ValidateQuiet(t *testing.T) {
	code, stdout, _ := runCLI(t, "validate", "--quiet", testdata("valid-dashboard.json"))
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if stdout != "" {
		t.Errorf("quiet validate printed:\n%s", stdout)
	}
}

func TestCLI_RunValidConfig(t *testing.T) {
	cfg, report := writeDashboard(t, "")
	code, stdout, stderr := runCLI(t, "run", cfg)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d\nstderr: %s", code, stderr)
	}
	for _, w := range []string{"✓ Dashboard run completed", "Records loaded: 4 (dropped 1 incomplete)", "AT&T"} {
		if !strings.Contains(stdout, w) {
			t.Errorf("stdout missing %q:\n%s", w, stdout)
		}
	}
	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n") + 1; lines != 3 {
		t.Errorf("report lines = %d, want header + 2", lines)
	}
}

func TestCLI_RunDryRun(t *testing.T) {
	cfg, report := writeDashboard(t, "")
	code, stdout, _ := runCLI(t, "run", "--dry-run", cfg)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "dry-run") {
		t.Errorf("stdout does not mention dry-run:\n%s", stdout)
	}
	if _, err := os.Stat(report); !os.IsNotExist(err) {
		t.Errorf("dry run wrote %s", report)
	}
}

func TestCLI_RunInvalidConfig(t *testing.T) {
	code, _, _ := runCLI(t, "run", testdata("invalid-unknown-filter.yaml"))
	if code != ExitValidationError {
		t.Errorf("exit code = %d, want %d", code, ExitValidationError)
	}
}

func TestCLI_RunScheduledWithoutSchedule(t *testing.T) {
	cfg, _ := writeDashboard(t, "")
	code, _, stderr := runCLI(t, "run", "--scheduled", cfg)
	if code != ExitValidationError {
		t.Errorf("exit code = %d, want %d", code, ExitValidationError)
	}
	if !strings.Contains(stderr, "/dashboard/schedule") {
		t.Errorf("stderr = %s", stderr)
	}
}

func TestCLI_Options(t *testing.T) {
	cfg, _ := writeDashboard(t, "")
	code, stdout, stderr := runCLI(t, "options", "--state", "TX", cfg)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d\nstderr: %s", code, stderr)
	}
	for _, w := range []string{"States (2): AR, TX", "Counties (1): Dallas", "Metrics: REVENUES, PROFIT, COSTS"} {
		if !strings.Contains(stdout, w) {
			t.Errorf("stdout missing %q:\n%s", w, stdout)
		}
	}
}

func TestCLI_OptionsDataUnavailable(t *testing.T) {
	cfg, _ := writeDashboard(t, "")
	if err := os.Remove(filepath.Join(filepath.Dir(cfg), "hq.csv")); err != nil {
		t.Fatal(err)
	}
	code, stdout, stderr := runCLI(t, "options", cfg)
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stderr, "Data unavailable") {
		t.Errorf("stderr = %s", stderr)
	}
	if !strings.Contains(stdout, "States (0)") {
		t.Errorf("stdout = %s", stdout)
	}
}

func TestCLI_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != ExitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	for _, w := range []string{"Version: dev", "Commit: unknown", "Build Date: unknown"} {
		if !strings.Contains(stdout, w) {
			t.Errorf("stdout missing %q:\n%s", w, stdout)
		}
	}
}
