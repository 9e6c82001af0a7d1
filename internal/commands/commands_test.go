package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledgeraudit/internal/commands"
	"github.com/cleared-dev/ledgeraudit/internal/config"
	"github.com/cleared-dev/ledgeraudit/internal/runlog"
)

const testLogDir = "../../testdata/logs"

// execute runs the CLI in-process and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "ledgeraudit version dev")
}

func TestInit_WritesDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")
	out, _, err := execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, config.FileName)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	def := config.Default()
	assert.Equal(t, def.Ledger.Tolerance.String(), cfg.Ledger.Tolerance.String())
	assert.Equal(t, def.Ledger.CurrencyDecimals, cfg.Ledger.CurrencyDecimals)
	assert.Equal(t, def.Detector.MADThreshold.String(), cfg.Detector.MADThreshold.String())
	assert.Equal(t, def.Report, cfg.Report)
}

func TestInit_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "init", dir)
	require.NoError(t, err)

	_, _, err = execute(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "init", dir, "--force")
	assert.NoError(t, err)
}

func TestRun_WritesReport(t *testing.T) {
	out := t.TempDir()
	metricsFile := filepath.Join(t.TempDir(), "audit.prom")

	stdout, stderr, err := execute(t, "run",
		"--log-dir", testLogDir,
		"--out", out,
		"--raw-csv",
		"--metrics-file", metricsFile,
		"--log-level", "debug",
	)
	require.NoError(t, err)

	assert.Contains(t, stdout, "5 events, 4 ledger entries, 1 mismatches, 2 anomalies")
	assert.Contains(t, stdout, "Summary: "+out)
	assert.Contains(t, stderr, "level=INFO msg=\"audit finished\"")
	assert.Contains(t, stderr, "level=DEBUG")
	assert.FileExists(t, filepath.Join(out, "raw_parsed.csv"))
	assert.FileExists(t, metricsFile)

	history, err := runlog.Read(out)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), config.FileName)
	cfg := config.Default()
	cfg.Ledger.Tolerance = cfg.Ledger.Tolerance.Mul(cfg.Ledger.Tolerance) // far below 0.01
	require.NoError(t, config.Save(cfgPath, cfg))

	stdout, _, err := execute(t, "run",
		"--log-dir", testLogDir,
		"--out", t.TempDir(),
		"--config", cfgPath,
		"--tolerance", "0.05",
		"--dup-window", "5",
		"--log-level", "ERROR",
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "0 mismatches, 0 anomalies")
}

func TestRun_Pretty(t *testing.T) {
	stdout, _, err := execute(t, "run", "--log-dir", testLogDir, "--out", t.TempDir(), "--pretty", "--log-level", "ERROR")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Totals")
	assert.Contains(t, stdout, "Summary: ")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing log dir", []string{"run"}, `required flag(s) "log-dir" not set`},
		{"bad level", []string{"run", "--log-dir", testLogDir, "--log-level", "LOUD"}, "invalid log level"},
		{"bad tolerance", []string{"run", "--log-dir", testLogDir, "--tolerance", "abc"}, "invalid --tolerance"},
		{"bad threshold", []string{"run", "--log-dir", testLogDir, "--mad-threshold", "-1"}, "detector.mad_threshold"},
		{"missing config", []string{"run", "--log-dir", testLogDir, "--config", "/nonexistent/x.yaml"}, "reading config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--out", t.TempDir())
			_, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHistory(t *testing.T) {
	out := t.TempDir()

	stdout, _, err := execute(t, "history", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded")

	_, _, err = execute(t, "run", "--log-dir", testLogDir, "--out", out, "--log-level", "ERROR")
	require.NoError(t, err)

	stdout, _, err = execute(t, "history", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "RUN")
	assert.Contains(t, stdout, testLogDir)

	data, err := os.ReadFile(filepath.Join(out, runlog.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), runlog.Header)
}
