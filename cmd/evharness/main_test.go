package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/evharness/internal/artifacts"
)

const forcedProfile = "../../internal/profile/testdata/forced_bear.yaml"

func executeArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--output-root", t.TempDir()))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExitError(t *testing.T) {
	cause := errors.New("boom")
	err := fail(cause)

	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 1, exit.code)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, "exit status 2", (&exitError{code: 2}).Error())
}

func TestValidateCommand(t *testing.T) {
	out, err := executeArgs(t, "validate", "--profile", forcedProfile)
	require.NoError(t, err)
	assert.Contains(t, out, "Profile EV-FORCED-BEAR-001 1.0.0 is valid")

	_, err = executeArgs(t, "validate", "--profile", filepath.Join(t.TempDir(), "missing.yaml"))
	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, 1, exit.code)
}

func TestVersionCommand(t *testing.T) {
	out, err := executeArgs(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "evharness version")
	assert.Contains(t, out, "evolution contract v1")
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifacts.Bundle), []byte("# Evolution Evaluation Bundle\n\nNo coverage diagnostics found.\n"), 0644))

	out, err := executeArgs(t, "report", "--window-dir", dir, "--html")
	require.NoError(t, err)
	assert.Contains(t, out, artifacts.BundleHTML)
	assert.FileExists(t, filepath.Join(dir, artifacts.BundleHTML))
	assert.NoFileExists(t, filepath.Join(dir, artifacts.BundlePDF))
}

func TestCompareCommand(t *testing.T) {
	root := t.TempDir()
	window := filepath.Join(root, "forced_bear_v1", "W001_20230301_20230601")
	require.NoError(t, os.MkdirAll(window, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(window, artifacts.RejectionAnalysis),
		[]byte("strategy_id,reason,count,context_regime\nSTRAT_MOM_TREND_V1,Regime BEAR_RISK_OFF not allowed,1,BEAR_RISK_OFF\n"), 0644))
	output := t.TempDir()

	out, err := executeArgs(t, "compare", "--roots", root, "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Aggregated 1 rows")
	assert.FileExists(t, filepath.Join(output, artifacts.MetricsTableCSV))
	assert.FileExists(t, filepath.Join(output, artifacts.MetricsTableMarkdown))
}
