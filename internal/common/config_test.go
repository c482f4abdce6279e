package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFiles_Defaults(t *testing.T) {
	cfg, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "US", cfg.Data.DefaultMarket)
	assert.Equal(t, 4, cfg.Pipeline.MaxParallelWindows)
	assert.Equal(t, 50, cfg.Pipeline.MinObservations)
	assert.Equal(t, 730, cfg.Ingest.LookbackDays)
	assert.True(t, cfg.Report.HTML)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	dir := t.TempDir()
	base := writeConfig(t, dir, "base.toml", `
environment = "production"

[data]
series_dir = "/srv/series"
default_market = "INDIA"

[pipeline]
max_parallel_windows = 2

[[scheduler.tasks]]
name = "nightly"
type = "run_profile"
schedule = "0 6 * * 1-5"
params = { profile = "profiles/rolling.yaml" }
`)
	local := writeConfig(t, dir, "local.toml", `
[pipeline]
max_parallel_windows = 8

[report]
pdf = true
`)

	cfg, err := LoadFromFiles(base, "", local)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "/srv/series", cfg.Data.SeriesDir)
	assert.Equal(t, "INDIA", cfg.Data.DefaultMarket)
	assert.Equal(t, 8, cfg.Pipeline.MaxParallelWindows)
	assert.Equal(t, 50, cfg.Pipeline.MinObservations)
	assert.True(t, cfg.Report.PDF)
	assert.True(t, cfg.Report.HTML)

	require.Len(t, cfg.Scheduler.Tasks, 1)
	assert.Equal(t, "profiles/rolling.yaml", cfg.Scheduler.Tasks[0].Params["profile"])
}

func TestLoadFromFiles_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFiles(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	broken := writeConfig(t, dir, "broken.toml", "[pipeline\n")
	_, err = LoadFromFiles(broken)
	assert.Error(t, err)

	badCron := writeConfig(t, dir, "cron.toml", `
[[scheduler.tasks]]
name = "bad"
type = "run_profile"
schedule = "whenever"
`)
	_, err = LoadFromFiles(badCron)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "scheduler task bad"))
}

func TestEnvAndFlagOverrides(t *testing.T) {
	t.Setenv("EVHARNESS_LOG_OUTPUT", "stdout, file")
	t.Setenv("EVHARNESS_MAX_PARALLEL_WINDOWS", "3")
	t.Setenv("EVHARNESS_INGEST_RATE_LIMIT", "not-a-number")
	t.Setenv("EVHARNESS_EODHD_API_KEY", "k")
	t.Setenv("EVHARNESS_OUTPUT_ROOT", "/env/docs")

	cfg, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
	assert.Equal(t, 3, cfg.Pipeline.MaxParallelWindows)
	assert.Equal(t, 10, cfg.Ingest.RateLimit)
	assert.Equal(t, "k", cfg.Ingest.APIKey)
	assert.Equal(t, "/env/docs", cfg.Output.Root)

	ApplyFlagOverrides(cfg, "debug", "")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/env/docs", cfg.Output.Root)

	ApplyFlagOverrides(cfg, "", "/flag/docs")
	assert.Equal(t, "/flag/docs", cfg.Output.Root)
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"0 6 * * 1-5", true},
		{"*/15 * * * *", true},
		{"0 0 6 * * *", false},
		{"@every 1h", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.True(t, strings.HasPrefix(a, "run_"))
	assert.Len(t, a, len("run_")+36)
	assert.NotEqual(t, a, b)
}
