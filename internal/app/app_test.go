package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/common"
	"github.com/ternarybob/evharness/internal/models"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.Path = filepath.Join(dir, "db")
	cfg.Data.SeriesDir = filepath.Join(dir, "series")
	cfg.Output.Root = filepath.Join(dir, "docs")
	return cfg
}

func TestNew_RegistersEveryTaskType(t *testing.T) {
	a, err := New(testConfig(t), arbor.NewLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []models.TaskType{
		models.TaskTypeCompareWindows,
		models.TaskTypeCompileReport,
		models.TaskTypeIngestMarket,
		models.TaskTypeRunProfile,
		models.TaskTypeValidateProfile,
	}, a.Tasks.Types())
	assert.Equal(t, 11, a.Registry.Len())
	assert.Equal(t, filepath.Join(a.Config.Output.Root, "epistemic", "ledger", "evolution_log.md"), a.Orchestrator.Layout().LedgerPath())
}

func TestNew_ScheduledValidation(t *testing.T) {
	a, err := New(testConfig(t), arbor.NewLogger())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Scheduler.ScheduleAll([]common.ScheduledTaskConfig{{
		Name:     "check-forced",
		Type:     "validate_profile",
		Schedule: "0 5 * * *",
		Params:   map[string]string{"profile": "../profile/testdata/forced_bear.yaml"},
	}}))
	require.NoError(t, a.Scheduler.RunNow(context.Background(), "check-forced"))

	last, err := a.StorageManager.KeyValueStorage().Get(context.Background(), "task:check-forced:last_run")
	require.NoError(t, err)
	assert.NotEmpty(t, last)
}
