package evidence

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/strategy"
)

// evaluatedWindow runs the evidence stages into root/<namespace>/<window>
func evaluatedWindow(t *testing.T, root, namespace, windowID string) Inputs {
	t.Helper()
	dir := filepath.Join(root, namespace, windowID)
	require.NoError(t, os.MkdirAll(dir, 0755))
	in := testInputs(t, dir, true)
	in.Window.WindowID = windowID
	_, err := NewStages(strategy.DefaultRegistry(), arbor.NewLogger()).Run(context.Background(), dir, in)
	require.NoError(t, err)
	return in
}

func TestAggregate_TwoWindows(t *testing.T) {
	rolling := filepath.Join(t.TempDir(), "rolling")
	forced := filepath.Join(t.TempDir(), "forced")
	in := evaluatedWindow(t, rolling, "historical_rolling_v1", "W001_20230101_20230401")
	evaluatedWindow(t, forced, "forced_bear_v1", "W001_20230301_20230601")

	emergence := models.WatcherEmission{Watcher: models.WatcherMomentumEmergence, State: "EMERGING"}
	require.NoError(t, artifacts.WriteJSON(filepath.Join(rolling, "historical_rolling_v1", "W001_20230101_20230401", models.WatcherMomentumEmergence+".json"), emergence))

	rows, err := Aggregate(rolling, forced)
	require.NoError(t, err)
	require.Len(t, rows, 2*len(in.Resolution.Strategies))

	limited := 0
	for i, row := range rows {
		assert.Equal(t, "BEAR_RISK_OFF", row.Regime)
		assert.Equal(t, unknownState, row.LiquidityState)
		if row.Source == "rolling" {
			assert.Equal(t, "historical_rolling_v1", row.Namespace)
			assert.Equal(t, "EMERGING", row.EmergenceState)
		} else {
			assert.Equal(t, "forced_bear_v1", row.Namespace)
			assert.Equal(t, unknownState, row.EmergenceState)
		}

		if row.Rejections > 0 {
			limited++
			assert.Equal(t, "LIMITED", row.Status)
			assert.Equal(t, "FRAGILE", row.Condition)
			assert.NotEqual(t, "NONE", row.PrimaryRejectReason)
		} else {
			assert.Equal(t, "ACTIVE", row.Status)
			assert.Equal(t, "ROBUST", row.Condition)
			assert.Equal(t, "NONE", row.PrimaryRejectReason)
		}

		// ordered by strategy, then source
		if i > 0 {
			prev := rows[i-1]
			assert.True(t, prev.Strategy < row.Strategy || (prev.Strategy == row.Strategy && prev.Source < row.Source))
		}
	}
	assert.Equal(t, 2*(in.Resolution.Summary.Blocked+in.Resolution.Summary.Conditional), limited)
}

func TestAggregate_RejectionsWithoutPnL(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "ns", "W001")
	require.NoError(t, writeCSV(filepath.Join(dir, artifacts.RejectionAnalysis), rejectionHeader, [][]string{
		{"S1", "b reason", "2", "BULLISH"},
		{"S1", "a reason", "2", "BULLISH"},
		{"S1", "c reason", "1", "BULLISH"},
	}))

	rows, err := Aggregate(root)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "BULLISH", row.Regime)
	assert.Equal(t, 5, row.Rejections)
	assert.Equal(t, "a reason", row.PrimaryRejectReason)
	assert.Equal(t, "0.00", row.PaperPnL.StringFixed(2))
	assert.Equal(t, "ns", row.Namespace)
	assert.Equal(t, "W001", row.Window)
}

func TestAggregate_Errors(t *testing.T) {
	_, err := Aggregate(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	root := t.TempDir()
	require.NoError(t, writeCSV(filepath.Join(root, "ns", "W001", artifacts.RejectionAnalysis), rejectionHeader, [][]string{
		{"S1", "reason", "many", "BULLISH"},
	}))
	_, err = Aggregate(root)
	assert.ErrorContains(t, err, "rejection count")
}

func TestWriteMetricsTable(t *testing.T) {
	root := t.TempDir()
	evaluatedWindow(t, root, "forced_bear_v1", "W001_20230301_20230601")
	rows, err := Aggregate(root)
	require.NoError(t, err)

	out := t.TempDir()
	paths, err := WriteMetricsTable(out, rows)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(out, artifacts.MetricsTableCSV),
		filepath.Join(out, artifacts.MetricsTableMarkdown),
	}, paths)

	header, records, err := readCSV(paths[0])
	require.NoError(t, err)
	assert.Equal(t, metricsHeader, header)
	assert.Len(t, records, len(rows))

	md, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Evolution Metrics Table\n"))
	assert.Contains(t, string(md), "| source | namespace | window |")

	paths, err = WriteMetricsTable(t.TempDir(), nil)
	require.NoError(t, err)
	md, err = os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(md), "No evaluated windows found.")
}
