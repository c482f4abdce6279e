package profile

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/evharness/internal/models"
)

func TestLoad_HistoricalRolling(t *testing.T) {
	p, err := Load("testdata/historical_rolling.yaml")
	require.NoError(t, err)

	assert.Equal(t, "EV-HIST-ROLLING-001", p.ProfileID)
	assert.Equal(t, models.ModeHistorical, p.Mode.Type)
	assert.Equal(t, models.WindowingRolling, p.Windowing.Type)
	assert.Equal(t, 90, p.Windowing.WindowSize.Days())
	assert.Equal(t, 30, p.Windowing.StepSize.Days())
	assert.True(t, p.Regime.Detection)
	assert.Nil(t, p.Regime.Override)
	assert.Equal(t, "hist_rolling_2024", p.Outputs.ArtifactNamespace)
	assert.Equal(t, "ev_hist_rolling_001", p.DIDSlug())
}

func TestLoad_ForcedRegime(t *testing.T) {
	p, err := Load("testdata/forced_bear.yaml")
	require.NoError(t, err)

	assert.Equal(t, models.ModeForcedRegime, p.Mode.Type)
	require.NotNil(t, p.Regime.Override)
	assert.Equal(t, "BEAR_RISK_OFF", p.Regime.Override.RegimeCode)
	assert.Equal(t, "US", p.MarketOrDefault("us"))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does_not_exist.yaml")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidProfile))
}

const validProfile = `profile_id: EV-TEST
version: "1"
mode:
  type: historical
windowing:
  type: single
regime:
  detection: true
  override: null
factor:
  observation: observe
  override: null
execution:
  shadow_only: true
  allow_replay: true
  allow_parallel_windows: false
outputs:
  artifact_namespace: test
  persist_intermediate: true
governance:
  decision_ref: D013
  ledger_required: true
  did_required: true
invariants:
  forbid_real_execution: true
  forbid_strategy_mutation: true
  forbid_regime_fallback: true
`

func TestParse_Violations(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
		want    string
	}{
		{
			name:    "shadow only false",
			replace: [2]string{"shadow_only: true", "shadow_only: false"},
			want:    "Invariant Violation: execution.shadow_only must be True",
		},
		{
			name:    "missing safety flag is not coerced",
			replace: [2]string{"  forbid_regime_fallback: true\n", ""},
			want:    "Invariant Violation: invariants.forbid_regime_fallback must be True",
		},
		{
			name:    "ledger not required",
			replace: [2]string{"ledger_required: true", "ledger_required: false"},
			want:    "Governance Violation: governance.ledger_required must be True",
		},
		{
			name:    "historical without detection",
			replace: [2]string{"detection: true", "detection: false"},
			want:    "Configuration Error: Historical mode requires regime.detection=True",
		},
		{
			name:    "unknown mode",
			replace: [2]string{"type: historical", "type: live"},
			want:    "Configuration Error: mode.type must be one of [historical forced_regime]",
		},
		{
			name:    "unknown windowing",
			replace: [2]string{"type: single", "type: expanding"},
			want:    "Configuration Error: windowing.type must be one of",
		},
		{
			name:    "factor override",
			replace: [2]string{"observation: observe\n  override: null", "observation: observe\n  override: {momentum: strong}"},
			want:    "Configuration Error: factor.override must be null",
		},
		{
			name:    "single with step",
			replace: [2]string{"type: single", "type: single\n  step_size: 30d"},
			want:    "Configuration Error: Single window should not have step_size or anchor_dates",
		},
		{
			name:    "rolling without sizes",
			replace: [2]string{"type: single", "type: rolling"},
			want:    "Configuration Error: Rolling window requires a positive window_size",
		},
		{
			name:    "anchored without anchors",
			replace: [2]string{"type: single", "type: anchored"},
			want:    "Configuration Error: Anchored window requires anchor_dates",
		},
		{
			name:    "bad anchor date",
			replace: [2]string{"type: single", "type: anchored\n  anchor_dates: [\"2024-13-01\"]"},
			want:    "must be a YYYY-MM-DD date",
		},
		{
			name:    "missing namespace",
			replace: [2]string{"  artifact_namespace: test\n", ""},
			want:    "Configuration Error: outputs.artifact_namespace is required",
		},
		{
			name:    "missing section",
			replace: [2]string{"mode:\n  type: historical\n", ""},
			want:    "Configuration Error: mode is required",
		},
		{
			name:    "unknown market",
			replace: [2]string{"version: \"1\"", "version: \"1\"\nmarket: MARS"},
			want:    "Configuration Error: unknown market \"MARS\"",
		},
		{
			name:    "horizon reversed",
			replace: [2]string{"version: \"1\"", "version: \"1\"\nhorizon:\n  start: \"2024-06-01\"\n  end: \"2024-01-01\""},
			want:    "horizon.end 2024-01-01 must be after horizon.start 2024-06-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(validProfile, tt.replace[0], tt.replace[1], 1)
			require.NotEqual(t, validProfile, doc, "replacement did not apply")

			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProfile))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, strings.Join(verr.Violations, "\n"), tt.want)
		})
	}
}

func TestParse_CollectsAllViolations(t *testing.T) {
	doc := strings.Replace(validProfile, "shadow_only: true", "shadow_only: false", 1)
	doc = strings.Replace(doc, "forbid_real_execution: true", "forbid_real_execution: false", 1)

	_, err := Parse([]byte(doc))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Violations, 2)
}

func TestParse_UnknownKeyRejected(t *testing.T) {
	doc := validProfile + "live_trading: true\n"
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProfile))
	assert.Contains(t, err.Error(), "live_trading")
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProfile))
}

func TestParse_DayCountForms(t *testing.T) {
	for _, size := range []string{"90", "\"90\"", "90d"} {
		doc := strings.Replace(validProfile, "type: single", "type: rolling\n  window_size: "+size+"\n  step_size: 30", 1)
		p, err := Parse([]byte(doc))
		require.NoError(t, err, size)
		assert.Equal(t, 90, p.Windowing.WindowSize.Days(), size)
	}
}
