package regime

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/market/markettest"
	"github.com/ternarybob/evharness/internal/models"
)

var (
	seriesStart = markettest.Day(2023, 1, 1)
	fixedNow    = time.Date(2026, 1, 29, 12, 0, 0, 0, time.UTC)
)

func historicalProfile() *models.EvaluationProfile {
	return &models.EvaluationProfile{
		ProfileID: "EV-TEST",
		Market:    "US",
		Mode:      &models.ModeSpec{Type: models.ModeHistorical},
		Regime:    &models.RegimePolicy{Detection: true},
	}
}

func forcedProfile(code string) *models.EvaluationProfile {
	p := historicalProfile()
	p.Mode = &models.ModeSpec{Type: models.ModeForcedRegime}
	p.Regime = &models.RegimePolicy{Override: &models.RegimeOverride{RegimeCode: code, Rationale: "stress test"}}
	return p
}

func window(start, end time.Time) models.Window {
	return models.Window{WindowID: models.NewWindowID(1, start, end), Start: start, End: end}
}

func newBuilder(t *testing.T, root string) *Builder {
	t.Helper()
	cache := market.NewCache(root, arbor.NewLogger())
	return NewBuilder(cache, Options{MinObservations: 50, AlignmentDays: 5}, arbor.NewLogger()).
		WithClock(func() time.Time { return fixedNow })
}

func TestBuild_DetectsBullish(t *testing.T) {
	root := t.TempDir()
	markettest.USStore(t, root, seriesStart, 400, 0.2, 15)
	b := newBuilder(t, root)

	w := window(markettest.Day(2023, 9, 1), markettest.Day(2023, 12, 1))
	dir := filepath.Join(t.TempDir(), w.WindowID)

	rc, err := b.Build(context.Background(), historicalProfile(), w, dir)
	require.NoError(t, err)

	assert.Equal(t, models.RegimeBullish, rc.RegimeCode)
	assert.Equal(t, "Bullish Trend", rc.RegimeLabel)
	assert.False(t, rc.IsCounterfactual)
	assert.Equal(t, models.ViabilityViable, rc.Viability.Status)
	assert.True(t, rc.Viability.Viable)
	assert.Equal(t, []string{"QQQ", "SPY", "VIX", "^TNX"}, rc.InputsUsed)
	require.NotNil(t, rc.Detection)
	assert.Equal(t, 15.0, rc.Detection.VolatilityLevel)
	assert.Equal(t, "VIX", rc.Detection.VolatilitySource)
	assert.Equal(t, fixedNow, rc.ComputedAt)

	loaded, err := Load(dir, w.WindowID)
	require.NoError(t, err)
	assert.Equal(t, rc.RegimeCode, loaded.RegimeCode)
}

func TestBuild_HighVolatilityIsNotBullish(t *testing.T) {
	root := t.TempDir()
	markettest.USStore(t, root, seriesStart, 400, 0.2, 32)
	b := newBuilder(t, root)

	w := window(markettest.Day(2023, 9, 1), markettest.Day(2023, 12, 1))
	rc, err := b.Build(context.Background(), historicalProfile(), w, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, models.RegimeNeutral, rc.RegimeCode)
}

func TestBuild_Bearish(t *testing.T) {
	root := t.TempDir()
	markettest.USStore(t, root, seriesStart, 400, -0.2, 30)
	b := newBuilder(t, root)

	w := window(markettest.Day(2023, 9, 1), markettest.Day(2023, 12, 1))
	rc, err := b.Build(context.Background(), historicalProfile(), w, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, models.RegimeBearish, rc.RegimeCode)
	assert.Equal(t, "Bearish Trend", rc.RegimeLabel)
}

func TestBuild_ForcedRegime(t *testing.T) {
	root := t.TempDir()
	// strongly bullish data must not leak into a forced context
	markettest.USStore(t, root, seriesStart, 400, 0.3, 12)
	b := newBuilder(t, root)

	w := window(markettest.Day(2023, 9, 1), markettest.Day(2023, 12, 1))
	rc, err := b.Build(context.Background(), forcedProfile("BEAR_RISK_OFF"), w, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "BEAR_RISK_OFF", rc.RegimeCode)
	assert.Equal(t, "Forced BEAR_RISK_OFF", rc.RegimeLabel)
	assert.True(t, rc.IsCounterfactual)
	assert.Equal(t, "stress test", rc.Rationale)
	assert.Nil(t, rc.Detection)
}

func TestBuild_WriteOnce(t *testing.T) {
	root := t.TempDir()
	markettest.USStore(t, root, seriesStart, 400, 0.2, 15)
	b := newBuilder(t, root)

	w := window(markettest.Day(2023, 9, 1), markettest.Day(2023, 12, 1))
	dir := t.TempDir()
	_, err := b.Build(context.Background(), historicalProfile(), w, dir)
	require.NoError(t, err)

	_, err = b.Build(context.Background(), historicalProfile(), w, dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, artifacts.ErrArtifactExists))
}

func TestBuild_NotViableHasNoFallback(t *testing.T) {
	root := t.TempDir()
	markettest.WriteStore(t, root, "US",
		markettest.Trend("SPY", seriesStart, 400, 400, 0.2),
		markettest.Flat("VIX", seriesStart, 400, 15),
	)
	b := newBuilder(t, root)

	w := window(markettest.Day(2023, 9, 1), markettest.Day(2023, 12, 1))
	dir := t.TempDir()
	_, err := b.Build(context.Background(), historicalProfile(), w, dir)
	require.Error(t, err)

	var rcErr *RegimeContextError
	require.True(t, errors.As(err, &rcErr))
	require.NotNil(t, rcErr.Viability)
	assert.Equal(t, models.ViabilityNotViable, rcErr.Viability.Status)
	assert.Equal(t, []models.BlockingReason{models.BlockingMissingSymbol}, rcErr.Viability.BlockingReasons)
	assert.Contains(t, rcErr.Error(), "MISSING_SYMBOL")
	assert.False(t, artifacts.Exists(filepath.Join(dir, artifacts.RegimeContext)))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(t.TempDir(), "W001")
	var rcErr *RegimeContextError
	require.True(t, errors.As(err, &rcErr))
	assert.Equal(t, "W001", rcErr.WindowID)
}

func TestCheckViability(t *testing.T) {
	end := markettest.Day(2023, 6, 30)
	full := func(symbol string) market.Series {
		return markettest.Flat(symbol, seriesStart, 200, 10)
	}
	required := []string{"SPY", "VIX", "QQQ"}

	tests := []struct {
		name    string
		series  map[string]market.Series
		status  models.ViabilityStatus
		reasons []models.BlockingReason
		missing []string
	}{
		{
			name:    "viable",
			series:  map[string]market.Series{"SPY": full("SPY"), "VIX": full("VIX"), "QQQ": full("QQQ")},
			status:  models.ViabilityViable,
			reasons: []models.BlockingReason{},
			missing: []string{},
		},
		{
			name:    "missing symbol",
			series:  map[string]market.Series{"SPY": full("SPY"), "VIX": full("VIX")},
			status:  models.ViabilityNotViable,
			reasons: []models.BlockingReason{models.BlockingMissingSymbol},
			missing: []string{"QQQ"},
		},
		{
			name: "insufficient history",
			series: map[string]market.Series{
				"SPY": full("SPY"), "VIX": full("VIX"),
				"QQQ": markettest.Flat("QQQ", markettest.Day(2023, 6, 1), 30, 10),
			},
			status:  models.ViabilityNotViable,
			reasons: []models.BlockingReason{models.BlockingInsufficientHistory},
			missing: []string{"QQQ:history"},
		},
		{
			name: "misaligned only degrades",
			series: map[string]market.Series{
				"SPY": full("SPY"), "QQQ": full("QQQ"),
				"VIX": markettest.Flat("VIX", seriesStart, 150, 10),
			},
			status:  models.ViabilityDegraded,
			reasons: []models.BlockingReason{models.BlockingTemporalMisalignment},
			missing: []string{},
		},
		{
			name: "multiple issues collapse",
			series: map[string]market.Series{
				"SPY": full("SPY"),
				"VIX": markettest.Flat("VIX", seriesStart, 20, 10),
			},
			status:  models.ViabilityNotViable,
			reasons: []models.BlockingReason{models.BlockingMultipleIssues},
			missing: []string{"QQQ", "VIX:history"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := CheckViability(required, "SPY", tt.series, end, 50, 5)
			assert.Equal(t, tt.status, v.Status)
			assert.Equal(t, tt.reasons, v.BlockingReasons)
			assert.Equal(t, tt.missing, v.MissingInputs)
			assert.Equal(t, tt.status != models.ViabilityNotViable, v.Viable)
		})
	}
}
