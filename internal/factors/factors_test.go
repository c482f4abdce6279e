package factors

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
	"github.com/ternarybob/evharness/internal/regime"
)

var (
	seriesStart = markettest.Day(2023, 1, 1)
	fixedNow    = time.Date(2026, 1, 29, 12, 0, 0, 0, time.UTC)
)

func observeProfile() *models.EvaluationProfile {
	return &models.EvaluationProfile{
		ProfileID: "EV-TEST",
		Market:    "US",
		Factor:    &models.FactorPolicy{Observation: models.FactorObserve},
	}
}

// windowDir writes a regime context the way the regime stage would
func windowDir(t *testing.T, w models.Window) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), w.WindowID)
	rc := models.RegimeContext{
		RegimeLabel: models.RegimeLabelFor(models.RegimeBullish),
		RegimeCode:  models.RegimeBullish,
		Market:      "US",
		Window:      w.Span(),
		Viability:   models.Viability{Viable: true, Status: models.ViabilityViable},
		ComputedAt:  fixedNow,
		Version:     models.RegimeContextVersion,
	}
	require.NoError(t, artifacts.WriteJSONOnce(filepath.Join(dir, artifacts.RegimeContext), rc))
	return dir
}

func window(start, end time.Time) models.Window {
	return models.Window{WindowID: models.NewWindowID(1, start, end), Start: start, End: end}
}

func newBuilder(root string) *Builder {
	cache := market.NewCache(root, arbor.NewLogger())
	return NewBuilder(cache, 50, arbor.NewLogger()).WithClock(func() time.Time { return fixedNow })
}

func TestBuild_SteadyUptrend(t *testing.T) {
	root := t.TempDir()
	markettest.USStore(t, root, seriesStart, 400, 0.2, 15)
	w := window(markettest.Day(2023, 9, 1), markettest.Day(2023, 12, 1))
	dir := windowDir(t, w)

	fc, err := newBuilder(root).Build(context.Background(), observeProfile(), w, dir)
	require.NoError(t, err)

	assert.Equal(t, models.SufficiencySufficient, fc.Sufficiency.Status)
	assert.Equal(t, 335, fc.Sufficiency.Observations)
	assert.Equal(t, models.RegimeBullish, fc.Sufficiency.RegimeInput)
	assert.True(t, fc.Validity.Viable)
	assert.Equal(t, []string{"QQQ", "SPY", "VIX", "^TNX"}, fc.InputsUsed)
	assert.Equal(t, fixedNow, fc.ComputedAt)
	assert.Equal(t, models.FactorContextVersion, fc.Version)

	f := fc.Factors
	assert.Equal(t, "strong", f.Momentum.Level.State)
	assert.Equal(t, "accelerating", f.Momentum.Acceleration.State)
	assert.Equal(t, "long", f.Momentum.TimeInState.State)
	assert.Equal(t, "persistent", f.Momentum.Persistence.State)
	assert.Equal(t, "neutral", f.Breadth.State)
	assert.Equal(t, f.Breadth, f.Momentum.Breadth)
	assert.Equal(t, "stable", f.Momentum.Dispersion.State)
	assert.Equal(t, "balanced", f.Value.Spread.State)
	assert.Equal(t, "stable", f.Value.Dispersion.State)
	assert.Equal(t, "stable", f.Volatility.Regime.State)
	assert.Equal(t, "normal", f.Volatility.Level.State)
	assert.Equal(t, "tight", f.Liquidity.Rates.State)
	assert.Equal(t, "yield", f.Liquidity.Scale)
	assert.Equal(t, "high", f.Momentum.Strength)
	assert.Equal(t, "clean", f.Meta.MomentumQuality)

	for path, sig := range f.Signals() {
		assert.GreaterOrEqual(t, sig.Confidence, 0.5, path)
		assert.LessOrEqual(t, sig.Confidence, 0.95, path)
	}

	var persisted models.FactorContext
	require.NoError(t, artifacts.ReadJSON(filepath.Join(dir, artifacts.FactorContext), &persisted))
	assert.Equal(t, fc.Factors, persisted.Factors)
}

func TestBuild_Deterministic(t *testing.T) {
	root := t.TempDir()
	markettest.USStore(t, root, seriesStart, 400, -0.15, 28)
	w := window(markettest.Day(2023, 6, 1), markettest.Day(2023, 8, 30))
	b := newBuilder(root)

	first, err := b.Build(context.Background(), observeProfile(), w, windowDir(t, w))
	require.NoError(t, err)
	second, err := b.Build(context.Background(), observeProfile(), w, windowDir(t, w))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuild_FailClosed(t *testing.T) {
	root := t.TempDir()
	markettest.USStore(t, root, seriesStart, 400, 0.2, 15)

	tests := []struct {
		name    string
		profile *models.EvaluationProfile
		end     time.Time
		status  string
		reason  string
	}{
		{
			name:    "insufficient history",
			profile: observeProfile(),
			end:     markettest.Day(2023, 2, 10),
			status:  models.SufficiencyInsufficient,
			reason:  "insufficient data: 41 observations, 50 required",
		},
		{
			name: "observation disabled",
			profile: &models.EvaluationProfile{
				Market: "US",
				Factor: &models.FactorPolicy{Observation: models.FactorDisable},
			},
			end:    markettest.Day(2023, 12, 1),
			status: models.SufficiencyDisabled,
			reason: DisabledReason,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := window(seriesStart, tt.end)
			fc, err := newBuilder(root).Build(context.Background(), tt.profile, w, windowDir(t, w))
			require.NoError(t, err)

			assert.Equal(t, tt.status, fc.Sufficiency.Status)
			assert.False(t, fc.Validity.Viable)
			assert.Equal(t, tt.reason, fc.Validity.Reason)
			for path, sig := range fc.Factors.Signals() {
				assert.Equal(t, models.StateUnknown, sig.State, path)
				assert.Equal(t, 0.0, sig.Confidence, path)
			}
			assert.Equal(t, models.StateUnknown, fc.Factors.Meta.FactorAlignment)
			assert.Equal(t, models.StateUnknown, fc.Factors.Momentum.Strength)
		})
	}
}

func TestBuild_MissingRegimeContext(t *testing.T) {
	root := t.TempDir()
	markettest.USStore(t, root, seriesStart, 400, 0.2, 15)
	w := window(markettest.Day(2023, 9, 1), markettest.Day(2023, 12, 1))

	_, err := newBuilder(root).Build(context.Background(), observeProfile(), w, t.TempDir())
	require.Error(t, err)

	var rce *regime.RegimeContextError
	assert.True(t, errors.As(err, &rce))
}

func TestBuild_MissingRatesIsUnknown(t *testing.T) {
	root := t.TempDir()
	markettest.WriteStore(t, root, "US",
		markettest.Trend("SPY", seriesStart, 300, 400, 0.1),
		markettest.Flat("VIX", seriesStart, 300, 18),
		markettest.Trend("QQQ", seriesStart, 300, 350, 0.1),
	)
	w := window(markettest.Day(2023, 6, 1), markettest.Day(2023, 9, 1))

	fc, err := newBuilder(root).Build(context.Background(), observeProfile(), w, windowDir(t, w))
	require.NoError(t, err)

	assert.Equal(t, models.StateUnknown, fc.Factors.Liquidity.Rates.State)
	assert.Equal(t, 0.0, fc.Factors.Liquidity.Rates.Confidence)
	assert.NotContains(t, fc.InputsUsed, "^TNX")
	assert.Contains(t, fc.Factors.Meta.Notes, "rates series ^TNX unavailable: liquidity unknown")
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := window(seriesStart, markettest.Day(2023, 12, 1))
	_, err := newBuilder(t.TempDir()).Build(ctx, observeProfile(), w, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func signal(state string) models.FactorSignal {
	return models.FactorSignal{State: state, Confidence: 0.6}
}

func TestMeta(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		accel       string
		persistence string
		breadth     string
		vol         string
		valueDisp   string
		alignment   string
		quality     string
		environment string
	}{
		{"broad uptrend", "strong", "accelerating", "persistent", "broad", "stable", "stable", "aligned", "clean", "mixed"},
		{"narrow uptrend", "strong", "flat", "persistent", "narrow", "stable", "stable", "conflicting", "clean", "mixed"},
		{"weak and expanding", "weak", "decelerating", "persistent", "narrow", "expanding", "stable", "aligned", "fragile", "hostile"},
		{"choppy", "neutral", "flat", "intermittent", "neutral", "contracting", "expanding", "mixed", "noisy", "favorable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &models.Factors{
				Momentum: models.MomentumFactors{
					Level:        signal(tt.level),
					Acceleration: signal(tt.accel),
					Persistence:  signal(tt.persistence),
					Dispersion:   signal("stable"),
				},
				Value:      models.ValueFactors{Dispersion: signal(tt.valueDisp)},
				Volatility: models.VolatilityFactors{Regime: signal(tt.vol)},
				Breadth:    signal(tt.breadth),
			}
			m := meta(f, nil)
			assert.Equal(t, tt.alignment, m.FactorAlignment)
			assert.Equal(t, tt.quality, m.MomentumQuality)
			assert.Equal(t, tt.environment, m.AlphaEnvironment)
			assert.NotNil(t, m.Notes)
		})
	}
}

func TestMomentumStrength(t *testing.T) {
	assert.Equal(t, "high", momentumStrength(models.MomentumFactors{Level: signal("strong"), Acceleration: signal("accelerating")}))
	assert.Equal(t, "low", momentumStrength(models.MomentumFactors{Level: signal("weak"), Acceleration: signal("decelerating")}))
	assert.Equal(t, "moderate", momentumStrength(models.MomentumFactors{Level: signal("neutral"), Acceleration: signal("flat")}))
	assert.Equal(t, models.StateUnknown, momentumStrength(models.MomentumFactors{Level: models.UnknownSignal()}))
}
