package eligibility

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/strategy"
)

var resolvedAt = time.Date(2026, 1, 29, 12, 0, 0, 0, time.UTC)

func minVariance(v float64) *float64 { return &v }

func states(kv ...string) models.FactorStates {
	out := models.FactorStates{}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = models.StateValue(kv[i+1])
	}
	return out
}

func TestCheckRegime(t *testing.T) {
	tests := []struct {
		name     string
		contract *models.RegimeContract
		regime   string
		ok       bool
		reason   string
	}{
		{"nil contract", nil, "BULLISH", true, ""},
		{"empty contract", &models.RegimeContract{}, "BULLISH", true, ""},
		{"allowed", &models.RegimeContract{Allow: []string{"BULLISH"}}, "BULLISH", true, ""},
		{"not allowed", &models.RegimeContract{Allow: []string{"BEARISH"}}, "BULLISH", false, "Regime BULLISH not allowed"},
		{"forbidden", &models.RegimeContract{Forbid: []string{"BULLISH"}}, "BULLISH", false, "Regime BULLISH forbidden"},
		{"not forbidden", &models.RegimeContract{Forbid: []string{"BEARISH"}}, "BULLISH", true, ""},
		{"forbid beats allow", &models.RegimeContract{Allow: []string{"BULLISH"}, Forbid: []string{"BULLISH"}}, "BULLISH", false, "Regime BULLISH forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CheckRegime(tt.contract, tt.regime)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCheckFactors(t *testing.T) {
	tests := []struct {
		name     string
		contract map[string]models.FactorRequirement
		factors  models.FactorStates
		ok       bool
		reason   string
	}{
		{"empty contract", nil, states(), true, ""},
		{"min met", map[string]models.FactorRequirement{"momentum": {MinState: "EMERGING"}}, states("momentum", "CONFIRMED"), true, ""},
		{"min not met", map[string]models.FactorRequirement{"momentum": {MinState: "CONFIRMED"}}, states("momentum", "EMERGING"), false, "momentum: EMERGING < CONFIRMED"},
		{"max exceeded", map[string]models.FactorRequirement{"liquidity": {MaxState: "COMPRESSED"}}, states("liquidity", "STRESSED"), false, "liquidity: STRESSED > COMPRESSED"},
		{"exact mismatch", map[string]models.FactorRequirement{"liquidity": {ExactState: "COMPRESSED"}}, states("liquidity", "NEUTRAL"), false, "liquidity: NEUTRAL != COMPRESSED"},
		{"missing factor", map[string]models.FactorRequirement{"expansion": {MinState: "EARLY"}}, states("momentum", "CONFIRMED"), false, "Factor value for expansion not available"},
		{"external factor", map[string]models.FactorRequirement{"yield_curve": {MinState: "STEEPENING"}}, states(), false, "yield_curve not yet measured"},
		{"external factor without clauses", map[string]models.FactorRequirement{"yield_curve": {}}, states(), false, "yield_curve not yet measured"},
		{"external factor even when reported", map[string]models.FactorRequirement{"vrp": {}}, states("vrp", "HIGH"), false, "vrp not yet measured"},
		{
			"external factor ordered by name",
			map[string]models.FactorRequirement{"yield_curve": {}, "momentum": {MinState: "CONFIRMED"}},
			states("momentum", "EMERGING"),
			false, "momentum: EMERGING < CONFIRMED",
		},
		{"state outside order", map[string]models.FactorRequirement{"momentum": {MinState: "EMERGING"}}, states("momentum", "SIDEWAYS"), false, "momentum: state 'SIDEWAYS' not in momentum order"},
		{
			"variance met",
			map[string]models.FactorRequirement{"volatility_factor": {MinVariance: minVariance(1.2)}},
			models.FactorStates{"volatility_factor": models.NumericValue(1.35)},
			true, "",
		},
		{
			"variance below",
			map[string]models.FactorRequirement{"volatility_factor": {MinVariance: minVariance(1.2)}},
			models.FactorStates{"volatility_factor": models.NumericValue(0.9)},
			false, "volatility_factor: 0.900 < required min 1.2",
		},
		{
			"variance below whole threshold",
			map[string]models.FactorRequirement{"volatility_factor": {MinVariance: minVariance(2)}},
			models.FactorStates{"volatility_factor": models.NumericValue(1.5)},
			false, "volatility_factor: 1.500 < required min 2.0",
		},
		{
			"variance non numeric",
			map[string]models.FactorRequirement{"volatility_factor": {MinVariance: minVariance(1.2)}},
			states("volatility_factor", "high"),
			false, "Factor volatility_factor has non-numeric value 'high'",
		},
		{
			"variance missing is not zero",
			map[string]models.FactorRequirement{"volatility_factor": {MinVariance: minVariance(0)}},
			states(),
			false, "Factor value for volatility_factor not available",
		},
		{
			"first failing factor by name",
			map[string]models.FactorRequirement{"momentum": {MinState: "CONFIRMED"}, "expansion": {MinState: "CONFIRMED"}},
			states("momentum", "NONE", "expansion", "EARLY"),
			false, "expansion: EARLY < CONFIRMED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CheckFactors(tt.contract, tt.factors)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestMinStateIsMonotonic(t *testing.T) {
	contract := map[string]models.FactorRequirement{"momentum": {MinState: "CONFIRMED"}}
	for state, want := range map[string]bool{"NONE": false, "EMERGING": false, "CONFIRMED": true} {
		ok, _ := CheckFactors(contract, states("momentum", state))
		assert.Equal(t, want, ok, state)
	}
}

func TestCompile_Order(t *testing.T) {
	comps := Compile(map[string]models.FactorRequirement{
		"momentum":  {MinState: "EMERGING", MaxState: "CONFIRMED", ExactState: "EMERGING", MinVariance: minVariance(1)},
		"expansion": {MaxState: "EARLY"},
	})
	require.Len(t, comps, 5)
	assert.Equal(t, "expansion", comps[0].Factor)
	assert.Equal(t, []Op{OpMaxState, OpMinState, OpMaxState, OpExactState, OpMinVariance},
		[]Op{comps[0].Op, comps[1].Op, comps[2].Op, comps[3].Op, comps[4].Op})
}

func TestCompile_ExternalFactor(t *testing.T) {
	comps := Compile(map[string]models.FactorRequirement{
		"yield_curve": {},
		"vrp":         {MinState: "LOW", MinVariance: minVariance(1)},
	})
	require.Len(t, comps, 2)
	for _, c := range comps {
		assert.Equal(t, OpMeasured, c.Op, c.Factor)
	}
}

func TestFormatThreshold(t *testing.T) {
	assert.Equal(t, "2.0", formatThreshold(2))
	assert.Equal(t, "0.0", formatThreshold(0))
	assert.Equal(t, "1.2", formatThreshold(1.2))
	assert.Equal(t, "1.35", formatThreshold(1.35))
}

func TestResolve(t *testing.T) {
	def := models.StrategyDefinition{
		StrategyID:     "S1",
		Name:           "Trend",
		Family:         "momentum",
		RegimeContract: &models.RegimeContract{Allow: []string{"BULLISH"}},
		FactorContract: map[string]models.FactorRequirement{"momentum": {MinState: "CONFIRMED"}},
		SafetyBehavior: models.SafetyBlock,
	}

	eligible := Resolve(def, "BULLISH", states("momentum", "CONFIRMED"), resolvedAt)
	assert.Equal(t, models.StatusEligible, eligible.EligibilityStatus)
	assert.Equal(t, models.BlockerNone, eligible.PrimaryBlocker)
	assert.Empty(t, eligible.BlockingReason)

	factorBlocked := Resolve(def, "BULLISH", states("momentum", "EMERGING"), resolvedAt)
	assert.Equal(t, models.StatusBlocked, factorBlocked.EligibilityStatus)
	assert.Equal(t, models.BlockerFactor, factorBlocked.PrimaryBlocker)
	assert.Equal(t, "momentum: EMERGING < CONFIRMED", factorBlocked.BlockingReason)

	both := Resolve(def, "BEARISH", states("momentum", "NONE"), resolvedAt)
	assert.Equal(t, models.BlockerRegime, both.PrimaryBlocker)
	assert.Equal(t, "Regime BEARISH not allowed", both.BlockingReason)

	def.SafetyBehavior = models.SafetyDegrade
	degraded := Resolve(def, "BEARISH", states("momentum", "NONE"), resolvedAt)
	assert.Equal(t, models.StatusConditional, degraded.EligibilityStatus)
	assert.Equal(t, models.BlockerRegime, degraded.PrimaryBlocker)
	assert.Equal(t, "Regime BEARISH not allowed", degraded.BlockingReason)
}

func TestResolveAll(t *testing.T) {
	registry := strategy.DefaultRegistry()
	r := NewResolver(registry)

	factors := states("momentum", "CONFIRMED", "expansion", "NONE", "dispersion", "NONE", "liquidity", "NEUTRAL")
	res := r.ResolveAll("BULLISH", factors, resolvedAt)

	assert.Equal(t, strategy.EvolutionVersion, res.EvolutionVersion)
	assert.Equal(t, strategy.EvolutionFrozenDate, res.EvolutionFrozenDate)
	assert.Equal(t, registry.Len(), res.Summary.Total)
	assert.Equal(t, res.Summary.Total, res.Summary.Eligible+res.Summary.Conditional+res.Summary.Blocked)
	require.Len(t, res.Strategies, registry.Len())
	for i, id := range registry.IDs() {
		assert.Equal(t, id, res.Strategies[i].StrategyID)
	}

	byID := map[string]models.EligibilityResult{}
	for _, s := range res.Strategies {
		byID[s.StrategyID] = s
	}
	assert.Equal(t, models.StatusEligible, byID["STRAT_MOM_TREND_V1"].EligibilityStatus)
	assert.Equal(t, "Regime BULLISH not allowed", byID["STRAT_DEF_QUALITY_V1"].BlockingReason)
	assert.Equal(t, models.StatusConditional, byID["STRAT_DEF_QUALITY_V1"].EligibilityStatus)
	assert.Equal(t, "yield_curve not yet measured", byID["STRAT_MACRO_CURVE_V1"].BlockingReason)
	assert.Equal(t, "expansion: NONE < CONFIRMED", byID["STRAT_VOL_EXPANSION_V1"].BlockingReason)

	// caller's map is not shared with the resolution
	factors["momentum"] = models.StateValue("NONE")
	assert.Equal(t, "CONFIRMED", res.CurrentFactors["momentum"].State)
}

func TestResolveAll_ForbidPrecedence(t *testing.T) {
	registry, err := strategy.NewRegistry(models.StrategyDefinition{
		StrategyID:     "S1",
		RegimeContract: &models.RegimeContract{Allow: []string{"BEAR_RISK_OFF"}, Forbid: []string{"BEAR_RISK_OFF"}},
		SafetyBehavior: models.SafetyDegrade,
	})
	require.NoError(t, err)

	res := NewResolver(registry).ResolveAll("BEAR_RISK_OFF", states(), resolvedAt)
	assert.NotEqual(t, models.StatusEligible, res.Strategies[0].EligibilityStatus)
	assert.Equal(t, "Regime BEAR_RISK_OFF forbidden", res.Strategies[0].BlockingReason)
}

type memorySnapshots struct {
	saved map[string]*models.Resolution
}

func (m *memorySnapshots) SaveSnapshot(ctx context.Context, res *models.Resolution) error {
	m.saved[res.ID] = res
	return nil
}

func (m *memorySnapshots) GetSnapshot(ctx context.Context, id string) (*models.Resolution, error) {
	res, ok := m.saved[id]
	if !ok {
		return nil, interfaces.ErrKeyNotFound
	}
	return res, nil
}

func (m *memorySnapshots) ListSnapshotsByNamespace(ctx context.Context, namespace string) ([]*models.Resolution, error) {
	var out []*models.Resolution
	for _, res := range m.saved {
		if res.Namespace == namespace {
			out = append(out, res)
		}
	}
	return out, nil
}

func TestSnapshot(t *testing.T) {
	root := t.TempDir()
	store := &memorySnapshots{saved: map[string]*models.Resolution{}}
	s := NewSnapshotter(artifacts.NewLayout(root), store, arbor.NewLogger())

	res := NewResolver(strategy.DefaultRegistry()).ResolveAll("NEUTRAL", states("momentum", "NONE"), resolvedAt)
	path, err := s.Snapshot(context.Background(), "ns1", "W001_20230101_20230401", res)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "evolution", "eligibility", "ns1", "W001_20230101_20230401", "2026-01-29.json"), path)
	assert.Equal(t, "ns1/W001_20230101_20230401/2026-01-29", res.ID)

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, res.Summary, loaded.Summary)
	assert.Equal(t, res.CurrentFactors, loaded.CurrentFactors)

	stored, err := store.GetSnapshot(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "ns1", stored.Namespace)
}
