package strategy

import "github.com/ternarybob/evharness/internal/models"

func variance(v float64) *float64 {
	return &v
}

// defaultDefinitions is the frozen v1 strategy universe
func defaultDefinitions() []models.StrategyDefinition {
	return []models.StrategyDefinition{
		{
			StrategyID:     "STRAT_MOM_TREND_V1",
			Name:           "Trend-Following Momentum",
			Family:         "momentum",
			RegimeContract: &models.RegimeContract{Allow: []string{"BULLISH"}},
			FactorContract: map[string]models.FactorRequirement{
				"momentum": {MinState: "CONFIRMED"},
			},
			SafetyBehavior: models.SafetyBlock,
			ActivationHint: "Requires confirmed momentum in a bullish regime",
		},
		{
			StrategyID:     "STRAT_MOM_BREAKOUT_V1",
			Name:           "Momentum Breakout",
			Family:         "momentum",
			RegimeContract: &models.RegimeContract{Forbid: []string{"BEARISH", "BEAR_RISK_OFF"}},
			FactorContract: map[string]models.FactorRequirement{
				"momentum":  {MinState: "EMERGING"},
				"expansion": {MinState: "EARLY"},
			},
			SafetyBehavior: models.SafetyBlock,
			ActivationHint: "Activates on emerging momentum with early volatility expansion",
		},
		{
			StrategyID:     "STRAT_MOM_PULLBACK_V1",
			Name:           "Pullback Continuation",
			Family:         "momentum",
			RegimeContract: &models.RegimeContract{Allow: []string{"BULLISH", "NEUTRAL"}},
			FactorContract: map[string]models.FactorRequirement{
				"momentum":  {MinState: "EMERGING"},
				"liquidity": {MaxState: "COMPRESSED"},
			},
			SafetyBehavior: models.SafetyDegrade,
			ActivationHint: "Buys pullbacks inside an established trend while liquidity is not stressed",
		},
		{
			StrategyID:     "STRAT_VOL_EXPANSION_V1",
			Name:           "Volatility Expansion Capture",
			Family:         "volatility",
			RegimeContract: &models.RegimeContract{Forbid: []string{"UNKNOWN"}},
			FactorContract: map[string]models.FactorRequirement{
				"expansion":         {MinState: "CONFIRMED"},
				"volatility_factor": {MinVariance: variance(1.2)},
			},
			SafetyBehavior: models.SafetyBlock,
			ActivationHint: "Requires confirmed expansion and a short/long volatility ratio of at least 1.2",
		},
		{
			StrategyID: "STRAT_VOL_COMPRESSION_V1",
			Name:       "Compression Breakout Setup",
			Family:     "volatility",
			FactorContract: map[string]models.FactorRequirement{
				"liquidity": {ExactState: "COMPRESSED"},
			},
			SafetyBehavior: models.SafetyDegrade,
			ActivationHint: "Positions for release of a compressed market",
		},
		{
			StrategyID:     "STRAT_MR_RANGE_V1",
			Name:           "Range Mean Reversion",
			Family:         "mean_reversion",
			RegimeContract: &models.RegimeContract{Allow: []string{"NEUTRAL"}},
			FactorContract: map[string]models.FactorRequirement{
				"momentum":  {MaxState: "NONE"},
				"expansion": {MaxState: "NONE"},
			},
			SafetyBehavior: models.SafetyBlock,
			ActivationHint: "Trades ranges only when neither momentum nor expansion is present",
		},
		{
			StrategyID:     "STRAT_MR_OVERSOLD_V1",
			Name:           "Oversold Bounce",
			Family:         "mean_reversion",
			RegimeContract: &models.RegimeContract{Allow: []string{"BEARISH", "NEUTRAL", "BEAR_RISK_OFF"}},
			FactorContract: map[string]models.FactorRequirement{
				"liquidity": {MaxState: "COMPRESSED"},
			},
			SafetyBehavior: models.SafetyDegrade,
			ActivationHint: "Fades capitulation while liquidity has not reached stress",
		},
		{
			StrategyID: "STRAT_VALUE_DISPERSION_V1",
			Name:       "Cross-Sectional Dispersion",
			Family:     "value",
			FactorContract: map[string]models.FactorRequirement{
				"dispersion": {MinState: "BREAKOUT"},
			},
			SafetyBehavior: models.SafetyBlock,
			ActivationHint: "Requires a persistent dispersion breakout",
		},
		{
			StrategyID:     "STRAT_DEF_QUALITY_V1",
			Name:           "Defensive Quality Tilt",
			Family:         "defensive",
			RegimeContract: &models.RegimeContract{Allow: []string{"BEARISH", "BEAR_RISK_OFF", "NEUTRAL"}},
			SafetyBehavior: models.SafetyDegrade,
			ActivationHint: "Defensive allocation outside bullish regimes",
		},
		{
			StrategyID: "STRAT_MACRO_CURVE_V1",
			Name:       "Yield Curve Steepener",
			Family:     "macro",
			FactorContract: map[string]models.FactorRequirement{
				"yield_curve": {MinState: "STEEPENING"},
			},
			SafetyBehavior: models.SafetyBlock,
			ActivationHint: "Waits on a yield curve factor that is not yet measured",
		},
		{
			StrategyID:     "STRAT_VOL_PREMIUM_V1",
			Name:           "Volatility Risk Premium Harvest",
			Family:         "volatility",
			RegimeContract: &models.RegimeContract{Forbid: []string{"BEARISH", "BEAR_RISK_OFF"}},
			FactorContract: map[string]models.FactorRequirement{
				"vrp": {MinVariance: variance(0.0)},
			},
			SafetyBehavior: models.SafetyDegrade,
			ActivationHint: "Waits on a variance risk premium factor that is not yet measured",
		},
	}
}

// DefaultRegistry returns the frozen v1 registry
func DefaultRegistry() *Registry {
	r, err := NewRegistry(defaultDefinitions()...)
	if err != nil {
		panic(err)
	}
	return r
}
