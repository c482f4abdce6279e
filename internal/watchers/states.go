package watchers

import "github.com/ternarybob/evharness/internal/models"

// Resolver factor names
const (
	FactorMomentum         = "momentum"
	FactorExpansion        = "expansion"
	FactorDispersion       = "dispersion"
	FactorLiquidity        = "liquidity"
	FactorVolatilityFactor = "volatility_factor"
)

var emissionStates = map[string]map[string]string{
	models.WatcherMomentumEmergence: {
		EmergingAttempt:    "EMERGING",
		EmergingConfirming: "EMERGING",
		EmergingPersistent: "CONFIRMED",
	},
	models.WatcherExpansionTransition: {
		EarlyExpansion:     "EARLY",
		ConfirmedExpansion: "CONFIRMED",
	},
	models.WatcherDispersionBreakout: {
		EarlyBreakout:     "EARLY",
		ConfirmedBreakout: "BREAKOUT",
	},
	models.WatcherLiquidityCompression: {
		Compressed: "COMPRESSED",
		Expanding:  "STRESSED",
	},
}

var factorFor = map[string]string{
	models.WatcherMomentumEmergence:    FactorMomentum,
	models.WatcherExpansionTransition:  FactorExpansion,
	models.WatcherDispersionBreakout:   FactorDispersion,
	models.WatcherLiquidityCompression: FactorLiquidity,
}

// FactorStates maps watcher emissions onto the factor states the eligibility
// resolver evaluates. Missing emissions resolve to the bottom of their order.
// volatility_factor carries the realised volatility ratio and is omitted when
// it was not observed.
func FactorStates(emissions []models.WatcherEmission, fc *models.FactorContext) models.FactorStates {
	states := models.FactorStates{
		FactorMomentum:   models.StateValue("NONE"),
		FactorExpansion:  models.StateValue("NONE"),
		FactorDispersion: models.StateValue("NONE"),
		FactorLiquidity:  models.StateValue("NEUTRAL"),
	}

	for _, e := range emissions {
		factor, ok := factorFor[e.Watcher]
		if !ok {
			continue
		}
		if mapped, ok := emissionStates[e.Watcher][e.State]; ok {
			states[factor] = models.StateValue(mapped)
		}
	}

	if fc != nil && fc.Factors.Volatility.Regime.Known() && fc.Factors.Volatility.Regime.Value != nil {
		states[FactorVolatilityFactor] = models.NumericValue(*fc.Factors.Volatility.Regime.Value)
	}
	return states
}
