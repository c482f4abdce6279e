// Package eligibility resolves every registered strategy contract against the
// current regime and factor states.
package eligibility

import (
	"time"

	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/strategy"
)

// Resolver evaluates contracts from an immutable registry. It holds no
// mutable state.
type Resolver struct {
	registry *strategy.Registry
}

// NewResolver creates a resolver over the registry
func NewResolver(registry *strategy.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve computes the verdict for one strategy
func Resolve(def models.StrategyDefinition, regime string, factors models.FactorStates, at time.Time) models.EligibilityResult {
	regimeOK, regimeReason := CheckRegime(def.RegimeContract, regime)
	factorOK, factorReason := CheckFactors(def.FactorContract, factors)

	result := models.EligibilityResult{
		StrategyID:        def.StrategyID,
		StrategyName:      def.Name,
		Family:            def.Family,
		EligibilityStatus: models.StatusEligible,
		PrimaryBlocker:    models.BlockerNone,
		ActivationHint:    def.ActivationHint,
		ResolvedAt:        at,
	}
	if result.StrategyName == "" {
		result.StrategyName = def.StrategyID
	}
	if result.Family == "" {
		result.Family = "unknown"
	}

	if regimeOK && factorOK {
		return result
	}

	switch {
	case !regimeOK:
		result.PrimaryBlocker = models.BlockerRegime
		result.BlockingReason = regimeReason
	case !factorOK:
		result.PrimaryBlocker = models.BlockerFactor
		result.BlockingReason = factorReason
	default:
		result.PrimaryBlocker = models.BlockerSafety
		result.BlockingReason = "Unknown constraint"
	}

	if def.SafetyBehavior == models.SafetyDegrade {
		result.EligibilityStatus = models.StatusConditional
	} else {
		result.EligibilityStatus = models.StatusBlocked
	}
	return result
}

// ResolveAll resolves every strategy in registry order
func (r *Resolver) ResolveAll(regime string, factors models.FactorStates, at time.Time) *models.Resolution {
	current := make(models.FactorStates, len(factors))
	for k, v := range factors {
		current[k] = v
	}

	res := &models.Resolution{
		EvolutionVersion:    strategy.EvolutionVersion,
		EvolutionFrozenDate: strategy.EvolutionFrozenDate,
		ResolvedAt:          at,
		CurrentRegime:       regime,
		CurrentFactors:      current,
		Strategies:          make([]models.EligibilityResult, 0, r.registry.Len()),
	}

	for _, def := range r.registry.All() {
		result := Resolve(def, regime, current, at)
		res.Strategies = append(res.Strategies, result)
		res.Summary.Total++
		switch result.EligibilityStatus {
		case models.StatusEligible:
			res.Summary.Eligible++
		case models.StatusConditional:
			res.Summary.Conditional++
		default:
			res.Summary.Blocked++
		}
	}
	return res
}
