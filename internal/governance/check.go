// Package governance holds the shadow-only safety checks and writes the
// evolution ledger and documentation-impact declarations of each run.
package governance

import (
	"github.com/ternarybob/evharness/internal/models"
)

// CheckProfile re-asserts the execution invariants at the point where run
// evidence is emitted. Profiles are validated on load; this guards against a
// profile mutated or constructed in code after validation.
func CheckProfile(p *models.EvaluationProfile) error {
	if p == nil {
		return &InvariantError{Subject: "profile", Rule: "profile is required"}
	}
	if p.Execution == nil || !p.Execution.ShadowOnly {
		return &InvariantError{Subject: p.ProfileID, Rule: "execution.shadow_only must be True"}
	}
	if p.Invariants == nil {
		return &InvariantError{Subject: p.ProfileID, Rule: "invariants section is required"}
	}
	if !p.Invariants.ForbidRealExecution {
		return &InvariantError{Subject: p.ProfileID, Rule: "invariants.forbid_real_execution must be True"}
	}
	if !p.Invariants.ForbidStrategyMutation {
		return &InvariantError{Subject: p.ProfileID, Rule: "invariants.forbid_strategy_mutation must be True"}
	}
	if !p.Invariants.ForbidRegimeFallback {
		return &InvariantError{Subject: p.ProfileID, Rule: "invariants.forbid_regime_fallback must be True"}
	}
	return nil
}

// CheckSafetyBehavior rejects strategy safety behaviours other than the two
// shadow-safe ones.
func CheckSafetyBehavior(strategyID string, behavior models.SafetyBehavior) error {
	switch behavior {
	case models.SafetyBlock, models.SafetyDegrade:
		return nil
	default:
		return &InvariantError{
			Subject: strategyID,
			Rule:    "safety_behavior must be block or degrade",
			Detail:  string(behavior),
		}
	}
}
