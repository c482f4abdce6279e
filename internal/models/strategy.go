package models

// SafetyBehavior decides how an ineligible strategy is reported
type SafetyBehavior string

const (
	SafetyBlock   SafetyBehavior = "block"
	SafetyDegrade SafetyBehavior = "degrade"
)

// RegimeContract lists regime codes a strategy accepts or refuses.
// Forbid takes precedence over Allow; an empty contract accepts any regime.
type RegimeContract struct {
	Allow  []string `json:"allow,omitempty"`
	Forbid []string `json:"forbid,omitempty"`
}

// FactorRequirement is the set of clauses a strategy places on one factor
type FactorRequirement struct {
	MinState    string   `json:"min_state,omitempty"`
	MaxState    string   `json:"max_state,omitempty"`
	ExactState  string   `json:"exact_state,omitempty"`
	MinVariance *float64 `json:"min_variance,omitempty"`
}

// StrategyDefinition is a declarative, read-only strategy contract
type StrategyDefinition struct {
	StrategyID     string                       `json:"strategy_id"`
	Name           string                       `json:"name"`
	Family         string                       `json:"family"`
	RegimeContract *RegimeContract              `json:"regime_contract,omitempty"`
	FactorContract map[string]FactorRequirement `json:"factor_contract,omitempty"`
	SafetyBehavior SafetyBehavior               `json:"safety_behavior"`
	ActivationHint string                       `json:"activation_hint,omitempty"`
}
