package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// EligibilityStatus is the permission verdict for a strategy
type EligibilityStatus string

const (
	StatusEligible    EligibilityStatus = "ELIGIBLE"
	StatusConditional EligibilityStatus = "CONDITIONAL"
	StatusBlocked     EligibilityStatus = "BLOCKED"
)

// Blocker names the contract that failed first
type Blocker string

const (
	BlockerNone   Blocker = ""
	BlockerRegime Blocker = "REGIME"
	BlockerFactor Blocker = "FACTOR"
	BlockerSafety Blocker = "SAFETY"
)

// FactorValue is the current value of a factor as seen by the resolver:
// either a discrete state or a number.
type FactorValue struct {
	State  string
	Number *float64
}

// StateValue builds a discrete factor value
func StateValue(state string) FactorValue {
	return FactorValue{State: state}
}

// NumericValue builds a numeric factor value
func NumericValue(v float64) FactorValue {
	return FactorValue{Number: &v}
}

// IsNumeric reports whether the value carries a number
func (v FactorValue) IsNumeric() bool {
	return v.Number != nil
}

func (v FactorValue) String() string {
	if v.Number != nil {
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	}
	return v.State
}

// MarshalJSON writes numbers as numbers and states as strings
func (v FactorValue) MarshalJSON() ([]byte, error) {
	if v.Number != nil {
		return json.Marshal(*v.Number)
	}
	return json.Marshal(v.State)
}

// UnmarshalJSON accepts either a number or a string
func (v *FactorValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		v.Number = &n
		v.State = ""
		return nil
	}
	v.Number = nil
	return json.Unmarshal(data, &v.State)
}

// FactorStates is the factor map a resolution is evaluated against
type FactorStates map[string]FactorValue

// EligibilityResult is the verdict for one strategy. It is recomputed on
// every resolution and only ever persisted inside a dated snapshot.
type EligibilityResult struct {
	StrategyID        string            `json:"strategy_id"`
	StrategyName      string            `json:"strategy_name"`
	Family            string            `json:"family"`
	EligibilityStatus EligibilityStatus `json:"eligibility_status"`
	PrimaryBlocker    Blocker           `json:"primary_blocker"`
	BlockingReason    string            `json:"blocking_reason"`
	ActivationHint    string            `json:"activation_hint"`
	ResolvedAt        time.Time         `json:"resolved_at"`
}

// ResolutionSummary counts verdicts
type ResolutionSummary struct {
	Total       int `json:"total"`
	Eligible    int `json:"eligible"`
	Conditional int `json:"conditional"`
	Blocked     int `json:"blocked"`
}

// Resolution is one dated eligibility snapshot across the whole registry
type Resolution struct {
	ID                  string              `json:"id" badgerhold:"key"`
	Namespace           string              `json:"namespace" badgerholdIndex:"Namespace"`
	WindowID            string              `json:"window_id"`
	EvolutionVersion    string              `json:"evolution_version"`
	EvolutionFrozenDate string              `json:"evolution_frozen_date"`
	ResolvedAt          time.Time           `json:"resolved_at"`
	CurrentRegime       string              `json:"current_regime"`
	CurrentFactors      FactorStates        `json:"current_factors"`
	Summary             ResolutionSummary   `json:"summary"`
	Strategies          []EligibilityResult `json:"strategies"`
}
