// Package watchers turns a factor context into discrete diagnostic states.
// Watchers are read-only observers: they never feed back into the factor or
// regime stages and a failing watcher never fails its window.
package watchers

import (
	"github.com/ternarybob/evharness/internal/models"
)

// Emission states
const (
	StateNone = "NONE"

	EmergingPersistent = "EMERGING_PERSISTENT"
	EmergingConfirming = "EMERGING_CONFIRMING"
	EmergingAttempt    = "EMERGING_ATTEMPT"

	Compressed = "COMPRESSED"
	Expanding  = "EXPANDING"
	Neutral    = "NEUTRAL"

	ConfirmedExpansion = "CONFIRMED_EXPANSION"
	EarlyExpansion     = "EARLY_EXPANSION"

	ConfirmedBreakout = "CONFIRMED_BREAKOUT"
	EarlyBreakout     = "EARLY_BREAKOUT"
)

// WatchFunc derives one emission from a factor context
type WatchFunc func(windowID string, fc *models.FactorContext) models.WatcherEmission

// Watcher is a named watch function
type Watcher struct {
	Name  string
	Watch WatchFunc
}

// Defaults returns the four standard watchers in emission order
func Defaults() []Watcher {
	return []Watcher{
		{Name: models.WatcherMomentumEmergence, Watch: MomentumEmergence},
		{Name: models.WatcherLiquidityCompression, Watch: LiquidityCompression},
		{Name: models.WatcherExpansionTransition, Watch: ExpansionTransition},
		{Name: models.WatcherDispersionBreakout, Watch: DispersionBreakout},
	}
}

// stateOr returns the observed state or the fallback for unobserved signals
func stateOr(s models.FactorSignal, fallback string) string {
	if !s.Known() {
		return fallback
	}
	return s.State
}

func emission(name, windowID string, fc *models.FactorContext, state string, confidence float64, note string, factors map[string]string) models.WatcherEmission {
	notes := []string{note}
	if !fc.Validity.Viable && fc.Validity.Reason != "" {
		notes = append(notes, "factor context not viable: "+fc.Validity.Reason)
	}
	return models.WatcherEmission{
		Watcher:             name,
		WindowID:            windowID,
		State:               state,
		ContributingFactors: factors,
		Confidence:          confidence,
		Notes:               notes,
		EmittedAt:           fc.ComputedAt,
	}
}

// MomentumEmergence tracks momentum formation:
// NONE -> EMERGING_ATTEMPT -> EMERGING_CONFIRMING -> EMERGING_PERSISTENT.
func MomentumEmergence(windowID string, fc *models.FactorContext) models.WatcherEmission {
	m := fc.Factors.Momentum
	accel := stateOr(m.Acceleration, "unknown")
	breadth := stateOr(m.Breadth, "unknown")
	dispersion := stateOr(m.Dispersion, "unknown")
	persistence := stateOr(m.Persistence, "unknown")
	tis := stateOr(m.TimeInState, "unknown")

	state, confidence, note := StateNone, 0.0, "No emergence conditions met."
	switch {
	case persistence == "persistent" && (tis == "medium" || tis == "long"):
		state, confidence, note = EmergingPersistent, 0.9, "Structurally entrenched momentum state."
	case accel == "accelerating" && breadth == "broad" && dispersion == "expanding":
		state, confidence, note = EmergingConfirming, 0.7, "Broad-based acceleration confirmed."
	case accel == "accelerating" && tis == "short":
		state, confidence, note = EmergingAttempt, 0.4, "Early acceleration detected."
	}

	return emission(models.WatcherMomentumEmergence, windowID, fc, state, confidence, note, map[string]string{
		"acceleration":  accel,
		"breadth":       breadth,
		"dispersion":    dispersion,
		"persistence":   persistence,
		"time_in_state": tis,
	})
}

// LiquidityCompression reads volatility and value dispersion for coiling or
// expanding conditions.
func LiquidityCompression(windowID string, fc *models.FactorContext) models.WatcherEmission {
	vol := stateOr(fc.Factors.Volatility.Regime, "stable")
	dispersion := stateOr(fc.Factors.Value.Dispersion, "stable")

	state, confidence, note := Neutral, 0.5, "Market in steady state."
	switch {
	case vol == "contracting" || (dispersion == "contracting" && vol != "expanding"):
		state, confidence, note = Compressed, 0.8, "Volatility or dispersion contracting; market coiling."
	case vol == "expanding" || dispersion == "expanding":
		state, confidence, note = Expanding, 0.8, "Volatility or opportunity set expanding."
	}

	return emission(models.WatcherLiquidityCompression, windowID, fc, state, confidence, note, map[string]string{
		"volatility_regime": vol,
		"dispersion_state":  dispersion,
	})
}

// ExpansionTransition detects volatility expansion and whether breadth or
// dispersion confirms it.
func ExpansionTransition(windowID string, fc *models.FactorContext) models.WatcherEmission {
	vol := stateOr(fc.Factors.Volatility.Regime, "stable")
	breadth := stateOr(fc.Factors.Momentum.Breadth, "narrow")
	dispersion := stateOr(fc.Factors.Value.Dispersion, "stable")

	state, confidence, note := StateNone, 0.5, "Stagnant or stable conditions."
	if vol == "expanding" {
		if breadth == "broad" || dispersion == "expanding" {
			state, confidence, note = ConfirmedExpansion, 0.8, "Broad-based volatility expansion."
		} else {
			state, confidence, note = EarlyExpansion, 0.6, "Volatility expanding without breadth or dispersion confirmation."
		}
	}

	return emission(models.WatcherExpansionTransition, windowID, fc, state, confidence, note, map[string]string{
		"volatility": vol,
		"breadth":    breadth,
		"dispersion": dispersion,
	})
}

// DispersionBreakout detects an expanding opportunity set
func DispersionBreakout(windowID string, fc *models.FactorContext) models.WatcherEmission {
	dispersion := stateOr(fc.Factors.Value.Dispersion, "stable")
	persistence := stateOr(fc.Factors.Momentum.Persistence, "intermittent")

	state, confidence, note := StateNone, 0.5, "Dispersion stable or contracting."
	if dispersion == "expanding" {
		if persistence == "persistent" {
			state, confidence, note = ConfirmedBreakout, 0.8, "Persistent dispersion expansion."
		} else {
			state, confidence, note = EarlyBreakout, 0.6, "Dispersion expanding but intermittent."
		}
	}

	return emission(models.WatcherDispersionBreakout, windowID, fc, state, confidence, note, map[string]string{
		"dispersion":  dispersion,
		"persistence": persistence,
	})
}
