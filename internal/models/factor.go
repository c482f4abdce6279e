package models

import "time"

// FactorContextVersion is stamped into every factor context artifact
const FactorContextVersion = "1.3.0"

// StateUnknown marks a factor that could not be observed
const StateUnknown = "UNKNOWN"

// Sufficiency status values
const (
	SufficiencySufficient   = "SUFFICIENT"
	SufficiencyInsufficient = "INSUFFICIENT"
	SufficiencyDisabled     = "DISABLED"
)

// FactorSignal is a single observed factor state with its confidence
type FactorSignal struct {
	State      string   `json:"state"`
	Confidence float64  `json:"confidence"`
	Value      *float64 `json:"value,omitempty"`
}

// UnknownSignal is the fail-closed factor signal
func UnknownSignal() FactorSignal {
	return FactorSignal{State: StateUnknown, Confidence: 0.0}
}

// Known reports whether the signal carries an observed state
func (s FactorSignal) Known() bool {
	return s.State != "" && s.State != StateUnknown
}

type MomentumFactors struct {
	Level        FactorSignal `json:"level"`
	Acceleration FactorSignal `json:"acceleration"`
	Persistence  FactorSignal `json:"persistence"`
	Breadth      FactorSignal `json:"breadth"`
	Dispersion   FactorSignal `json:"dispersion"`
	TimeInState  FactorSignal `json:"time_in_state"`
	Strength     string       `json:"strength"`
}

type ValueFactors struct {
	Spread     FactorSignal `json:"spread"`
	Dispersion FactorSignal `json:"dispersion"`
}

type LiquidityFactors struct {
	Rates FactorSignal `json:"rates"`
	Scale string       `json:"scale"` // "index", "yield" or "" when unobserved
}

type VolatilityFactors struct {
	Regime FactorSignal `json:"regime"`
	Level  FactorSignal `json:"level"`
}

type MetaFactors struct {
	FactorAlignment  string   `json:"factor_alignment"`
	MomentumQuality  string   `json:"momentum_quality"`
	AlphaEnvironment string   `json:"alpha_environment"`
	Notes            []string `json:"notes"`
}

type Factors struct {
	Momentum   MomentumFactors   `json:"momentum"`
	Value      ValueFactors      `json:"value"`
	Liquidity  LiquidityFactors  `json:"liquidity"`
	Volatility VolatilityFactors `json:"volatility"`
	Breadth    FactorSignal      `json:"breadth"`
	Meta       MetaFactors       `json:"meta"`
}

type Sufficiency struct {
	Status       string `json:"status"`
	Observations int    `json:"observations"`
	Required     int    `json:"required"`
	RegimeInput  string `json:"regime_input"`
}

type Validity struct {
	Viable bool   `json:"viable"`
	Reason string `json:"reason"`
}

// FactorContext holds the derived factor signals of one window
type FactorContext struct {
	Window      WindowSpan  `json:"window"`
	Market      string      `json:"market"`
	Factors     Factors     `json:"factors"`
	Sufficiency Sufficiency `json:"sufficiency"`
	Validity    Validity    `json:"validity"`
	InputsUsed  []string    `json:"inputs_used"`
	ComputedAt  time.Time   `json:"computed_at"`
	Version     string      `json:"version"`
}

// Signals returns every factor signal keyed by its dotted path
func (f Factors) Signals() map[string]FactorSignal {
	return map[string]FactorSignal{
		"momentum.level":         f.Momentum.Level,
		"momentum.acceleration":  f.Momentum.Acceleration,
		"momentum.persistence":   f.Momentum.Persistence,
		"momentum.breadth":       f.Momentum.Breadth,
		"momentum.dispersion":    f.Momentum.Dispersion,
		"momentum.time_in_state": f.Momentum.TimeInState,
		"value.spread":           f.Value.Spread,
		"value.dispersion":       f.Value.Dispersion,
		"liquidity.rates":        f.Liquidity.Rates,
		"volatility.regime":      f.Volatility.Regime,
		"volatility.level":       f.Volatility.Level,
		"breadth":                f.Breadth,
	}
}
