package models

import "time"

// Regime codes produced by detection. Forced profiles may use any code.
const (
	RegimeBullish = "BULLISH"
	RegimeBearish = "BEARISH"
	RegimeNeutral = "NEUTRAL"
	RegimeUnknown = "UNKNOWN"
)

// RegimeContextVersion is stamped into every regime context artifact
const RegimeContextVersion = "1.1.0"

// ViabilityStatus is the verdict of the market data viability check
type ViabilityStatus string

const (
	ViabilityViable    ViabilityStatus = "VIABLE"
	ViabilityDegraded  ViabilityStatus = "DEGRADED"
	ViabilityNotViable ViabilityStatus = "NOT_VIABLE"
)

// BlockingReason explains why regime state cannot be constructed
type BlockingReason string

const (
	BlockingMissingSymbol        BlockingReason = "MISSING_SYMBOL"
	BlockingInsufficientHistory  BlockingReason = "INSUFFICIENT_HISTORY"
	BlockingTemporalMisalignment BlockingReason = "TEMPORAL_MISALIGNMENT"
	BlockingMultipleIssues       BlockingReason = "MULTIPLE_ISSUES"
)

// Viability records the data sufficiency verdict for a window
type Viability struct {
	Viable           bool             `json:"viable"`
	Reason           string           `json:"reason"`
	Status           ViabilityStatus  `json:"status"`
	BlockingReasons  []BlockingReason `json:"blocking_reasons"`
	MissingInputs    []string         `json:"missing_inputs"`
	DegradationNotes []string         `json:"degradation_notes"`
}

// RegimeDetection carries the inputs behind a detected regime
type RegimeDetection struct {
	Observations        int     `json:"observations"`
	Close               float64 `json:"close"`
	SMA50               float64 `json:"sma50"`
	SMA200              float64 `json:"sma200,omitempty"`
	VolatilityLevel     float64 `json:"volatility_level"`
	VolatilityThreshold float64 `json:"volatility_threshold"`
	VolatilitySource    string  `json:"volatility_source"`
	Reason              string  `json:"reason"`
}

// RegimeContext is the authoritative regime of one window. It is written once
// and consumed read-only by every later stage of that window.
type RegimeContext struct {
	RegimeLabel      string           `json:"regime_label"`
	RegimeCode       string           `json:"regime_code"`
	Market           string           `json:"market"`
	Window           WindowSpan       `json:"window"`
	InputsUsed       []string         `json:"inputs_used"`
	Viability        Viability        `json:"viability"`
	IsCounterfactual bool             `json:"is_counterfactual"`
	Rationale        string           `json:"rationale,omitempty"`
	Detection        *RegimeDetection `json:"detection,omitempty"`
	ComputedAt       time.Time        `json:"computed_at"`
	Version          string           `json:"version"`
}

// RegimeLabelFor returns the human label for a detected regime code
func RegimeLabelFor(code string) string {
	switch code {
	case RegimeBullish:
		return "Bullish Trend"
	case RegimeBearish:
		return "Bearish Trend"
	case RegimeNeutral:
		return "Range-Bound / Mixed"
	default:
		return "Insufficient Data"
	}
}
