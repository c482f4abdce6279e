package models

import "time"

// Watcher names double as artifact base names
const (
	WatcherMomentumEmergence    = "momentum_emergence"
	WatcherLiquidityCompression = "liquidity_compression"
	WatcherExpansionTransition  = "expansion_transition"
	WatcherDispersionBreakout   = "dispersion_breakout"
)

// WatcherEmission is the discrete diagnostic state a watcher derives from a
// factor context. EmittedAt is taken from the factor context so that the
// emission stays a pure function of its inputs.
type WatcherEmission struct {
	Watcher             string            `json:"watcher"`
	WindowID            string            `json:"window_id"`
	State               string            `json:"state"`
	ContributingFactors map[string]string `json:"contributing_factors"`
	Confidence          float64           `json:"confidence"`
	Notes               []string          `json:"notes"`
	EmittedAt           time.Time         `json:"emitted_at"`
}
