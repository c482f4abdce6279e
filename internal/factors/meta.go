package factors

import "github.com/ternarybob/evharness/internal/models"

func momentumStrength(m models.MomentumFactors) string {
	switch {
	case m.Level.State == "strong" && m.Acceleration.State == "accelerating":
		return "high"
	case m.Level.State == "weak" && m.Acceleration.State == "decelerating":
		return "low"
	case !m.Level.Known():
		return models.StateUnknown
	default:
		return "moderate"
	}
}

// meta summarises how the individual factors fit together
func meta(f *models.Factors, notes []string) models.MetaFactors {
	level := f.Momentum.Level.State
	breadth := f.Breadth.State
	vol := f.Volatility.Regime.State

	alignment := "mixed"
	switch {
	case level == "strong" && breadth == "broad" && vol != "expanding":
		alignment = "aligned"
	case level == "weak" && vol == "expanding":
		alignment = "aligned"
	case level == "strong" && (breadth == "narrow" || vol == "expanding"):
		alignment = "conflicting"
	}

	quality := "noisy"
	if f.Momentum.Persistence.State == "persistent" {
		quality = "clean"
		if f.Momentum.Acceleration.State == "decelerating" {
			quality = "fragile"
		}
	}

	environment := "mixed"
	switch {
	case vol == "expanding" && breadth == "narrow":
		environment = "hostile"
	case (f.Value.Dispersion.State == "expanding" || f.Momentum.Dispersion.State == "expanding") && vol != "expanding":
		environment = "favorable"
	}

	if notes == nil {
		notes = []string{}
	}
	return models.MetaFactors{
		FactorAlignment:  alignment,
		MomentumQuality:  quality,
		AlphaEnvironment: environment,
		Notes:            notes,
	}
}
