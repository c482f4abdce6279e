// Package factors derives the factor signals of a window from its regime
// context and the market series.
package factors

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/regime"
	"github.com/ternarybob/evharness/internal/signals"
)

// DisabledReason is the validity reason of a context whose observation was
// switched off by the profile
const DisabledReason = "factor observation disabled by profile"

// Builder builds factor contexts
type Builder struct {
	source          regime.SeriesSource
	minObservations int
	logger          arbor.ILogger
	now             func() time.Time
}

// NewBuilder creates a factor context builder
func NewBuilder(source regime.SeriesSource, minObservations int, logger arbor.ILogger) *Builder {
	if minObservations < signals.RegimeMinObservations {
		minObservations = signals.RegimeMinObservations
	}
	return &Builder{
		source:          source,
		minObservations: minObservations,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the computed_at clock
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build reads the window's regime context from dir, computes the factor
// context and writes factor_context.json next to it.
func (b *Builder) Build(ctx context.Context, profile *models.EvaluationProfile, window models.Window, dir string) (*models.FactorContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, err := regime.Load(dir, window.WindowID)
	if err != nil {
		return nil, err
	}

	fc, err := b.compute(profile, rc, window)
	if err != nil {
		return nil, err
	}

	if err := artifacts.WriteJSON(filepath.Join(dir, artifacts.FactorContext), fc); err != nil {
		return nil, fmt.Errorf("failed to persist factor context for %s: %w", window.WindowID, err)
	}

	b.logger.Info().
		Str("window_id", window.WindowID).
		Str("sufficiency", fc.Sufficiency.Status).
		Int("observations", fc.Sufficiency.Observations).
		Str("momentum", fc.Factors.Momentum.Level.State).
		Str("volatility", fc.Factors.Volatility.Regime.State).
		Msg("Factor context persisted")

	return fc, nil
}

func (b *Builder) compute(profile *models.EvaluationProfile, rc *models.RegimeContext, window models.Window) (*models.FactorContext, error) {
	def, ok := market.Lookup(rc.Market)
	if !ok {
		return nil, fmt.Errorf("unknown market %s in regime context", rc.Market)
	}

	fc := &models.FactorContext{
		Window:     window.Span(),
		Market:     def.Code,
		InputsUsed: []string{},
		ComputedAt: b.now(),
		Version:    models.FactorContextVersion,
		Sufficiency: models.Sufficiency{
			Required:    b.minObservations,
			RegimeInput: rc.RegimeCode,
		},
	}

	if profile.Factor != nil && profile.Factor.Observation == models.FactorDisable {
		failClosed(fc, models.SufficiencyDisabled, DisabledReason)
		return fc, nil
	}

	series, err := b.source.Load(def.Code, def.Symbols())
	if err != nil {
		return nil, fmt.Errorf("failed to load series for factors: %w", err)
	}

	bench := series[def.Benchmark].Truncate(window.End)
	fc.Sufficiency.Observations = bench.Len()
	if bench.Len() < b.minObservations {
		failClosed(fc, models.SufficiencyInsufficient,
			fmt.Sprintf("insufficient data: %d observations, %d required", bench.Len(), b.minObservations))
		return fc, nil
	}

	fc.InputsUsed = append(fc.InputsUsed, def.Benchmark)
	closes := bench.Closes()

	f := &fc.Factors
	level := signals.MomentumLevel(closes)
	acceleration := signals.MomentumAcceleration(closes)
	timeInState, _ := signals.TimeInState(closes)
	f.Momentum.Level = toSignal(level)
	f.Momentum.Acceleration = toSignal(acceleration)
	f.Momentum.TimeInState = toSignal(timeInState)
	f.Momentum.Persistence = toSignal(signals.Persistence(level, timeInState))

	var notes []string

	growth, hasGrowth := series[def.Growth]
	if hasGrowth {
		benchAligned, growthAligned := alignCloses(bench, growth.Truncate(window.End))
		fc.InputsUsed = append(fc.InputsUsed, def.Growth)
		breadth := toSignal(signals.Breadth(benchAligned, growthAligned))
		f.Breadth = breadth
		f.Momentum.Breadth = breadth
		f.Momentum.Dispersion = toSignal(signals.SpreadDispersion(benchAligned, growthAligned))
		f.Value.Spread = toSignal(signals.ValueSpread(benchAligned, growthAligned))
		f.Value.Dispersion = toSignal(signals.RelativeDispersion(benchAligned, growthAligned))
	} else {
		notes = append(notes, fmt.Sprintf("growth proxy %s unavailable: breadth and dispersion unknown", def.Growth))
		f.Breadth = models.UnknownSignal()
		f.Momentum.Breadth = models.UnknownSignal()
		f.Momentum.Dispersion = models.UnknownSignal()
		f.Value.Spread = models.UnknownSignal()
		f.Value.Dispersion = models.UnknownSignal()
	}

	f.Volatility.Regime = toSignal(signals.VolatilityRegime(closes))
	volLevel, volSource := volatilityLevel(def, series, closes, window.End)
	f.Volatility.Level = toSignal(signals.VolatilityLevel(volLevel, def.VolatilityThreshold))
	if volSource != "" {
		fc.InputsUsed = append(fc.InputsUsed, volSource)
	}

	if rates, ok := series[def.Rates]; ok {
		liquidity, scale := signals.Liquidity(rates.Truncate(window.End).Closes())
		f.Liquidity.Rates = toSignal(liquidity)
		f.Liquidity.Scale = scale
		if liquidity.Known() {
			fc.InputsUsed = append(fc.InputsUsed, def.Rates)
		}
	} else {
		f.Liquidity.Rates = models.UnknownSignal()
		notes = append(notes, fmt.Sprintf("rates series %s unavailable: liquidity unknown", def.Rates))
	}

	f.Momentum.Strength = momentumStrength(f.Momentum)
	f.Meta = meta(f, notes)

	sort.Strings(fc.InputsUsed)
	fc.Sufficiency.Status = models.SufficiencySufficient
	fc.Validity = models.Validity{Viable: true, Reason: fmt.Sprintf("%d observations available", bench.Len())}
	return fc, nil
}

// failClosed marks every factor UNKNOWN with zero confidence
func failClosed(fc *models.FactorContext, status, reason string) {
	u := models.UnknownSignal()
	fc.Factors = models.Factors{
		Momentum: models.MomentumFactors{
			Level: u, Acceleration: u, Persistence: u, Breadth: u, Dispersion: u, TimeInState: u,
			Strength: models.StateUnknown,
		},
		Value:      models.ValueFactors{Spread: u, Dispersion: u},
		Liquidity:  models.LiquidityFactors{Rates: u},
		Volatility: models.VolatilityFactors{Regime: u, Level: u},
		Breadth:    u,
		Meta: models.MetaFactors{
			FactorAlignment:  models.StateUnknown,
			MomentumQuality:  models.StateUnknown,
			AlphaEnvironment: models.StateUnknown,
			Notes:            []string{reason},
		},
	}
	fc.Sufficiency.Status = status
	fc.Validity = models.Validity{Viable: false, Reason: reason}
}

func toSignal(c signals.Classification) models.FactorSignal {
	if !c.Known() {
		return models.UnknownSignal()
	}
	return models.FactorSignal{State: c.State, Confidence: c.Confidence, Value: c.Value}
}

// alignCloses pairs two series on common dates
func alignCloses(a, b market.Series) ([]float64, []float64) {
	byDate := make(map[time.Time]float64, b.Len())
	for _, bar := range b.Bars {
		byDate[bar.Date] = bar.Close
	}
	var left, right []float64
	for _, bar := range a.Bars {
		if v, ok := byDate[bar.Date]; ok {
			left = append(left, bar.Close)
			right = append(right, v)
		}
	}
	return left, right
}

func volatilityLevel(def market.Definition, series map[string]market.Series, closes []float64, end time.Time) (float64, string) {
	if vol, ok := series[def.Volatility]; ok {
		if last, ok := vol.Truncate(end).Last(); ok && last.Close > 0 {
			return last.Close, def.Volatility
		}
	}
	return signals.RealizedVol(closes, signals.RealizedVolPeriod) * 100, ""
}
