// Package regime establishes the authoritative regime of each evaluation
// window and persists it as a write-once context.
package regime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/signals"
)

// SeriesSource supplies read-only market series
type SeriesSource interface {
	Load(marketCode string, symbols []string) (map[string]market.Series, error)
}

// Options tune data sufficiency checks
type Options struct {
	MinObservations int
	AlignmentDays   int
	DefaultMarket   string
}

// Builder builds regime contexts
type Builder struct {
	source     SeriesSource
	opts       Options
	classifier *signals.RegimeClassifier
	logger     arbor.ILogger
	now        func() time.Time
}

// NewBuilder creates a regime context builder
func NewBuilder(source SeriesSource, opts Options, logger arbor.ILogger) *Builder {
	if opts.MinObservations <= 0 {
		opts.MinObservations = signals.RegimeMinObservations
	}
	if opts.AlignmentDays <= 0 {
		opts.AlignmentDays = 5
	}
	if opts.DefaultMarket == "" {
		opts.DefaultMarket = "US"
	}
	return &Builder{
		source:     source,
		opts:       opts,
		classifier: signals.NewRegimeClassifier(opts.MinObservations),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the computed_at clock
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build checks viability, establishes the regime and writes
// regime_context.json into dir. The file must not exist yet.
func (b *Builder) Build(ctx context.Context, profile *models.EvaluationProfile, window models.Window, dir string) (*models.RegimeContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	marketCode := profile.MarketOrDefault(b.opts.DefaultMarket)
	def, ok := market.Lookup(marketCode)
	if !ok {
		return nil, &RegimeContextError{WindowID: window.WindowID, Reason: fmt.Sprintf("unknown market %s", marketCode)}
	}

	series, err := b.source.Load(def.Code, def.Symbols())
	if err != nil {
		return nil, &RegimeContextError{WindowID: window.WindowID, Reason: "failed to load market series", Err: err}
	}

	viability := CheckViability(def.Required(), def.Benchmark, series, window.End, b.opts.MinObservations, b.opts.AlignmentDays)
	if viability.Status == models.ViabilityNotViable {
		b.logger.Warn().
			Str("window_id", window.WindowID).
			Str("reason", viability.Reason).
			Msg("Regime viability check failed")
		return nil, &RegimeContextError{WindowID: window.WindowID, Reason: viability.Reason, Viability: &viability}
	}

	rc := &models.RegimeContext{
		Market:     def.Code,
		Window:     window.Span(),
		InputsUsed: inputsUsed(series),
		Viability:  viability,
		ComputedAt: b.now(),
		Version:    models.RegimeContextVersion,
	}

	if profile.Mode.Type == models.ModeForcedRegime {
		override := profile.Regime.Override
		rc.RegimeCode = override.RegimeCode
		rc.RegimeLabel = "Forced " + override.RegimeCode
		rc.IsCounterfactual = true
		rc.Rationale = override.Rationale
	} else {
		detection := b.detect(def, series, window.End)
		rc.RegimeCode = detection.Code
		rc.RegimeLabel = models.RegimeLabelFor(detection.Code)
		rc.Detection = &models.RegimeDetection{
			Observations:        detection.Observations,
			Close:               signals.Round(detection.Close, 4),
			SMA50:               signals.Round(detection.SMA50, 4),
			SMA200:              signals.Round(detection.SMA200, 4),
			VolatilityLevel:     signals.Round(detection.volLevel, 4),
			VolatilityThreshold: def.VolatilityThreshold,
			VolatilitySource:    detection.volSource,
			Reason:              detection.Reason,
		}
	}

	path := filepath.Join(dir, artifacts.RegimeContext)
	if err := artifacts.WriteJSONOnce(path, rc); err != nil {
		return nil, fmt.Errorf("failed to persist regime context for %s: %w", window.WindowID, err)
	}

	b.logger.Info().
		Str("window_id", window.WindowID).
		Str("regime_code", rc.RegimeCode).
		Str("viability", string(rc.Viability.Status)).
		Bool("counterfactual", rc.IsCounterfactual).
		Msg("Regime context persisted")

	return rc, nil
}

type detection struct {
	signals.RegimeSignal
	volLevel  float64
	volSource string
}

func (b *Builder) detect(def market.Definition, series map[string]market.Series, end time.Time) detection {
	closes := series[def.Benchmark].Truncate(end).Closes()

	d := detection{volSource: def.Volatility}
	if vol, ok := series[def.Volatility]; ok {
		if last, ok := vol.Truncate(end).Last(); ok {
			d.volLevel = last.Close
		}
	}
	if d.volLevel <= 0 {
		d.volLevel = signals.RealizedVol(closes, signals.RealizedVolPeriod) * 100
		d.volSource = "realized_vol_20d"
	}

	d.RegimeSignal = b.classifier.Classify(closes, d.volLevel, def.VolatilityThreshold)
	return d
}

func inputsUsed(series map[string]market.Series) []string {
	used := make([]string, 0, len(series))
	for symbol := range series {
		used = append(used, symbol)
	}
	sort.Strings(used)
	return used
}

// Load reads the persisted regime context of a window directory. A missing
// context is a RegimeContextError.
func Load(dir, windowID string) (*models.RegimeContext, error) {
	var rc models.RegimeContext
	if err := artifacts.ReadJSON(filepath.Join(dir, artifacts.RegimeContext), &rc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &RegimeContextError{WindowID: windowID, Reason: "regime context missing", Err: err}
		}
		return nil, &RegimeContextError{WindowID: windowID, Reason: "regime context unreadable", Err: err}
	}
	return &rc, nil
}
