// Package pipeline runs an evaluation profile window by window:
// regime -> factors -> watchers -> eligibility -> evidence -> bundle, then
// emits the governance record of the run.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/common"
	"github.com/ternarybob/evharness/internal/eligibility"
	"github.com/ternarybob/evharness/internal/evidence"
	"github.com/ternarybob/evharness/internal/factors"
	"github.com/ternarybob/evharness/internal/governance"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/regime"
	"github.com/ternarybob/evharness/internal/strategy"
	"github.com/ternarybob/evharness/internal/watchers"
	"github.com/ternarybob/evharness/internal/windows"
	"golang.org/x/sync/errgroup"
)

// SeriesSource supplies read-only market series to every stage
type SeriesSource interface {
	regime.SeriesSource
	Get(marketCode, symbol string) (market.Series, error)
}

// Options tune window execution
type Options struct {
	OutputRoot         string
	DefaultMarket      string
	MaxParallelWindows int
	MinObservations    int
	AlignmentDays      int
}

// OptionsFromConfig maps the [output], [data] and [pipeline] sections
func OptionsFromConfig(cfg *common.Config) Options {
	return Options{
		OutputRoot:         cfg.Output.Root,
		DefaultMarket:      cfg.Data.DefaultMarket,
		MaxParallelWindows: cfg.Pipeline.MaxParallelWindows,
		MinObservations:    cfg.Pipeline.MinObservations,
		AlignmentDays:      cfg.Pipeline.AlignmentDays,
	}
}

// Result is what a run produced
type Result struct {
	Run      *models.RunRecord
	Evidence governance.Evidence
}

// Orchestrator owns the per-window stage chain
type Orchestrator struct {
	opts      Options
	layout    artifacts.Layout
	source    SeriesSource
	storage   interfaces.StorageManager
	regimes   *regime.Builder
	factors   *factors.Builder
	chain     *watchers.Chain
	resolver  *eligibility.Resolver
	snapshots *eligibility.Snapshotter
	stages    *evidence.Stages
	emitter   *governance.Emitter
	logger    arbor.ILogger
	now       func() time.Time
}

// NewOrchestrator wires the stages. storage may be nil, in which case run
// records, snapshots and the artifact index are only written to disk.
func NewOrchestrator(opts Options, source SeriesSource, registry *strategy.Registry, storage interfaces.StorageManager, logger arbor.ILogger) *Orchestrator {
	if opts.MaxParallelWindows <= 0 {
		opts.MaxParallelWindows = 1
	}
	layout := artifacts.NewLayout(opts.OutputRoot)

	var snapshotStore interfaces.SnapshotStorage
	if storage != nil {
		snapshotStore = storage.SnapshotStorage()
	}

	return &Orchestrator{
		opts:    opts,
		layout:  layout,
		source:  source,
		storage: storage,
		regimes: regime.NewBuilder(source, regime.Options{
			MinObservations: opts.MinObservations,
			AlignmentDays:   opts.AlignmentDays,
			DefaultMarket:   opts.DefaultMarket,
		}, logger),
		factors:   factors.NewBuilder(source, opts.MinObservations, logger),
		chain:     watchers.NewChain(logger),
		resolver:  eligibility.NewResolver(registry),
		snapshots: eligibility.NewSnapshotter(layout, snapshotStore, logger),
		stages:    evidence.NewStages(registry, logger),
		emitter:   governance.NewEmitter(layout, logger),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock of the orchestrator and its builders
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	o.regimes.WithClock(now)
	o.factors.WithClock(now)
	return o
}

// Layout returns the output layout
func (o *Orchestrator) Layout() artifacts.Layout {
	return o.layout
}

// Windows resolves the horizon and generates the windows of a profile.
// override, when set, replaces the profile horizon.
func (o *Orchestrator) Windows(p *models.EvaluationProfile, override *models.Horizon) ([]models.Window, error) {
	horizon, err := o.horizon(p, override)
	if err != nil {
		return nil, err
	}
	return windows.Generate(*p.Windowing, horizon)
}

func (o *Orchestrator) horizon(p *models.EvaluationProfile, override *models.Horizon) (models.Horizon, error) {
	if override != nil && override.Start != "" && override.End != "" {
		return *override, nil
	}
	if p.Horizon != nil {
		return *p.Horizon, nil
	}

	marketCode := p.MarketOrDefault(o.opts.DefaultMarket)
	def, ok := market.Lookup(marketCode)
	if !ok {
		return models.Horizon{}, fmt.Errorf("unknown market %s", marketCode)
	}
	series, err := o.source.Get(marketCode, def.Benchmark)
	if err != nil {
		return models.Horizon{}, fmt.Errorf("no horizon given and benchmark coverage unavailable: %w", err)
	}
	first, last, ok := series.Coverage()
	if !ok {
		return models.Horizon{}, fmt.Errorf("no horizon given and benchmark %s is empty", def.Benchmark)
	}
	return models.Horizon{Start: first.Format(models.DateLayout), End: last.Format(models.DateLayout)}, nil
}

// Run executes every window of the profile and emits governance evidence.
// Window failures are recorded in the run record, not returned; the error
// return is reserved for configuration and governance failures.
func (o *Orchestrator) Run(ctx context.Context, p *models.EvaluationProfile, override *models.Horizon) (*Result, error) {
	if err := governance.CheckProfile(p); err != nil {
		return nil, err
	}

	marketCode := p.MarketOrDefault(o.opts.DefaultMarket)
	def, ok := market.Lookup(marketCode)
	if !ok {
		return nil, fmt.Errorf("unknown market %s", marketCode)
	}

	ws, err := o.Windows(p, override)
	if err != nil {
		return nil, fmt.Errorf("failed to generate windows: %w", err)
	}

	run := &models.RunRecord{
		RunID:       common.NewRunID(),
		ProfileID:   p.ProfileID,
		Version:     p.Version,
		Mode:        p.Mode.Type,
		Market:      marketCode,
		Namespace:   p.Outputs.ArtifactNamespace,
		DecisionRef: p.Governance.DecisionRef,
		WindowCount: len(ws),
		StartedAt:   o.now(),
	}
	runLogger := o.logger.WithCorrelationId(run.RunID)
	runLogger.Info().
		Str("profile_id", p.ProfileID).
		Str("mode", string(p.Mode.Type)).
		Str("market", marketCode).
		Int("windows", len(ws)).
		Str("fingerprint", windows.Fingerprint(ws)).
		Msg("Starting evaluation run")

	run.Windows = o.runWindows(ctx, p, def, ws, run.RunID)

	run.Outcome = models.RunFailure
	if run.Succeeded() {
		run.Outcome = models.RunSuccess
	}
	run.FinishedAt = o.now()

	if o.storage != nil {
		if err := o.storage.RunStorage().SaveRun(ctx, run); err != nil {
			runLogger.Error().Err(err).Msg("Failed to persist run record")
		}
	}

	ev, err := o.emitter.Emit(p, run)
	if err != nil {
		return &Result{Run: run}, fmt.Errorf("failed to emit governance evidence: %w", err)
	}

	runLogger.Info().
		Str("outcome", string(run.Outcome)).
		Int("failed_windows", len(run.FailedWindows())).
		Msg("Evaluation run finished")
	return &Result{Run: run, Evidence: ev}, nil
}

// runWindows keeps one result slot per window so that a failure never
// cancels or reorders its siblings.
func (o *Orchestrator) runWindows(ctx context.Context, p *models.EvaluationProfile, def market.Definition, ws []models.Window, runID string) []models.WindowOutcome {
	outcomes := make([]models.WindowOutcome, len(ws))

	if !p.Execution.AllowParallelWindows || o.opts.MaxParallelWindows == 1 {
		for i, w := range ws {
			outcomes[i] = o.runWindow(ctx, p, def, w, runID)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(o.opts.MaxParallelWindows)
	for i, w := range ws {
		i, w := i, w
		g.Go(func() error {
			outcomes[i] = o.runWindow(ctx, p, def, w, runID)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) runWindow(ctx context.Context, p *models.EvaluationProfile, def market.Definition, w models.Window, runID string) models.WindowOutcome {
	logger := o.logger.WithCorrelationId(w.WindowID)
	span := w.Span()
	out := models.WindowOutcome{WindowID: w.WindowID, Start: span.Start, End: span.End}

	if err := o.safeEvaluateWindow(ctx, p, def, w, runID, &out, logger); err != nil {
		out.Success = false
		out.Error = err.Error()
		logger.Error().Err(err).Str("window_id", w.WindowID).Msg("Window failed")
	} else {
		out.Success = true
		logger.Info().
			Str("window_id", w.WindowID).
			Str("regime", out.RegimeCode).
			Int("eligible", out.Eligible).
			Int("conditional", out.Conditional).
			Int("blocked", out.Blocked).
			Msg("Window complete")
	}
	out.CompletedAt = o.now()
	return out
}

// safeEvaluateWindow records a panic in any stage as the window error
func (o *Orchestrator) safeEvaluateWindow(ctx context.Context, p *models.EvaluationProfile, def market.Definition, w models.Window, runID string, out *models.WindowOutcome, logger arbor.ILogger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logger.Error().
				Str("window_id", w.WindowID).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("PANIC RECOVERED in window evaluation")
		}
	}()
	return o.evaluateWindow(ctx, p, def, w, runID, out, logger)
}

func (o *Orchestrator) evaluateWindow(ctx context.Context, p *models.EvaluationProfile, def market.Definition, w models.Window, runID string, out *models.WindowOutcome, logger arbor.ILogger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	namespace := p.Outputs.ArtifactNamespace
	dir := o.layout.WindowDir(namespace, w.WindowID)
	if err := artifacts.ResetDir(dir); err != nil {
		return err
	}
	out.ArtifactDir = dir

	rc, err := o.regimes.Build(ctx, p, w, dir)
	if err != nil {
		return fmt.Errorf("regime context: %w", err)
	}
	out.RegimeCode = rc.RegimeCode
	out.Viability = string(rc.Viability.Status)

	fc, err := o.factors.Build(ctx, p, w, dir)
	if err != nil {
		return fmt.Errorf("factor context: %w", err)
	}

	emissions, err := o.chain.Run(ctx, w.WindowID, fc, dir)
	if err != nil {
		return fmt.Errorf("watcher chain: %w", err)
	}

	res := o.resolver.ResolveAll(rc.RegimeCode, watchers.FactorStates(emissions, fc), o.now())
	out.Eligible = res.Summary.Eligible
	out.Conditional = res.Summary.Conditional
	out.Blocked = res.Summary.Blocked

	if _, err := o.snapshots.Snapshot(ctx, namespace, w.WindowID, res); err != nil {
		return fmt.Errorf("eligibility snapshot: %w", err)
	}

	var bars []market.Bar
	if series, err := o.source.Get(rc.Market, def.Benchmark); err != nil {
		logger.Warn().Err(err).Str("symbol", def.Benchmark).Msg("Benchmark unavailable, paper P&L will be flat")
	} else {
		bars = series.Between(w.Start, w.End).Bars
	}

	if _, err := o.stages.Run(ctx, dir, evidence.Inputs{
		Window:      w,
		Regime:      rc,
		Factors:     fc,
		Resolution:  res,
		Emissions:   emissions,
		Benchmark:   bars,
		AllowReplay: p.Execution.AllowReplay,
	}); err != nil {
		return fmt.Errorf("evidence: %w", err)
	}

	if !p.Outputs.PersistIntermediate {
		if err := artifacts.Prune(dir, governance.WindowArtifactNames(p)...); err != nil {
			return fmt.Errorf("failed to prune intermediate artifacts: %w", err)
		}
	}

	return o.indexArtifacts(ctx, runID, namespace, w.WindowID, dir, out, logger)
}

func (o *Orchestrator) indexArtifacts(ctx context.Context, runID, namespace, windowID, dir string, out *models.WindowOutcome, logger arbor.ILogger) error {
	infos, err := artifacts.List(dir)
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}

	at := o.now()
	for _, info := range infos {
		out.Artifacts = append(out.Artifacts, info.Name)
		if o.storage == nil {
			continue
		}
		record := &models.ArtifactRecord{
			RunID:     runID,
			Namespace: namespace,
			WindowID:  windowID,
			Name:      info.Name,
			Path:      info.Path,
			SHA256:    info.SHA256,
			Size:      info.Size,
			WrittenAt: at,
		}
		if err := o.storage.ArtifactIndex().RecordArtifact(ctx, record); err != nil {
			logger.Warn().Err(err).Str("artifact", info.Name).Msg("Failed to index artifact")
		}
	}
	return nil
}
