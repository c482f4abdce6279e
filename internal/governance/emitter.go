package governance

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/models"
)

// Evidence lists what an emission wrote
type Evidence struct {
	LedgerPath string `json:"ledger_path,omitempty"`
	DIDPath    string `json:"did_path,omitempty"`
}

// Emitter writes the governance evidence of finished runs
type Emitter struct {
	layout artifacts.Layout
	ledger *Ledger
	logger arbor.ILogger
}

// NewEmitter creates an emitter rooted at the output layout
func NewEmitter(layout artifacts.Layout, logger arbor.ILogger) *Emitter {
	return &Emitter{
		layout: layout,
		ledger: NewLedger(layout.LedgerPath()),
		logger: logger,
	}
}

// Emit appends the ledger entry and writes the declaration for a run.
// Evidence is emitted for failed runs too.
func (e *Emitter) Emit(p *models.EvaluationProfile, run *models.RunRecord) (Evidence, error) {
	var ev Evidence
	if err := CheckProfile(p); err != nil {
		return ev, err
	}

	if p.Governance.LedgerRequired {
		if err := e.ledger.Append(p, run); err != nil {
			return ev, err
		}
		ev.LedgerPath = e.ledger.Path()
		e.logger.Info().Str("ledger", ev.LedgerPath).Str("run_id", run.RunID).Msg("Ledger updated")
	}

	if p.Governance.DIDRequired {
		path, err := WriteDID(e.layout.ImpactDir(), p, run, WindowArtifactNames(p))
		if err != nil {
			return ev, err
		}
		ev.DIDPath = path
		e.logger.Info().Str("did", path).Str("run_id", run.RunID).Msg("Documentation impact declaration generated")
	}

	return ev, nil
}

// WindowArtifactNames lists the artifacts a window of this profile produces
func WindowArtifactNames(p *models.EvaluationProfile) []string {
	names := []string{artifacts.RegimeContext}
	if p.Outputs.PersistIntermediate {
		names = append(names,
			artifacts.FactorContext,
			models.WatcherMomentumEmergence+".json",
			models.WatcherLiquidityCompression+".json",
			models.WatcherExpansionTransition+".json",
			models.WatcherDispersionBreakout+".json",
		)
	}
	names = append(names, artifacts.ActivationMatrix)
	if p.Execution.AllowReplay {
		names = append(names, artifacts.DecisionTraceLog)
	}
	return append(names,
		artifacts.PaperPnLSummary,
		artifacts.CoverageReport,
		artifacts.RejectionAnalysis,
		artifacts.Bundle,
	)
}
