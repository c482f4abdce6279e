package evidence

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/strategy"
)

// Stages runs the evidence stages of a window in order
type Stages struct {
	registry *strategy.Registry
	logger   arbor.ILogger
}

// NewStages creates the evidence stage runner
func NewStages(registry *strategy.Registry, logger arbor.ILogger) *Stages {
	return &Stages{registry: registry, logger: logger}
}

type stage struct {
	artifact string
	run      func(dir string, in Inputs) error
}

// Run writes every evidence artifact and compiles the bundle. A failing
// stage is logged and its artifact omitted; only a missing regime context or
// a failed bundle write fails the window. Returns the artifacts written.
func (s *Stages) Run(ctx context.Context, dir string, in Inputs) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	stages := []stage{
		{artifacts.ActivationMatrix, WriteActivationMatrix},
	}
	if in.AllowReplay {
		stages = append(stages, stage{artifacts.DecisionTraceLog, WriteDecisionTrace})
	}
	stages = append(stages,
		stage{artifacts.PaperPnLSummary, WritePaperPnL},
		stage{artifacts.CoverageReport, func(dir string, in Inputs) error { return WriteCoverage(dir, s.registry, in) }},
		stage{artifacts.RejectionAnalysis, WriteRejectionAnalysis},
	)

	var written []string
	for _, st := range stages {
		if err := st.run(dir, in); err != nil {
			s.logger.Warn().Err(err).Str("window_id", in.Window.WindowID).Str("artifact", st.artifact).Msg("Evidence stage failed")
			continue
		}
		written = append(written, st.artifact)
	}
	if !in.AllowReplay {
		s.logger.Debug().Str("window_id", in.Window.WindowID).Msg("Decision replay skipped: allow_replay is false")
	}

	if _, err := CompileBundle(dir, in.Window.WindowID); err != nil {
		return written, err
	}
	written = append(written, artifacts.Bundle)

	s.logger.Info().
		Str("window_id", in.Window.WindowID).
		Int("artifacts", len(written)).
		Msg("Evidence bundle compiled")
	return written, nil
}
