package evidence

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/models"
)

// Shadow decision actions and outcomes
const (
	ActionBuy  = "BUY"
	ActionHold = "HOLD"
	ActionNone = "NONE"

	OutcomeFilled   = "SHADOW_FILLED"
	OutcomeDeferred = "SHADOW_DEFERRED"
	OutcomeRejected = "SHADOW_REJECTED"
)

var (
	matrixHeader    = []string{"strategy_id", "family", "eligibility_status", "primary_blocker", "decisions", "shadow", "failures", "regime"}
	traceHeader     = []string{"decision_id", "strategy_id", "action", "regime", "outcome", "reason"}
	rejectionHeader = []string{"strategy_id", "reason", "count", "context_regime"}
)

// WriteActivationMatrix records one shadow evaluation decision per strategy
func WriteActivationMatrix(dir string, in Inputs) error {
	rows := make([][]string, 0, len(in.Resolution.Strategies))
	for _, s := range in.Resolution.Strategies {
		shadow := 1
		if s.EligibilityStatus == models.StatusBlocked {
			shadow = 0
		}
		rows = append(rows, []string{
			s.StrategyID,
			s.Family,
			string(s.EligibilityStatus),
			string(s.PrimaryBlocker),
			"1",
			strconv.Itoa(shadow),
			"0",
			in.Regime.RegimeLabel,
		})
	}
	return writeCSV(filepath.Join(dir, artifacts.ActivationMatrix), matrixHeader, rows)
}

// DecisionID is DEC-<window>-<nnn>, numbered in registry order from 1
func DecisionID(windowID string, n int) string {
	return fmt.Sprintf("DEC-%s-%03d", windowID, n)
}

func decisionFor(status models.EligibilityStatus) (string, string) {
	switch status {
	case models.StatusEligible:
		return ActionBuy, OutcomeFilled
	case models.StatusConditional:
		return ActionHold, OutcomeDeferred
	default:
		return ActionNone, OutcomeRejected
	}
}

// WriteDecisionTrace replays one shadow decision per strategy
func WriteDecisionTrace(dir string, in Inputs) error {
	rows := make([][]string, 0, len(in.Resolution.Strategies))
	for i, s := range in.Resolution.Strategies {
		action, outcome := decisionFor(s.EligibilityStatus)
		reason := s.BlockingReason
		if reason == "" {
			reason = "eligible"
		}
		rows = append(rows, []string{
			DecisionID(in.Window.WindowID, i+1),
			s.StrategyID,
			action,
			in.Regime.RegimeCode,
			outcome,
			reason,
		})
	}
	return writeCSV(filepath.Join(dir, artifacts.DecisionTraceLog), traceHeader, rows)
}

// WriteRejectionAnalysis counts blocking reasons per strategy. Only blocked
// and conditional strategies appear.
func WriteRejectionAnalysis(dir string, in Inputs) error {
	type key struct{ strategy, reason string }
	counts := make(map[key]int)
	var order []key
	for _, s := range in.Resolution.Strategies {
		if s.EligibilityStatus == models.StatusEligible {
			continue
		}
		k := key{s.StrategyID, s.BlockingReason}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	rows := make([][]string, 0, len(order))
	for _, k := range order {
		rows = append(rows, []string{k.strategy, k.reason, strconv.Itoa(counts[k]), in.Regime.RegimeCode})
	}
	return writeCSV(filepath.Join(dir, artifacts.RejectionAnalysis), rejectionHeader, rows)
}
