package regime

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/models"
)

// CheckViability decides whether a regime can be constructed at windowEnd.
// Missing symbols and short histories block; misalignment alone degrades.
// benchmark anchors the alignment check.
func CheckViability(required []string, benchmark string, series map[string]market.Series, windowEnd time.Time, minHistory, alignmentDays int) models.Viability {
	var (
		reasons  []models.BlockingReason
		missing  []string
		notes    []string
		short    []string
		misalign []string
	)

	for _, symbol := range required {
		if _, ok := series[symbol]; !ok {
			missing = append(missing, symbol)
		}
	}
	if len(missing) > 0 {
		reasons = append(reasons, models.BlockingMissingSymbol)
	}

	var benchLast time.Time
	if s, ok := series[benchmark]; ok {
		if last, ok := s.Truncate(windowEnd).Last(); ok {
			benchLast = last.Date
		}
	}

	for _, symbol := range required {
		s, ok := series[symbol]
		if !ok {
			continue
		}
		truncated := s.Truncate(windowEnd)
		if truncated.Len() < minHistory {
			short = append(short, symbol)
			continue
		}
		if symbol == benchmark || benchLast.IsZero() {
			continue
		}
		last, _ := truncated.Last()
		lag := benchLast.Sub(last.Date)
		if lag < 0 {
			lag = -lag
		}
		if lag > time.Duration(alignmentDays)*24*time.Hour {
			misalign = append(misalign, symbol)
		}
	}

	if len(short) > 0 {
		reasons = append(reasons, models.BlockingInsufficientHistory)
		for _, symbol := range short {
			missing = append(missing, symbol+":history")
		}
	}
	if len(misalign) > 0 {
		sort.Strings(misalign)
		reasons = append(reasons, models.BlockingTemporalMisalignment)
		notes = append(notes, "Misaligned: "+strings.Join(misalign, ", "))
	}

	v := models.Viability{
		BlockingReasons:  []models.BlockingReason{},
		MissingInputs:    []string{},
		DegradationNotes: []string{},
	}
	v.MissingInputs = append(v.MissingInputs, missing...)
	v.DegradationNotes = append(v.DegradationNotes, notes...)

	switch {
	case len(reasons) == 0:
		v.Status = models.ViabilityViable
		v.Viable = true
		v.Reason = fmt.Sprintf("required inputs present with at least %d observations and aligned within %d days", minHistory, alignmentDays)
	case len(reasons) == 1 && reasons[0] == models.BlockingTemporalMisalignment:
		v.Status = models.ViabilityDegraded
		v.Viable = true
		v.BlockingReasons = reasons
		v.DegradationNotes = append(v.DegradationNotes, "Regime can be computed with interpolation (not auto-applied)")
		v.Reason = "degraded: " + strings.Join(notes, "; ")
	default:
		v.Status = models.ViabilityNotViable
		if len(reasons) > 1 {
			v.BlockingReasons = []models.BlockingReason{models.BlockingMultipleIssues}
		} else {
			v.BlockingReasons = reasons
		}
		v.Reason = fmt.Sprintf("Regime viability check failed: %s (inputs: %s)",
			joinReasons(reasons), strings.Join(v.MissingInputs, ", "))
		if len(v.MissingInputs) == 0 {
			v.Reason = "Regime viability check failed: " + joinReasons(reasons)
		}
	}
	return v
}

func joinReasons(reasons []models.BlockingReason) string {
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}
