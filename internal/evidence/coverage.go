package evidence

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/eligibility"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/strategy"
)

// CoverageStatus grades how well the registry covers a regime
type CoverageStatus string

const (
	CoverageCovered   CoverageStatus = "COVERED"
	CoveragePartial   CoverageStatus = "PARTIAL"
	CoverageUndefined CoverageStatus = "UNDEFINED"
	CoverageMissing   CoverageStatus = "MISSING"
)

// RegimeCoverage lists the strategies a regime admits
type RegimeCoverage struct {
	Regime     string
	Status     CoverageStatus
	Explicit   []string // strategies that name the regime in allow
	Permissive []string // strategies that merely do not forbid it
}

// FactorUsage lists the contracts that reference a factor
type FactorUsage struct {
	Factor     string
	Strategies []string
	Current    string
	Status     string
}

// RegimeCoverageFor grades the detection codes plus the current regime
func RegimeCoverageFor(registry *strategy.Registry, current string) []RegimeCoverage {
	codes := []string{models.RegimeBullish, models.RegimeBearish, models.RegimeNeutral, models.RegimeUnknown}
	known := false
	for _, c := range codes {
		if c == current {
			known = true
		}
	}
	if !known && current != "" {
		codes = append(codes, current)
	}

	out := make([]RegimeCoverage, 0, len(codes))
	for _, code := range codes {
		rc := RegimeCoverage{Regime: code}
		for _, def := range registry.All() {
			ok, _ := eligibility.CheckRegime(def.RegimeContract, code)
			if !ok {
				continue
			}
			if def.RegimeContract != nil && contains(def.RegimeContract.Allow, code) {
				rc.Explicit = append(rc.Explicit, def.StrategyID)
			} else {
				rc.Permissive = append(rc.Permissive, def.StrategyID)
			}
		}
		switch {
		case code == models.RegimeUnknown:
			rc.Status = CoverageUndefined
		case len(rc.Explicit) > 0:
			rc.Status = CoverageCovered
		case len(rc.Permissive) > 0:
			rc.Status = CoveragePartial
		default:
			rc.Status = CoverageMissing
		}
		out = append(out, rc)
	}
	return out
}

// FactorUsageFor lists every factor named by a contract, sorted by name
func FactorUsageFor(registry *strategy.Registry, factors models.FactorStates) []FactorUsage {
	users := make(map[string][]string)
	for _, def := range registry.All() {
		for name := range def.FactorContract {
			users[name] = append(users[name], def.StrategyID)
		}
	}

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]FactorUsage, 0, len(names))
	for _, name := range names {
		u := FactorUsage{Factor: name, Strategies: users[name], Current: "-"}
		v, ok := factors[name]
		switch {
		case eligibility.IsExternal(name):
			u.Status = "NOT_MEASURED"
		case !ok:
			u.Status = "UNAVAILABLE"
		default:
			u.Status = "MEASURED"
			u.Current = v.String()
		}
		out = append(out, u)
	}
	return out
}

// UndefinedStates collects every unobserved factor signal and every contract
// factor that could not be evaluated.
func UndefinedStates(fc *models.FactorContext, usage []FactorUsage) []string {
	var out []string
	if fc == nil {
		out = append(out, "factor_context: missing")
	} else {
		signalsByPath := fc.Factors.Signals()
		paths := make([]string, 0, len(signalsByPath))
		for path := range signalsByPath {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			if !signalsByPath[path].Known() {
				reason := "unobserved"
				if !fc.Validity.Viable {
					reason = fc.Validity.Reason
				}
				out = append(out, fmt.Sprintf("factor %s: %s", path, reason))
			}
		}
	}
	for _, u := range usage {
		switch u.Status {
		case "NOT_MEASURED":
			out = append(out, fmt.Sprintf("contract factor %s: not yet measured (%s)", u.Factor, strings.Join(u.Strategies, ", ")))
		case "UNAVAILABLE":
			out = append(out, fmt.Sprintf("contract factor %s: value not available (%s)", u.Factor, strings.Join(u.Strategies, ", ")))
		}
	}
	return out
}

// CoverageReport renders coverage_diagnostics.md
func CoverageReport(registry *strategy.Registry, in Inputs) string {
	var b strings.Builder
	b.WriteString("# Coverage Diagnostics Report\n\n")
	fmt.Fprintf(&b, "**Window**: %s\n", in.Window.WindowID)
	fmt.Fprintf(&b, "**Computed At**: %s\n", in.Regime.ComputedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Active Regime**: %s (%s)\n\n", in.Regime.RegimeLabel, in.Regime.RegimeCode)

	b.WriteString("## Regime Coverage\n\n")
	b.WriteString("| regime | status | explicit | permissive |\n| --- | --- | --- | --- |\n")
	for _, rc := range RegimeCoverageFor(registry, in.Regime.RegimeCode) {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", rc.Regime, rc.Status, listOrDash(rc.Explicit), listOrDash(rc.Permissive))
	}

	usage := FactorUsageFor(registry, in.Resolution.CurrentFactors)
	b.WriteString("\n## Factor Usage\n\n")
	if len(usage) == 0 {
		b.WriteString("No factor contracts registered.\n")
	} else {
		b.WriteString("| factor | status | current | strategies |\n| --- | --- | --- | --- |\n")
		for _, u := range usage {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", u.Factor, u.Status, u.Current, strings.Join(u.Strategies, ", "))
		}
	}

	b.WriteString("\n## Undefined States\n\n")
	undefined := UndefinedStates(in.Factors, usage)
	if len(undefined) == 0 {
		b.WriteString("No undefined states.\n")
	}
	for _, u := range undefined {
		fmt.Fprintf(&b, "- %s\n", u)
	}
	return b.String()
}

// WriteCoverage writes coverage_diagnostics.md
func WriteCoverage(dir string, registry *strategy.Registry, in Inputs) error {
	return artifacts.Write(filepath.Join(dir, artifacts.CoverageReport), []byte(CoverageReport(registry, in)))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func listOrDash(list []string) string {
	if len(list) == 0 {
		return "-"
	}
	return strings.Join(list, ", ")
}
