package eligibility

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/ternarybob/evharness/internal/models"
)

// Op is a contract comparison operator
type Op int

const (
	OpMinState Op = iota
	OpMaxState
	OpExactState
	OpMinVariance
	OpMeasured
)

func (o Op) String() string {
	switch o {
	case OpMinState:
		return "min_state"
	case OpMaxState:
		return "max_state"
	case OpExactState:
		return "exact_state"
	case OpMinVariance:
		return "min_variance"
	case OpMeasured:
		return "measured"
	default:
		return "unknown"
	}
}

// Comparison is one compiled factor contract clause
type Comparison struct {
	Factor    string
	Op        Op
	State     string
	Threshold float64
}

// Compile flattens a factor contract into comparisons ordered by factor name
// and then min, max, exact, variance. An external factor compiles to a single
// measured comparison whatever its clauses, so naming one always fails.
func Compile(contract map[string]models.FactorRequirement) []Comparison {
	names := make([]string, 0, len(contract))
	for name := range contract {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Comparison
	for _, name := range names {
		if IsExternal(name) {
			out = append(out, Comparison{Factor: name, Op: OpMeasured})
			continue
		}
		req := contract[name]
		if req.MinState != "" {
			out = append(out, Comparison{Factor: name, Op: OpMinState, State: req.MinState})
		}
		if req.MaxState != "" {
			out = append(out, Comparison{Factor: name, Op: OpMaxState, State: req.MaxState})
		}
		if req.ExactState != "" {
			out = append(out, Comparison{Factor: name, Op: OpExactState, State: req.ExactState})
		}
		if req.MinVariance != nil {
			out = append(out, Comparison{Factor: name, Op: OpMinVariance, Threshold: *req.MinVariance})
		}
	}
	return out
}

// Evaluate checks one comparison against the current factor states. It
// returns an empty reason when the clause holds.
func (c Comparison) Evaluate(factors models.FactorStates) (bool, string) {
	if IsExternal(c.Factor) {
		return false, fmt.Sprintf("%s not yet measured", c.Factor)
	}

	current, ok := factors[c.Factor]
	if !ok {
		return false, fmt.Sprintf("Factor value for %s not available", c.Factor)
	}

	switch c.Op {
	case OpMinVariance:
		if !current.IsNumeric() {
			return false, fmt.Sprintf("Factor %s has non-numeric value '%s'", c.Factor, current)
		}
		if *current.Number < c.Threshold {
			return false, fmt.Sprintf("%s: %.3f < required min %s", c.Factor, *current.Number, formatThreshold(c.Threshold))
		}
		return true, ""

	case OpMeasured:
		return true, ""

	case OpExactState:
		if current.IsNumeric() || current.State != c.State {
			return false, fmt.Sprintf("%s: %s != %s", c.Factor, current, c.State)
		}
		return true, ""

	case OpMinState, OpMaxState:
		order, ok := OrderFor(c.Factor)
		if !ok {
			return false, fmt.Sprintf("%s: no state order defined", c.Factor)
		}
		have, ok := order.Rank(current.State)
		if current.IsNumeric() || !ok {
			return false, fmt.Sprintf("%s: state '%s' not in %s order", c.Factor, current, order.Family)
		}
		want, ok := order.Rank(c.State)
		if !ok {
			return false, fmt.Sprintf("%s: state '%s' not in %s order", c.Factor, c.State, order.Family)
		}
		if c.Op == OpMinState && have < want {
			return false, fmt.Sprintf("%s: %s < %s", c.Factor, current.State, c.State)
		}
		if c.Op == OpMaxState && have > want {
			return false, fmt.Sprintf("%s: %s > %s", c.Factor, current.State, c.State)
		}
		return true, ""
	}

	return false, fmt.Sprintf("%s: unsupported comparison %s", c.Factor, c.Op)
}

// formatThreshold prints whole thresholds with one decimal (2 -> "2.0")
func formatThreshold(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CheckFactors evaluates a factor contract; the first failing clause wins
func CheckFactors(contract map[string]models.FactorRequirement, factors models.FactorStates) (bool, string) {
	for _, c := range Compile(contract) {
		if ok, reason := c.Evaluate(factors); !ok {
			return false, reason
		}
	}
	return true, ""
}

// CheckRegime evaluates a regime contract. Forbid is checked before allow and
// an empty contract passes.
func CheckRegime(contract *models.RegimeContract, regime string) (bool, string) {
	if contract == nil {
		return true, ""
	}
	for _, code := range contract.Forbid {
		if code == regime {
			return false, fmt.Sprintf("Regime %s forbidden", regime)
		}
	}
	if len(contract.Allow) == 0 {
		return true, ""
	}
	for _, code := range contract.Allow {
		if code == regime {
			return true, ""
		}
	}
	return false, fmt.Sprintf("Regime %s not allowed", regime)
}
