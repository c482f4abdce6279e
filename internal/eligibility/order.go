package eligibility

// Order is the total order of the states of one factor family
type Order struct {
	Family string
	States []string
}

// Rank returns the position of state in the order
func (o Order) Rank(state string) (int, bool) {
	for i, s := range o.States {
		if s == state {
			return i, true
		}
	}
	return 0, false
}

var orders = map[string]Order{
	"momentum":   {Family: "momentum", States: []string{"NONE", "EMERGING", "CONFIRMED"}},
	"expansion":  {Family: "expansion", States: []string{"NONE", "EARLY", "CONFIRMED"}},
	"dispersion": {Family: "dispersion", States: []string{"NONE", "EARLY", "BREAKOUT"}},
	"liquidity":  {Family: "liquidity", States: []string{"NEUTRAL", "COMPRESSED", "STRESSED"}},
}

// OrderFor returns the state order of a factor
func OrderFor(factor string) (Order, bool) {
	o, ok := orders[factor]
	return o, ok
}

// externalFactors are named by contracts but not measured by any watcher.
// Contracts on them always fail.
var externalFactors = map[string]bool{
	"yield_curve": true,
	"vrp":         true,
}

// IsExternal reports whether a factor is not yet measured
func IsExternal(factor string) bool {
	return externalFactors[factor]
}
