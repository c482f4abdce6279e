// Package strategy holds the frozen, read-only table of strategy contracts.
package strategy

import (
	"fmt"

	"github.com/ternarybob/evharness/internal/governance"
	"github.com/ternarybob/evharness/internal/models"
)

// Frozen evolution reference stamped into every resolution
const (
	EvolutionVersion    = "v1"
	EvolutionFrozenDate = "2026-01-29"
)

// Registry is an immutable, ordered set of strategy definitions. Definitions
// are copied in on construction and copied out on every access.
type Registry struct {
	order []string
	defs  map[string]models.StrategyDefinition
}

// NewRegistry builds a registry in the given order. Duplicate ids, missing
// ids and non-shadow safety behaviours are rejected.
func NewRegistry(defs ...models.StrategyDefinition) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(defs)),
		defs:  make(map[string]models.StrategyDefinition, len(defs)),
	}
	for _, def := range defs {
		if def.StrategyID == "" {
			return nil, fmt.Errorf("strategy definition without strategy_id")
		}
		if _, exists := r.defs[def.StrategyID]; exists {
			return nil, fmt.Errorf("strategy already exists: %s", def.StrategyID)
		}
		if err := governance.CheckSafetyBehavior(def.StrategyID, def.SafetyBehavior); err != nil {
			return nil, err
		}
		r.order = append(r.order, def.StrategyID)
		r.defs[def.StrategyID] = clone(def)
	}
	return r, nil
}

// Len returns the number of strategies
func (r *Registry) Len() int {
	return len(r.order)
}

// IDs returns strategy ids in registry order
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Get returns a copy of one definition
func (r *Registry) Get(id string) (models.StrategyDefinition, bool) {
	def, ok := r.defs[id]
	if !ok {
		return models.StrategyDefinition{}, false
	}
	return clone(def), true
}

// All returns copies of every definition in registry order
func (r *Registry) All() []models.StrategyDefinition {
	out := make([]models.StrategyDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clone(r.defs[id]))
	}
	return out
}

// Families returns the distinct families in first-seen order
func (r *Registry) Families() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range r.order {
		f := r.defs[id].Family
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func clone(def models.StrategyDefinition) models.StrategyDefinition {
	out := def
	if def.RegimeContract != nil {
		rc := models.RegimeContract{
			Allow:  append([]string(nil), def.RegimeContract.Allow...),
			Forbid: append([]string(nil), def.RegimeContract.Forbid...),
		}
		out.RegimeContract = &rc
	}
	if def.FactorContract != nil {
		out.FactorContract = make(map[string]models.FactorRequirement, len(def.FactorContract))
		for name, req := range def.FactorContract {
			if req.MinVariance != nil {
				v := *req.MinVariance
				req.MinVariance = &v
			}
			out.FactorContract[name] = req
		}
	}
	return out
}
