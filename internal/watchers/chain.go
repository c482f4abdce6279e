package watchers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/models"
)

// Chain runs watchers in order and persists each emission as <name>.json
type Chain struct {
	watchers []Watcher
	logger   arbor.ILogger
}

// NewChain creates a chain; with no watchers the four defaults are used
func NewChain(logger arbor.ILogger, watchers ...Watcher) *Chain {
	if len(watchers) == 0 {
		watchers = Defaults()
	}
	return &Chain{watchers: watchers, logger: logger}
}

// Run evaluates every watcher against the factor context. A watcher that
// panics or cannot be persisted is logged and left out of the result; the
// remaining watchers still run.
func (c *Chain) Run(ctx context.Context, windowID string, fc *models.FactorContext, dir string) ([]models.WatcherEmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fc == nil {
		return nil, fmt.Errorf("watchers for %s: factor context is nil", windowID)
	}

	emissions := make([]models.WatcherEmission, 0, len(c.watchers))
	for _, w := range c.watchers {
		e, err := c.watch(w, windowID, fc)
		if err != nil {
			c.logger.Warn().Err(err).Str("window_id", windowID).Str("watcher", w.Name).Msg("Watcher failed")
			continue
		}

		if err := artifacts.WriteJSON(filepath.Join(dir, w.Name+".json"), e); err != nil {
			c.logger.Warn().Err(err).Str("window_id", windowID).Str("watcher", w.Name).Msg("Failed to persist watcher emission")
			continue
		}

		c.logger.Debug().
			Str("window_id", windowID).
			Str("watcher", w.Name).
			Str("state", e.State).
			Msg("Watcher emitted")
		emissions = append(emissions, e)
	}
	return emissions, nil
}

func (c *Chain) watch(w Watcher, windowID string, fc *models.FactorContext) (e models.WatcherEmission, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in watcher %s: %v", w.Name, r)
		}
	}()
	return w.Watch(windowID, fc), nil
}

// LoadEmissions reads whichever watcher artifacts exist in dir, in chain order
func LoadEmissions(dir string) []models.WatcherEmission {
	var out []models.WatcherEmission
	for _, w := range Defaults() {
		var e models.WatcherEmission
		if err := artifacts.ReadJSON(filepath.Join(dir, w.Name+".json"), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}
