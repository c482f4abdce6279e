package market

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
)

// Cache loads each symbol's series from disk once and shares it read-only
// across windows.
type Cache struct {
	root   string
	logger arbor.ILogger

	mu     sync.Mutex
	series map[string]Series
	misses map[string]error
}

// NewCache creates a cache over <root>/<MARKET>/<SYMBOL>.csv
func NewCache(root string, logger arbor.ILogger) *Cache {
	return &Cache{
		root:   root,
		logger: logger,
		series: make(map[string]Series),
		misses: make(map[string]error),
	}
}

// Path returns the file path of a symbol
func (c *Cache) Path(marketCode, symbol string) string {
	return filepath.Join(c.root, strings.ToUpper(marketCode), FileName(symbol))
}

// Get returns the series for a symbol. Missing files return ErrSeriesNotFound;
// the outcome of the first load is remembered either way.
func (c *Cache) Get(marketCode, symbol string) (Series, error) {
	key := strings.ToUpper(marketCode) + "/" + symbol

	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.series[key]; ok {
		return s, nil
	}
	if err, ok := c.misses[key]; ok {
		return Series{}, err
	}

	path := c.Path(marketCode, symbol)
	s, err := LoadCSV(path, symbol)
	if err != nil {
		c.misses[key] = err
		if errors.Is(err, ErrSeriesNotFound) {
			c.logger.Debug().Str("symbol", symbol).Str("path", path).Msg("Series file not found")
		} else {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to load series")
		}
		return Series{}, err
	}

	c.logger.Debug().Str("symbol", symbol).Int("observations", s.Len()).Msg("Series loaded")
	c.series[key] = s
	return s, nil
}

// Load returns every available series of the given symbols; missing symbols
// are left out of the map.
func (c *Cache) Load(marketCode string, symbols []string) (map[string]Series, error) {
	result := make(map[string]Series, len(symbols))
	for _, symbol := range symbols {
		s, err := c.Get(marketCode, symbol)
		if err != nil {
			if errors.Is(err, ErrSeriesNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load %s: %w", symbol, err)
		}
		result[symbol] = s
	}
	return result, nil
}

// Invalidate drops cached entries so that freshly ingested files are re-read
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series = make(map[string]Series)
	c.misses = make(map[string]error)
}
