// Package evidence writes the per-window evidence artifacts and compiles them
// into the evaluation bundle. Stages only read contexts and resolutions; none
// of them execute anything.
package evidence

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/models"
)

// Inputs is everything the evidence stages of one window read
type Inputs struct {
	Window      models.Window
	Regime      *models.RegimeContext
	Factors     *models.FactorContext
	Resolution  *models.Resolution
	Emissions   []models.WatcherEmission
	Benchmark   []market.Bar // benchmark observations inside the window
	AllowReplay bool
}

func (in Inputs) validate() error {
	if in.Regime == nil {
		return fmt.Errorf("regime context is required")
	}
	if in.Resolution == nil {
		return fmt.Errorf("eligibility resolution is required")
	}
	return nil
}

// writeCSV renders rows with a header and replaces path atomically
func writeCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return artifacts.Write(path, buf.Bytes())
}

// readCSV returns the header and rows of a CSV artifact
func readCSV(path string) ([]string, [][]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, nil, err
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[0], records[1:], nil
}
