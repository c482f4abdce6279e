package evidence

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/regime"
	"github.com/ternarybob/evharness/internal/watchers"
)

const unknownState = "UNKNOWN"

var metricsHeader = []string{
	"source", "namespace", "window", "regime", "strategy", "status", "condition",
	"pnl_paper", "rejections", "primary_reject_reason",
	"emergence_state", "liquidity_state", "expansion_state", "dispersion_state",
}

// MetricsRow is one strategy of one evaluated window in the comparative
// metrics table
type MetricsRow struct {
	Source              string
	Namespace           string
	Window              string
	Regime              string
	Strategy            string
	Status              string // ACTIVE when never rejected, LIMITED otherwise
	Condition           string // ROBUST when never rejected, FRAGILE otherwise
	PaperPnL            decimal.Decimal
	Rejections          int
	PrimaryRejectReason string
	EmergenceState      string
	LiquidityState      string
	ExpansionState      string
	DispersionState     string
}

func (r MetricsRow) record() []string {
	return []string{
		r.Source, r.Namespace, r.Window, r.Regime, r.Strategy, r.Status, r.Condition,
		r.PaperPnL.StringFixed(2), strconv.Itoa(r.Rejections), r.PrimaryRejectReason,
		r.EmergenceState, r.LiquidityState, r.ExpansionState, r.DispersionState,
	}
}

// Aggregate scans every root for evaluated windows (any directory holding a
// rejection analysis) and joins each window's rejections with its paper P&L
// and watcher states, keyed by the window's regime code. Rows are ordered by
// regime, strategy, source and window.
func Aggregate(roots ...string) ([]MetricsRow, error) {
	var rows []MetricsRow
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			return nil, fmt.Errorf("comparison root %s: %w", root, err)
		}

		var dirs []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && d.Name() == artifacts.RejectionAnalysis {
				dirs = append(dirs, filepath.Dir(path))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}

		for _, dir := range dirs {
			windowRows, err := windowMetrics(filepath.Base(filepath.Clean(root)), dir)
			if err != nil {
				return nil, err
			}
			rows = append(rows, windowRows...)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Regime != b.Regime {
			return a.Regime < b.Regime
		}
		if a.Strategy != b.Strategy {
			return a.Strategy < b.Strategy
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Window < b.Window
	})
	return rows, nil
}

type rejectionTally struct {
	total   int
	reasons map[string]int
	regime  string
}

// primary is the most frequent reason; ties go to the first in sort order
func (t *rejectionTally) primary() string {
	if t == nil || len(t.reasons) == 0 {
		return "NONE"
	}
	reasons := make([]string, 0, len(t.reasons))
	for r := range t.reasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	best := reasons[0]
	for _, r := range reasons[1:] {
		if t.reasons[r] > t.reasons[best] {
			best = r
		}
	}
	return best
}

func windowMetrics(source, dir string) ([]MetricsRow, error) {
	_, rejections, err := readCSV(filepath.Join(dir, artifacts.RejectionAnalysis))
	if err != nil {
		return nil, err
	}

	tallies := map[string]*rejectionTally{}
	for _, row := range rejections {
		if len(row) < len(rejectionHeader) {
			return nil, fmt.Errorf("%s: short rejection row %v", dir, row)
		}
		count, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s: rejection count %q: %w", dir, row[2], err)
		}
		t, ok := tallies[row[0]]
		if !ok {
			t = &rejectionTally{reasons: map[string]int{}, regime: row[3]}
			tallies[row[0]] = t
		}
		t.total += count
		t.reasons[row[1]] += count
	}

	pnl := map[string][]string{}
	if _, pnlRows, err := readCSV(filepath.Join(dir, artifacts.PaperPnLSummary)); err == nil {
		for _, row := range pnlRows {
			if len(row) == len(pnlHeader) {
				pnl[row[0]] = row
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	strategies := make([]string, 0, len(tallies)+len(pnl))
	seen := map[string]bool{}
	for id := range tallies {
		seen[id] = true
		strategies = append(strategies, id)
	}
	for id := range pnl {
		if !seen[id] {
			strategies = append(strategies, id)
		}
	}
	sort.Strings(strategies)

	states := map[string]string{}
	for _, e := range watchers.LoadEmissions(dir) {
		states[e.Watcher] = e.State
	}
	regimeCode := unknownState
	if rc, err := regime.Load(dir, filepath.Base(dir)); err == nil && rc.RegimeCode != "" {
		regimeCode = rc.RegimeCode
	}

	state := func(watcher string) string {
		if s, ok := states[watcher]; ok && s != "" {
			return s
		}
		return unknownState
	}

	rows := make([]MetricsRow, 0, len(strategies))
	for _, id := range strategies {
		t := tallies[id]
		row := MetricsRow{
			Source:              source,
			Namespace:           filepath.Base(filepath.Dir(dir)),
			Window:              filepath.Base(dir),
			Regime:              regimeCode,
			Strategy:            id,
			Status:              "ACTIVE",
			Condition:           "ROBUST",
			PaperPnL:            decimal.Zero,
			PrimaryRejectReason: t.primary(),
			EmergenceState:      state(models.WatcherMomentumEmergence),
			LiquidityState:      state(models.WatcherLiquidityCompression),
			ExpansionState:      state(models.WatcherExpansionTransition),
			DispersionState:     state(models.WatcherDispersionBreakout),
		}
		if t != nil {
			row.Rejections = t.total
			if row.Regime == unknownState && t.regime != "" {
				row.Regime = t.regime
			}
		}
		if row.Rejections > 0 {
			row.Status = "LIMITED"
			row.Condition = "FRAGILE"
		}
		if p, ok := pnl[id]; ok {
			if v, err := decimal.NewFromString(p[1]); err == nil {
				row.PaperPnL = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteMetricsTable writes the rows as CSV and as a markdown table into dir
// and returns both paths.
func WriteMetricsTable(dir string, rows []MetricsRow) ([]string, error) {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.record()
	}

	csvPath := filepath.Join(dir, artifacts.MetricsTableCSV)
	if err := writeCSV(csvPath, metricsHeader, records); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("# Evolution Metrics Table\n\n")
	if len(rows) == 0 {
		b.WriteString("No evaluated windows found.\n")
	} else {
		fmt.Fprintf(&b, "**Rows**: %d\n\n", len(rows))
		b.WriteString(markdownTable(metricsHeader, records))
		b.WriteString("\n")
	}
	mdPath := filepath.Join(dir, artifacts.MetricsTableMarkdown)
	if err := artifacts.Write(mdPath, []byte(b.String())); err != nil {
		return nil, err
	}
	return []string{csvPath, mdPath}, nil
}
