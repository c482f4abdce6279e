package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/regime"
	"github.com/ternarybob/evharness/internal/watchers"
)

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// CompileBundle aggregates the window's artifacts into
// evolution_evaluation_bundle.md. The bundle carries only timestamps read from
// its inputs, so recompiling unchanged inputs is byte-identical.
func CompileBundle(dir, windowID string) (string, error) {
	rc, err := regime.Load(dir, windowID)
	if err != nil {
		return "", err
	}

	content := renderBundle(dir, rc)
	path := filepath.Join(dir, artifacts.Bundle)
	if err := artifacts.Write(path, []byte(content)); err != nil {
		return "", fmt.Errorf("failed to write bundle: %w", err)
	}
	return path, nil
}

func renderBundle(dir string, rc *models.RegimeContext) string {
	var b strings.Builder
	b.WriteString("# Evolution Evaluation Bundle\n\n")
	fmt.Fprintf(&b, "**Window**: %s (%s .. %s)\n", rc.Window.WindowID, rc.Window.Start, rc.Window.End)
	fmt.Fprintf(&b, "**Market**: %s\n", rc.Market)
	fmt.Fprintf(&b, "**Computed At**: %s\n", rc.ComputedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Execution Context**: %s (%s)\n", rc.RegimeLabel, rc.RegimeCode)
	fmt.Fprintf(&b, "**Context Version**: %s\n", rc.Version)
	fmt.Fprintf(&b, "**Viability**: %s\n", rc.Viability.Status)
	if rc.IsCounterfactual {
		fmt.Fprintf(&b, "**Counterfactual**: %s\n", rc.Rationale)
	}
	b.WriteString("\n")

	csvSection(&b, "1. Strategy Activation", filepath.Join(dir, artifacts.ActivationMatrix), "No strategy activation data found.")
	csvSection(&b, "2. Decision Trace Log", filepath.Join(dir, artifacts.DecisionTraceLog), "No decision trace data found.")
	csvSection(&b, "3. Paper P&L Summary", filepath.Join(dir, artifacts.PaperPnLSummary), "No paper P&L data found.")

	b.WriteString("## 4. Coverage Diagnostics\n")
	if data, err := readFile(filepath.Join(dir, artifacts.CoverageReport)); err == nil {
		b.Write(data)
		b.WriteString("\n\n")
	} else {
		b.WriteString("No coverage diagnostics found.\n\n")
	}

	csvSection(&b, "5. Rejection Analysis", filepath.Join(dir, artifacts.RejectionAnalysis), "No rejection analysis found.")

	b.WriteString("## 6. Watcher Emissions\n")
	emissions := watchers.LoadEmissions(dir)
	if len(emissions) == 0 {
		b.WriteString("No watcher emissions found.\n")
		return b.String()
	}
	b.WriteString(markdownTable(
		[]string{"watcher", "state", "confidence", "notes"},
		emissionRows(emissions),
	))
	b.WriteString("\n")
	return b.String()
}

func emissionRows(emissions []models.WatcherEmission) [][]string {
	rows := make([][]string, 0, len(emissions))
	for _, e := range emissions {
		rows = append(rows, []string{e.Watcher, e.State, fmt.Sprintf("%.2f", e.Confidence), strings.Join(e.Notes, " ")})
	}
	return rows
}

func csvSection(b *strings.Builder, title, path, missing string) {
	fmt.Fprintf(b, "## %s\n", title)
	header, rows, err := readCSV(path)
	if err != nil {
		b.WriteString(missing + "\n\n")
		return
	}
	b.WriteString(markdownTable(header, rows))
	b.WriteString("\n\n")
}

func markdownTable(header []string, rows [][]string) string {
	if len(header) == 0 {
		return "Empty table."
	}
	var b strings.Builder
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", "\\|")
		}
		b.WriteString("\n| " + strings.Join(cells, " | ") + " |")
	}
	return b.String()
}
