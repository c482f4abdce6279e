package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/evidence"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Aggregate evaluated windows into a comparative metrics table",
	Long: `Scans one or more output roots for evaluated windows and joins each
window's rejection analysis with its paper P&L and watcher states. Writes
evolution_metrics_table.csv and .md to the output directory.`,
	RunE: runCompare,
}

var (
	compareRoots  []string
	compareOutput string
)

func init() {
	compareCmd.Flags().StringArrayVar(&compareRoots, "roots", nil, "Directory to scan (repeatable, default: <output-root>/evolution/evaluation)")
	compareCmd.Flags().StringVar(&compareOutput, "output", "", "Directory for the metrics table (default: <output-root>/evolution/meta_analysis)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	layout := artifacts.NewLayout(config.Output.Root)
	roots := compareRoots
	if len(roots) == 0 {
		roots = []string{layout.EvaluationDir()}
	}
	output := compareOutput
	if output == "" {
		output = layout.MetaAnalysisDir()
	}

	rows, err := evidence.Aggregate(roots...)
	if err != nil {
		return fail(err)
	}
	written, err := evidence.WriteMetricsTable(output, rows)
	if err != nil {
		return fail(err)
	}

	logger.Info().Strs("roots", roots).Int("rows", len(rows)).Msg("Metrics table written")
	fmt.Fprintf(cmd.OutOrStdout(), "Aggregated %d rows\n", len(rows))
	for _, path := range written {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
