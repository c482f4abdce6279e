package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/evharness/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a window bundle to HTML and/or PDF",
	RunE:  runReport,
}

var (
	reportWindowDir string
	reportHTML      bool
	reportPDF       bool
)

func init() {
	reportCmd.Flags().StringVar(&reportWindowDir, "window-dir", "", "Window artifact directory holding evolution_evaluation_bundle.md")
	reportCmd.Flags().BoolVar(&reportHTML, "html", false, "Render HTML (default: [report] html)")
	reportCmd.Flags().BoolVar(&reportPDF, "pdf", false, "Render PDF (default: [report] pdf)")
	_ = reportCmd.MarkFlagRequired("window-dir")
}

func runReport(cmd *cobra.Command, args []string) error {
	asHTML, asPDF := reportHTML, reportPDF
	if !cmd.Flags().Changed("html") && !cmd.Flags().Changed("pdf") {
		asHTML, asPDF = config.Report.HTML, config.Report.PDF
	}
	if !asHTML && !asPDF {
		return fail(fmt.Errorf("nothing to render: pass --html and/or --pdf"))
	}

	written, err := report.NewRenderer(logger).Render(reportWindowDir, asHTML, asPDF)
	if err != nil {
		return fail(err)
	}
	for _, path := range written {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
