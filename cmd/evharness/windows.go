package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/pipeline"
	"github.com/ternarybob/evharness/internal/profile"
	"github.com/ternarybob/evharness/internal/strategy"
	"github.com/ternarybob/evharness/internal/windows"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Print the windows a profile generates",
	RunE:  runWindows,
}

var (
	windowsProfilePath string
	windowsStart       string
	windowsEnd         string
)

func init() {
	windowsCmd.Flags().StringVar(&windowsProfilePath, "profile", "", "Evaluation Profile YAML file")
	windowsCmd.Flags().StringVar(&windowsStart, "start", "", "Horizon start override (YYYY-MM-DD)")
	windowsCmd.Flags().StringVar(&windowsEnd, "end", "", "Horizon end override (YYYY-MM-DD)")
	_ = windowsCmd.MarkFlagRequired("profile")
	windowsCmd.MarkFlagsRequiredTogether("start", "end")
}

func runWindows(cmd *cobra.Command, args []string) error {
	p, err := profile.Load(windowsProfilePath)
	if err != nil {
		return fail(err)
	}

	var override *models.Horizon
	if windowsStart != "" {
		override = &models.Horizon{Start: windowsStart, End: windowsEnd}
	}

	// window generation needs series coverage only, so no storage is opened
	o := pipeline.NewOrchestrator(pipeline.OptionsFromConfig(config),
		market.NewCache(config.Data.SeriesDir, logger), strategy.DefaultRegistry(), nil, logger)
	ws, err := o.Windows(p, override)
	if err != nil {
		return fail(err)
	}
	if len(ws) == 0 {
		return fail(fmt.Errorf("profile %s generates no windows", p.ProfileID))
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WINDOW\tSTART\tEND\tDAYS")
	for _, w := range ws {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", w.WindowID,
			w.Start.Format(models.DateLayout), w.End.Format(models.DateLayout), int(w.End.Sub(w.Start).Hours()/24))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d windows, fingerprint %s\n", len(ws), windows.Fingerprint(ws))
	return nil
}
