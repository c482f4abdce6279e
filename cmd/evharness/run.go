package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ternarybob/evharness/internal/app"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/pipeline"
	"github.com/ternarybob/evharness/internal/profile"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an Evaluation Profile",
	Long: `Validates the profile, evaluates every window and writes the evidence
bundles, ledger entry and DID. Exits 1 on an invalid profile, when no windows
are generated, or when any window fails.`,
	RunE: runProfile,
}

var (
	runProfilePath string
	runStart       string
	runEnd         string
)

func init() {
	runCmd.Flags().StringVar(&runProfilePath, "profile", "", "Evaluation Profile YAML file")
	runCmd.Flags().StringVar(&runStart, "start", "", "Horizon start override (YYYY-MM-DD, requires --end)")
	runCmd.Flags().StringVar(&runEnd, "end", "", "Horizon end override (YYYY-MM-DD, requires --start)")
	_ = runCmd.MarkFlagRequired("profile")
	runCmd.MarkFlagsRequiredTogether("start", "end")
}

func runProfile(cmd *cobra.Command, args []string) error {
	p, err := profile.Load(runProfilePath)
	if err != nil {
		return fail(err)
	}

	var override *models.Horizon
	if runStart != "" {
		override = &models.Horizon{Start: runStart, End: runEnd}
	}

	application, err := app.New(config, logger)
	if err != nil {
		return fail(err)
	}
	defer application.Close()

	result, err := application.Orchestrator.Run(cmd.Context(), p, override)
	if err != nil {
		return fail(err)
	}

	printRun(cmd.OutOrStdout(), result)

	run := result.Run
	switch {
	case run.WindowCount == 0:
		return fail(errors.New("profile generated no windows"))
	case run.Outcome != models.RunSuccess:
		return fail(fmt.Errorf("%d of %d windows failed", len(run.FailedWindows()), run.WindowCount))
	}
	return nil
}

func printRun(w io.Writer, result *pipeline.Result) {
	run := result.Run
	fmt.Fprintf(w, "Run %s  profile=%s  outcome=%s  windows=%d\n", run.RunID, run.ProfileID, run.Outcome, run.WindowCount)
	for _, win := range run.Windows {
		if !win.Success {
			fmt.Fprintf(w, "  %s  FAILED  %s\n", win.WindowID, win.Error)
			continue
		}
		fmt.Fprintf(w, "  %s  %-14s eligible=%d conditional=%d blocked=%d\n",
			win.WindowID, win.RegimeCode, win.Eligible, win.Conditional, win.Blocked)
	}
	if result.Evidence.LedgerPath != "" {
		fmt.Fprintf(w, "Ledger: %s\n", result.Evidence.LedgerPath)
	}
	if result.Evidence.DIDPath != "" {
		fmt.Fprintf(w, "DID:    %s\n", result.Evidence.DIDPath)
	}
}
