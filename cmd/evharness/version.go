package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/evharness/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "evharness version %s\n", common.GetFullVersion())
		fmt.Fprintf(cmd.OutOrStdout(), "evolution contract %s (frozen %s)\n", common.EvolutionVersion, common.EvolutionFrozenDate)
	},
}
