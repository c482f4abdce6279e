package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/evharness/internal/profile"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate an Evaluation Profile without running it",
	RunE:  runValidate,
}

var validateProfilePath string

func init() {
	validateCmd.Flags().StringVar(&validateProfilePath, "profile", "", "Evaluation Profile YAML file")
	_ = validateCmd.MarkFlagRequired("profile")
}

func runValidate(cmd *cobra.Command, args []string) error {
	p, err := profile.Load(validateProfilePath)
	if err != nil {
		logger.Error().Err(err).Str("path", validateProfilePath).Msg("Profile rejected")
		return fail(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Profile %s %s is valid (%s, %s windowing)\n",
		p.ProfileID, p.Version, p.Mode.Type, p.Windowing.Type)
	return nil
}
