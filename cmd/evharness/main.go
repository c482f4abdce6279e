package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported, later files override earlier ones
	logLevel    string
	outputRoot  string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "evharness",
	Short: "Shadow-only evaluation harness for strategy evolution",
	Long: `Runs Evaluation Profiles over historical or forced regimes, resolves
strategy eligibility per window and compiles evidence bundles with
governance records. Nothing here places orders.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// exitError carries a process exit code through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func fail(err error) error {
	return &exitError{code: 1, err: err}
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")
	rootCmd.PersistentFlags().StringVar(&outputRoot, "output-root", "", "Output root for artifacts, ledger and DIDs (overrides config)")

	rootCmd.AddCommand(runCmd, validateCmd, windowsCmd, ingestCmd, scheduleCmd, reportCmd, compareCmd, versionCmd)
}

// setup runs before every subcommand:
// 1. load config (defaults -> file1 -> file2 -> ... -> env)
// 2. apply CLI overrides
// 3. initialize logger
// 4. print banner
func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("evharness.toml"); err == nil {
			configFiles = append(configFiles, "evharness.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fail(fmt.Errorf("failed to load configuration: %w", err))
	}
	common.ApplyFlagOverrides(config, logLevel, outputRoot)

	logger = common.InitLogger(config)
	common.InstallCrashHandler(filepath.Dir(config.Logging.FilePath))
	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Strs("config_files", configFiles).
		Str("series_dir", config.Data.SeriesDir).
		Str("output_root", config.Output.Root).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")
	return nil
}

func main() {
	os.Exit(execute())
}

func execute() int {
	defer common.RecoverWithCrashFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return 1
}
