package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/evharness/internal/app"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the configured cron tasks until interrupted",
	RunE:  runSchedule,
}

var scheduleRunNow []string

func init() {
	scheduleCmd.Flags().StringSliceVar(&scheduleRunNow, "run-now", nil, "Task names to execute once at startup")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if !config.Scheduler.Enabled {
		return fail(errors.New("scheduler is disabled ([scheduler] enabled = false)"))
	}
	if len(config.Scheduler.Tasks) == 0 {
		return fail(errors.New("no [[scheduler.tasks]] configured"))
	}

	application, err := app.New(config, logger)
	if err != nil {
		return fail(err)
	}
	defer application.Close()

	scheduler := application.Scheduler
	if err := scheduler.ScheduleAll(config.Scheduler.Tasks); err != nil {
		return fail(err)
	}

	ctx := cmd.Context()
	for _, name := range scheduleRunNow {
		if err := scheduler.RunNow(ctx, name); err != nil {
			logger.Warn().Err(err).Str("task_name", name).Msg("Startup run failed")
		}
	}

	if err := scheduler.Start(); err != nil {
		return fail(err)
	}
	for _, t := range config.Scheduler.Tasks {
		if status, err := scheduler.GetTaskStatus(t.Name); err == nil && status.NextRun != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %-16s next %s\n", t.Name, t.Type, status.NextRun.Format("2006-01-02 15:04"))
		}
	}

	logger.Info().Int("tasks", len(config.Scheduler.Tasks)).Msg("Scheduler running - Press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received")

	return scheduler.Stop()
}
