package main

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func watchCommand(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	ctx := logger.WithContext(cmd.Context())

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("invalid time zone name '%s': %w", cfg.Schedule.Timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.Schedule.Cron, func() {
		// Each scheduled run gets fresh metrics and a fresh run id.
		if err := runOnce(ctx, cfg, cmd.OutOrStdout(), !f.noEmail); err != nil {
			logger.Error().Err(err).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.Schedule.Cron, err)
	}

	c.Start()
	logger.Info().
		Str("schedule", cfg.Schedule.Cron).
		Str("timezone", cfg.Schedule.Timezone).
		Time("next", c.Entries()[0].Next).
		Msg("Watching for scheduled runs")

	<-ctx.Done()
	logger.Info().Msg("Shutting down, waiting for a running scan to finish")
	<-c.Stop().Done()
	return nil
}
