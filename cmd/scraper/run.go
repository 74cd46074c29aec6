package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shanehull/dlvscan/internal/ai"
	"github.com/shanehull/dlvscan/internal/config"
	"github.com/shanehull/dlvscan/internal/fetch"
	"github.com/shanehull/dlvscan/internal/history"
	"github.com/shanehull/dlvscan/internal/metrics"
	"github.com/shanehull/dlvscan/internal/notify"
	"github.com/shanehull/dlvscan/internal/pipeline"
	"github.com/shanehull/dlvscan/internal/score"
	"github.com/shanehull/dlvscan/internal/types"
)

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stderr
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func runCommand(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	ctx := logger.WithContext(cmd.Context())

	return runOnce(ctx, cfg, cmd.OutOrStdout(), !f.noEmail)
}

// runOnce performs a single scan and delivers its report.
func runOnce(ctx context.Context, cfg *config.Config, stdout io.Writer, sendEmail bool) error {
	logger := zerolog.Ctx(ctx)

	m := metrics.New()
	defer func() {
		if cfg.Metrics.Textfile == "" {
			return
		}
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn().Err(err).Msg("Warning: could not write metrics")
		}
	}()

	scorer, err := score.New(cfg.Scoring)
	if err != nil {
		return err
	}

	fetcher := fetch.New(cfg.Source.FetchConfig(), fetch.WithAttemptHook(m.RecordFetchAttempt))

	opts := []pipeline.Option{pipeline.WithMetrics(m)}
	if cfg.AI.Enabled() {
		client, err := ai.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			logger.Warn().Err(err).Msg("Warning: AI commentary disabled")
		} else {
			opts = append(opts, pipeline.WithEnricher(client))
		}
	}

	runner := pipeline.New(pipeline.Config{
		URL:       cfg.Source.URL,
		Threshold: cfg.Selection.Threshold,
		MaxRows:   cfg.Selection.MaxRows,
		Workers:   cfg.Workers,
	}, fetcher, scorer, opts...)

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Str("reason", pipeline.Reason(err)).Msg("Run aborted")
		return err
	}

	loc, err := time.LoadLocation(cfg.History.Timezone)
	if err != nil {
		return fmt.Errorf("invalid time zone name '%s': %w", cfg.History.Timezone, err)
	}
	composer := notify.NewComposer(loc)

	if err := writeReport(composer, report, cfg.Report, stdout); err != nil {
		return err
	}

	if sendEmail && cfg.Email.Enabled {
		if err := emailReport(ctx, composer, report, cfg); err != nil {
			return err
		}
	}

	logger.Info().Str("run_id", report.RunID).Int("picks", len(report.Picks)).Msg("Run complete")
	return nil
}

func writeReport(c *notify.Composer, report *types.Report, cfg config.ReportConfig, stdout io.Writer) error {
	format, err := notify.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	if cfg.Output == "" {
		return c.Write(stdout, report, format)
	}

	file, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := c.Write(file, report, format); err != nil {
		file.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return file.Close()
}

// emailReport sends the report unless every pick in it was already sent today.
func emailReport(ctx context.Context, c *notify.Composer, report *types.Report, cfg *config.Config) error {
	logger := zerolog.Ctx(ctx)

	hist, err := history.NewManager(ctx, cfg.History.Dir, cfg.History.Timezone)
	if err != nil {
		return fmt.Errorf("failed to set up history: %w", err)
	}

	if !hist.HasNew(report) {
		logger.Info().Str("history", hist.HistoryFilePath()).Msg("Nothing new since the last e-mail today, skipping")
		return nil
	}

	msg, err := c.Message(report)
	if err != nil {
		return err
	}

	sender := notify.NewEmailSender(notify.EmailConfig{
		SMTPServer: cfg.Email.SMTPServer,
		SMTPPort:   cfg.Email.SMTPPort,
		SMTPUser:   cfg.Email.SMTPUser,
		SMTPPass:   cfg.Email.SMTPPass,
		FromEmail:  cfg.Email.FromEmail,
		ToEmails:   cfg.Email.ToEmails,
		Enabled:    cfg.Email.Enabled,
	})
	if err := sender.Send(ctx, msg); err != nil {
		return err
	}

	return hist.Record(report)
}
