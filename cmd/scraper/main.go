package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shanehull/dlvscan/internal/config"
)

type flags struct {
	configPath string
	threshold  float64
	maxRows    int
	format     string
	output     string
	url        string
	noEmail    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "scraper",
		Short: "Scan the stock deliverables page for high delivery percentage stocks",
		Long: `scraper fetches the daily stock deliverables table, keeps the stocks whose
delivery percentage is at or above the threshold, scores each one and reports
the result on stdout, to a file and optionally by e-mail.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCommand(cmd, f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Path to a YAML, TOML or JSON config file")
	pf.Float64VarP(&f.threshold, "threshold", "t", 85, "Minimum delivery percentage (inclusive)")
	pf.IntVarP(&f.maxRows, "max-rows", "n", 0, "Maximum number of stocks to report (0 = no cap)")
	pf.StringVarP(&f.format, "format", "f", "text", "Report format: text, json, yaml, html or markdown")
	pf.StringVarP(&f.output, "output", "o", "", "Write the report to this file instead of stdout")
	pf.StringVar(&f.url, "url", "", "Override the source page URL")
	pf.BoolVar(&f.noEmail, "no-email", false, "Do not send the report by e-mail")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run one scan and exit (default)",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCommand(cmd, f)
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Run scans on the configured cron schedule until interrupted",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return watchCommand(cmd, f)
			},
		},
	)

	return root
}

// loadConfig applies only the flags the user actually set, so config files
// and the environment keep their values otherwise.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	overrides := map[string]any{}
	changed := cmd.Flags().Changed

	if changed("threshold") {
		overrides["selection.threshold"] = f.threshold
	}
	if changed("max-rows") {
		overrides["selection.max_rows"] = f.maxRows
	}
	if changed("format") {
		overrides["report.format"] = f.format
	}
	if changed("output") {
		overrides["report.output"] = f.output
	}
	if changed("url") {
		overrides["source.url"] = f.url
	}

	return config.Load(f.configPath, overrides)
}
