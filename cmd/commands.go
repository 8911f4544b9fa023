package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/okian/pathbench/internal/app"
	"github.com/okian/pathbench/internal/config"
	"github.com/okian/pathbench/pkg/logger"
)

// cli holds state shared by the subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
}

func rootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "pathbench",
		Short: "Benchmark network paths against a baseline and decide which ones pass",
		Long: `pathbench drives search probes through a set of vendors (network paths such
as proxies) at increasing concurrency, measures reliability, latency, result
correctness, session stickiness, geo quality and cost relative to a baseline
vendor, and renders a PASS/FAIL verdict with a root-cause hint per vendor.

Configuration is layered: defaults, then the YAML file given by --config or
PATHBENCH_CONFIG, then PATHBENCH_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}
	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML configuration file")

	cmd.AddCommand(runCmd(c), analyzeCmd(c))
	return cmd
}

func (c *cli) init(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context(), c.configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	c.cfg = cfg
	return nil
}

func runCmd(c *cli) *cobra.Command {
	var vendors, queries, output, baseline string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a live benchmark with the simulated prober",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("vendors") {
				c.cfg.VendorsFile = vendors
			}
			if flags.Changed("queries") {
				c.cfg.QueriesFile = queries
			}
			if flags.Changed("output") {
				c.cfg.OutputDir = output
			}
			if flags.Changed("baseline") {
				c.cfg.Baseline = baseline
			}

			ctx := cmd.Context()
			svc := app.New(c.cfg, app.WithOutput(cmd.OutOrStdout()))

			// The listener keeps serving the report after the run, until interrupted.
			var served chan error
			if c.cfg.MetricsAddr != "" {
				served = make(chan error, 1)
				go func() { served <- svc.Serve(ctx, nil) }()
			}

			res, err := svc.Run(ctx)
			if res != nil {
				if serr := svc.Summarize(res); serr != nil {
					return serr
				}
			}
			if errors.Is(err, context.Canceled) {
				return fmt.Errorf("run interrupted: %w", err)
			}
			if err != nil || served == nil {
				return err
			}
			logger.Get().Info(ctx, "run finished, serving the report until interrupted",
				logger.String("addr", c.cfg.MetricsAddr))
			return <-served
		},
	}
	cmd.Flags().StringVar(&vendors, "vendors", "", "vendors file (JSON array or object)")
	cmd.Flags().StringVar(&queries, "queries", "", "queries file, one query per line")
	cmd.Flags().StringVar(&output, "output", "", "directory for results.json and events.jsonl")
	cmd.Flags().StringVar(&baseline, "baseline", "", "baseline vendor name")
	return cmd
}

func analyzeCmd(c *cli) *cobra.Command {
	var baseline string
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Evaluate recorded batch documents or JSONL event streams",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("baseline") {
				c.cfg.Baseline = baseline
			}
			svc := app.New(c.cfg, app.WithOutput(cmd.OutOrStdout()))
			res, err := svc.Analyze(cmd.Context(), args)
			if err != nil {
				return err
			}
			return svc.Summarize(res)
		},
	}
	cmd.Flags().StringVar(&baseline, "baseline", "", "baseline vendor name")
	return cmd
}
