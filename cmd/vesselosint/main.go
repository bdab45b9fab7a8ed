// Package main provides the vesselosint binary entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"VesselOSINT/internal/app"
	"VesselOSINT/internal/config"
	"VesselOSINT/internal/logging"
	"VesselOSINT/internal/usecase"
)

const (
	Version = "0.1.0"
	appName = "vesselosint"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Correlate open-source maritime reporting with tracked vessels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML); defaults to $VESSEL_OSINT_CONFIG")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(correlateCmd(flags), serveCmd(flags), watchCmd(flags))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func correlateCmd(flags *globalFlags) *cobra.Command {
	var (
		articles string
		out      string
		format   string
		light    bool
	)

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Run one correlation pass and print the run summary",
		Long: `Correlate runs the pipeline once. With --articles it reads curated JSON
article files matching the glob; otherwise it scans the configured sites.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if out != "" {
				cfg.Export.Path = out
			}
			if format != "" {
				cfg.Export.Format = format
			}
			cfg.Export.LightProvenance = cfg.Export.LightProvenance || light

			return withApp(cmd.Context(), cfg, logger, func(ctx context.Context, a *app.Application) error {
				var (
					report usecase.Report
					err    error
				)
				if articles != "" {
					report, err = a.CorrelateFiles(ctx, articles)
				} else {
					report, err = a.Run(ctx)
				}
				if report.RunID != "" {
					if encErr := printSummary(cmd, report); encErr != nil {
						return encErr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&articles, "articles", "", "Glob of curated article JSON files (doublestar syntax)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write events to this file")
	cmd.Flags().StringVar(&format, "format", "", "Export format: json or jsonl")
	cmd.Flags().BoolVar(&light, "light-provenance", false, "Keep only source url and name in exported provenance")
	return cmd
}

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API and run the scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), cfg, logger, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}

func watchCmd(flags *globalFlags) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Correlate article files dropped into a directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Watch.Dir = dir
			}
			return withApp(cmd.Context(), cfg, logger, func(ctx context.Context, a *app.Application) error {
				return a.Watch(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Drop directory (overrides watch.dir)")
	return cmd
}

func loadConfig(flags *globalFlags) (config.Config, *slog.Logger, error) {
	var cfg config.Config
	if flags.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(flags.configPath); err != nil {
			return config.Config{}, nil, fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Load()
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func withApp(ctx context.Context, cfg config.Config, logger *slog.Logger, fn func(context.Context, *app.Application) error) error {
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close application", "error", cerr)
		}
	}()
	return fn(ctx, application)
}

func printSummary(cmd *cobra.Command, report usecase.Report) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		RunID            string `json:"run_id"`
		AlreadyProcessed int    `json:"already_processed"`
		Summary          any    `json:"summary"`
		Briefing         string `json:"briefing,omitempty"`
	}{report.RunID, report.AlreadyProcessed, report.Summary, report.Briefing})
}
