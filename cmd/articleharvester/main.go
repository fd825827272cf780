package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"ArticlesHarvester/internal/app"
	"ArticlesHarvester/internal/config"
	"ArticlesHarvester/internal/logging"
)

var (
	configFile        string
	cutoffDays        int
	maxPages          int
	discoveryWorkers  int
	enrichmentWorkers int
)

var rootCmd = &cobra.Command{
	Use:           "articleharvester",
	Short:         "Discover recent articles on a paginated listing and extract structured data from them",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one discovery and enrichment pass",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, cfg, logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
		if err != nil {
			return err
		}
		defer application.Close()

		summary, err := application.RunOnce(ctx, cfg.Pipeline.RunParams())
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), summary)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the pipeline on the configured cron schedule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, cfg, logging.NewWithWriter(os.Stdout, cfg.Logging.Level, cfg.Logging.Format))
		if err != nil {
			return err
		}
		defer application.Close()

		return application.Serve(ctx, cfg.Pipeline.RunParams())
	},
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFrom(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("days") {
		cfg.Pipeline.CutoffDays = cutoffDays
	}
	if flags.Changed("pages") {
		cfg.Pipeline.MaxPages = maxPages
	}
	if flags.Changed("discovery-workers") {
		cfg.Pipeline.DiscoveryConcurrency = discoveryWorkers
	}
	if flags.Changed("enrichment-workers") {
		cfg.Pipeline.EnrichmentConcurrency = enrichmentWorkers
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config (default $ARTICLE_HARVESTER_CONFIG)")
	rootCmd.PersistentFlags().IntVar(&cutoffDays, "days", 5, "Only articles published within this many days")
	rootCmd.PersistentFlags().IntVar(&maxPages, "pages", 50, "Maximum listing pages to scan")
	rootCmd.PersistentFlags().IntVar(&discoveryWorkers, "discovery-workers", 4, "Listing pages fetched per batch")
	rootCmd.PersistentFlags().IntVar(&enrichmentWorkers, "enrichment-workers", 5, "Concurrent extraction workers")

	rootCmd.AddCommand(runCmd, serveCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
