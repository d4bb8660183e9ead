// Package cmd defines the CLI commands for the storecrawl executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/extwatch/storecrawl/internal/app"
	"github.com/extwatch/storecrawl/internal/config"
	"github.com/extwatch/storecrawl/internal/logging"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can replace it
// with a fake factory.
var newApp = func(ctx context.Context, cfgPath string) (*app.App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return app.New(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storecrawl",
		Short: "Harvests extension listings from the Chrome Web Store.",
		Long: `storecrawl drives the store's internal batchexecute endpoint to
collect extension listings per category, decode them into typed records, and
export them as CSV or JSON artifacts. Optional Postgres persistence and
Pub/Sub notifications are wired through configuration.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close(context.Background())
				if err := appInstance.Logger.Sync(); err != nil {
					// Sync on stderr is expected to fail on some platforms.
					_ = err
				}
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default relies on built-in defaults plus STORECRAWL_* env vars)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
