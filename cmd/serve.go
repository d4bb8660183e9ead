package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/extwatch/storecrawl/internal/api"
)

// newServeCmd creates the 'serve' subcommand, which exposes harvest runs
// over HTTP alongside health and metrics endpoints.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the harvest HTTP API",
		Long: `Starts the HTTP server: POST /v1/runs triggers a harvest for one
category and returns its summary; /healthz, /readyz, and /metrics expose
service health and Prometheus metrics.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(appInstance.Runner, prometheus.DefaultGatherer, appInstance.Logger)
			addr := fmt.Sprintf(":%d", appInstance.Cfg.Server.Port)
			return server.Run(ctx, addr)
		},
	}
}
