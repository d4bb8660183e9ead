package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/extwatch/storecrawl/internal/export"
)

// newExportCmd creates the 'export' subcommand, which re-encodes a JSON
// artifact from an earlier harvest into another format.
func newExportCmd() *cobra.Command {
	var (
		input  string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Re-encodes a harvest artifact into another format",
		Long: `Reads a JSON artifact written by a previous run and writes it back
through the configured artifact store in the requested format. Useful for
producing a CSV from a run that was exported as JSON.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			target, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read artifact: %w", err)
			}
			extensions, err := export.DecodeJSON(data)
			if err != nil {
				return err
			}

			name := output
			if name == "" {
				base := filepath.Base(input)
				base = strings.TrimSuffix(base, filepath.Ext(base))
				name = base + "." + target.Extension()
			}
			if appInstance.ExportDir != "" {
				name = appInstance.ExportDir + "/" + name
			}

			uri, err := appInstance.Exporter.Export(cmd.Context(), name, target, extensions)
			if err != nil {
				return err
			}
			appInstance.Logger.Info("artifact re-encoded",
				zap.String("input", input),
				zap.String("uri", uri),
				zap.Int("extensions", len(extensions)))
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "path to a JSON artifact from a previous run")
	cmd.Flags().StringVar(&format, "format", "csv", "target format (csv or json)")
	cmd.Flags().StringVar(&output, "output", "", "artifact name (default derives from the input name)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
