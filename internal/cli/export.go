package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masumi-network/registry-service/internal/registry/config"
	"github.com/masumi-network/registry-service/internal/registry/database"
	"github.com/masumi-network/registry-service/internal/registry/exporter"
	"github.com/masumi-network/registry-service/internal/registry/health"
	"github.com/masumi-network/registry-service/internal/registry/logging"
	"github.com/masumi-network/registry-service/internal/registry/service"
	"github.com/masumi-network/registry-service/internal/registry/sync"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all registry entries to a JSON file",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "registry.json", "Output path for the export file")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewLogger("export", cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	store, err := database.NewPostgreSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	// The export reads stored state only; no reconciliation or health
	// re-verification is triggered, but the query service still needs a
	// full stack behind it.
	checker := health.NewChecker(store, logger.Named("health"),
		health.WithProbeTimeout(cfg.ProbeTimeout))
	engine := sync.NewEngine(store, cardanoIndexer, checker, logger.Named("sync"))
	registry := service.NewRegistryService(store, engine, checker, logger.Named("service"))

	count, err := exporter.NewService(registry).ExportToPath(ctx, exportOutput)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d registry entries to %s\n", count, exportOutput)
	return nil
}
