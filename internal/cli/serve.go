package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/masumi-network/registry-service/internal/registry/api"
	"github.com/masumi-network/registry-service/internal/registry/cardano"
	"github.com/masumi-network/registry-service/internal/registry/config"
	"github.com/masumi-network/registry-service/internal/registry/database"
	"github.com/masumi-network/registry-service/internal/registry/health"
	"github.com/masumi-network/registry-service/internal/registry/logging"
	"github.com/masumi-network/registry-service/internal/registry/models"
	"github.com/masumi-network/registry-service/internal/registry/scheduler"
	"github.com/masumi-network/registry-service/internal/registry/service"
	"github.com/masumi-network/registry-service/internal/registry/sync"
)

// cardanoIndexer is the production IndexerFactory: one Blockfrost client
// per source network and credential.
func cardanoIndexer(network models.Network, credential string) (sync.Indexer, error) {
	return cardano.NewClient(network, credential)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the registry service",
	Long: `Runs the HTTP API together with the background reconciliation,
deregistration and health sweep schedules.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.NewLogger("registry", cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.NewPostgreSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	checker := health.NewChecker(store, logger.Named("health"),
		health.WithProbeTimeout(cfg.ProbeTimeout))

	engine := sync.NewEngine(store, cardanoIndexer, checker, logger.Named("sync"))

	registry := service.NewRegistryService(store, engine, checker, logger.Named("service"))

	sched := scheduler.New(logger.Named("scheduler"))
	sched.Add("sync", cfg.SyncInterval, func(ctx context.Context) error {
		return engine.SyncLatest(ctx, time.Now())
	})
	sched.Add("deregister", cfg.DeregisterInterval, engine.SweepDeregistered)
	sched.Add("health-sweep", cfg.HealthSweepInterval, func(ctx context.Context) error {
		return checker.SweepStale(ctx, time.Now().Add(-cfg.HealthSweepInterval))
	})

	server := api.NewServer(cfg.ServerAddress, registry, logger.Named("api"))

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()
	go sched.Run(ctx)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errChan:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
			return err
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
	return nil
}
