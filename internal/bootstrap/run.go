package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rowboat-io/rowboat/config"
	"github.com/rowboat-io/rowboat/internal/adapters/exporter"
)

// ServiceOrchestrationConfig groups everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts the enabled services and blocks until a
// shutdown signal arrives or a service fails. SIGINT and SIGTERM trigger a
// graceful stop.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if cfg.Config.IsExporterEnabled() {
		runner, err := newExporterRunner(cfg, logger)
		if err != nil {
			return err
		}
		group.Go(func() error {
			return runner.Run(groupCtx)
		})
	}

	if cfg.Config.IsHTTPServerEnabled() {
		httpCfg := &HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			DB:       cfg.DB,
			Logger:   logger,
		}
		server := NewHTTPServer(httpCfg)
		group.Go(func() error {
			return ServeHTTP(groupCtx, server, httpCfg)
		})
	}

	err := group.Wait()
	CloseServices(ctx, cfg.Services, logger)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("all services stopped")
	return nil
}

func newExporterRunner(cfg *ServiceOrchestrationConfig, logger *slog.Logger) (*exporter.Runner, error) {
	opts := exporter.RunnerOptions{
		Exports:      cfg.Services.Exports,
		DBLock:       cfg.Services.Exports,
		Runs:         cfg.Services.Runs,
		Exporter:     cfg.Services.Exporter,
		Interval:     cfg.Config.Exporter.Interval,
		BatchSize:    cfg.Config.Exporter.BatchSize,
		LockTTL:      cfg.Config.Exporter.LockTTL,
		RunRetention: cfg.Config.Exporter.RunRetention,
		Logger:       logger,
	}
	if cfg.Services.RunLock != nil {
		opts.Lock = cfg.Services.RunLock
	}
	if cfg.Services.Metrics != nil {
		opts.Metrics = cfg.Services.Metrics
	}
	return exporter.NewRunner(opts)
}
