package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rowboat-io/rowboat/config"
	"github.com/rowboat-io/rowboat/internal/data"
	"github.com/rowboat-io/rowboat/internal/observability/statsd"
	"github.com/rowboat-io/rowboat/internal/service"
	"github.com/rowboat-io/rowboat/internal/sink"
)

// ServiceContainer holds the wired application services and repositories.
type ServiceContainer struct {
	Exports  *data.ExportRepo
	Runs     *data.RunRepo
	RunLock  *data.RunLock
	Exporter *service.ExporterService
	Trigger  *service.TriggerService
	Metrics  *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires the repositories, sinks, and services.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	sinks, err := BuildSinks(cfg, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	metricsSink := buildMetrics(cfg, logger)

	exports := data.NewExportRepo(deps.DB)
	runs := data.NewRunRepo(deps.DB)

	var lock *data.RunLock
	if deps.RedisClient != nil {
		lock = data.NewRunLock(deps.RedisClient, cfg.Observability.Metrics.Prefix+":run")
	}

	exporter := service.NewExporterService(service.ExporterServiceOptions{
		Rows:   data.NewRowSource(deps.DB, cfg.Exporter.QueryTimeout),
		Sinks:  sinks,
		Logger: logger,
	})

	triggerOpts := service.TriggerServiceOptions{
		Exports:  exports,
		Runs:     runs,
		Exporter: exporter,
		LockTTL:  cfg.Exporter.LockTTL,
	}
	// Assign the lock only when present; a typed nil would defeat the
	// interface nil checks downstream.
	if lock != nil {
		triggerOpts.Lock = lock
	}
	trigger := service.NewTriggerService(triggerOpts)

	return ServiceContainer{
		Exports:  exports,
		Runs:     runs,
		RunLock:  lock,
		Exporter: exporter,
		Trigger:  trigger,
		Metrics:  metricsSink,
	}, nil
}

// BuildSinks constructs the delivery sinks that have connection settings.
func BuildSinks(cfg *config.AppConfig, logger *slog.Logger) ([]sink.Sink, error) {
	var sinks []sink.Sink

	if cfg.Sinks.FTP.Configured() {
		ftpSink, err := sink.NewFTPSink(sink.FTPConfig{
			Host:     cfg.Sinks.FTP.Host,
			Port:     cfg.Sinks.FTP.Port,
			User:     cfg.Sinks.FTP.User,
			Password: cfg.Sinks.FTP.Password,
			Timeout:  cfg.Sinks.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("configure ftp sink: %w", err)
		}
		sinks = append(sinks, ftpSink)
	}

	if cfg.Sinks.HTTP.Configured() {
		httpSink, err := sink.NewHTTPSink(sink.HTTPConfig{
			URL:     cfg.Sinks.HTTP.URL,
			Timeout: cfg.Sinks.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("configure http sink: %w", err)
		}
		sinks = append(sinks, httpSink)
	}

	if len(sinks) == 0 {
		logger.Warn("no sinks configured; every export run will fail delivery")
	}
	return sinks, nil
}

func buildMetrics(cfg *config.AppConfig, logger *slog.Logger) *statsd.Client {
	if !cfg.Observability.Metrics.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  cfg.Observability.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// CloseServices releases resources held by the container.
func CloseServices(ctx context.Context, services ServiceContainer, logger *slog.Logger) {
	if services.Metrics != nil {
		if err := services.Metrics.Close(); err != nil && logger != nil {
			logger.ErrorContext(ctx, "close statsd client failed", "error", err)
		}
	}
}
