package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/rowboat-io/rowboat/config"
	httpx "github.com/rowboat-io/rowboat/internal/http"
)

// HTTPServerConfig contains configuration for the status HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// NewHTTPServer builds the status server without starting it.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	appCfg := cfg.Config

	router := httpx.NewRouter(httpx.RouterServices{
		Exports: cfg.Services.Exports,
		Runs:    cfg.Services.Runs,
		Trigger: cfg.Services.Trigger,
		DB:      cfg.DB,
	})

	return &http.Server{
		Addr:         net.JoinHostPort(appCfg.HTTP.Host, strconv.Itoa(appCfg.HTTP.Port)),
		Handler:      router,
		ReadTimeout:  appCfg.HTTP.ReadTimeout,
		WriteTimeout: appCfg.HTTP.WriteTimeout,
		IdleTimeout:  appCfg.HTTP.IdleTimeout,
	}
}

// ServeHTTP runs the server until the context is cancelled, then shuts it
// down gracefully.
func ServeHTTP(ctx context.Context, server *http.Server, cfg *HTTPServerConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Config.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return <-errCh
}
