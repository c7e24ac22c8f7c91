// Command dashboard serves a local preview of the St. Himark damage
// dashboard's filtered report data.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/himark-dashboard/internal/adapter/http"
	"github.com/couchcryptid/himark-dashboard/internal/config"
	"github.com/couchcryptid/himark-dashboard/internal/dataset"
	"github.com/couchcryptid/himark-dashboard/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, "himark-dashboard", cfg.OTelEndpoint)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	catalog := dataset.NewCatalog(logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, catalog, cfg.Sync, cfg.ResultCacheSize, logger, metrics)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load the dataset; /readyz reports 503 until it succeeds.
	go func() {
		if err := catalog.LoadWithRetry(ctx, cfg.DataPath, 200*time.Millisecond, 5*time.Second); err != nil {
			logger.Info("dataset load stopped", "reason", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
