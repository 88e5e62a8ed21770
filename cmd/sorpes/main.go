package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"sorpes/internal/cache"
	"sorpes/internal/cli"
	apphttp "sorpes/internal/http"
	"sorpes/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	logger.Info("Starting sorpes", "port", cfg.Port, "remote", cfg.RemoteBackend, "sync_mode", cfg.SyncMode)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	tracker, res, stats, err := cli.NewTracker(startCtx, cfg, logger, time.Now)
	if err != nil {
		cancelStart()
		logger.Error("Failed to initialize backends", log.FieldError, err)
		os.Exit(1)
	}
	source := tracker.Start(startCtx)
	cancelStart()
	logger.Info("State loaded", log.FieldSource, source)

	caches := cache.NewManager(logger)
	caches.Register(stats)
	caches.Start(cfg.StatsCacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, tracker, logger,
		apphttp.WithReadiness(res.Repository.Ping))

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		serverErr := srv.Shutdown(ctx)
		caches.Stop()
		// closing the backends drains pending mirror uploads
		return errors.Join(serverErr, res.Close(ctx))
	})

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = res.Close(context.Background())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
