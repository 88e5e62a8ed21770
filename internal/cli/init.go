// Package cli holds the start-up steps shared by cmd/sorpes,
// cmd/sorpes-worker and cmd/sorpesctl.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sorpes/internal/backend"
	"sorpes/internal/cache"
	"sorpes/internal/config"
	"sorpes/internal/core"
	"sorpes/internal/log"
	"sorpes/internal/services"
	"sorpes/internal/summary"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
// and installs it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		JSON:      strings.EqualFold(cfg.LogFormat, "json"),
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig reads the environment (after .env) and validates it.
func LoadConfig() (*config.Config, error) {
	LoadEnvFile()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig is LoadConfig for long-running processes: it exits
// on an invalid configuration.
func LoadAndValidateConfig() (*config.Config, *log.Logger) {
	cfg, err := LoadConfig()
	if err != nil {
		// The logger is not configured yet.
		fallback := log.New(log.DefaultConfig())
		fallback.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, SetupLogger(cfg)
}

// NewTracker builds the persistence stack for cfg and a Tracker over it.
// The returned result must be closed by the caller.
func NewTracker(ctx context.Context, cfg *config.Config, logger *log.Logger, now func() time.Time) (*services.Tracker, *backend.Result, *cache.LRU[int64, summary.Statistics], error) {
	bcfg, err := backend.FromAppConfig(cfg, core.MonthKeyOf(now()))
	if err != nil {
		return nil, nil, nil, err
	}
	res, err := backend.NewFactory(logger).Build(ctx, bcfg)
	if err != nil {
		return nil, nil, nil, err
	}
	stats := cache.NewLRU[int64, summary.Statistics](cfg.StatsCacheSize, cfg.StatsCacheTTL)
	tracker := services.NewTracker(res.Gateway,
		services.WithLogger(logger),
		services.WithClock(now),
		services.WithBackupLog(res.Repository),
		services.WithStatsCache(stats),
	)
	return tracker, res, stats, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with a context bounded by timeout and done is
// closed once it returns.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context) error) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			if err := cleanup(shutdownCtx); err != nil {
				logger.Error("Shutdown cleanup failed", log.FieldError, err)
			}
		}
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ended.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
