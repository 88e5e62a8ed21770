package main

import (
	"context"
	"errors"
	"os"
	"time"

	"sorpes/internal/amqp"
	"sorpes/internal/backend"
	"sorpes/internal/cli"
	"sorpes/internal/core"
	"sorpes/internal/log"
	"sorpes/internal/persistence"
	"sorpes/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting sorpes-worker")

	bcfg, err := backend.FromAppConfig(cfg, core.MonthKeyOf(time.Now()))
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).BuildWorker(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize worker backends", log.FieldError, err)
		os.Exit(1)
	}

	// typed nils must not reach the worker as non-nil interfaces
	var remote persistence.Saver
	if res.Blob != nil {
		remote = res.Blob
	}
	syncWorker := worker.NewSyncWorker(res.Repository, remote, res.Sheets, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, res.Close)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if res.AMQP != nil {
		go consume(ctx, res.AMQP, syncWorker, logger)
	} else {
		logger.Info("AMQP disabled, relying on periodic sync only")
	}

	go syncWorker.RunPeriodic(ctx, cfg.SyncInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

// consume keeps a consumer attached, reconnecting after the broker drops
// the channel, until ctx ends.
func consume(ctx context.Context, client *amqp.Client, w *worker.SyncWorker, logger *log.Logger) {
	for {
		err := client.ConsumeStateSync(ctx, w.HandleSyncMessage)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("Message consumption stopped, reconnecting", log.FieldError, err)
		if err := client.Reconnect(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("AMQP reconnect failed, retrying later", log.FieldError, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
			}
		}
	}
}
