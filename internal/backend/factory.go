package backend

import (
	"context"
	"errors"
	"fmt"

	"sorpes/internal/amqp"
	"sorpes/internal/log"
	"sorpes/internal/persistence"
	"sorpes/internal/remote"
	gsheet "sorpes/internal/sheets/google"
	"sorpes/internal/storage"
)

// Factory builds backends. Optional pieces that fail to connect are
// logged and left out; only the local store is mandatory.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Build creates the local store, the optional remote and AMQP clients and
// the gateway tying them together.
func (f *Factory) Build(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	res := &Result{Repository: repo}
	res.cleanups = append(res.cleanups, func(context.Context) error { return repo.Close() })

	opts := []persistence.Option{
		persistence.WithLogger(f.logger),
		persistence.WithMirrorTimeout(cfg.MirrorTimeout),
	}

	res.Blob = f.blob(ctx, cfg)
	res.AMQP = f.amqp(ctx, cfg)

	switch {
	case res.Blob == nil:
	case cfg.Sync == SyncQueue && res.AMQP != nil:
		// the worker uploads; the API only reads the remote at start
		opts = append(opts, persistence.WithProvider(res.Blob))
	default:
		if cfg.Sync == SyncQueue {
			f.logger.WarnContext(ctx, "AMQP unavailable, mirroring blob directly")
		}
		opts = append(opts, persistence.WithRemote(res.Blob))
	}

	if res.AMQP != nil {
		opts = append(opts, persistence.WithMirror(res.AMQP.Name(), res.AMQP))
		client := res.AMQP
		res.cleanups = append(res.cleanups, func(context.Context) error { return client.Close() })
	}

	res.Gateway = persistence.NewGateway(repo, opts...)
	gw := res.Gateway
	res.cleanups = append(res.cleanups, gw.Close)

	f.logger.InfoContext(ctx, "Initialized backends",
		"db_path", cfg.SQLiteDBPath,
		"remote", cfg.Remote.String(),
		"blob_enabled", res.Blob != nil,
		"amqp_enabled", res.AMQP != nil,
		"sync_mode", string(cfg.Sync))
	return res, nil
}

// BuildWorker creates what the sync worker needs. The AMQP client is
// optional; without it the worker only syncs periodically.
func (f *Factory) BuildWorker(ctx context.Context, cfg Config) (*WorkerResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	res := &WorkerResult{Repository: repo}
	res.cleanups = append(res.cleanups, func(context.Context) error { return repo.Close() })

	res.Blob = f.blob(ctx, cfg)

	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetBase:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize Google Sheets, continuing without summaries", log.FieldError, err)
		} else {
			res.Sheets = client
		}
	}

	res.AMQP = f.amqp(ctx, cfg)
	if res.AMQP != nil {
		client := res.AMQP
		res.cleanups = append(res.cleanups, func(context.Context) error { return client.Close() })
	}

	f.logger.InfoContext(ctx, "Initialized worker backends",
		"blob_enabled", res.Blob != nil,
		"sheets_enabled", res.Sheets != nil,
		"amqp_enabled", res.AMQP != nil)
	return res, nil
}

func (f *Factory) blob(ctx context.Context, cfg Config) *remote.BlobStore {
	if cfg.Remote != RemoteBlob {
		return nil
	}
	store, err := remote.NewBlobStore(remote.Config{
		ServiceURL: cfg.BlobServiceURL,
		Container:  cfg.BlobContainer,
		BlobName:   cfg.BlobName,
		Seed:       cfg.Seed,
	}, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize blob store, continuing without remote", log.FieldError, err)
		return nil
	}
	return store
}

func (f *Factory) amqp(ctx context.Context, cfg Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", log.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}

// Close releases resources in reverse creation order.
func (r *Result) Close(ctx context.Context) error {
	return closeAll(ctx, r.cleanups)
}

func (r *WorkerResult) Close(ctx context.Context) error {
	return closeAll(ctx, r.cleanups)
}

func closeAll(ctx context.Context, cleanups []CleanupFunc) error {
	var errs []error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
