// Package worker mirrors the locally stored state to the remote stores.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sorpes/internal/amqp"
	"sorpes/internal/log"
	"sorpes/internal/persistence"
	"sorpes/internal/sheets"
	"sorpes/internal/storage"
)

// SnapshotSource is the local store as seen by the worker.
type SnapshotSource interface {
	PendingSync(ctx context.Context) (bool, error)
	Snapshot(ctx context.Context) (storage.Snapshot, error)
	MarkSynced(ctx context.Context, revision int64) error
}

// SyncWorker uploads the latest local revision to the remote document
// store and refreshes the summary sheet. Either target may be nil.
type SyncWorker struct {
	source SnapshotSource
	remote persistence.Saver
	sheets sheets.SummaryWriter
	logger *log.Logger

	// serialises syncs so two messages never upload concurrently
	mu sync.Mutex
}

func NewSyncWorker(source SnapshotSource, remote persistence.Saver, sheets sheets.SummaryWriter, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		source: source,
		remote: remote,
		sheets: sheets,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSyncMessage processes a state sync notification. The message only
// triggers the sync; the content always comes from the local store.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.StateSyncMessage) error {
	w.logger.DebugContext(ctx, "Processing sync message",
		"active_month", msg.ActiveMonth,
		log.FieldMonths, msg.Months,
		"sent_at", msg.Timestamp)

	if _, err := w.SyncPending(ctx); err != nil {
		return fmt.Errorf("sync state: %w", err)
	}
	return nil
}

// SyncPending mirrors the stored document when its revision has not been
// synced yet. It reports whether anything was uploaded.
func (w *SyncWorker) SyncPending(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pending, err := w.source.PendingSync(ctx)
	if err != nil {
		return false, fmt.Errorf("check pending: %w", err)
	}
	if !pending {
		return false, nil
	}

	snap, err := w.source.Snapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if snap.Document == nil || !snap.Pending() {
		return false, nil
	}

	if w.remote != nil {
		if err := w.remote.Save(ctx, snap.Document); err != nil {
			return false, fmt.Errorf("upload document: %w", err)
		}
	}

	if w.sheets != nil {
		rows := sheets.Summaries(snap.Document.Months)
		if err := w.sheets.WriteMonthSummaries(ctx, rows); err != nil {
			return false, fmt.Errorf("write summaries: %w", err)
		}
	}

	if err := w.source.MarkSynced(ctx, snap.Revision); err != nil {
		// the upload worked; the next run repeats it harmlessly
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldRevision, snap.Revision, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Successfully synced state",
		log.FieldRevision, snap.Revision,
		log.FieldMonths, len(snap.Document.Months))
	return true, nil
}

// StartupSyncCheck recovers from messages missed while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.SyncPending(ctx)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	if !synced {
		w.logger.InfoContext(ctx, "No pending state found on startup")
	}
	return nil
}

// RunPeriodic retries pending syncs every interval until ctx ends. It is
// the fallback for lost AMQP messages.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.SyncPending(ctx); err != nil {
				w.logger.WarnContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
		}
	}
}
