// Package backend wires the storage, remote and messaging pieces that the
// configuration asks for.
package backend

import (
	"context"

	"sorpes/internal/amqp"
	"sorpes/internal/persistence"
	"sorpes/internal/remote"
	"sorpes/internal/sheets"
	"sorpes/internal/storage"
)

// CleanupFunc releases one resource.
type CleanupFunc func(ctx context.Context) error

// Result is what the API process needs.
type Result struct {
	Repository *storage.SQLiteRepository
	Gateway    *persistence.Gateway
	// Blob and AMQP are nil when not configured or unreachable.
	Blob *remote.BlobStore
	AMQP *amqp.Client

	cleanups []CleanupFunc
}

// WorkerResult is what the sync worker needs.
type WorkerResult struct {
	Repository *storage.SQLiteRepository
	Blob       *remote.BlobStore
	Sheets     sheets.SummaryWriter
	AMQP       *amqp.Client

	cleanups []CleanupFunc
}

// RemoteType selects where the state document is mirrored.
type RemoteType string

const (
	RemoteNone RemoteType = "none"
	RemoteBlob RemoteType = "blob"
)

func (rt RemoteType) String() string { return string(rt) }

func (rt RemoteType) IsValid() bool {
	switch rt {
	case RemoteNone, RemoteBlob:
		return true
	default:
		return false
	}
}

// SyncMode selects who uploads to the remote store.
type SyncMode string

const (
	SyncDirect SyncMode = "direct"
	SyncQueue  SyncMode = "queue"
)

func (m SyncMode) IsValid() bool { return m == SyncDirect || m == SyncQueue }
