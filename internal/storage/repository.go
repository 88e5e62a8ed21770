package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sorpes/internal/state"

	_ "modernc.org/sqlite"
)

// DocumentID is the key of the single state document.
const DocumentID = "state"

// Backup kinds recorded in the history.
const (
	BackupExport = "export"
	BackupImport = "import"
)

// timestamps are stored as fixed-width UTC text so they sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Snapshot is the stored document with its sync bookkeeping.
type Snapshot struct {
	Document       *state.Document
	Revision       int64
	SyncedRevision int64
	UpdatedAt      time.Time
}

// Pending reports whether the snapshot has not been mirrored yet.
func (s Snapshot) Pending() bool {
	return s.Revision > s.SyncedRevision
}

// SQLiteRepository is the local document store.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection, used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Name() string { return "sqlite" }

// Load returns the stored document, or nil when nothing was saved yet.
func (r *SQLiteRepository) Load(ctx context.Context) (*state.Document, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Document, nil
}

// Snapshot returns the stored document and its revisions. Document is nil
// when nothing was saved yet.
func (r *SQLiteRepository) Snapshot(ctx context.Context) (Snapshot, error) {
	row, err := r.queries.GetDocument(ctx, DocumentID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get document: %w", err)
	}

	var doc state.Document
	if err := json.Unmarshal([]byte(row.Body), &doc); err != nil {
		return Snapshot{}, fmt.Errorf("decode document: %w", err)
	}
	updated, _ := time.Parse(timeLayout, row.UpdatedAt)
	return Snapshot{
		Document:       &doc,
		Revision:       row.Revision,
		SyncedRevision: row.SyncedRevision,
		UpdatedAt:      updated,
	}, nil
}

// PendingSync reports whether a revision is waiting to be mirrored. It
// reads only the revision counters, not the document.
func (r *SQLiteRepository) PendingSync(ctx context.Context) (bool, error) {
	revision, synced, err := r.queries.GetSyncState(ctx, DocumentID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get sync state: %w", err)
	}
	return revision > synced, nil
}

// Save stores doc, replacing the previous version.
func (r *SQLiteRepository) Save(ctx context.Context, doc *state.Document) error {
	_, err := r.SaveDocument(ctx, doc)
	return err
}

// SaveDocument stores doc and returns its new revision.
func (r *SQLiteRepository) SaveDocument(ctx context.Context, doc *state.Document) (int64, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encode document: %w", err)
	}
	rev, err := r.queries.UpsertDocument(ctx, UpsertDocumentParams{
		ID:        DocumentID,
		Body:      string(body),
		UpdatedAt: r.now().UTC().Format(timeLayout),
	})
	if err != nil {
		return 0, fmt.Errorf("save document: %w", err)
	}

	slog.DebugContext(ctx, "State saved to SQLite",
		"revision", rev,
		"months", len(doc.Months),
		"size_bytes", len(body))
	return rev, nil
}

// MarkSynced records that revision reached the remote stores. Older
// revisions never overwrite newer ones.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, revision int64) error {
	if err := r.queries.MarkSynced(ctx, DocumentID, revision); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// RecordBackup appends to the backup history.
func (r *SQLiteRepository) RecordBackup(ctx context.Context, kind, filename string, months int, at time.Time) error {
	err := r.queries.InsertBackup(ctx, InsertBackupParams{
		Kind:      kind,
		Filename:  filename,
		Months:    int64(months),
		CreatedAt: at.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("record backup: %w", err)
	}
	return nil
}

// LastBackup returns when the last export happened; zero when never.
func (r *SQLiteRepository) LastBackup(ctx context.Context) (time.Time, error) {
	b, err := r.queries.GetLastBackup(ctx, BackupExport)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last backup: %w", err)
	}
	t, err := time.Parse(timeLayout, b.CreatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse backup time %q: %w", b.CreatedAt, err)
	}
	return t, nil
}

// ClearBackupHistory forgets every recorded backup.
func (r *SQLiteRepository) ClearBackupHistory(ctx context.Context) error {
	if err := r.queries.DeleteBackups(ctx); err != nil {
		return fmt.Errorf("clear backups: %w", err)
	}
	return nil
}
