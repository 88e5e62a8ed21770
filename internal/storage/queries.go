package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type StateDocument struct {
	ID             string
	Body           string
	Revision       int64
	SyncedRevision int64
	UpdatedAt      string
}

type Backup struct {
	ID        int64
	Kind      string
	Filename  string
	Months    int64
	CreatedAt string
}

const getDocument = `
SELECT id, body, revision, synced_revision, updated_at
FROM state_documents
WHERE id = ?`

func (q *Queries) GetDocument(ctx context.Context, id string) (StateDocument, error) {
	row := q.db.QueryRowContext(ctx, getDocument, id)
	var d StateDocument
	err := row.Scan(&d.ID, &d.Body, &d.Revision, &d.SyncedRevision, &d.UpdatedAt)
	return d, err
}

const getSyncState = `
SELECT revision, synced_revision
FROM state_documents
WHERE id = ?`

func (q *Queries) GetSyncState(ctx context.Context, id string) (revision, synced int64, err error) {
	err = q.db.QueryRowContext(ctx, getSyncState, id).Scan(&revision, &synced)
	return revision, synced, err
}

const upsertDocument = `
INSERT INTO state_documents (id, body, revision, synced_revision, updated_at)
VALUES (?, ?, 1, 0, ?)
ON CONFLICT (id) DO UPDATE SET
    body       = excluded.body,
    revision   = state_documents.revision + 1,
    updated_at = excluded.updated_at
RETURNING revision`

type UpsertDocumentParams struct {
	ID        string
	Body      string
	UpdatedAt string
}

func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertDocument, arg.ID, arg.Body, arg.UpdatedAt)
	var revision int64
	err := row.Scan(&revision)
	return revision, err
}

const markSynced = `
UPDATE state_documents
SET synced_revision = MAX(synced_revision, ?)
WHERE id = ?`

func (q *Queries) MarkSynced(ctx context.Context, id string, revision int64) error {
	_, err := q.db.ExecContext(ctx, markSynced, revision, id)
	return err
}

const insertBackup = `
INSERT INTO backups (kind, filename, months, created_at)
VALUES (?, ?, ?, ?)`

type InsertBackupParams struct {
	Kind      string
	Filename  string
	Months    int64
	CreatedAt string
}

func (q *Queries) InsertBackup(ctx context.Context, arg InsertBackupParams) error {
	_, err := q.db.ExecContext(ctx, insertBackup, arg.Kind, arg.Filename, arg.Months, arg.CreatedAt)
	return err
}

const getLastBackup = `
SELECT id, kind, filename, months, created_at
FROM backups
WHERE kind = ?
ORDER BY created_at DESC, id DESC
LIMIT 1`

func (q *Queries) GetLastBackup(ctx context.Context, kind string) (Backup, error) {
	row := q.db.QueryRowContext(ctx, getLastBackup, kind)
	var b Backup
	err := row.Scan(&b.ID, &b.Kind, &b.Filename, &b.Months, &b.CreatedAt)
	return b, err
}

const deleteBackups = `DELETE FROM backups`

func (q *Queries) DeleteBackups(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteBackups)
	return err
}
