package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sorpes/internal/amqp"
	"sorpes/internal/core"
	"sorpes/internal/sheets/memory"
	"sorpes/internal/state"
	"sorpes/internal/storage"
)

type fakeRemote struct {
	mu    sync.Mutex
	saved []*state.Document
	err   error
}

func (f *fakeRemote) Save(_ context.Context, doc *state.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, doc)
	return nil
}

func (f *fakeRemote) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "sorpes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleDoc() *state.Document {
	md := core.EmptyMonthData()
	md.Income = []core.IncomeEntry{{Date: "2026-03-05", Category: "Salário", Amount: core.MustMoney("4000")}}
	return &state.Document{
		Months:      map[core.MonthKey]*core.MonthData{"2026-03": md},
		ActiveMonth: "2026-03",
		ActiveYear:  "2026",
	}
}

func TestSyncPending_UploadsOncePerRevision(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	remote := &fakeRemote{}
	sheet := memory.New()
	w := NewSyncWorker(repo, remote, sheet, nil)

	synced, err := w.SyncPending(ctx)
	require.NoError(t, err)
	assert.False(t, synced, "nothing stored yet")

	require.NoError(t, repo.Save(ctx, sampleDoc()))

	synced, err = w.SyncPending(ctx)
	require.NoError(t, err)
	assert.True(t, synced)
	assert.Equal(t, 1, remote.count())

	rows, err := sheet.ReadMonthSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, core.MonthKey("2026-03"), rows[0].Month)
	assert.True(t, rows[0].Totals.TotalIncome.Equal(core.MustMoney("4000")))

	synced, err = w.SyncPending(ctx)
	require.NoError(t, err)
	assert.False(t, synced, "same revision must not upload twice")
	assert.Equal(t, 1, remote.count())

	snap, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.Pending())
}

func TestSyncPending_RemoteFailureKeepsPending(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.Save(ctx, sampleDoc()))

	remote := &fakeRemote{err: errors.New("503")}
	sheet := memory.New()
	w := NewSyncWorker(repo, remote, sheet, nil)

	_, err := w.SyncPending(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, sheet.Writes())

	snap, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Pending())

	remote.err = nil
	synced, err := w.SyncPending(ctx)
	require.NoError(t, err)
	assert.True(t, synced)
}

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.Save(ctx, sampleDoc()))

	remote := &fakeRemote{}
	w := NewSyncWorker(repo, remote, nil, nil)

	err := w.HandleSyncMessage(ctx, &amqp.StateSyncMessage{ActiveMonth: "2026-03", Months: 1, Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 1, remote.count())
}

func TestStartupSyncCheck_NothingPending(t *testing.T) {
	w := NewSyncWorker(newRepo(t), nil, nil, nil)
	assert.NoError(t, w.StartupSyncCheck(context.Background()))
}

func TestRunPeriodic_StopsWithContext(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	require.NoError(t, repo.Save(ctx, sampleDoc()))
	remote := &fakeRemote{}
	w := NewSyncWorker(repo, remote, nil, nil)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		w.RunPeriodic(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return remote.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}
}
