package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sorpes/internal/backup"
	"sorpes/internal/core"
	"sorpes/internal/state"
)

type fakeStore struct {
	mu      sync.Mutex
	doc     *state.Document
	source  string
	saves   []*state.Document
	saveErr error
}

func (f *fakeStore) Load(context.Context) (*state.Document, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc, f.source
}

func (f *fakeStore) Save(_ context.Context, doc *state.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, doc)
	return f.saveErr
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) last() *state.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

type fakeBackups struct {
	kinds   []string
	last    time.Time
	cleared bool
}

func (f *fakeBackups) RecordBackup(_ context.Context, kind, _ string, _ int, at time.Time) error {
	f.kinds = append(f.kinds, kind)
	if kind == "export" {
		f.last = at
	}
	return nil
}

func (f *fakeBackups) LastBackup(context.Context) (time.Time, error) { return f.last, nil }

func (f *fakeBackups) ClearBackupHistory(context.Context) error {
	f.cleared = true
	f.last = time.Time{}
	return nil
}

var march = time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC)

func newTracker(t *testing.T, store *fakeStore, opts ...Option) *Tracker {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return march })}, opts...)
	tr := NewTracker(store, opts...)
	tr.Start(context.Background())
	return tr
}

func TestStartSeedsCurrentMonthWithoutSaving(t *testing.T) {
	store := &fakeStore{}
	tr := newTracker(t, store)

	v := tr.View()
	assert.Equal(t, core.MonthKey("2026-03"), v.ActiveMonth)
	assert.Equal(t, "2026", v.ActiveYear)
	assert.Equal(t, "Março 2026", v.Label)
	assert.Equal(t, 0, store.saveCount())
}

func TestStartUsesLoadedDocument(t *testing.T) {
	s := state.New("2025-11")
	require.NoError(t, s.CreateMonth("2025-12"))
	store := &fakeStore{doc: s.Document(), source: "blob"}

	tr := newTracker(t, store)
	v := tr.View()
	assert.Equal(t, core.MonthKey("2025-12"), v.ActiveMonth)
	assert.Equal(t, "blob", v.Source)
	assert.Equal(t, []core.MonthKey{"2025-12", "2025-11"}, v.Months)
}

func TestScenarioA_PaidExpenseMovesCurrentSpend(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	tr := newTracker(t, store)

	index, err := tr.AddExpense(ctx, "", core.Fixed, core.ExpenseEntry{
		DueDate: "2026-03-10", Category: "Aluguel", Amount: core.MustMoney("1500.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	totals, err := tr.Totals("")
	require.NoError(t, err)
	assert.True(t, totals.TotalFixed.Equal(core.MustMoney("1500")))
	assert.True(t, totals.CurrentSpend.IsZero())

	paid, err := tr.TogglePaid(ctx, "", core.Fixed, 0)
	require.NoError(t, err)
	assert.True(t, paid)

	totals, _ = tr.Totals("2026-03")
	assert.True(t, totals.CurrentSpend.Equal(core.MustMoney("1500")))
	assert.Equal(t, 2, store.saveCount())
}

func TestValidationErrorDoesNotSave(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	tr := newTracker(t, store)
	rev := tr.Revision()

	_, err := tr.AddExpense(ctx, "", core.Variable, core.ExpenseEntry{
		DueDate: "", Description: "Mercado", Amount: core.MustMoney("10"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, 0, store.saveCount())
	assert.Equal(t, rev, tr.Revision())

	md, err := tr.Month("")
	require.NoError(t, err)
	assert.Empty(t, md.VariableExpenses)
}

func TestSaveFailureIsNotReturned(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	tr := newTracker(t, store)

	_, err := tr.AddOwner(context.Background(), "Ana")
	assert.NoError(t, err)
	assert.Len(t, tr.View().Owners, 1)
}

func TestCreateMonthCopyForward(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, &fakeStore{})

	_, err := tr.AddExpense(ctx, "", core.Fixed, core.ExpenseEntry{
		DueDate: "2026-03-05", Description: "Internet", Category: "Casa", Amount: core.MustMoney("120"), Paid: true,
	})
	require.NoError(t, err)

	sug := tr.SuggestMonth()
	assert.Equal(t, core.MonthKey("2026-04"), sug.Month)
	assert.Equal(t, core.MonthKey("2026-03"), sug.CopySource)

	require.NoError(t, tr.CreateMonth(ctx, sug.Month, sug.CopySource))
	assert.Equal(t, core.MonthKey("2026-04"), tr.View().ActiveMonth)

	md, err := tr.Month("2026-04")
	require.NoError(t, err)
	require.Len(t, md.FixedExpenses, 1)
	assert.False(t, md.FixedExpenses[0].Paid)
	assert.Equal(t, "Internet", md.FixedExpenses[0].Description)

	err = tr.CreateMonth(ctx, "2026-04", "")
	assert.ErrorIs(t, err, core.ErrDuplicateMonth)
}

func TestSwitchMonthSavesOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	tr := newTracker(t, store)
	require.NoError(t, tr.CreateMonth(ctx, "2026-02", ""))
	saves := store.saveCount()

	changed, err := tr.SwitchMonth(ctx, "2026-02")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, saves, store.saveCount())

	changed, err = tr.SwitchMonth(ctx, "2026-03")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, saves+1, store.saveCount())
	assert.Equal(t, core.MonthKey("2026-03"), store.last().ActiveMonth)

	_, err = tr.SwitchMonth(ctx, "2030-01")
	assert.ErrorIs(t, err, core.ErrMonthNotFound)
}

func TestDeleteMonthNeedsConfirmationWhenItHasData(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, &fakeStore{})
	require.NoError(t, tr.AddIncome(ctx, "", core.Received, core.IncomeEntry{
		Date: "2026-03-01", Category: "Salário", Amount: core.MustMoney("100"),
	}))

	err := tr.DeleteMonth(ctx, "2026-03", false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	require.NoError(t, tr.DeleteMonth(ctx, "2026-03", true))

	// the last month was removed, so a fresh seed month takes its place
	v := tr.View()
	assert.Equal(t, []core.MonthKey{"2026-03"}, v.Months)
	md, _ := tr.Month("")
	assert.False(t, md.HasData())

	assert.ErrorIs(t, tr.DeleteMonth(ctx, "1999-01", true), core.ErrMonthNotFound)
}

func TestBlocksAndLimits(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, &fakeStore{})

	food, err := tr.CreateBlock(ctx, "", "Mercado", core.MustMoney("100"))
	require.NoError(t, err)
	fun, err := tr.CreateBlock(ctx, "", "Lazer", core.Zero)
	require.NoError(t, err)

	require.NoError(t, tr.AddBlockItem(ctx, "", food.ID, core.BlockItem{Date: "2026-03-02", Amount: core.MustMoney("70")}))
	require.NoError(t, tr.AddBlockItem(ctx, "", food.ID, core.BlockItem{Date: "2026-03-09", Amount: core.MustMoney("50"), Description: "feira"}))

	st, err := tr.BlockLimit("", food.ID)
	require.NoError(t, err)
	assert.True(t, st.Exceeded)
	assert.True(t, st.Available.IsZero())

	require.NoError(t, tr.MoveBlock(ctx, "", fun.ID, food.ID))
	md, _ := tr.Month("")
	assert.Equal(t, fun.ID, md.MonthlyBlocks[0].ID)

	require.NoError(t, tr.DeleteBlockItem(ctx, "", food.ID, 0))
	st, _ = tr.BlockLimit("", food.ID)
	assert.False(t, st.Exceeded)
	assert.True(t, st.Available.Equal(core.MustMoney("50")))

	require.NoError(t, tr.DeleteBlock(ctx, "", food.ID))
	_, err = tr.BlockLimit("", food.ID)
	assert.ErrorIs(t, err, core.ErrBlockNotFound)
}

func TestOwnerSplit(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, &fakeStore{})

	split, err := tr.OwnerSplit("")
	require.NoError(t, err)
	assert.Nil(t, split)

	ana, err := tr.AddOwner(ctx, "Ana")
	require.NoError(t, err)
	require.NoError(t, tr.AddIncome(ctx, "", core.Future, core.IncomeEntry{
		Date: "2026-03-20", Category: "Bônus", Amount: core.MustMoney("300"), Owner: ana.ID,
	}))

	split, err = tr.OwnerSplit("")
	require.NoError(t, err)
	require.Len(t, split, 1)
	assert.True(t, split[0].In.Equal(core.MustMoney("300")))

	require.NoError(t, tr.RemoveOwner(ctx, ana.ID))
	assert.ErrorIs(t, tr.RemoveOwner(ctx, ana.ID), core.ErrOwnerNotFound)
}

func TestStatisticsCachedPerRevision(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, &fakeStore{})

	before := tr.Statistics()
	assert.True(t, before.TotalIncome.IsZero())

	require.NoError(t, tr.AddIncome(ctx, "", core.Received, core.IncomeEntry{
		Date: "2026-03-01", Category: "Salário", Amount: core.MustMoney("5000"),
	}))
	after := tr.Statistics()
	assert.True(t, after.TotalIncome.Equal(core.MustMoney("5000")))
	assert.Equal(t, after, tr.Statistics())
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	backups := &fakeBackups{}
	tr := newTracker(t, &fakeStore{}, WithBackupLog(backups))

	assert.True(t, tr.BackupStatus(ctx).Due)

	_, err := tr.AddOwner(ctx, "Ana")
	require.NoError(t, err)
	require.NoError(t, tr.CreateMonth(ctx, "2026-04", "2026-03"))
	want := tr.Document()

	filename, data, err := tr.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sorpes-backup-2026-03-14-0905.json", filename)
	assert.False(t, tr.BackupStatus(ctx).Due)

	other := newTracker(t, &fakeStore{}, WithBackupLog(&fakeBackups{}))
	require.NoError(t, other.Import(ctx, data))
	assert.Equal(t, want, other.Document())
}

func TestImportInvalidLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	tr := newTracker(t, store)
	before := tr.Document()

	for _, in := range []string{`[]`, `{"months": []}`, `not json`, `{"activeMonth":"2026-01"}`} {
		err := tr.Import(ctx, []byte(in))
		assert.ErrorIs(t, err, backup.ErrInvalidBackup, in)
	}
	assert.Equal(t, before, tr.Document())
	assert.Equal(t, 0, store.saveCount())
}

func TestResetKeepsOwnersAndClearsBackups(t *testing.T) {
	ctx := context.Background()
	backups := &fakeBackups{last: march.Add(-time.Hour)}
	tr := newTracker(t, &fakeStore{}, WithBackupLog(backups))

	_, err := tr.AddOwner(ctx, "Ana")
	require.NoError(t, err)
	require.NoError(t, tr.CreateMonth(ctx, "2026-01", ""))

	require.NoError(t, tr.Reset(ctx))
	v := tr.View()
	assert.Equal(t, []core.MonthKey{"2026-03"}, v.Months)
	assert.Len(t, v.Owners, 1)
	assert.True(t, backups.cleared)
}
