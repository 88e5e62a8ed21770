// Package services owns the application state and applies user commands
// to it one at a time.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sorpes/internal/backup"
	"sorpes/internal/cache"
	"sorpes/internal/core"
	"sorpes/internal/log"
	"sorpes/internal/state"
	"sorpes/internal/storage"
	"sorpes/internal/summary"
)

// ErrConfirmationRequired is returned when deleting a month that still
// holds entries without the caller confirming it.
var ErrConfirmationRequired = errors.New("month has data; confirmation required")

// Persister loads and saves the state document. *persistence.Gateway
// satisfies it.
type Persister interface {
	Load(ctx context.Context) (*state.Document, string)
	Save(ctx context.Context, doc *state.Document) error
}

// BackupLog remembers when backups were taken.
type BackupLog interface {
	RecordBackup(ctx context.Context, kind, filename string, months int, at time.Time) error
	LastBackup(ctx context.Context) (time.Time, error)
	ClearBackupHistory(ctx context.Context) error
}

// Tracker is the single owner of the application state. Every command
// runs under one lock and is saved before the lock is released, so saves
// reach the store in command order.
type Tracker struct {
	mu       sync.RWMutex
	st       *state.State
	revision int64
	source   string

	store   Persister
	backups BackupLog
	stats   *cache.LRU[int64, summary.Statistics]
	now     func() time.Time
	logger  *log.Logger
}

type Option func(*Tracker)

func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.logger = l.WithComponent(log.ComponentTracker) }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithBackupLog(b BackupLog) Option {
	return func(t *Tracker) { t.backups = b }
}

// WithStatsCache keeps computed statistics per revision.
func WithStatsCache(c *cache.LRU[int64, summary.Statistics]) Option {
	return func(t *Tracker) { t.stats = c }
}

func NewTracker(store Persister, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		now:    time.Now,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.stats == nil {
		t.stats = cache.NewLRU[int64, summary.Statistics](4, 0)
	}
	t.st = state.New(t.seed())
	return t
}

// seed is the month a fresh state starts with.
func (t *Tracker) seed() core.MonthKey {
	return core.MonthKeyOf(t.now())
}

// Start loads the stored state. When nothing is stored the tracker keeps
// its seeded state; it is written by the first command, never at start,
// so an unreachable remote is not overwritten by an empty month.
func (t *Tracker) Start(ctx context.Context) string {
	doc, source := t.store.Load(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.st = state.FromDocument(doc, t.seed())
	t.source = source
	t.revision++

	t.logger.InfoContext(ctx, "Tracker started",
		log.FieldSource, source,
		log.FieldMonths, len(t.st.Months),
		log.FieldMonth, t.st.ActiveMonth.String())
	return source
}

// mutate applies fn and saves the result. A failing fn leaves the state
// untouched because every state command validates before it writes. Save
// failures are logged only.
func (t *Tracker) mutate(ctx context.Context, op string, key core.MonthKey, fn func(*state.State) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := fn(t.st); err != nil {
		t.logger.DebugContext(ctx, "Command rejected",
			log.FieldOperation, op,
			log.FieldMonth, key.String(),
			log.FieldError, err)
		return err
	}
	t.revision++
	t.save(ctx, op)
	return nil
}

func (t *Tracker) save(ctx context.Context, op string) {
	if err := t.store.Save(ctx, t.st.Document()); err != nil {
		t.logger.WarnContext(ctx, "State not saved",
			log.FieldOperation, op,
			log.FieldRevision, t.revision,
			log.FieldError, err)
	}
}

// resolve maps the empty key to the active month.
func (t *Tracker) resolve(key core.MonthKey) core.MonthKey {
	if key == "" {
		return t.st.ActiveMonth
	}
	return key
}

// View is a read-only picture of the state for display.
type View struct {
	ActiveMonth core.MonthKey   `json:"activeMonth"`
	ActiveYear  string          `json:"activeYear"`
	Label       string          `json:"label"`
	Years       []string        `json:"years"`
	Months      []core.MonthKey `json:"months"`
	Owners      []core.Owner    `json:"owners"`
	Revision    int64           `json:"revision"`
	Source      string          `json:"source,omitempty"`
}

func (t *Tracker) View() View {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return View{
		ActiveMonth: t.st.ActiveMonth,
		ActiveYear:  t.st.ActiveYear,
		Label:       t.st.ActiveMonth.Label(),
		Years:       t.st.Years(),
		Months:      t.st.Keys(),
		Owners:      append([]core.Owner{}, t.st.Owners...),
		Revision:    t.revision,
		Source:      t.source,
	}
}

// MonthsOfYear lists the months of year, most recent first.
func (t *Tracker) MonthsOfYear(year string) []core.MonthKey {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.st.MonthsOfYear(year)
}

// Month returns a copy of a month's data.
func (t *Tracker) Month(key core.MonthKey) (*core.MonthData, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	md, ok := t.st.Month(t.resolve(key))
	if !ok {
		return nil, core.ErrMonthNotFound
	}
	return md.Clone(), nil
}

// Document returns a copy of the whole state document.
func (t *Tracker) Document() *state.Document {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.st.Document()
}

func (t *Tracker) Revision() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.revision
}

// Suggestion is what the UI offers when adding a month.
type Suggestion struct {
	Month      core.MonthKey `json:"month"`
	CopySource core.MonthKey `json:"copySource,omitempty"`
}

func (t *Tracker) SuggestMonth() Suggestion {
	t.mu.RLock()
	defer t.mu.RUnlock()
	next := t.st.SuggestNextMonth(t.now())
	src, _ := t.st.CopySource(next)
	return Suggestion{Month: next, CopySource: src}
}

// CreateMonth adds key, copied forward from copyFrom unless copyFrom is
// empty, and makes it active.
func (t *Tracker) CreateMonth(ctx context.Context, key, copyFrom core.MonthKey) error {
	return t.mutate(ctx, log.OpCreate, key, func(s *state.State) error {
		if copyFrom == "" {
			return s.CreateMonth(key)
		}
		return s.CreateMonthFrom(key, copyFrom)
	})
}

// SwitchMonth activates key. Nothing is saved when key was already active.
func (t *Tracker) SwitchMonth(ctx context.Context, key core.MonthKey) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed, err := t.st.SwitchTo(key)
	if err != nil || !changed {
		return false, err
	}
	t.revision++
	t.save(ctx, log.OpSwitch)
	return true, nil
}

// DeleteMonth removes key. A month holding entries is only removed when
// confirmed is true.
func (t *Tracker) DeleteMonth(ctx context.Context, key core.MonthKey, confirmed bool) error {
	return t.mutate(ctx, log.OpDelete, key, func(s *state.State) error {
		if _, ok := s.Month(key); !ok {
			return core.ErrMonthNotFound
		}
		if s.NeedsDeleteConfirmation(key) && !confirmed {
			return ErrConfirmationRequired
		}
		return s.DeleteMonth(key, t.seed())
	})
}

// Reset wipes every month and the backup history. Owners survive.
func (t *Tracker) Reset(ctx context.Context) error {
	err := t.mutate(ctx, log.OpReset, "", func(s *state.State) error {
		s.Reset(t.seed())
		return nil
	})
	if err == nil && t.backups != nil {
		if err := t.backups.ClearBackupHistory(ctx); err != nil {
			t.logger.WarnContext(ctx, "Backup history not cleared", log.FieldError, err)
		}
	}
	return err
}

// AddExpense stores e and returns its index in the list, which is kept
// ordered by due date.
func (t *Tracker) AddExpense(ctx context.Context, key core.MonthKey, kind core.ExpenseKind, e core.ExpenseEntry) (int, error) {
	index := -1
	err := t.mutate(ctx, log.OpCreate, key, func(s *state.State) error {
		var err error
		index, err = s.AddExpense(t.resolve(key), kind, e)
		return err
	})
	return index, err
}

// UpdateExpense replaces the entry at index and returns where it moved to.
func (t *Tracker) UpdateExpense(ctx context.Context, key core.MonthKey, kind core.ExpenseKind, index int, e core.ExpenseEntry) (int, error) {
	moved := -1
	err := t.mutate(ctx, log.OpUpdate, key, func(s *state.State) error {
		var err error
		moved, err = s.UpdateExpense(t.resolve(key), kind, index, e)
		return err
	})
	return moved, err
}

func (t *Tracker) DeleteExpense(ctx context.Context, key core.MonthKey, kind core.ExpenseKind, index int) error {
	return t.mutate(ctx, log.OpDelete, key, func(s *state.State) error {
		return s.DeleteExpense(t.resolve(key), kind, index)
	})
}

// TogglePaid flips the paid flag and returns the new value.
func (t *Tracker) TogglePaid(ctx context.Context, key core.MonthKey, kind core.ExpenseKind, index int) (bool, error) {
	var paid bool
	err := t.mutate(ctx, log.OpUpdate, key, func(s *state.State) error {
		var err error
		paid, err = s.TogglePaid(t.resolve(key), kind, index)
		return err
	})
	return paid, err
}

func (t *Tracker) SetPaid(ctx context.Context, key core.MonthKey, kind core.ExpenseKind, index int, paid bool) error {
	return t.mutate(ctx, log.OpUpdate, key, func(s *state.State) error {
		return s.SetPaid(t.resolve(key), kind, index, paid)
	})
}

func (t *Tracker) AddIncome(ctx context.Context, key core.MonthKey, kind core.IncomeKind, e core.IncomeEntry) error {
	return t.mutate(ctx, log.OpCreate, key, func(s *state.State) error {
		return s.AddIncome(t.resolve(key), kind, e)
	})
}

func (t *Tracker) UpdateIncome(ctx context.Context, key core.MonthKey, kind core.IncomeKind, index int, e core.IncomeEntry) error {
	return t.mutate(ctx, log.OpUpdate, key, func(s *state.State) error {
		return s.UpdateIncome(t.resolve(key), kind, index, e)
	})
}

func (t *Tracker) DeleteIncome(ctx context.Context, key core.MonthKey, kind core.IncomeKind, index int) error {
	return t.mutate(ctx, log.OpDelete, key, func(s *state.State) error {
		return s.DeleteIncome(t.resolve(key), kind, index)
	})
}

func (t *Tracker) CreateBlock(ctx context.Context, key core.MonthKey, title string, limit core.Money) (core.MonthlyBlock, error) {
	var b core.MonthlyBlock
	err := t.mutate(ctx, log.OpCreate, key, func(s *state.State) error {
		var err error
		b, err = s.CreateBlock(t.resolve(key), title, limit)
		return err
	})
	return b, err
}

func (t *Tracker) UpdateBlock(ctx context.Context, key core.MonthKey, id, title string, limit core.Money) error {
	return t.mutate(ctx, log.OpUpdate, key, func(s *state.State) error {
		return s.UpdateBlock(t.resolve(key), id, title, limit)
	})
}

func (t *Tracker) DeleteBlock(ctx context.Context, key core.MonthKey, id string) error {
	return t.mutate(ctx, log.OpDelete, key, func(s *state.State) error {
		return s.DeleteBlock(t.resolve(key), id)
	})
}

// MoveBlock places block id right before beforeID, or last when beforeID
// is empty.
func (t *Tracker) MoveBlock(ctx context.Context, key core.MonthKey, id, beforeID string) error {
	return t.mutate(ctx, log.OpUpdate, key, func(s *state.State) error {
		return s.MoveBlockBefore(t.resolve(key), id, beforeID)
	})
}

func (t *Tracker) AddBlockItem(ctx context.Context, key core.MonthKey, id string, it core.BlockItem) error {
	return t.mutate(ctx, log.OpCreate, key, func(s *state.State) error {
		return s.AddBlockItem(t.resolve(key), id, it)
	})
}

func (t *Tracker) UpdateBlockItem(ctx context.Context, key core.MonthKey, id string, index int, it core.BlockItem) error {
	return t.mutate(ctx, log.OpUpdate, key, func(s *state.State) error {
		return s.UpdateBlockItem(t.resolve(key), id, index, it)
	})
}

func (t *Tracker) DeleteBlockItem(ctx context.Context, key core.MonthKey, id string, index int) error {
	return t.mutate(ctx, log.OpDelete, key, func(s *state.State) error {
		return s.DeleteBlockItem(t.resolve(key), id, index)
	})
}

func (t *Tracker) AddOwner(ctx context.Context, name string) (core.Owner, error) {
	var o core.Owner
	err := t.mutate(ctx, log.OpCreate, "", func(s *state.State) error {
		var err error
		o, err = s.AddOwner(name)
		return err
	})
	return o, err
}

func (t *Tracker) RemoveOwner(ctx context.Context, id core.OwnerID) error {
	return t.mutate(ctx, log.OpDelete, "", func(s *state.State) error {
		return s.RemoveOwner(id)
	})
}

func (t *Tracker) Totals(key core.MonthKey) (summary.MonthTotals, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	md, ok := t.st.Month(t.resolve(key))
	if !ok {
		return summary.MonthTotals{}, core.ErrMonthNotFound
	}
	return summary.Totals(md), nil
}

// OwnerSplit is nil when no owners are registered.
func (t *Tracker) OwnerSplit(key core.MonthKey) ([]summary.OwnerTotals, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	md, ok := t.st.Month(t.resolve(key))
	if !ok {
		return nil, core.ErrMonthNotFound
	}
	return summary.OwnerSplit(md, t.st.Owners), nil
}

func (t *Tracker) BlockLimit(key core.MonthKey, id string) (summary.LimitStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	md, ok := t.st.Month(t.resolve(key))
	if !ok {
		return summary.LimitStatus{}, core.ErrMonthNotFound
	}
	b, _ := md.Block(id)
	if b == nil {
		return summary.LimitStatus{}, core.ErrBlockNotFound
	}
	return summary.VerifyLimit(*b), nil
}

// Statistics aggregates every month. Results are cached per revision.
func (t *Tracker) Statistics() summary.Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats.GetOrCompute(t.revision, func() summary.Statistics {
		return summary.Compute(t.st.Months)
	})
}

// Export serialises the state as a backup file and records it.
func (t *Tracker) Export(ctx context.Context) (string, []byte, error) {
	doc := t.Document()
	at := t.now()
	filename, data, err := backup.Export(doc, at)
	if err != nil {
		return "", nil, err
	}
	if t.backups != nil {
		if err := t.backups.RecordBackup(ctx, storage.BackupExport, filename, len(doc.Months), at); err != nil {
			t.logger.WarnContext(ctx, "Backup not recorded", log.FieldFilename, filename, log.FieldError, err)
		}
	}
	t.logger.InfoContext(ctx, "State exported", log.FieldFilename, filename, log.FieldMonths, len(doc.Months))
	return filename, data, nil
}

// Import replaces the whole state with a backup. An invalid file leaves
// the state unchanged.
func (t *Tracker) Import(ctx context.Context, data []byte) error {
	err := t.mutate(ctx, log.OpImport, "", func(s *state.State) error {
		doc, err := backup.Import(data, s.Owners)
		if err != nil {
			return err
		}
		*s = *state.FromDocument(doc, t.seed())
		return nil
	})
	if err != nil {
		return fmt.Errorf("import backup: %w", err)
	}
	if t.backups != nil {
		if err := t.backups.RecordBackup(ctx, storage.BackupImport, "", len(t.Document().Months), t.now()); err != nil {
			t.logger.WarnContext(ctx, "Import not recorded", log.FieldError, err)
		}
	}
	return nil
}

// BackupStatus tells whether a new export should be suggested.
type BackupStatus struct {
	LastExport time.Time `json:"lastExport,omitzero"`
	Due        bool      `json:"due"`
}

func (t *Tracker) BackupStatus(ctx context.Context) BackupStatus {
	var last time.Time
	if t.backups != nil {
		var err error
		if last, err = t.backups.LastBackup(ctx); err != nil {
			t.logger.WarnContext(ctx, "Last backup unknown", log.FieldError, err)
		}
	}
	return BackupStatus{LastExport: last, Due: backup.Due(last, t.now())}
}
