package state

import (
	"cmp"
	"slices"
	"strings"

	"sorpes/internal/core"
)

func (s *State) month(key core.MonthKey) (*core.MonthData, error) {
	md, ok := s.Months[key]
	if !ok {
		return nil, core.ErrMonthNotFound
	}
	return md, nil
}

func expenseList(md *core.MonthData, kind core.ExpenseKind) (*[]core.ExpenseEntry, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	return md.Expenses(kind), nil
}

func incomeList(md *core.MonthData, kind core.IncomeKind) (*[]core.IncomeEntry, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	return md.Incomes(kind), nil
}

// AddExpense adds e to the fixed or variable list of key and returns the
// index it ends up at. Lists stay ordered by due date.
func (s *State) AddExpense(key core.MonthKey, kind core.ExpenseKind, e core.ExpenseEntry) (int, error) {
	if err := e.Validate(); err != nil {
		return -1, err
	}
	if err := s.checkOwner(e.Owner, ""); err != nil {
		return -1, err
	}
	md, err := s.month(key)
	if err != nil {
		return -1, err
	}
	list, err := expenseList(md, kind)
	if err != nil {
		return -1, err
	}
	*list = append(*list, e)
	return sortByDueDate(*list, len(*list)-1), nil
}

// UpdateExpense replaces the entry at index and returns its index after
// reordering by due date.
func (s *State) UpdateExpense(key core.MonthKey, kind core.ExpenseKind, index int, e core.ExpenseEntry) (int, error) {
	if err := e.Validate(); err != nil {
		return -1, err
	}
	list, err := s.expenses(key, kind, index)
	if err != nil {
		return -1, err
	}
	if err := s.checkOwner(e.Owner, (*list)[index].Owner); err != nil {
		return -1, err
	}
	(*list)[index] = e
	return sortByDueDate(*list, index), nil
}

// sortByDueDate stably orders list by due date in place and returns the
// new position of the entry that was at pos. Dates are YYYY-MM-DD, so
// string order is date order.
func sortByDueDate(list []core.ExpenseEntry, pos int) int {
	order := make([]int, len(list))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(list[a].DueDate, list[b].DueDate)
	})
	sorted := make([]core.ExpenseEntry, len(list))
	at := pos
	for i, from := range order {
		sorted[i] = list[from]
		if from == pos {
			at = i
		}
	}
	copy(list, sorted)
	return at
}

// checkOwner rejects an owner id missing from the roster. The empty id is
// always fine, and so is keeping the id an entry already had, even when
// that owner was removed since.
func (s *State) checkOwner(id, current core.OwnerID) error {
	if id == "" || id == current {
		return nil
	}
	for _, o := range s.Owners {
		if o.ID == id {
			return nil
		}
	}
	return &core.ValidationError{Field: "owner", Err: core.ErrOwnerNotFound}
}

// DeleteExpense removes the entry at index.
func (s *State) DeleteExpense(key core.MonthKey, kind core.ExpenseKind, index int) error {
	list, err := s.expenses(key, kind, index)
	if err != nil {
		return err
	}
	*list = append((*list)[:index], (*list)[index+1:]...)
	return nil
}

// SetPaid sets the paid flag of the entry at index.
func (s *State) SetPaid(key core.MonthKey, kind core.ExpenseKind, index int, paid bool) error {
	list, err := s.expenses(key, kind, index)
	if err != nil {
		return err
	}
	(*list)[index].Paid = paid
	return nil
}

// TogglePaid flips the paid flag and returns its new value.
func (s *State) TogglePaid(key core.MonthKey, kind core.ExpenseKind, index int) (bool, error) {
	list, err := s.expenses(key, kind, index)
	if err != nil {
		return false, err
	}
	(*list)[index].Paid = !(*list)[index].Paid
	return (*list)[index].Paid, nil
}

func (s *State) expenses(key core.MonthKey, kind core.ExpenseKind, index int) (*[]core.ExpenseEntry, error) {
	md, err := s.month(key)
	if err != nil {
		return nil, err
	}
	list, err := expenseList(md, kind)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(*list) {
		return nil, core.ErrEntryNotFound
	}
	return list, nil
}

// AddIncome appends e to the income or future income list of key.
func (s *State) AddIncome(key core.MonthKey, kind core.IncomeKind, e core.IncomeEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.checkOwner(e.Owner, ""); err != nil {
		return err
	}
	md, err := s.month(key)
	if err != nil {
		return err
	}
	list, err := incomeList(md, kind)
	if err != nil {
		return err
	}
	*list = append(*list, e)
	return nil
}

func (s *State) UpdateIncome(key core.MonthKey, kind core.IncomeKind, index int, e core.IncomeEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	list, err := s.incomes(key, kind, index)
	if err != nil {
		return err
	}
	if err := s.checkOwner(e.Owner, (*list)[index].Owner); err != nil {
		return err
	}
	(*list)[index] = e
	return nil
}

func (s *State) DeleteIncome(key core.MonthKey, kind core.IncomeKind, index int) error {
	list, err := s.incomes(key, kind, index)
	if err != nil {
		return err
	}
	*list = append((*list)[:index], (*list)[index+1:]...)
	return nil
}

func (s *State) incomes(key core.MonthKey, kind core.IncomeKind, index int) (*[]core.IncomeEntry, error) {
	md, err := s.month(key)
	if err != nil {
		return nil, err
	}
	list, err := incomeList(md, kind)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(*list) {
		return nil, core.ErrEntryNotFound
	}
	return list, nil
}

// CreateBlock appends a new empty block and returns it.
func (s *State) CreateBlock(key core.MonthKey, title string, limit core.Money) (core.MonthlyBlock, error) {
	b := core.MonthlyBlock{
		ID:    newID(),
		Title: strings.TrimSpace(title),
		Limit: limit,
		Items: []core.BlockItem{},
	}
	if err := b.Validate(); err != nil {
		return core.MonthlyBlock{}, err
	}
	md, err := s.month(key)
	if err != nil {
		return core.MonthlyBlock{}, err
	}
	md.MonthlyBlocks = append(md.MonthlyBlocks, b)
	return b, nil
}

// UpdateBlock changes title and limit of a block.
func (s *State) UpdateBlock(key core.MonthKey, id, title string, limit core.Money) error {
	candidate := core.MonthlyBlock{Title: strings.TrimSpace(title), Limit: limit}
	if err := candidate.Validate(); err != nil {
		return err
	}
	b, _, err := s.block(key, id)
	if err != nil {
		return err
	}
	b.Title = candidate.Title
	b.Limit = limit
	return nil
}

func (s *State) DeleteBlock(key core.MonthKey, id string) error {
	md, err := s.month(key)
	if err != nil {
		return err
	}
	_, i := md.Block(id)
	if i < 0 {
		return core.ErrBlockNotFound
	}
	md.MonthlyBlocks = append(md.MonthlyBlocks[:i], md.MonthlyBlocks[i+1:]...)
	return nil
}

// MoveBlockBefore moves block id so that it sits right before targetID.
// An empty targetID moves the block to the end.
func (s *State) MoveBlockBefore(key core.MonthKey, id, targetID string) error {
	if id == targetID {
		return nil
	}
	md, err := s.month(key)
	if err != nil {
		return err
	}
	b, from := md.Block(id)
	if from < 0 {
		return core.ErrBlockNotFound
	}
	if targetID != "" {
		if _, to := md.Block(targetID); to < 0 {
			return core.ErrBlockNotFound
		}
	}
	moved := *b
	blocks := append(md.MonthlyBlocks[:from:from], md.MonthlyBlocks[from+1:]...)
	to := len(blocks)
	for i := range blocks {
		if blocks[i].ID == targetID {
			to = i
			break
		}
	}
	blocks = append(blocks, core.MonthlyBlock{})
	copy(blocks[to+1:], blocks[to:])
	blocks[to] = moved
	md.MonthlyBlocks = blocks
	return nil
}

func (s *State) block(key core.MonthKey, id string) (*core.MonthlyBlock, int, error) {
	md, err := s.month(key)
	if err != nil {
		return nil, -1, err
	}
	b, i := md.Block(id)
	if b == nil {
		return nil, -1, core.ErrBlockNotFound
	}
	return b, i, nil
}

// AddBlockItem appends an item to a block.
func (s *State) AddBlockItem(key core.MonthKey, id string, it core.BlockItem) error {
	if err := it.Validate(); err != nil {
		return err
	}
	if err := s.checkOwner(it.Owner, ""); err != nil {
		return err
	}
	b, _, err := s.block(key, id)
	if err != nil {
		return err
	}
	b.Items = append(b.Items, it)
	return nil
}

func (s *State) UpdateBlockItem(key core.MonthKey, id string, index int, it core.BlockItem) error {
	if err := it.Validate(); err != nil {
		return err
	}
	b, _, err := s.block(key, id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(b.Items) {
		return core.ErrEntryNotFound
	}
	if err := s.checkOwner(it.Owner, b.Items[index].Owner); err != nil {
		return err
	}
	b.Items[index] = it
	return nil
}

func (s *State) DeleteBlockItem(key core.MonthKey, id string, index int) error {
	b, _, err := s.block(key, id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(b.Items) {
		return core.ErrEntryNotFound
	}
	b.Items = append(b.Items[:index], b.Items[index+1:]...)
	return nil
}

// AddOwner registers a new owner with a generated id.
func (s *State) AddOwner(name string) (core.Owner, error) {
	o := core.Owner{ID: core.OwnerID(newID()), Name: strings.TrimSpace(name)}
	if err := o.Validate(); err != nil {
		return core.Owner{}, err
	}
	s.Owners = append(s.Owners, o)
	return o, nil
}

// RemoveOwner drops an owner from the roster. Entries keep the id and
// resolve to no name from then on.
func (s *State) RemoveOwner(id core.OwnerID) error {
	for i, o := range s.Owners {
		if o.ID == id {
			s.Owners = append(s.Owners[:i], s.Owners[i+1:]...)
			return nil
		}
	}
	return core.ErrOwnerNotFound
}
