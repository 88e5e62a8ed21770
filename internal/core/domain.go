package core

import (
	"errors"
	"strings"
)

const maxDescriptionLen = 200

// ExpenseKind selects one of the two expense lists of a month.
type ExpenseKind string

// IncomeKind selects realised income or expected (future) income.
type IncomeKind string

const (
	Fixed    ExpenseKind = "fixed"
	Variable ExpenseKind = "variable"

	Received IncomeKind = "income"
	Future   IncomeKind = "future"
)

func (k ExpenseKind) Valid() bool { return k == Fixed || k == Variable }
func (k IncomeKind) Valid() bool  { return k == Received || k == Future }

type (
	// OwnerID references an Owner. The empty id means "no owner".
	OwnerID string

	Owner struct {
		ID   OwnerID `json:"id"`
		Name string  `json:"name"`
	}

	ExpenseEntry struct {
		DueDate     string  `json:"dueDate"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Amount      Money   `json:"amount"`
		Paid        bool    `json:"paid"`
		Owner       OwnerID `json:"owner,omitempty"`
	}

	IncomeEntry struct {
		Date     string  `json:"date"`
		Category string  `json:"category"`
		Amount   Money   `json:"amount"`
		Owner    OwnerID `json:"owner,omitempty"`
	}

	BlockItem struct {
		Date        string  `json:"date"`
		Amount      Money   `json:"amount"`
		Description string  `json:"description"`
		Owner       OwnerID `json:"owner,omitempty"`
	}

	// MonthlyBlock is a titled spending envelope with an optional limit.
	// A zero limit means the block has no limit.
	MonthlyBlock struct {
		ID    string      `json:"id"`
		Title string      `json:"title"`
		Limit Money       `json:"limit"`
		Items []BlockItem `json:"items"`
	}

	MonthData struct {
		FixedExpenses    []ExpenseEntry `json:"fixedExpenses"`
		VariableExpenses []ExpenseEntry `json:"variableExpenses"`
		MonthlyBlocks    []MonthlyBlock `json:"monthlyBlocks"`
		Income           []IncomeEntry  `json:"income"`
		FutureIncome     []IncomeEntry  `json:"futureIncome"`
	}
)

// EmptyMonthData returns a month with every list present and empty.
func EmptyMonthData() *MonthData {
	return &MonthData{
		FixedExpenses:    []ExpenseEntry{},
		VariableExpenses: []ExpenseEntry{},
		MonthlyBlocks:    []MonthlyBlock{},
		Income:           []IncomeEntry{},
		FutureIncome:     []IncomeEntry{},
	}
}

// HasData reports whether the month holds anything worth confirming before
// deletion: any entry, any block item, or any block with a limit set.
func (md *MonthData) HasData() bool {
	if md == nil {
		return false
	}
	if len(md.FixedExpenses) > 0 || len(md.VariableExpenses) > 0 ||
		len(md.Income) > 0 || len(md.FutureIncome) > 0 {
		return true
	}
	for _, b := range md.MonthlyBlocks {
		if len(b.Items) > 0 || b.Limit.IsPositive() {
			return true
		}
	}
	return false
}

// Normalize replaces nil lists with empty ones.
func (md *MonthData) Normalize() {
	if md.FixedExpenses == nil {
		md.FixedExpenses = []ExpenseEntry{}
	}
	if md.VariableExpenses == nil {
		md.VariableExpenses = []ExpenseEntry{}
	}
	if md.MonthlyBlocks == nil {
		md.MonthlyBlocks = []MonthlyBlock{}
	}
	if md.Income == nil {
		md.Income = []IncomeEntry{}
	}
	if md.FutureIncome == nil {
		md.FutureIncome = []IncomeEntry{}
	}
	for i := range md.MonthlyBlocks {
		if md.MonthlyBlocks[i].Items == nil {
			md.MonthlyBlocks[i].Items = []BlockItem{}
		}
	}
}

// Clone returns a deep copy.
func (md *MonthData) Clone() *MonthData {
	if md == nil {
		return nil
	}
	c := &MonthData{
		FixedExpenses:    append([]ExpenseEntry{}, md.FixedExpenses...),
		VariableExpenses: append([]ExpenseEntry{}, md.VariableExpenses...),
		MonthlyBlocks:    make([]MonthlyBlock, len(md.MonthlyBlocks)),
		Income:           append([]IncomeEntry{}, md.Income...),
		FutureIncome:     append([]IncomeEntry{}, md.FutureIncome...),
	}
	for i, b := range md.MonthlyBlocks {
		b.Items = append([]BlockItem{}, b.Items...)
		c.MonthlyBlocks[i] = b
	}
	return c
}

// Expenses returns a pointer to the list selected by kind.
func (md *MonthData) Expenses(kind ExpenseKind) *[]ExpenseEntry {
	if kind == Fixed {
		return &md.FixedExpenses
	}
	return &md.VariableExpenses
}

// Incomes returns a pointer to the list selected by kind.
func (md *MonthData) Incomes(kind IncomeKind) *[]IncomeEntry {
	if kind == Future {
		return &md.FutureIncome
	}
	return &md.Income
}

// Block finds a block by id.
func (md *MonthData) Block(id string) (*MonthlyBlock, int) {
	for i := range md.MonthlyBlocks {
		if md.MonthlyBlocks[i].ID == id {
			return &md.MonthlyBlocks[i], i
		}
	}
	return nil, -1
}

// Spent sums the block's items.
func (b MonthlyBlock) Spent() Money {
	total := Zero
	for _, it := range b.Items {
		total = total.Add(it.Amount)
	}
	return total
}

func validateDescription(field, s string, required bool) error {
	if required && strings.TrimSpace(s) == "" {
		return invalid(field, ErrEmptyDescription)
	}
	if len(s) > maxDescriptionLen {
		return invalid(field, errors.New("too long (max 200 characters)"))
	}
	return nil
}

func (e ExpenseEntry) Validate() error {
	if err := ValidateDate(e.DueDate); err != nil {
		return invalid("dueDate", err)
	}
	if err := validateDescription("description", e.Description, false); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	return nil
}

// Validate requires a date and a category; income without a type is
// rejected.
func (e IncomeEntry) Validate() error {
	if err := ValidateDate(e.Date); err != nil {
		return invalid("date", err)
	}
	if strings.TrimSpace(e.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	if err := e.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	return nil
}

func (it BlockItem) Validate() error {
	if err := ValidateDate(it.Date); err != nil {
		return invalid("date", err)
	}
	if err := validateDescription("description", it.Description, false); err != nil {
		return err
	}
	if err := it.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	return nil
}

// Validate checks the block header. Items are validated individually.
func (b MonthlyBlock) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return invalid("title", ErrEmptyTitle)
	}
	if err := b.Limit.Validate(); err != nil {
		return invalid("limit", err)
	}
	return nil
}

func (o Owner) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	return nil
}
