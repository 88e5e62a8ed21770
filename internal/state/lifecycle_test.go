package state

import (
	"testing"

	"sorpes/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMonthFromCopiesForward(t *testing.T) {
	s := New("2026-02")
	src := s.Months["2026-02"]
	src.FixedExpenses = []core.ExpenseEntry{{DueDate: "2026-02-10", Description: "Aluguel", Amount: core.MustMoney("1500"), Paid: true}}
	src.VariableExpenses = []core.ExpenseEntry{{DueDate: "2026-02-12", Description: "Farmácia", Amount: core.MustMoney("40"), Paid: true}}
	src.MonthlyBlocks = []core.MonthlyBlock{{
		ID: "b1", Title: "Mercado", Limit: core.MustMoney("800"),
		Items: []core.BlockItem{{Date: "2026-02-03", Amount: core.MustMoney("120"), Description: "feira"}},
	}}
	src.Income = []core.IncomeEntry{{Date: "2026-02-05", Amount: core.MustMoney("5000")}}
	src.FutureIncome = []core.IncomeEntry{{Date: "2026-02-25", Amount: core.MustMoney("300")}}

	from, ok := s.CopySource("2026-03")
	require.True(t, ok)
	require.NoError(t, s.CreateMonthFrom("2026-03", from))

	md := s.Months["2026-03"]
	require.Len(t, md.FixedExpenses, 1)
	assert.False(t, md.FixedExpenses[0].Paid)
	assert.Equal(t, "Aluguel", md.FixedExpenses[0].Description)
	assert.True(t, md.FixedExpenses[0].Amount.Equal(core.MustMoney("1500")))
	require.Len(t, md.VariableExpenses, 1)
	assert.False(t, md.VariableExpenses[0].Paid)

	require.Len(t, md.MonthlyBlocks, 1)
	b := md.MonthlyBlocks[0]
	assert.Equal(t, "Mercado", b.Title)
	assert.True(t, b.Limit.Equal(core.MustMoney("800")))
	assert.Empty(t, b.Items)
	assert.NotEqual(t, "b1", b.ID)
	assert.NotEmpty(t, b.ID)

	assert.Empty(t, md.Income)
	assert.Empty(t, md.FutureIncome)

	assert.True(t, src.FixedExpenses[0].Paid, "source month must not change")
	assert.Len(t, src.MonthlyBlocks[0].Items, 1)
	assert.Equal(t, core.MonthKey("2026-03"), s.ActiveMonth)
}

func TestCreateMonthErrors(t *testing.T) {
	s := New("2026-02")
	assert.ErrorIs(t, s.CreateMonth("2026-02"), core.ErrDuplicateMonth)
	assert.ErrorIs(t, s.CreateMonth("2026-2"), core.ErrInvalidMonthKey)
	assert.ErrorIs(t, s.CreateMonthFrom("2026-04", "2026-03"), core.ErrMonthNotFound)

	_, ok := s.CopySource("2026-05")
	assert.False(t, ok)
	_, ok = s.CopySource("garbage")
	assert.False(t, ok)
}

func TestSwitchTo(t *testing.T) {
	s := New("2026-02")
	require.NoError(t, s.CreateMonth("2025-07"))

	changed, err := s.SwitchTo("2025-07")
	require.NoError(t, err)
	assert.False(t, changed, "already active after creation")

	changed, err = s.SwitchTo("2026-02")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "2026", s.ActiveYear)

	_, err = s.SwitchTo("1999-01")
	assert.ErrorIs(t, err, core.ErrMonthNotFound)
}

func TestDeleteActiveMonthMovesToLatest(t *testing.T) {
	s := New("2026-02")
	require.NoError(t, s.CreateMonth("2025-12"))
	require.NoError(t, s.CreateMonth("2026-01"))
	require.NoError(t, s.SetActiveMonth("2026-02"))

	require.NoError(t, s.DeleteMonth("2026-02", "2030-01"))
	assert.Equal(t, core.MonthKey("2026-01"), s.ActiveMonth)

	require.NoError(t, s.DeleteMonth("2025-12", "2030-01"))
	assert.Equal(t, core.MonthKey("2026-01"), s.ActiveMonth, "deleting another month keeps the active one")
}

func TestDeleteLastMonthReseeds(t *testing.T) {
	s := New("2026-02")
	s.Months["2026-02"].Income = []core.IncomeEntry{{Date: "2026-02-01", Amount: core.MustMoney("1")}}
	assert.True(t, s.NeedsDeleteConfirmation("2026-02"))

	require.NoError(t, s.DeleteMonth("2026-02", "2026-02"))
	require.Len(t, s.Months, 1)
	assert.Equal(t, core.MonthKey("2026-02"), s.ActiveMonth)
	assert.False(t, s.Months["2026-02"].HasData())

	assert.ErrorIs(t, s.DeleteMonth("2011-01", "2026-02"), core.ErrMonthNotFound)
}

func TestResetKeepsOwners(t *testing.T) {
	s := New("2026-02")
	require.NoError(t, s.CreateMonth("2026-03"))
	_, err := s.AddOwner("Bruno")
	require.NoError(t, err)

	s.Reset("2026-10")
	assert.Equal(t, []core.MonthKey{"2026-10"}, s.Keys())
	assert.Equal(t, core.MonthKey("2026-10"), s.ActiveMonth)
	assert.Len(t, s.Owners, 1)
}
