package summary

import (
	"fmt"
	"testing"

	"sorpes/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func m(s string) core.Money { return core.MustMoney(s) }

func assertMoney(t *testing.T, want string, got core.Money, msg string) {
	t.Helper()
	assert.Truef(t, got.Equal(m(want)), "%s: want %s, got %s", msg, want, got.Decimal())
}

func TestTotalsPaidFlagMovesCurrentSpend(t *testing.T) {
	md := core.EmptyMonthData()
	md.FixedExpenses = append(md.FixedExpenses, core.ExpenseEntry{
		DueDate: "2026-03-10", Category: "Aluguel", Amount: m("1500.00"),
	})

	tot := Totals(md)
	assertMoney(t, "1500", tot.TotalFixed, "totalFixed")
	assertMoney(t, "0", tot.CurrentSpend, "currentSpend unpaid")

	md.FixedExpenses[0].Paid = true
	assertMoney(t, "1500", Totals(md).CurrentSpend, "currentSpend paid")
}

func TestTotalsBalanceAndProjection(t *testing.T) {
	md := core.EmptyMonthData()
	md.Income = []core.IncomeEntry{{Amount: m("5000")}}
	md.FixedExpenses = []core.ExpenseEntry{{Amount: m("1500"), Paid: true}}
	md.VariableExpenses = []core.ExpenseEntry{{Amount: m("300")}}

	tot := Totals(md)
	assertMoney(t, "1500", tot.CurrentSpend, "currentSpend")
	assertMoney(t, "3500", tot.Balance, "balance")
	assertMoney(t, "1800", tot.GeneralSpend, "generalSpend")
	assertMoney(t, "3200", tot.ProjectedBalance, "projectedBalance")
}

func TestTotalsBlocksAndFutureIncome(t *testing.T) {
	md := core.EmptyMonthData()
	md.MonthlyBlocks = []core.MonthlyBlock{
		{Title: "Mercado", Limit: m("800"), Items: []core.BlockItem{{Amount: m("120.50")}, {Amount: m("79.50")}}},
		{Title: "Lazer", Items: []core.BlockItem{{Amount: m("50")}}},
	}
	md.Income = []core.IncomeEntry{{Amount: m("3000")}}
	md.FutureIncome = []core.IncomeEntry{{Amount: m("400")}}

	tot := Totals(md)
	assertMoney(t, "250", tot.TotalBlocksSpend, "blocks spend")
	assertMoney(t, "800", tot.TotalBlockLimits, "block limits")
	assertMoney(t, "250", tot.CurrentSpend, "current spend counts every block item")
	assertMoney(t, "800", tot.GeneralSpend, "general spend uses limits, not items")
	assertMoney(t, "2750", tot.Balance, "balance")
	assertMoney(t, "2600", tot.ProjectedBalance, "projection")
	assertMoney(t, "0", Totals(nil).Balance, "nil month")
}

func TestVerifyLimit(t *testing.T) {
	over := VerifyLimit(core.MonthlyBlock{Limit: m("100"), Items: []core.BlockItem{{Amount: m("70")}, {Amount: m("50")}}})
	assert.True(t, over.Exceeded)
	assert.True(t, over.HasLimit)
	assertMoney(t, "0", over.Available, "available clamps at zero")
	assertMoney(t, "120", over.Spent, "spent")

	under := VerifyLimit(core.MonthlyBlock{Limit: m("100"), Items: []core.BlockItem{{Amount: m("40")}}})
	assert.False(t, under.Exceeded)
	assertMoney(t, "60", under.Available, "available")

	exact := VerifyLimit(core.MonthlyBlock{Limit: m("100"), Items: []core.BlockItem{{Amount: m("100")}}})
	assert.False(t, exact.Exceeded, "reaching the limit is not exceeding it")

	none := VerifyLimit(core.MonthlyBlock{Items: []core.BlockItem{{Amount: m("999")}}})
	assert.False(t, none.Exceeded)
	assert.False(t, none.HasLimit)
	assertMoney(t, "0", none.Available, "no limit, nothing available")
}

func TestOwnerSplit(t *testing.T) {
	ana := core.Owner{ID: "ana", Name: "Ana"}
	bia := core.Owner{ID: "bia", Name: "Bia"}
	md := core.EmptyMonthData()
	md.Income = []core.IncomeEntry{{Amount: m("3000"), Owner: "ana"}, {Amount: m("2000"), Owner: "bia"}}
	md.FutureIncome = []core.IncomeEntry{{Amount: m("100"), Owner: "ana"}}
	md.FixedExpenses = []core.ExpenseEntry{
		{Amount: m("1000"), Paid: true, Owner: "ana"},
		{Amount: m("500"), Paid: false, Owner: "ana"},
	}
	md.VariableExpenses = []core.ExpenseEntry{{Amount: m("80"), Paid: true, Owner: "bia"}}
	md.MonthlyBlocks = []core.MonthlyBlock{{Items: []core.BlockItem{
		{Amount: m("30"), Owner: "bia"},
		{Amount: m("20"), Owner: "ghost"},
		{Amount: m("10")},
	}}}

	split := OwnerSplit(md, []core.Owner{ana, bia})
	require.Len(t, split, 2)
	assertMoney(t, "3100", split[0].In, "ana in")
	assertMoney(t, "1000", split[0].Out, "ana out excludes unpaid")
	assertMoney(t, "2000", split[1].In, "bia in")
	assertMoney(t, "110", split[1].Out, "bia out")

	assert.Nil(t, OwnerSplit(md, nil))
}

func TestComputeStatistics(t *testing.T) {
	jan := core.EmptyMonthData()
	jan.FixedExpenses = []core.ExpenseEntry{
		{Description: "Aluguel", Category: "Casa", Amount: m("1500"), Paid: true},
		{Description: "Luz", Category: " ", Amount: m("100")},
	}
	jan.Income = []core.IncomeEntry{{Category: "Salário", Amount: m("5000")}}
	jan.MonthlyBlocks = []core.MonthlyBlock{{Title: "Mercado", Limit: m("800"), Items: []core.BlockItem{
		{Amount: m("200"), Description: "feira"},
		{Amount: m("50")},
	}}}

	feb := core.EmptyMonthData()
	feb.VariableExpenses = []core.ExpenseEntry{{Description: "Farmácia", Category: "Saúde", Amount: m("60"), Paid: false}}
	feb.FutureIncome = []core.IncomeEntry{{Category: "Bônus", Amount: m("700")}}
	feb.MonthlyBlocks = []core.MonthlyBlock{{Title: "Mercado", Limit: m("700"), Items: []core.BlockItem{{Amount: m("300")}}}, {Title: ""}}

	st := Compute(map[core.MonthKey]*core.MonthData{"2026-01": jan, "2026-02": feb})

	assertMoney(t, "1600", st.TotalFixed, "fixed")
	assertMoney(t, "60", st.TotalVariable, "variable")
	assertMoney(t, "550", st.TotalBlocks, "blocks")
	assertMoney(t, "2210", st.TotalSpend, "spend")
	assertMoney(t, "2790", st.Balance, "balance")
	assertMoney(t, "3490", st.ProjectedBalance, "projection")
	assertMoney(t, "1500", st.FixedPaid, "fixed paid")
	assertMoney(t, "100", st.FixedPending, "fixed pending")
	assertMoney(t, "60", st.VariablePending, "variable pending")
	assert.Equal(t, 2, st.MonthsWithData)

	require.Len(t, st.FixedByCategory, 2)
	assert.Equal(t, "Casa", st.FixedByCategory[0].Name)
	assert.Equal(t, "Sem tipo", st.FixedByCategory[1].Name)

	require.Len(t, st.Blocks, 2)
	assert.Equal(t, "Mercado", st.Blocks[0].Title)
	assertMoney(t, "550", st.Blocks[0].Spent, "mercado spent")
	assertMoney(t, "1500", st.Blocks[0].Limit, "mercado limit")
	assert.Equal(t, "Sem título", st.Blocks[1].Title)

	require.NotEmpty(t, st.TopEntries)
	assert.Equal(t, "Aluguel", st.TopEntries[0].Description)
	assert.Equal(t, KindFixed, st.TopEntries[0].Kind)
	assert.Equal(t, "Mercado", st.TopEntries[1].Description)
	assert.Equal(t, core.MonthKey("2026-02"), st.TopEntries[1].Month)
	assert.Equal(t, "Mercado - feira", st.TopEntries[2].Description)

	require.Len(t, st.Months, 2)
	assert.Equal(t, core.MonthKey("2026-02"), st.Months[0].Month)
	assertMoney(t, "360", st.Months[0].Spend, "feb spend")
	assertMoney(t, "-360", st.Months[0].Balance, "feb balance")
	assertMoney(t, "3150", st.Months[1].Balance, "jan balance")
}

func TestComputeCapsRankingAndMonths(t *testing.T) {
	months := map[core.MonthKey]*core.MonthData{}
	for i := 1; i <= 20; i++ {
		md := core.EmptyMonthData()
		md.VariableExpenses = []core.ExpenseEntry{{Description: fmt.Sprintf("e%d", i), Amount: core.NewMoneyFromCents(int64(i * 100))}}
		months[core.NewMonthKey(2025, i)] = md
	}
	st := Compute(months)

	assert.Len(t, st.TopEntries, TopEntriesLimit)
	assert.Equal(t, "e20", st.TopEntries[0].Description)
	assert.Len(t, st.Months, RecentMonthsLimit)
	assert.Equal(t, core.MonthKey("2026-08"), st.Months[0].Month)
	assert.Equal(t, 20, st.MonthsWithData)
}

func TestComputeEmpty(t *testing.T) {
	st := Compute(nil)
	assert.Equal(t, 0, st.MonthsWithData)
	assert.Empty(t, st.TopEntries)
	assert.Empty(t, st.Months)
	assert.True(t, st.Balance.IsZero())
}
