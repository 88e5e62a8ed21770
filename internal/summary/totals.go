// Package summary derives totals, owner splits, limit checks and
// multi-month statistics from month data. Every function here is pure.
package summary

import (
	"sorpes/internal/core"
)

// MonthTotals holds the headline figures of one month.
type MonthTotals struct {
	TotalFixed        core.Money `json:"totalFixed"`
	TotalVariable     core.Money `json:"totalVariable"`
	TotalBlocksSpend  core.Money `json:"totalBlocksSpend"`
	TotalBlockLimits  core.Money `json:"totalBlockLimits"`
	TotalIncome       core.Money `json:"totalIncome"`
	TotalFutureIncome core.Money `json:"totalFutureIncome"`

	// CurrentSpend is what already left: block spend plus paid expenses.
	CurrentSpend core.Money `json:"currentSpend"`
	// GeneralSpend is the committed spend: all expenses plus block limits.
	GeneralSpend core.Money `json:"generalSpend"`
	// Balance is income minus current spend.
	Balance core.Money `json:"balance"`
	// ProjectedBalance is income plus future income minus general spend.
	ProjectedBalance core.Money `json:"projectedBalance"`
}

// Totals computes the month's figures. A nil month yields all zeros.
func Totals(md *core.MonthData) MonthTotals {
	var t MonthTotals
	if md == nil {
		return t
	}
	paid := core.Zero
	for _, e := range md.FixedExpenses {
		t.TotalFixed = t.TotalFixed.Add(e.Amount)
		if e.Paid {
			paid = paid.Add(e.Amount)
		}
	}
	for _, e := range md.VariableExpenses {
		t.TotalVariable = t.TotalVariable.Add(e.Amount)
		if e.Paid {
			paid = paid.Add(e.Amount)
		}
	}
	for _, b := range md.MonthlyBlocks {
		t.TotalBlocksSpend = t.TotalBlocksSpend.Add(b.Spent())
		t.TotalBlockLimits = t.TotalBlockLimits.Add(b.Limit)
	}
	t.TotalIncome = sumIncome(md.Income)
	t.TotalFutureIncome = sumIncome(md.FutureIncome)

	t.CurrentSpend = t.TotalBlocksSpend.Add(paid)
	t.GeneralSpend = t.TotalFixed.Add(t.TotalVariable).Add(t.TotalBlockLimits)
	t.Balance = t.TotalIncome.Sub(t.CurrentSpend)
	t.ProjectedBalance = t.TotalIncome.Add(t.TotalFutureIncome).Sub(t.GeneralSpend)
	return t
}

func sumIncome(entries []core.IncomeEntry) core.Money {
	total := core.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// OwnerTotals is the in/out split of one owner for a month.
type OwnerTotals struct {
	Owner core.Owner `json:"owner"`
	In    core.Money `json:"in"`
	Out   core.Money `json:"out"`
}

// OwnerSplit attributes a month to each owner of the roster. Income and
// future income count as in; paid expenses and every block item count as
// out. Unpaid expenses are not attributed. An empty roster yields nil.
func OwnerSplit(md *core.MonthData, owners []core.Owner) []OwnerTotals {
	if len(owners) == 0 {
		return nil
	}
	out := make([]OwnerTotals, len(owners))
	index := make(map[core.OwnerID]int, len(owners))
	for i, o := range owners {
		out[i].Owner = o
		index[o.ID] = i
	}
	if md == nil {
		return out
	}
	credit := func(id core.OwnerID, in, spent core.Money) {
		if id == "" {
			return
		}
		if i, ok := index[id]; ok {
			out[i].In = out[i].In.Add(in)
			out[i].Out = out[i].Out.Add(spent)
		}
	}
	for _, e := range md.Income {
		credit(e.Owner, e.Amount, core.Zero)
	}
	for _, e := range md.FutureIncome {
		credit(e.Owner, e.Amount, core.Zero)
	}
	for _, list := range [][]core.ExpenseEntry{md.FixedExpenses, md.VariableExpenses} {
		for _, e := range list {
			if e.Paid {
				credit(e.Owner, core.Zero, e.Amount)
			}
		}
	}
	for _, b := range md.MonthlyBlocks {
		for _, it := range b.Items {
			credit(it.Owner, core.Zero, it.Amount)
		}
	}
	return out
}

// LimitStatus describes a block's spend against its limit.
type LimitStatus struct {
	Spent     core.Money `json:"spent"`
	Limit     core.Money `json:"limit"`
	HasLimit  bool       `json:"hasLimit"`
	Exceeded  bool       `json:"exceeded"`
	Available core.Money `json:"available"`
}

// VerifyLimit checks a block. A block without a positive limit is never
// exceeded and has nothing available.
func VerifyLimit(b core.MonthlyBlock) LimitStatus {
	st := LimitStatus{Spent: b.Spent(), Limit: b.Limit, HasLimit: b.Limit.IsPositive()}
	if st.HasLimit {
		st.Exceeded = st.Spent.GreaterThan(b.Limit)
		st.Available = b.Limit.Sub(st.Spent).Max(core.Zero)
	}
	return st
}
