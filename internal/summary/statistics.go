package summary

import (
	"cmp"
	"slices"
	"strings"

	"sorpes/internal/core"
)

const (
	// TopEntriesLimit caps the ranking of largest entries.
	TopEntriesLimit = 15
	// RecentMonthsLimit caps the per-month rows.
	RecentMonthsLimit = 12

	uncategorized = "Sem tipo"
	untitled      = "Sem título"
)

// Entry kinds as shown in the ranking.
const (
	KindFixed    = "Fixos"
	KindVariable = "Variáveis"
	KindBlock    = "Mensais"
)

// CategoryAmount is an amount aggregated under a category name.
type CategoryAmount struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
}

// BlockStats aggregates every block sharing a title across months.
type BlockStats struct {
	Title string     `json:"title"`
	Spent core.Money `json:"spent"`
	Limit core.Money `json:"limit"`
}

type TopEntry struct {
	Description string        `json:"description"`
	Kind        string        `json:"kind"`
	Amount      core.Money    `json:"amount"`
	Month       core.MonthKey `json:"month"`
}

// MonthRow is the per-month line of the statistics.
type MonthRow struct {
	Month        core.MonthKey `json:"month"`
	Fixed        core.Money    `json:"fixed"`
	Variable     core.Money    `json:"variable"`
	Blocks       core.Money    `json:"blocks"`
	Income       core.Money    `json:"income"`
	FutureIncome core.Money    `json:"futureIncome"`
	Spend        core.Money    `json:"spend"`
	Balance      core.Money    `json:"balance"`
}

// Statistics aggregates every stored month.
type Statistics struct {
	TotalFixed        core.Money `json:"totalFixed"`
	TotalVariable     core.Money `json:"totalVariable"`
	TotalBlocks       core.Money `json:"totalBlocks"`
	TotalIncome       core.Money `json:"totalIncome"`
	TotalFutureIncome core.Money `json:"totalFutureIncome"`
	TotalSpend        core.Money `json:"totalSpend"`
	Balance           core.Money `json:"balance"`
	ProjectedBalance  core.Money `json:"projectedBalance"`

	FixedByCategory        []CategoryAmount `json:"fixedByCategory"`
	VariableByCategory     []CategoryAmount `json:"variableByCategory"`
	IncomeByCategory       []CategoryAmount `json:"incomeByCategory"`
	FutureIncomeByCategory []CategoryAmount `json:"futureIncomeByCategory"`
	Blocks                 []BlockStats     `json:"blocks"`

	TopEntries []TopEntry `json:"topEntries"`
	// Months holds the most recent months, newest first.
	Months []MonthRow `json:"months"`

	FixedPaid       core.Money `json:"fixedPaid"`
	FixedPending    core.Money `json:"fixedPending"`
	VariablePaid    core.Money `json:"variablePaid"`
	VariablePending core.Money `json:"variablePending"`

	MonthsWithData int `json:"monthsWithData"`
}

type categorySums struct {
	order []string
	sums  map[string]core.Money
}

func newCategorySums() *categorySums {
	return &categorySums{sums: map[string]core.Money{}}
}

func (c *categorySums) add(category string, amount core.Money) {
	name := strings.TrimSpace(category)
	if name == "" {
		name = uncategorized
	}
	if _, ok := c.sums[name]; !ok {
		c.order = append(c.order, name)
	}
	c.sums[name] = c.sums[name].Add(amount)
}

// list returns the categories by amount descending, then by name.
func (c *categorySums) list() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, CategoryAmount{Name: name, Amount: c.sums[name]})
	}
	slices.SortFunc(out, func(a, b CategoryAmount) int {
		if r := b.Amount.Cmp(a.Amount); r != 0 {
			return r
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Compute builds statistics over months. Months are visited in ascending
// key order so ties in the ranking keep chronological order.
func Compute(months map[core.MonthKey]*core.MonthData) Statistics {
	keys := make([]core.MonthKey, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var st Statistics
	fixedCat, varCat := newCategorySums(), newCategorySums()
	incCat, futCat := newCategorySums(), newCategorySums()
	var blockOrder []string
	blocks := map[string]*BlockStats{}
	top := []TopEntry{}
	rows := make([]MonthRow, 0, len(keys))

	for _, key := range keys {
		md := months[key]
		if md == nil {
			md = core.EmptyMonthData()
		}
		row := MonthRow{Month: key}

		for _, e := range md.FixedExpenses {
			row.Fixed = row.Fixed.Add(e.Amount)
			fixedCat.add(e.Category, e.Amount)
			top = append(top, TopEntry{Description: e.Description, Kind: KindFixed, Amount: e.Amount, Month: key})
			if e.Paid {
				st.FixedPaid = st.FixedPaid.Add(e.Amount)
			} else {
				st.FixedPending = st.FixedPending.Add(e.Amount)
			}
		}
		for _, e := range md.VariableExpenses {
			row.Variable = row.Variable.Add(e.Amount)
			varCat.add(e.Category, e.Amount)
			top = append(top, TopEntry{Description: e.Description, Kind: KindVariable, Amount: e.Amount, Month: key})
			if e.Paid {
				st.VariablePaid = st.VariablePaid.Add(e.Amount)
			} else {
				st.VariablePending = st.VariablePending.Add(e.Amount)
			}
		}
		for _, b := range md.MonthlyBlocks {
			for _, it := range b.Items {
				desc := b.Title
				if it.Description != "" {
					desc += " - " + it.Description
				}
				top = append(top, TopEntry{Description: desc, Kind: KindBlock, Amount: it.Amount, Month: key})
			}
			spent := b.Spent()
			row.Blocks = row.Blocks.Add(spent)

			title := b.Title
			if title == "" {
				title = untitled
			}
			bs, ok := blocks[title]
			if !ok {
				bs = &BlockStats{Title: title}
				blocks[title] = bs
				blockOrder = append(blockOrder, title)
			}
			bs.Spent = bs.Spent.Add(spent)
			bs.Limit = bs.Limit.Add(b.Limit)
		}
		for _, e := range md.Income {
			row.Income = row.Income.Add(e.Amount)
			incCat.add(e.Category, e.Amount)
		}
		for _, e := range md.FutureIncome {
			row.FutureIncome = row.FutureIncome.Add(e.Amount)
			futCat.add(e.Category, e.Amount)
		}

		row.Spend = row.Fixed.Add(row.Variable).Add(row.Blocks)
		row.Balance = row.Income.Sub(row.Spend)
		rows = append(rows, row)

		st.TotalFixed = st.TotalFixed.Add(row.Fixed)
		st.TotalVariable = st.TotalVariable.Add(row.Variable)
		st.TotalBlocks = st.TotalBlocks.Add(row.Blocks)
		st.TotalIncome = st.TotalIncome.Add(row.Income)
		st.TotalFutureIncome = st.TotalFutureIncome.Add(row.FutureIncome)
	}

	st.TotalSpend = st.TotalFixed.Add(st.TotalVariable).Add(st.TotalBlocks)
	st.Balance = st.TotalIncome.Sub(st.TotalSpend)
	st.ProjectedBalance = st.TotalIncome.Add(st.TotalFutureIncome).Sub(st.TotalSpend)

	st.FixedByCategory = fixedCat.list()
	st.VariableByCategory = varCat.list()
	st.IncomeByCategory = incCat.list()
	st.FutureIncomeByCategory = futCat.list()

	st.Blocks = make([]BlockStats, 0, len(blockOrder))
	for _, title := range blockOrder {
		st.Blocks = append(st.Blocks, *blocks[title])
	}

	slices.SortStableFunc(top, func(a, b TopEntry) int { return b.Amount.Cmp(a.Amount) })
	if len(top) > TopEntriesLimit {
		top = top[:TopEntriesLimit]
	}
	st.TopEntries = top

	slices.Reverse(rows)
	if len(rows) > RecentMonthsLimit {
		rows = rows[:RecentMonthsLimit]
	}
	st.Months = rows
	st.MonthsWithData = len(keys)
	return st
}
