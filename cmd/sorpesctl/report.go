package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"sorpes/internal/core"
	"sorpes/internal/summary"
)

func brl(m core.Money) string {
	return "R$ " + core.FormatCurrencyGrouped(m)
}

func writeTotals(w io.Writer, key core.MonthKey, t summary.MonthTotals, owners []summary.OwnerTotals) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\n", key.Label())
	rows := []struct {
		label string
		value core.Money
	}{
		{"Fixed", t.TotalFixed},
		{"Variable", t.TotalVariable},
		{"Blocks spent", t.TotalBlocksSpend},
		{"Block limits", t.TotalBlockLimits},
		{"Income", t.TotalIncome},
		{"Future income", t.TotalFutureIncome},
		{"Current spend", t.CurrentSpend},
		{"General spend", t.GeneralSpend},
		{"Balance", t.Balance},
		{"Projected balance", t.ProjectedBalance},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t\n", r.label, brl(r.value))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(owners) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\nOwners")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\tin\tout\t\n")
	for _, o := range owners {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", o.Owner.Name, brl(o.In), brl(o.Out))
	}
	return tw.Flush()
}

func writeStatistics(w io.Writer, s summary.Statistics) error {
	fmt.Fprintf(w, "Months: %d\n", s.MonthsWithData)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Income\t%s\t\n", brl(s.TotalIncome))
	fmt.Fprintf(tw, "Spend\t%s\t\n", brl(s.TotalSpend))
	fmt.Fprintf(tw, "Balance\t%s\t\n", brl(s.Balance))
	fmt.Fprintf(tw, "Projected balance\t%s\t\n", brl(s.ProjectedBalance))
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(s.Months) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "month\tincome\tspend\tbalance\t\n")
	for _, m := range s.Months {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", m.Month, brl(m.Income), brl(m.Spend), brl(m.Balance))
	}
	return tw.Flush()
}
