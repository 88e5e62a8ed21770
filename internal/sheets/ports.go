// Package sheets mirrors per-month summaries into a spreadsheet.
package sheets

import (
	"context"
	"slices"

	"sorpes/internal/core"
	"sorpes/internal/summary"
)

// MonthSummary is one spreadsheet row.
type MonthSummary struct {
	Month  core.MonthKey
	Totals summary.MonthTotals
}

// Ports for outbound adapters.
type (
	// SummaryWriter replaces the stored summaries with rows.
	SummaryWriter interface {
		WriteMonthSummaries(ctx context.Context, rows []MonthSummary) error
	}

	SummaryReader interface {
		ReadMonthSummaries(ctx context.Context) ([]MonthSummary, error)
	}
)

// Summaries returns a row per valid month, oldest first.
func Summaries(months map[core.MonthKey]*core.MonthData) []MonthSummary {
	out := make([]MonthSummary, 0, len(months))
	for key, md := range months {
		if !key.Valid() {
			continue
		}
		out = append(out, MonthSummary{Month: key, Totals: summary.Totals(md)})
	}
	slices.SortFunc(out, func(a, b MonthSummary) int {
		switch {
		case a.Month < b.Month:
			return -1
		case a.Month > b.Month:
			return 1
		}
		return 0
	})
	return out
}
