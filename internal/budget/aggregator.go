// Package budget rolls planned-vs-actual spending up per category and
// month. It is read-only: inputs are fetched by the caller and the
// overview is derived, never persisted.
package budget

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Line is the planned-vs-actual roll-up for one budgeted category.
type Line struct {
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Planned      decimal.Decimal `json:"planned"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Percentage   decimal.Decimal `json:"percentage"`
	OverBudget   bool            `json:"isOverBudget"`
}

// Overview is the workspace-level summary for one month. Only budgeted
// categories produce lines; uncategorized spending is reported as a
// separate total.
type Overview struct {
	WorkspaceID        string          `json:"workspaceId"`
	Year               int             `json:"year"`
	Month              int             `json:"month"`
	Lines              []Line          `json:"lines"`
	TotalPlanned       decimal.Decimal `json:"totalPlanned"`
	TotalSpent         decimal.Decimal `json:"totalSpent"`
	OverallPercentage  decimal.Decimal `json:"overallPercentage"`
	UncategorizedSpent decimal.Decimal `json:"uncategorizedSpent"`
}

// BuildOverview computes one Line per budget row for the period, plus
// the workspace totals.
//
// Spent per category sums expense transactions, taking each row's
// locked converted amount when its currency differs from the budget's,
// else the raw amount. Percentage is defined as 0 when planned is 0,
// and a category without a budget is never "over". Budget rows
// referencing a deleted category are skipped rather than failing the
// whole overview.
func BuildOverview(ws core.Workspace, year, month int, cats []core.BudgetCategory, budgets []core.MonthlyBudget, txs []core.Transaction) Overview {
	ov := Overview{
		WorkspaceID:        ws.ID,
		Year:               year,
		Month:              month,
		TotalPlanned:       decimal.Zero,
		TotalSpent:         decimal.Zero,
		OverallPercentage:  decimal.Zero,
		UncategorizedSpent: decimal.Zero,
	}

	catsByID := make(map[string]core.BudgetCategory, len(cats))
	for _, c := range cats {
		catsByID[c.ID] = c
	}

	for _, b := range budgets {
		if b.Year != year || b.Month != month {
			continue
		}
		cat, ok := catsByID[b.CategoryID]
		if !ok {
			// dangling budget row
			continue
		}

		spent := decimal.Zero
		for _, tx := range txs {
			if tx.Type != core.Expense || tx.CategoryID != b.CategoryID {
				continue
			}
			if tx.Date.Year() != year || tx.Date.Month() != month {
				continue
			}
			spent = spent.Add(tx.EffectiveAmount(b.Currency))
		}

		line := Line{
			CategoryID:   b.CategoryID,
			CategoryName: cat.Name,
			Planned:      b.Planned,
			Spent:        spent,
			Remaining:    b.Planned.Sub(spent),
			Percentage:   percentage(spent, b.Planned),
			OverBudget:   spent.GreaterThan(b.Planned) && b.Planned.Sign() > 0,
		}
		ov.Lines = append(ov.Lines, line)
		ov.TotalPlanned = ov.TotalPlanned.Add(line.Planned)
		ov.TotalSpent = ov.TotalSpent.Add(line.Spent)
	}

	sort.Slice(ov.Lines, func(i, j int) bool {
		return ov.Lines[i].CategoryName < ov.Lines[j].CategoryName
	})

	// Recomputed from the summed lines so the two figures cannot drift.
	ov.OverallPercentage = percentage(ov.TotalSpent, ov.TotalPlanned)

	for _, tx := range txs {
		if tx.Type != core.Expense || tx.CategoryID != "" {
			continue
		}
		if tx.Date.Year() != year || tx.Date.Month() != month {
			continue
		}
		ov.UncategorizedSpent = ov.UncategorizedSpent.Add(tx.EffectiveAmount(ws.Currency))
	}

	return ov
}

// percentage is spent/planned*100, defined as 0 when planned is 0.
func percentage(spent, planned decimal.Decimal) decimal.Decimal {
	if planned.Sign() <= 0 {
		return decimal.Zero
	}
	return spent.Mul(hundred).Div(planned).Round(2)
}
