package budget

import (
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

var (
	testWS = core.Workspace{ID: "ws-1", Name: "Household", Currency: "EUR"}

	groceries = core.BudgetCategory{ID: "cat-groceries", WorkspaceID: "ws-1", Name: "Groceries"}
	transport = core.BudgetCategory{ID: "cat-transport", WorkspaceID: "ws-1", Name: "Transport"}
)

func expense(category, amount string) core.Transaction {
	return core.Transaction{
		ID:          "tx-" + category + "-" + amount,
		WorkspaceID: "ws-1",
		Type:        core.Expense,
		CategoryID:  category,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "EUR",
		Date:        core.NewDate(2024, 3, 10),
	}
}

func budgetRow(category, planned string) core.MonthlyBudget {
	return core.MonthlyBudget{
		WorkspaceID: "ws-1",
		CategoryID:  category,
		Year:        2024,
		Month:       3,
		Planned:     decimal.RequireFromString(planned),
		Currency:    "EUR",
	}
}

func TestBuildOverview_OverBudgetLine(t *testing.T) {
	ov := BuildOverview(testWS, 2024, 3,
		[]core.BudgetCategory{groceries},
		[]core.MonthlyBudget{budgetRow("cat-groceries", "500")},
		[]core.Transaction{expense("cat-groceries", "600")},
	)

	if len(ov.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(ov.Lines))
	}
	line := ov.Lines[0]
	if !line.Remaining.Equal(decimal.RequireFromString("-100")) {
		t.Errorf("Remaining = %s, want -100", line.Remaining)
	}
	if !line.Percentage.Equal(decimal.RequireFromString("120")) {
		t.Errorf("Percentage = %s, want 120", line.Percentage)
	}
	if !line.OverBudget {
		t.Error("OverBudget = false, want true")
	}
}

func TestBuildOverview_ZeroPlannedIsNeverOver(t *testing.T) {
	ov := BuildOverview(testWS, 2024, 3,
		[]core.BudgetCategory{groceries},
		[]core.MonthlyBudget{budgetRow("cat-groceries", "0")},
		[]core.Transaction{expense("cat-groceries", "50")},
	)

	if len(ov.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(ov.Lines))
	}
	line := ov.Lines[0]
	if !line.Percentage.IsZero() {
		t.Errorf("Percentage = %s, want 0", line.Percentage)
	}
	if line.OverBudget {
		t.Error("OverBudget = true, want false")
	}
	if !ov.OverallPercentage.IsZero() {
		t.Errorf("OverallPercentage = %s, want 0", ov.OverallPercentage)
	}
}

func TestBuildOverview_OnlyBudgetedCategoriesGetLines(t *testing.T) {
	ov := BuildOverview(testWS, 2024, 3,
		[]core.BudgetCategory{groceries, transport},
		[]core.MonthlyBudget{budgetRow("cat-groceries", "500")},
		[]core.Transaction{
			expense("cat-groceries", "100"),
			expense("cat-transport", "40"), // no budget row -> no line
		},
	)

	if len(ov.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(ov.Lines))
	}
	if ov.Lines[0].CategoryID != "cat-groceries" {
		t.Errorf("line category = %s, want cat-groceries", ov.Lines[0].CategoryID)
	}
	if !ov.TotalSpent.Equal(decimal.RequireFromString("100")) {
		t.Errorf("TotalSpent = %s, want 100 (budgeted lines only)", ov.TotalSpent)
	}
}

func TestBuildOverview_DanglingBudgetRowSkipped(t *testing.T) {
	ov := BuildOverview(testWS, 2024, 3,
		[]core.BudgetCategory{groceries},
		[]core.MonthlyBudget{
			budgetRow("cat-groceries", "500"),
			budgetRow("cat-deleted", "200"),
		},
		nil,
	)

	if len(ov.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(ov.Lines))
	}
	if !ov.TotalPlanned.Equal(decimal.RequireFromString("500")) {
		t.Errorf("TotalPlanned = %s, want 500", ov.TotalPlanned)
	}
}

func TestBuildOverview_ConvertedAmountsAndSummary(t *testing.T) {
	foreign := expense("cat-groceries", "100")
	foreign.Currency = "USD"
	foreign.ConvertedAmount = decimal.RequireFromString("92.50")
	foreign.ExchangeRate = decimal.RequireFromString("0.925")

	ov := BuildOverview(testWS, 2024, 3,
		[]core.BudgetCategory{groceries, transport},
		[]core.MonthlyBudget{
			budgetRow("cat-groceries", "200"),
			budgetRow("cat-transport", "100"),
		},
		[]core.Transaction{
			foreign,
			expense("cat-transport", "30"),
		},
	)

	if !ov.TotalPlanned.Equal(decimal.RequireFromString("300")) {
		t.Errorf("TotalPlanned = %s, want 300", ov.TotalPlanned)
	}
	if !ov.TotalSpent.Equal(decimal.RequireFromString("122.50")) {
		t.Errorf("TotalSpent = %s, want 122.50 (converted amount used)", ov.TotalSpent)
	}
	// overallPercentage recomputed from the summed lines: 122.50/300*100
	if !ov.OverallPercentage.Equal(decimal.RequireFromString("40.83")) {
		t.Errorf("OverallPercentage = %s, want 40.83", ov.OverallPercentage)
	}
}

func TestBuildOverview_UncategorizedSpentReportedSeparately(t *testing.T) {
	uncat := expense("", "25")
	income := core.Transaction{
		WorkspaceID: "ws-1",
		Type:        core.Income,
		Amount:      decimal.RequireFromString("1000"),
		Currency:    "EUR",
		Date:        core.NewDate(2024, 3, 1),
	}

	ov := BuildOverview(testWS, 2024, 3,
		[]core.BudgetCategory{groceries},
		[]core.MonthlyBudget{budgetRow("cat-groceries", "500")},
		[]core.Transaction{uncat, income},
	)

	if !ov.UncategorizedSpent.Equal(decimal.RequireFromString("25")) {
		t.Errorf("UncategorizedSpent = %s, want 25", ov.UncategorizedSpent)
	}
	if !ov.TotalSpent.IsZero() {
		t.Errorf("TotalSpent = %s, want 0 (uncategorized excluded from lines)", ov.TotalSpent)
	}
}

func TestBuildOverview_OtherPeriodsExcluded(t *testing.T) {
	other := expense("cat-groceries", "999")
	other.Date = core.NewDate(2024, 2, 28)

	ov := BuildOverview(testWS, 2024, 3,
		[]core.BudgetCategory{groceries},
		[]core.MonthlyBudget{budgetRow("cat-groceries", "500")},
		[]core.Transaction{other, expense("cat-groceries", "10")},
	)

	if !ov.TotalSpent.Equal(decimal.RequireFromString("10")) {
		t.Errorf("TotalSpent = %s, want 10", ov.TotalSpent)
	}
}
