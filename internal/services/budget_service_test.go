package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/store/memory"
)

func TestBudgetService_OverviewAndInvalidation(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	st.PutWorkspace(core.Workspace{ID: "ws-1", Name: "Household", Currency: "EUR"})
	st.PutCategory(core.BudgetCategory{ID: "cat-1", WorkspaceID: "ws-1", Name: "Groceries"})
	st.PutBudget(core.MonthlyBudget{
		WorkspaceID: "ws-1", CategoryID: "cat-1",
		Year: 2024, Month: 3,
		Planned: decimal.RequireFromString("500"), Currency: "EUR",
	})
	st.AddTransaction(core.Transaction{
		ID: "tx-1", WorkspaceID: "ws-1", Type: core.Expense, CategoryID: "cat-1",
		Amount: decimal.RequireFromString("120"), Currency: "EUR",
		Date: core.NewDate(2024, 3, 5),
	})

	svc := NewBudgetService(st, 16, time.Minute)

	ov, err := svc.Overview(ctx, "ws-1", 2024, 3)
	require.NoError(t, err)
	require.Len(t, ov.Lines, 1)
	assert.True(t, ov.Lines[0].Spent.Equal(decimal.RequireFromString("120")))

	// Cached: a new transaction is invisible until invalidation.
	st.AddTransaction(core.Transaction{
		ID: "tx-2", WorkspaceID: "ws-1", Type: core.Expense, CategoryID: "cat-1",
		Amount: decimal.RequireFromString("30"), Currency: "EUR",
		Date: core.NewDate(2024, 3, 6),
	})
	ov, err = svc.Overview(ctx, "ws-1", 2024, 3)
	require.NoError(t, err)
	assert.True(t, ov.Lines[0].Spent.Equal(decimal.RequireFromString("120")))

	svc.Invalidate("ws-1", 2024, 3)
	ov, err = svc.Overview(ctx, "ws-1", 2024, 3)
	require.NoError(t, err)
	assert.True(t, ov.Lines[0].Spent.Equal(decimal.RequireFromString("150")))
}

func TestBudgetService_RejectsInvalidMonth(t *testing.T) {
	svc := NewBudgetService(memory.New(), 16, time.Minute)
	_, err := svc.Overview(context.Background(), "ws-1", 2024, 13)
	assert.Error(t, err)
}

func TestBudgetService_UnknownWorkspace(t *testing.T) {
	svc := NewBudgetService(memory.New(), 16, time.Minute)
	_, err := svc.Overview(context.Background(), "missing", 2024, 3)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
