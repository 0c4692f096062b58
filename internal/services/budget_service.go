package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/store"
)

// BudgetService answers budget-overview queries. It only reads;
// aggregation itself is delegated to the budget package.
type BudgetService struct {
	store    BudgetStore
	overview *cache.LRU[budget.Overview]
}

// BudgetStore is the read surface overview building needs.
type BudgetStore interface {
	store.WorkspaceReader
	store.BudgetReader
}

func NewBudgetService(st BudgetStore, cacheSize int, cacheTTL time.Duration) *BudgetService {
	return &BudgetService{
		store:    st,
		overview: cache.NewLRU[budget.Overview](cacheSize, cacheTTL),
	}
}

// Overview returns the planned-vs-actual roll-up for one workspace
// month. Results are cached briefly; a reconciliation that creates rows
// invalidates the affected month through Invalidate.
func (s *BudgetService) Overview(ctx context.Context, workspaceID string, year, month int) (budget.Overview, error) {
	if month < 1 || month > 12 {
		return budget.Overview{}, fmt.Errorf("invalid month %d", month)
	}

	key := overviewKey(workspaceID, year, month)
	if ov, ok := s.overview.Get(key); ok {
		return ov, nil
	}

	ws, err := s.store.Workspace(ctx, workspaceID)
	if err != nil {
		return budget.Overview{}, fmt.Errorf("load workspace: %w", err)
	}
	cats, err := s.store.Categories(ctx, workspaceID)
	if err != nil {
		return budget.Overview{}, fmt.Errorf("load categories: %w", err)
	}
	budgets, err := s.store.BudgetsForMonth(ctx, workspaceID, year, month)
	if err != nil {
		return budget.Overview{}, fmt.Errorf("load budgets: %w", err)
	}
	txs, err := s.store.TransactionsForMonth(ctx, workspaceID, year, month)
	if err != nil {
		return budget.Overview{}, fmt.Errorf("load transactions: %w", err)
	}

	ov := budget.BuildOverview(ws, year, month, cats, budgets, txs)
	s.overview.Set(key, ov)
	return ov, nil
}

// Invalidate drops the cached overview for one workspace month.
func (s *BudgetService) Invalidate(workspaceID string, year, month int) {
	s.overview.Delete(overviewKey(workspaceID, year, month))
}

func overviewKey(workspaceID string, year, month int) string {
	return fmt.Sprintf("%s/%04d-%02d", workspaceID, year, month)
}
