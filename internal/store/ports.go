// Package store defines the persistence ports the engine consumes.
// Implementations live in the sqlite and memory subpackages.
package store

import (
	"context"

	"fintrack/internal/core"
)

// DefinitionAdvance moves a recurring definition's cursor forward.
// Version is the compare-and-swap guard: the stored row must still
// carry this version for the advance to apply.
type DefinitionAdvance struct {
	DefinitionID      string
	Version           int64
	LastProcessedDate core.Date
	NextDueDate       core.Date
	Active            bool
}

// WorkspaceReader resolves workspaces.
type WorkspaceReader interface {
	Workspace(ctx context.Context, id string) (core.Workspace, error)
	Workspaces(ctx context.Context) ([]core.Workspace, error)
}

// DefinitionReader lists the recurring definitions eligible for
// reconciliation.
type DefinitionReader interface {
	ActiveDefinitions(ctx context.Context, workspaceID string) ([]core.RecurringDefinition, error)
}

// OccurrenceMaterializer is the engine's single mutation point: insert
// the generated transaction and advance its definition's cursor in one
// atomic step.
//
// Implementations return core.ErrAlreadyProcessed when either the
// version guard fails or the (workspace, definition, date) uniqueness
// constraint rejects the insert. Both mean a concurrent run won, and
// the caller treats that as idempotent success.
type OccurrenceMaterializer interface {
	MaterializeOccurrence(ctx context.Context, tx core.Transaction, adv DefinitionAdvance) error
}

// BudgetReader fetches the aggregation inputs for one workspace/month.
type BudgetReader interface {
	Categories(ctx context.Context, workspaceID string) ([]core.BudgetCategory, error)
	BudgetsForMonth(ctx context.Context, workspaceID string, year, month int) ([]core.MonthlyBudget, error)
	TransactionsForMonth(ctx context.Context, workspaceID string, year, month int) ([]core.Transaction, error)
}

// Store is the full persistence surface a backend provides.
type Store interface {
	WorkspaceReader
	DefinitionReader
	OccurrenceMaterializer
	BudgetReader

	Close() error
}
