// Package memory is an in-memory store backend. It implements the same
// compare-and-swap and uniqueness semantics as the sqlite backend, which
// makes it the reference implementation for concurrency tests and the
// default backend for local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu           sync.Mutex
	workspaces   map[string]core.Workspace
	definitions  map[string]core.RecurringDefinition
	categories   map[string]core.BudgetCategory
	budgets      []core.MonthlyBudget
	transactions []core.Transaction
	generated    map[string]struct{} // workspace|definition|date uniqueness
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		workspaces:  make(map[string]core.Workspace),
		definitions: make(map[string]core.RecurringDefinition),
		categories:  make(map[string]core.BudgetCategory),
		generated:   make(map[string]struct{}),
	}
}

// PutWorkspace seeds or replaces a workspace.
func (s *Store) PutWorkspace(ws core.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[ws.ID] = ws
}

// PutCategory seeds or replaces a budget category.
func (s *Store) PutCategory(c core.BudgetCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
}

// PutBudget seeds a monthly budget row.
func (s *Store) PutBudget(b core.MonthlyBudget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = append(s.budgets, b)
}

// PutDefinition seeds or replaces a recurring definition.
func (s *Store) PutDefinition(def core.RecurringDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.definitions[def.ID] = def
}

// AddTransaction appends a manual transaction (no uniqueness check;
// generated rows go through MaterializeOccurrence).
func (s *Store) AddTransaction(tx core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx)
}

// Definition returns the current state of one definition.
func (s *Store) Definition(id string) (core.RecurringDefinition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.definitions[id]
	return def, ok
}

func (s *Store) Workspace(_ context.Context, id string) (core.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return core.Workspace{}, fmt.Errorf("workspace %s: %w", id, core.ErrNotFound)
	}
	return ws, nil
}

func (s *Store) Workspaces(_ context.Context) ([]core.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Workspace, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ActiveDefinitions(_ context.Context, workspaceID string) ([]core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringDefinition
	for _, def := range s.definitions {
		if def.WorkspaceID == workspaceID && def.Active {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MaterializeOccurrence implements store.OccurrenceMaterializer under a
// single mutex, mirroring the row-level atomicity the sqlite backend
// gets from its transaction.
func (s *Store) MaterializeOccurrence(_ context.Context, tx core.Transaction, adv store.DefinitionAdvance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.definitions[adv.DefinitionID]
	if !ok {
		return fmt.Errorf("definition %s: %w", adv.DefinitionID, core.ErrNotFound)
	}
	if def.Version != adv.Version {
		return core.ErrAlreadyProcessed
	}

	key := generatedKey(tx.WorkspaceID, tx.RecurringDefinitionID, tx.Date)
	if _, dup := s.generated[key]; dup {
		return core.ErrAlreadyProcessed
	}

	s.generated[key] = struct{}{}
	s.transactions = append(s.transactions, tx)

	def.Version++
	def.LastProcessedDate = adv.LastProcessedDate
	def.NextDueDate = adv.NextDueDate
	def.Active = adv.Active
	s.definitions[adv.DefinitionID] = def
	return nil
}

func (s *Store) Categories(_ context.Context, workspaceID string) ([]core.BudgetCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BudgetCategory
	for _, c := range s.categories {
		if c.WorkspaceID == workspaceID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) BudgetsForMonth(_ context.Context, workspaceID string, year, month int) ([]core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.MonthlyBudget
	for _, b := range s.budgets {
		if b.WorkspaceID == workspaceID && b.Year == year && b.Month == month {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) TransactionsForMonth(_ context.Context, workspaceID string, year, month int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.WorkspaceID == workspaceID && tx.Date.Year() == year && tx.Date.Month() == month {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (s *Store) Close() error { return nil }

func generatedKey(workspaceID, definitionID string, date core.Date) string {
	return workspaceID + "|" + definitionID + "|" + date.String()
}
