package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func seedDefinition(s *Store) core.RecurringDefinition {
	def := core.RecurringDefinition{
		ID:          "def-1",
		WorkspaceID: "ws-1",
		CategoryID:  "cat-1",
		Amount:      decimal.NewFromInt(9),
		Currency:    "EUR",
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2024, 1, 15),
		NextDueDate: core.NewDate(2024, 1, 15),
		Version:     3,
		Active:      true,
	}
	s.PutDefinition(def)
	return def
}

func generatedTx(date core.Date) core.Transaction {
	return core.Transaction{
		ID:                    "tx-" + date.String(),
		WorkspaceID:           "ws-1",
		Type:                  core.Expense,
		CategoryID:            "cat-1",
		Amount:                decimal.NewFromInt(9),
		Currency:              "EUR",
		Date:                  date,
		RecurringDefinitionID: "def-1",
	}
}

func TestMaterializeOccurrence_AdvancesCursor(t *testing.T) {
	ctx := context.Background()
	s := New()
	def := seedDefinition(s)

	occ := core.NewDate(2024, 1, 15)
	adv := store.DefinitionAdvance{
		DefinitionID:      def.ID,
		Version:           def.Version,
		LastProcessedDate: occ,
		NextDueDate:       core.NewDate(2024, 2, 15),
		Active:            true,
	}
	require.NoError(t, s.MaterializeOccurrence(ctx, generatedTx(occ), adv))

	got, ok := s.Definition(def.ID)
	require.True(t, ok)
	assert.Equal(t, def.Version+1, got.Version)
	assert.Equal(t, occ, got.LastProcessedDate)
	assert.Equal(t, core.NewDate(2024, 2, 15), got.NextDueDate)

	txs, err := s.TransactionsForMonth(ctx, "ws-1", 2024, 1)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestMaterializeOccurrence_StaleVersionIsAlreadyProcessed(t *testing.T) {
	ctx := context.Background()
	s := New()
	def := seedDefinition(s)

	occ := core.NewDate(2024, 1, 15)
	adv := store.DefinitionAdvance{
		DefinitionID:      def.ID,
		Version:           def.Version - 1, // another run already advanced it
		LastProcessedDate: occ,
		NextDueDate:       core.NewDate(2024, 2, 15),
		Active:            true,
	}
	err := s.MaterializeOccurrence(ctx, generatedTx(occ), adv)
	assert.ErrorIs(t, err, core.ErrAlreadyProcessed)

	txs, err := s.TransactionsForMonth(ctx, "ws-1", 2024, 1)
	require.NoError(t, err)
	assert.Empty(t, txs, "losing side must not insert")
}

func TestMaterializeOccurrence_DuplicateOccurrenceRejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	def := seedDefinition(s)

	occ := core.NewDate(2024, 1, 15)
	adv := store.DefinitionAdvance{
		DefinitionID:      def.ID,
		Version:           def.Version,
		LastProcessedDate: occ,
		NextDueDate:       core.NewDate(2024, 2, 15),
		Active:            true,
	}
	require.NoError(t, s.MaterializeOccurrence(ctx, generatedTx(occ), adv))

	adv.Version = def.Version + 1 // guard passes, unique key must still hold
	err := s.MaterializeOccurrence(ctx, generatedTx(occ), adv)
	assert.ErrorIs(t, err, core.ErrAlreadyProcessed)

	txs, err := s.TransactionsForMonth(ctx, "ws-1", 2024, 1)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestMaterializeOccurrence_DeactivatesExhaustedDefinition(t *testing.T) {
	ctx := context.Background()
	s := New()
	def := seedDefinition(s)

	occ := core.NewDate(2024, 1, 15)
	adv := store.DefinitionAdvance{
		DefinitionID:      def.ID,
		Version:           def.Version,
		LastProcessedDate: occ,
		NextDueDate:       core.NewDate(2024, 2, 15),
		Active:            false,
	}
	require.NoError(t, s.MaterializeOccurrence(ctx, generatedTx(occ), adv))

	defs, err := s.ActiveDefinitions(ctx, "ws-1")
	require.NoError(t, err)
	assert.Empty(t, defs)
}
