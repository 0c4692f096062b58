// Package services orchestrates recurrence planning, currency
// conversion, and storage into the reconciliation and budget-overview
// operations callers trigger.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/schedule"
	"fintrack/internal/store"
)

// Outcome classifies one materialization attempt.
type Outcome string

const (
	// OutcomeCreated: the transaction was persisted and the definition
	// cursor advanced atomically.
	OutcomeCreated Outcome = "created"

	// OutcomeAlreadyProcessed: a concurrent run won the compare-and-swap
	// or the occurrence already has a row. Idempotent success, not an
	// error; the losing side does not retry.
	OutcomeAlreadyProcessed Outcome = "already_processed"

	// OutcomeRateUnavailable: no rate for the definition's currency
	// pair. The occurrence is skipped and stays due for the next run.
	OutcomeRateUnavailable Outcome = "rate_unavailable"
)

// Materializer turns one due occurrence into exactly one persisted
// transaction.
type Materializer struct {
	store store.OccurrenceMaterializer
	rates currency.RateSource
}

func NewMaterializer(store store.OccurrenceMaterializer, rates currency.RateSource) *Materializer {
	return &Materializer{store: store, rates: rates}
}

// Materialize creates the transaction for occurrence and advances the
// definition's cursor in a single atomic storage step, guarded by the
// definition version read at planning time.
//
// Non-nil errors mean storage failed and the definition should be
// retried wholesale on the next run; every domain condition is an
// Outcome instead.
func (m *Materializer) Materialize(ctx context.Context, ws core.Workspace, def core.RecurringDefinition, occurrence core.Date) (Outcome, error) {
	tx := core.Transaction{
		ID:                    uuid.NewString(),
		WorkspaceID:           def.WorkspaceID,
		Type:                  core.Expense,
		CategoryID:            def.CategoryID,
		Amount:                def.Amount,
		Currency:              def.Currency,
		Description:           def.Note,
		Date:                  occurrence,
		RecurringDefinitionID: def.ID,
	}
	if tx.Description == "" {
		tx.Description = fmt.Sprintf("Recurring %s payment", def.Frequency)
	}

	// Conversion target is the workspace currency; the applied rate is
	// locked on the row and never recomputed.
	conv, err := currency.Convert(def.Amount, def.Currency, ws.Currency, m.rates)
	if errors.Is(err, core.ErrRateUnavailable) {
		slog.WarnContext(ctx, "Rate unavailable, occurrence skipped",
			"definition_id", def.ID,
			"occurrence", occurrence.String(),
			"from", def.Currency,
			"to", ws.Currency)
		return OutcomeRateUnavailable, nil
	}
	if err != nil {
		return "", fmt.Errorf("convert amount for definition %s: %w", def.ID, err)
	}
	if !strings.EqualFold(def.Currency, ws.Currency) {
		tx.ConvertedAmount = conv.Amount
		tx.ExchangeRate = conv.Rate
	}

	next := schedule.Next(occurrence, def.Frequency, def.StartDate)
	active := def.Active
	if def.HasEndDate() && next.After(def.EndDate.Time) {
		// Exhausted: this was the last occurrence the definition will
		// ever produce.
		active = false
	}
	adv := store.DefinitionAdvance{
		DefinitionID:      def.ID,
		Version:           def.Version,
		LastProcessedDate: occurrence,
		NextDueDate:       next,
		Active:            active,
	}

	err = m.store.MaterializeOccurrence(ctx, tx, adv)
	if errors.Is(err, core.ErrAlreadyProcessed) {
		return OutcomeAlreadyProcessed, nil
	}
	if err != nil {
		return "", fmt.Errorf("materialize occurrence %s of definition %s: %w", occurrence, def.ID, err)
	}

	slog.InfoContext(ctx, "Materialized recurring transaction",
		"definition_id", def.ID,
		"transaction_id", tx.ID,
		"occurrence", occurrence.String(),
		"amount", def.Amount.String(),
		"currency", def.Currency,
		"deactivated", !active)
	return OutcomeCreated, nil
}
