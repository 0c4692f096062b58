package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/schedule"
	"fintrack/internal/store"
)

// SkipReason explains why an occurrence produced no new row.
type SkipReason string

const (
	SkipAlreadyProcessed SkipReason = "already_processed"
	SkipRateUnavailable  SkipReason = "rate_unavailable"
)

type SkippedOccurrence struct {
	Date   core.Date  `json:"date"`
	Reason SkipReason `json:"reason"`
}

// DefinitionResult is the per-definition outcome of one reconciliation
// run.
type DefinitionResult struct {
	DefinitionID string              `json:"definitionId"`
	Created      []core.Date         `json:"created,omitempty"`
	Skipped      []SkippedOccurrence `json:"skipped,omitempty"`
	Overflowed   bool                `json:"overflowed,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// NeedsAttention reports whether an operator should look at this
// definition: truncated backlog, missing rate, or storage failure.
func (r DefinitionResult) NeedsAttention() bool {
	if r.Overflowed || r.Error != "" {
		return true
	}
	for _, s := range r.Skipped {
		if s.Reason == SkipRateUnavailable {
			return true
		}
	}
	return false
}

// Report aggregates a whole reconciliation run.
type Report struct {
	WorkspaceID    string             `json:"workspaceId"`
	RunAt          time.Time          `json:"runAt"`
	CreatedCount   int                `json:"createdCount"`
	SkippedCount   int                `json:"skippedCount"`
	Definitions    []DefinitionResult `json:"definitions"`
	NeedsAttention []string           `json:"needsAttention,omitempty"`
}

// ReportPublisher pushes the run report to interested consumers once
// reconciliation finishes. Optional.
type ReportPublisher interface {
	PublishReconciliation(ctx context.Context, report Report) error
}

// Reconciler sweeps a workspace's active recurring definitions and
// materializes every currently-due occurrence.
type Reconciler struct {
	store        ReconcilerStore
	materializer *Materializer
	parallelism  int
	publisher    ReportPublisher
}

// ReconcilerStore is the read surface reconciliation needs.
type ReconcilerStore interface {
	store.WorkspaceReader
	store.DefinitionReader
}

func NewReconciler(st ReconcilerStore, materializer *Materializer, parallelism int) *Reconciler {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Reconciler{
		store:        st,
		materializer: materializer,
		parallelism:  parallelism,
	}
}

// WithPublisher attaches an optional report publisher.
func (r *Reconciler) WithPublisher(p ReportPublisher) *Reconciler {
	r.publisher = p
	return r
}

// Reconcile processes all active definitions of the workspace.
// Definitions are independent: they run with bounded parallelism and
// one definition's failure never aborts its siblings. The returned
// error covers only the two upfront reads; everything per-definition
// lands in the report.
func (r *Reconciler) Reconcile(ctx context.Context, workspaceID string, now time.Time) (Report, error) {
	report := Report{WorkspaceID: workspaceID, RunAt: now}

	ws, err := r.store.Workspace(ctx, workspaceID)
	if err != nil {
		return report, fmt.Errorf("load workspace: %w", err)
	}
	defs, err := r.store.ActiveDefinitions(ctx, workspaceID)
	if err != nil {
		return report, fmt.Errorf("load active definitions: %w", err)
	}

	slog.InfoContext(ctx, "Reconciliation started",
		"workspace_id", workspaceID,
		"active_definitions", len(defs),
		"now", now.Format("2006-01-02"))

	var (
		mu      sync.Mutex
		results = make([]DefinitionResult, 0, len(defs))
	)
	g := &errgroup.Group{}
	g.SetLimit(r.parallelism)
	for _, def := range defs {
		def := def
		g.Go(func() error {
			res := r.processDefinition(ctx, ws, def, now)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures live in results

	sort.Slice(results, func(i, j int) bool { return results[i].DefinitionID < results[j].DefinitionID })
	report.Definitions = results
	for _, res := range results {
		report.CreatedCount += len(res.Created)
		report.SkippedCount += len(res.Skipped)
		if res.NeedsAttention() {
			report.NeedsAttention = append(report.NeedsAttention, res.DefinitionID)
		}
	}

	slog.InfoContext(ctx, "Reconciliation complete",
		"workspace_id", workspaceID,
		"created", report.CreatedCount,
		"skipped", report.SkippedCount,
		"needs_attention", len(report.NeedsAttention))

	if r.publisher != nil {
		if err := r.publisher.PublishReconciliation(ctx, report); err != nil {
			// The run itself succeeded; losing the event is not fatal.
			slog.ErrorContext(ctx, "Failed to publish reconciliation report",
				"workspace_id", workspaceID, "error", err)
		}
	}
	return report, nil
}

func (r *Reconciler) processDefinition(ctx context.Context, ws core.Workspace, def core.RecurringDefinition, now time.Time) DefinitionResult {
	res := DefinitionResult{DefinitionID: def.ID}

	plan, err := schedule.Build(def, now)
	if err != nil {
		res.Error = err.Error()
		slog.ErrorContext(ctx, "Failed to plan definition",
			"definition_id", def.ID, "error", err)
		return res
	}
	res.Overflowed = plan.Overflowed

	for i, occ := range plan.Occurrences {
		outcome, err := r.materializer.Materialize(ctx, ws, def, occ)
		if err != nil {
			// Storage failure: stop here, the whole remainder stays due
			// and is retried on the next trigger.
			res.Error = err.Error()
			slog.ErrorContext(ctx, "Materialization failed, definition deferred",
				"definition_id", def.ID,
				"occurrence", occ.String(),
				"error", err)
			return res
		}
		switch outcome {
		case OutcomeCreated:
			res.Created = append(res.Created, occ)
			// Track the advance locally so the next occurrence's guard
			// matches the stored row.
			def.Version++
			def.LastProcessedDate = occ
		case OutcomeAlreadyProcessed:
			res.Skipped = append(res.Skipped, SkippedOccurrence{Date: occ, Reason: SkipAlreadyProcessed})
		case OutcomeRateUnavailable:
			// Every remaining occurrence shares the same currency pair,
			// so none of them can materialize this run either.
			for _, rest := range plan.Occurrences[i:] {
				res.Skipped = append(res.Skipped, SkippedOccurrence{Date: rest, Reason: SkipRateUnavailable})
			}
			return res
		}
	}
	return res
}
