package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const (
	reconcileTimeout = 30 * time.Second
	overviewTimeout  = 7 * time.Second
)

// handleReconcile runs a full reconciliation sweep for one workspace
// and returns the run report. Safe to call repeatedly; occurrences
// already materialized are reported as skipped.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	workspaceID := strings.TrimSpace(r.PathValue("id"))
	if workspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reconcileTimeout)
	defer cancel()

	report, err := s.reconciler.Reconcile(ctx, workspaceID, time.Now())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workspace not found")
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Reconciliation request failed",
			applog.FieldWorkspaceID, workspaceID, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "reconciliation failed")
		return
	}

	// New rows change the overview of the months they landed in.
	for _, res := range report.Definitions {
		for _, occ := range res.Created {
			s.budgets.Invalidate(workspaceID, occ.Year(), occ.Month())
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// handleBudgetOverview returns the planned-vs-actual roll-up for one
// workspace month. Year and month default to the current date.
func (s *Server) handleBudgetOverview(w http.ResponseWriter, r *http.Request) {
	workspaceID := strings.TrimSpace(r.PathValue("id"))
	if workspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace id is required")
		return
	}

	year, month, err := parseYearMonth(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), overviewTimeout)
	defer cancel()

	overview, err := s.budgets.Overview(ctx, workspaceID, year, month)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "workspace not found")
			return
		}
		applog.FromContext(ctx).ErrorContext(ctx, "Budget overview request failed",
			applog.FieldWorkspaceID, workspaceID,
			applog.FieldYear, year,
			applog.FieldMonth, month,
			applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "budget overview failed")
		return
	}

	writeJSON(w, http.StatusOK, overview)
}

// parseYearMonth extracts year and month from query parameters,
// defaulting to the current date.
func parseYearMonth(r *http.Request) (year, month int, err error) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, convErr := strconv.Atoi(v)
		if convErr != nil || y < 1 {
			return 0, 0, errors.New("invalid year parameter")
		}
		year = y
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, convErr := strconv.Atoi(v)
		if convErr != nil || m < 1 || m > 12 {
			return 0, 0, errors.New("invalid month parameter")
		}
		month = m
	}
	return year, month, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
