package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/services"
	"fintrack/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	st := memory.New()
	st.PutWorkspace(core.Workspace{ID: "ws-1", Name: "Personal", Currency: "EUR"})
	st.PutCategory(core.BudgetCategory{ID: "cat-food", WorkspaceID: "ws-1", Name: "Food"})

	rates := currency.NewTable()
	materializer := services.NewMaterializer(st, rates)
	reconciler := services.NewReconciler(st, materializer, 2)
	budgets := services.NewBudgetService(st, 16, time.Minute)

	return NewServer(":0", reconciler, budgets), st
}

func TestHandleReconcile(t *testing.T) {
	srv, st := newTestServer(t)

	start := core.DateOf(time.Now().AddDate(0, 0, -14))
	st.PutDefinition(core.RecurringDefinition{
		ID:          "def-1",
		WorkspaceID: "ws-1",
		CategoryID:  "cat-food",
		Amount:      decimal.NewFromInt(50),
		Currency:    "EUR",
		Frequency:   core.Weekly,
		StartDate:   start,
		NextDueDate: start,
		Active:      true,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/workspaces/ws-1/reconcile", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report services.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, "ws-1", report.WorkspaceID)
	assert.Equal(t, 3, report.CreatedCount)
	assert.Zero(t, report.SkippedCount)

	// A second trigger finds nothing due.
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/workspaces/ws-1/reconcile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Zero(t, report.CreatedCount)
}

func TestHandleReconcile_UnknownWorkspace(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/workspaces/nope/reconcile", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleBudgetOverview(t *testing.T) {
	srv, st := newTestServer(t)

	st.PutBudget(core.MonthlyBudget{
		WorkspaceID: "ws-1",
		CategoryID:  "cat-food",
		Year:        2025,
		Month:       4,
		Planned:     decimal.NewFromInt(200),
		Currency:    "EUR",
	})
	st.AddTransaction(core.Transaction{
		ID:          "tx-1",
		WorkspaceID: "ws-1",
		Type:        core.Expense,
		CategoryID:  "cat-food",
		Amount:      decimal.NewFromInt(50),
		Currency:    "EUR",
		Date:        core.NewDate(2025, 4, 10),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/workspaces/ws-1/budget-overview?year=2025&month=4", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var ov budget.Overview
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ov))
	assert.Equal(t, 2025, ov.Year)
	assert.Equal(t, 4, ov.Month)
	require.Len(t, ov.Lines, 1)
	assert.True(t, ov.Lines[0].Spent.Equal(decimal.NewFromInt(50)), "spent = %s", ov.Lines[0].Spent)
	assert.True(t, ov.Lines[0].Percentage.Equal(decimal.NewFromInt(25)), "percentage = %s", ov.Lines[0].Percentage)
	assert.False(t, ov.Lines[0].OverBudget)
}

func TestHandleBudgetOverview_BadParams(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"month out of range", "/api/workspaces/ws-1/budget-overview?year=2025&month=13", http.StatusBadRequest},
		{"non-numeric year", "/api/workspaces/ws-1/budget-overview?year=abc", http.StatusBadRequest},
		{"unknown workspace", "/api/workspaces/nope/budget-overview?year=2025&month=4", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
