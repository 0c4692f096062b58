// Package http exposes the engine's trigger surface: reconcile a
// workspace on demand and read its monthly budget overview.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

type Server struct {
	http.Server

	reconciler *services.Reconciler
	budgets    *services.BudgetService

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run http.Server.
func NewServer(addr string, reconciler *services.Reconciler, budgets *services.BudgetService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		reconciler: reconciler,
		budgets:    budgets,
		limiter:    ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("POST /api/workspaces/{id}/reconcile",
		s.limiter.Handler(clientIP, http.HandlerFunc(s.handleReconcile)))
	mux.HandleFunc("GET /api/workspaces/{id}/budget-overview", s.handleBudgetOverview)

	tracer := trace.NewMiddleware(clientIP)
	s.Handler = tracer.Middleware(applog.ComponentMiddleware(applog.ComponentHTTP)(mux))

	return s
}

// Shutdown gracefully shuts down the server and the limiter's cleanup
// goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
