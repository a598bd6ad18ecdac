// Package server exposes the dashboard views as a JSON HTTP API.
//
// Every view endpoint reads the sidebar selection from the query string
// (state, county, profitMin, profitMax, rankMin, rankMax, top, metric) and
// answers with an envelope:
//
//	{"selection": {...}, "data": ..., "error": "Data unavailable: ..."}
//
// When the data source cannot be loaded the endpoints still answer 200 with
// empty data and the error message. An invalid selection answers 400.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hqdash/runtime/internal/dashboard"
	"github.com/hqdash/runtime/internal/errhandling"
	"github.com/hqdash/runtime/internal/logger"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

const shutdownTimeout = 10 * time.Second

// Server serves the dashboard API.
type Server struct {
	dash   *dashboard.Dashboard
	router *mux.Router
	addr   string
}

// Envelope is the body of every view response.
type Envelope struct {
	Selection *dashboard.SelectionView `json:"selection,omitempty"`
	Data      interface{}              `json:"data"`
	Error     string                   `json:"error,omitempty"`
}

// viewFunc computes one view from a frame.
type viewFunc func(ctx context.Context, f *dashboard.Frame) (interface{}, error)

// New creates a server for dash listening on addr (DefaultAddr when empty).
func New(dash *dashboard.Dashboard, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{dash: dash, router: mux.NewRouter(), addr: addr}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(recoverMiddleware, logMiddleware, corsMiddleware)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	// Full paths on the root router: every wrong method answers 405.
	api := map[string]http.HandlerFunc{
		"/api/columns":           s.handleColumns,
		"/api/options":           s.view(s.options),
		"/api/map":               s.view(s.mapView),
		"/api/companies":         s.view(companies),
		"/api/top":               s.view(top),
		"/api/charts/financials": s.view(financials),
		"/api/charts/employees":  s.view(employees),
		"/api/summary":           s.view(summaryView),
	}
	for path, h := range api {
		s.router.HandleFunc(path, h).Methods(http.MethodGet, http.MethodOptions)
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, OPTIONS")
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path))
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dashboard API: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down dashboard API", "addr", s.addr)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("dashboard API shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleColumns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Envelope{Data: dashboard.Columns()})
}

// view parses the selection, builds the frame and renders fn's result.
func (s *Server) view(fn viewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, err := dashboard.ParseSelection(r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		frame, err := s.dash.Frame(r.Context(), sel)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		data, err := fn(r.Context(), frame)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}

		view := sel.View()
		env := Envelope{Selection: &view, Data: data}
		if frame.DataError != nil {
			env.Error = errhandling.UserMessage(frame.DataError)
		}
		writeJSON(w, http.StatusOK, env)
	}
}

func (s *Server) options(_ context.Context, f *dashboard.Frame) (interface{}, error) {
	return f.Options(), nil
}

func (s *Server) mapView(_ context.Context, f *dashboard.Frame) (interface{}, error) {
	return s.dash.Map(f), nil
}

func companies(ctx context.Context, f *dashboard.Frame) (interface{}, error) {
	return f.Companies(ctx)
}

func top(_ context.Context, f *dashboard.Frame) (interface{}, error) {
	return f.Top()
}

func financials(ctx context.Context, f *dashboard.Frame) (interface{}, error) {
	return f.Financials(ctx)
}

func employees(ctx context.Context, f *dashboard.Frame) (interface{}, error) {
	return f.Employees(ctx)
}

func summaryView(_ context.Context, f *dashboard.Frame) (interface{}, error) {
	return f.Summary()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("dashboard API request failed", "status", status, "error", err.Error())
	}
	writeJSON(w, status, Envelope{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to encode response", "error", err.Error())
	}
}
