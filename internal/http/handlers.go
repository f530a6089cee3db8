package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"budgetdash/internal/core"
	"budgetdash/internal/log"

	"github.com/go-chi/chi/v5"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports ready once a dataset is loaded and every registered
// dependency check passes.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if years := s.dashboard.YearsAvailable(); len(years) == 0 {
		checks["dataset"] = "failed: no dataset loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["dataset"] = "ok"
	}

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request and rate limit counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()

	fmt.Fprintf(w, "# HELP budgetdash_requests_total Total HTTP requests\n")
	fmt.Fprintf(w, "budgetdash_requests_total %d\n", traceMetrics.TotalRequests)
	fmt.Fprintf(w, "# HELP budgetdash_server_errors_total Responses with status >= 500\n")
	fmt.Fprintf(w, "budgetdash_server_errors_total %d\n", traceMetrics.ServerErrors)
	fmt.Fprintf(w, "# HELP budgetdash_rate_limited_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "budgetdash_rate_limited_total %d\n", limitMetrics.Rejected)
	fmt.Fprintf(w, "# HELP budgetdash_rate_limit_clients Clients tracked by the rate limiter\n")
	fmt.Fprintf(w, "budgetdash_rate_limit_clients %d\n", limitMetrics.ClientCount)
	fmt.Fprintf(w, "# HELP budgetdash_uptime_seconds Seconds since start\n")
	fmt.Fprintf(w, "budgetdash_uptime_seconds %d\n", int64(time.Since(s.started).Seconds()))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.clientIP.ClientIP(r))
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error: "rate limit exceeded, please try again later",
		Code:  "rate_limited",
	})
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	years := s.dashboard.YearsAvailable()
	if years == nil {
		years = []core.Year{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"years": years})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.CreateSession(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+view.SessionID)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleApplyEvent runs one interaction event. A click on a key that is not
// displayed is answered with 200 and the unchanged dashboard marked ignored.
func (s *Server) handleApplyEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := ParseEvent(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.dashboard.Apply(r.Context(), chi.URLParam(r, "sessionID"), ev)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, view)
	case errors.Is(err, core.ErrUnknownKey):
		view.Ignored = true
		writeJSON(w, http.StatusOK, view)
	default:
		respondError(w, r, err)
	}
}
