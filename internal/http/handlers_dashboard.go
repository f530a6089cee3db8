package http

import (
	"errors"
	"net/http"

	"budgetdash/internal/core"
	"budgetdash/internal/log"
	"budgetdash/internal/services"
)

// dashboardPage is the data passed to the dashboard template.
type dashboardPage struct {
	Dashboard services.Dashboard
	Years     []yearOption
	RankModes []core.RankMode
	NoData    bool
}

type yearOption struct {
	Year    core.Year
	Checked bool
}

func yearOptions(d services.Dashboard) []yearOption {
	selected := make(map[core.Year]bool, len(d.State.SelectedYears))
	for _, y := range d.State.SelectedYears {
		selected[y] = true
	}
	out := make([]yearOption, len(d.YearsAvailable))
	for i, y := range d.YearsAvailable {
		out[i] = yearOption{Year: y, Checked: selected[y]}
	}
	return out
}

// handleDashboard starts a session and renders it server-side. The page
// script continues the session through the JSON API.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded")
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	page := dashboardPage{RankModes: []core.RankMode{core.RankTop, core.RankBottom}}
	view, err := s.dashboard.CreateSession(r.Context())
	switch {
	case err == nil:
		page.Dashboard = view
		page.Years = yearOptions(view)
	case errors.Is(err, services.ErrNoData):
		page.NoData = true
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard session failed", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", page); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard template execution failed", log.FieldError, err)
	}
}
