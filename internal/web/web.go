// ABOUTME: Read-only web dashboard for watching agents work the board.
// ABOUTME: Serves the embedded HTML page and the JSON API it polls.

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/service"
	"github.com/agentboard/agentboard/internal/store"
)

// Server handles dashboard routes. All routes are read-only; writes go
// through the MCP tool surface.
type Server struct {
	service *service.Service
	logger  *slog.Logger
}

// New creates a dashboard server backed by the given service.
func New(svc *service.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service: svc,
		logger:  logger.With("component", "web"),
	}
}

// RegisterRoutes registers the dashboard routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleDashboard)

	mux.HandleFunc("GET /api/projects", s.handleProjects)
	mux.HandleFunc("GET /api/projects/{id}/progress", s.handleProjectProgress)
	mux.HandleFunc("GET /api/activity", s.handleActivity)

	// htmx-style HTML fragment for the detail pane
	mux.HandleFunc("GET /partials/projects/{id}", s.handleProjectDetail)

	s.logger.Info("dashboard routes registered")
}

// handleDashboard serves the single-page dashboard shell.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w)
}

// handleProjects returns the project list with per-project counts.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	offset := queryInt(r, "offset")

	projects, err := s.service.ListProjects(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("failed to list projects", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	s.writeJSON(w, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// handleProjectProgress returns the completion rollup for one project.
func (s *Server) handleProjectProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	progress, err := s.service.ProjectProgress(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to compute project progress", "project_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to compute progress")
		return
	}

	s.writeJSON(w, progress)
}

// activityEntry pairs a raw event with its rendered display line.
type activityEntry struct {
	events.Event
	Display string `json:"display"`
}

// handleActivity returns recent events for the activity feed.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")

	evs := s.service.Activity(limit)
	entries := make([]activityEntry, 0, len(evs))
	for _, e := range evs {
		entries = append(entries, activityEntry{Event: e, Display: e.DisplayString()})
	}

	s.writeJSON(w, map[string]any{
		"events": entries,
		"count":  len(entries),
	})
}

// handleProjectDetail renders the detail pane fragment for one project.
func (s *Server) handleProjectDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	detail, err := s.service.GetProject(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Project not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("failed to load project", "project_id", id, "error", err)
		http.Error(w, "Failed to load project", http.StatusInternalServerError)
		return
	}

	prds, err := s.service.ListPRDs(r.Context(), store.PRDFilter{ProjectID: id})
	if err != nil {
		s.logger.Error("failed to list PRDs", "project_id", id, "error", err)
		http.Error(w, "Failed to load project", http.StatusInternalServerError)
		return
	}

	s.renderProjectDetail(w, detail, prds)
}

// queryInt parses an integer query parameter, returning 0 when absent or
// malformed so the service applies its defaults.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
