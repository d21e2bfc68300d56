// ABOUTME: Template rendering and JSON response helpers for the dashboard
// ABOUTME: Loads templates from the embedded filesystem and renders them

package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/agentboard/agentboard/internal/service"
	"github.com/agentboard/agentboard/internal/store"
)

type dashboardData struct {
	Title string
}

type prdItem struct {
	*store.PRD
	DescriptionHTML template.HTML
}

type projectDetailData struct {
	Project         *service.ProjectDetail
	DescriptionHTML template.HTML
	PRDs            []prdItem
}

// renderDashboard renders the dashboard shell page.
func (s *Server) renderDashboard(w http.ResponseWriter) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

	data := dashboardData{
		Title: "agentboard",
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render dashboard", "error", err)
	}
}

// renderProjectDetail renders the project detail partial with markdown
// descriptions converted to HTML.
func (s *Server) renderProjectDetail(w http.ResponseWriter, detail *service.ProjectDetail, prds []*store.PRD) {
	tmpl := template.Must(template.ParseFS(templateFS, "templates/partials/project_detail.html"))

	items := make([]prdItem, 0, len(prds))
	for _, p := range prds {
		items = append(items, prdItem{
			PRD:             p,
			DescriptionHTML: s.renderMarkdown(p.Description),
		})
	}

	data := projectDetailData{
		Project:         detail,
		DescriptionHTML: s.renderMarkdown(detail.Description),
		PRDs:            items,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render project detail", "error", err)
	}
}

// renderMarkdown converts markdown to HTML for embedding in templates.
// Goldmark's defaults escape raw HTML in the source, so the output is safe
// to mark as trusted template content.
func (s *Server) renderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		s.logger.Error("failed to convert markdown", "error", err)
		return "<p>Failed to render description.</p>"
	}
	return template.HTML(buf.String())
}

// writeJSON writes a JSON response body.
func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error body with the given status.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.logger.Error("failed to encode error response", "error", err)
	}
}
