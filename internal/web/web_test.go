// ABOUTME: Handler tests for the dashboard page, JSON API, and detail partial.
// ABOUTME: Drives requests through the mux so route patterns are exercised too.

package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/service"
	"github.com/agentboard/agentboard/internal/store"
)

func newTestDashboard(t *testing.T) (*service.Service, *http.ServeMux) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "web-test.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(st, events.New(100), logger)

	mux := http.NewServeMux()
	New(svc, logger).RegisterRoutes(mux)
	return svc, mux
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decoding body: %v (body %q)", err, rec.Body.String())
	}
}

// seedProject creates a project with one PRD, one story, and two tasks, one
// of them done.
func seedProject(t *testing.T, svc *service.Service) *store.Project {
	t.Helper()
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, &store.Project{
		Name:        "Orchestrator",
		Description: "Runs the **agent fleet** end to end.",
	}, "agent-1")
	if err != nil {
		t.Fatalf("creating project: %v", err)
	}

	prd, err := svc.CreatePRD(ctx, &store.PRD{
		ProjectID:   project.ID,
		Title:       "Agent onboarding",
		Description: "Covers `register` and `heartbeat`.",
		CreatedBy:   "agent-1",
	})
	if err != nil {
		t.Fatalf("creating prd: %v", err)
	}

	story, err := svc.CreateStory(ctx, &store.Story{
		PRDID:     prd.ID,
		Title:     "Registration flow",
		CreatedBy: "agent-1",
	})
	if err != nil {
		t.Fatalf("creating story: %v", err)
	}

	for _, title := range []string{"Schema", "Handler"} {
		if _, err := svc.CreateTask(ctx, &store.Task{
			StoryID:    story.ID,
			Title:      title,
			AssignedTo: "agent-2",
			CreatedBy:  "agent-1",
		}); err != nil {
			t.Fatalf("creating task %s: %v", title, err)
		}
	}

	tasks, err := svc.ListTasks(ctx, store.TaskFilter{StoryID: story.ID})
	if err != nil {
		t.Fatalf("listing tasks: %v", err)
	}
	done := store.TaskStatusDone
	if _, err := svc.UpdateTask(ctx, tasks[0].ID, store.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("completing task: %v", err)
	}

	return project
}

func TestDashboardPage(t *testing.T) {
	_, mux := newTestDashboard(t)

	rec := get(t, mux, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "agentboard") {
		t.Error("page missing title")
	}
	if !strings.Contains(body, "/api/projects") {
		t.Error("page missing polling script")
	}
}

func TestDashboardPage_RootOnly(t *testing.T) {
	_, mux := newTestDashboard(t)

	rec := get(t, mux, "/no-such-page")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProjectsAPI(t *testing.T) {
	svc, mux := newTestDashboard(t)

	t.Run("empty", func(t *testing.T) {
		rec := get(t, mux, "/api/projects")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var body struct {
			Count int `json:"count"`
		}
		decodeBody(t, rec, &body)
		if body.Count != 0 {
			t.Errorf("count = %d, want 0", body.Count)
		}
	})

	seedProject(t, svc)

	t.Run("with counts", func(t *testing.T) {
		rec := get(t, mux, "/api/projects")

		var body struct {
			Count    int `json:"count"`
			Projects []struct {
				Name   string `json:"name"`
				Counts struct {
					PRDs  int `json:"prd_count"`
					Tasks int `json:"task_count"`
				} `json:"counts"`
			} `json:"projects"`
		}
		decodeBody(t, rec, &body)
		if body.Count != 1 {
			t.Fatalf("count = %d, want 1", body.Count)
		}
		if body.Projects[0].Name != "Orchestrator" {
			t.Errorf("name = %q", body.Projects[0].Name)
		}
		if body.Projects[0].Counts.PRDs != 1 || body.Projects[0].Counts.Tasks != 2 {
			t.Errorf("counts = %+v, want 1 PRD, 2 tasks", body.Projects[0].Counts)
		}
	})
}

func TestProjectProgressAPI(t *testing.T) {
	svc, mux := newTestDashboard(t)
	project := seedProject(t, svc)

	rec := get(t, mux, "/api/projects/"+project.ID+"/progress")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var progress struct {
		TaskCount     int            `json:"task_count"`
		TasksByStatus map[string]int `json:"tasks_by_status"`
		Completion    float64        `json:"completion_percent"`
	}
	decodeBody(t, rec, &progress)
	if progress.TaskCount != 2 {
		t.Errorf("task_count = %d, want 2", progress.TaskCount)
	}
	if progress.TasksByStatus["done"] != 1 {
		t.Errorf("tasks_by_status = %v", progress.TasksByStatus)
	}
	if progress.Completion != 50 {
		t.Errorf("completion = %v, want 50", progress.Completion)
	}
}

func TestProjectProgressAPI_NotFound(t *testing.T) {
	_, mux := newTestDashboard(t)

	rec := get(t, mux, "/api/projects/no-such-project/progress")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	if body.Error == "" {
		t.Error("404 body missing error message")
	}
}

func TestActivityAPI(t *testing.T) {
	svc, mux := newTestDashboard(t)
	seedProject(t, svc)

	rec := get(t, mux, "/api/activity")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Count  int `json:"count"`
		Events []struct {
			Type    string `json:"type"`
			Display string `json:"display"`
		} `json:"events"`
	}
	decodeBody(t, rec, &body)
	// project, PRD, story, and two task creates
	if body.Count != 5 {
		t.Fatalf("count = %d, want 5", body.Count)
	}
	for _, e := range body.Events {
		if e.Display == "" {
			t.Errorf("event %s has empty display string", e.Type)
		}
	}

	rec = get(t, mux, "/api/activity?limit=2")
	decodeBody(t, rec, &body)
	if body.Count != 2 {
		t.Errorf("limited count = %d, want 2", body.Count)
	}
}

func TestProjectDetailPartial(t *testing.T) {
	svc, mux := newTestDashboard(t)
	project := seedProject(t, svc)

	rec := get(t, mux, "/partials/projects/"+project.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", rec.Code, http.StatusOK, rec.Body.String())
	}

	body := rec.Body.String()
	if !strings.Contains(body, "Orchestrator") {
		t.Error("partial missing project name")
	}
	if !strings.Contains(body, "<strong>agent fleet</strong>") {
		t.Errorf("project description not rendered as markdown: %q", body)
	}
	if !strings.Contains(body, "Agent onboarding") {
		t.Error("partial missing PRD title")
	}
	if !strings.Contains(body, "<code>register</code>") {
		t.Errorf("PRD description not rendered as markdown: %q", body)
	}
}

func TestProjectDetailPartial_EscapesRawHTML(t *testing.T) {
	svc, mux := newTestDashboard(t)

	project, err := svc.CreateProject(context.Background(), &store.Project{
		Name:        "Sneaky",
		Description: "*fine* <script>alert(1)</script>",
	}, "agent-1")
	if err != nil {
		t.Fatalf("creating project: %v", err)
	}

	rec := get(t, mux, "/partials/projects/"+project.ID)
	body := rec.Body.String()
	if strings.Contains(body, "<script>alert") {
		t.Error("raw HTML passed through the markdown renderer")
	}
	if !strings.Contains(body, "<em>fine</em>") {
		t.Errorf("markdown around raw HTML not rendered: %q", body)
	}
}

func TestProjectDetailPartial_NotFound(t *testing.T) {
	_, mux := newTestDashboard(t)

	rec := get(t, mux, "/partials/projects/no-such-project")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
