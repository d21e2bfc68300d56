// ABOUTME: Behavior tests for the MCP tool catalog, driven through tools/call.
// ABOUTME: Covers the create chain, aliases, domain errors, progress, and activity.

package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// callTool invokes one tool via tools/call and returns the decoded result.
// JSON-RPC level failures fail the test; isError results are returned as-is.
func callTool(t *testing.T, mux *http.ServeMux, sessionID, name string, args any) MCPCallToolResult {
	t.Helper()

	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshaling arguments: %v", err)
	}
	body := fmt.Sprintf(`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":%q,"arguments":%s}}`, name, argsJSON)

	rec := postRPC(t, mux, sessionID, body)
	resp := decodeRPC(t, rec)
	if resp.Error != nil {
		t.Fatalf("tools/call %s returned JSON-RPC error: %+v", name, resp.Error)
	}

	var result MCPCallToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("decoding tool result: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("unexpected content shape: %+v", result.Content)
	}
	return result
}

// callOK runs a tool expecting success and decodes its payload into out.
func callOK(t *testing.T, mux *http.ServeMux, sessionID, name string, args, out any) {
	t.Helper()

	result := callTool(t, mux, sessionID, name, args)
	if result.IsError {
		t.Fatalf("%s failed: %s", name, result.Content[0].Text)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(result.Content[0].Text), out); err != nil {
			t.Fatalf("decoding %s payload: %v", name, err)
		}
	}
}

// callErr runs a tool expecting an isError result and returns its message.
func callErr(t *testing.T, mux *http.ServeMux, sessionID, name string, args any) string {
	t.Helper()

	result := callTool(t, mux, sessionID, name, args)
	if !result.IsError {
		t.Fatalf("%s succeeded, expected error (payload %s)", name, result.Content[0].Text)
	}
	return result.Content[0].Text
}

type idPayload struct {
	ID string `json:"id"`
}

// seedHierarchy creates a project, PRD, and story through the tool surface.
func seedHierarchy(t *testing.T, mux *http.ServeMux, sessionID string) (projectID, prdID, storyID string) {
	t.Helper()

	var project, prd, story idPayload
	callOK(t, mux, sessionID, "create_project", map[string]any{
		"name":        "Orchestrator",
		"description": "Coordinates the agent fleet",
	}, &project)
	callOK(t, mux, sessionID, "create_prd", map[string]any{
		"project_id": project.ID,
		"title":      "Agent onboarding",
		"created_by": "agent-1",
	}, &prd)
	callOK(t, mux, sessionID, "create_story", map[string]any{
		"prd_id":     prd.ID,
		"title":      "Registration flow",
		"created_by": "agent-1",
	}, &story)
	return project.ID, prd.ID, story.ID
}

func TestToolCatalog_Golden(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server, err := NewServer(Config{Service: newTestService(t), Logger: logger})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	var names bytes.Buffer
	for _, tool := range server.tools {
		names.WriteString(tool.Name)
		names.WriteByte('\n')
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "tool_catalog", names.Bytes())
}

func TestTools_ProjectLifecycle(t *testing.T) {
	mux := newTestServer(t)
	sessionID := initSession(t, mux)

	var created struct {
		ID       string         `json:"id"`
		Name     string         `json:"name"`
		Metadata map[string]any `json:"metadata"`
	}
	callOK(t, mux, sessionID, "create_project", map[string]any{
		"name":     "Orchestrator",
		"metadata": map[string]any{"team": "platform"},
	}, &created)
	if created.ID == "" {
		t.Fatal("created project has no ID")
	}
	if created.Metadata["team"] != "platform" {
		t.Errorf("metadata = %v, want team=platform", created.Metadata)
	}

	var fetched struct {
		Name   string `json:"name"`
		Counts struct {
			PRDs int `json:"prd_count"`
		} `json:"counts"`
	}
	callOK(t, mux, sessionID, "get_project", map[string]any{"project_id": created.ID}, &fetched)
	if fetched.Name != "Orchestrator" {
		t.Errorf("name = %q, want %q", fetched.Name, "Orchestrator")
	}
	if fetched.Counts.PRDs != 0 {
		t.Errorf("prd_count = %d, want 0", fetched.Counts.PRDs)
	}

	var updated struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	callOK(t, mux, sessionID, "update_project", map[string]any{
		"project_id":  created.ID,
		"description": "Coordinates the agent fleet",
	}, &updated)
	if updated.Name != "Orchestrator" {
		t.Errorf("update changed name to %q", updated.Name)
	}
	if updated.Description != "Coordinates the agent fleet" {
		t.Errorf("description = %q", updated.Description)
	}

	var listed struct {
		Count int `json:"count"`
	}
	callOK(t, mux, sessionID, "list_projects", map[string]any{}, &listed)
	if listed.Count != 1 {
		t.Errorf("count = %d, want 1", listed.Count)
	}
}

func TestTools_CreateChainCounts(t *testing.T) {
	mux := newTestServer(t)
	sessionID := initSession(t, mux)
	projectID, prdID, storyID := seedHierarchy(t, mux, sessionID)

	for _, title := range []string{"Schema", "Handler"} {
		callOK(t, mux, sessionID, "create_task", map[string]any{
			"story_id":    storyID,
			"title":       title,
			"assigned_to": "agent-2",
		}, nil)
	}

	var project struct {
		Counts struct {
			PRDs    int `json:"prd_count"`
			Stories int `json:"story_count"`
			Tasks   int `json:"task_count"`
		} `json:"counts"`
	}
	callOK(t, mux, sessionID, "get_project", map[string]any{"project_id": projectID}, &project)
	if project.Counts.PRDs != 1 || project.Counts.Stories != 1 || project.Counts.Tasks != 2 {
		t.Errorf("counts = %+v, want 1/1/2", project.Counts)
	}

	var prd struct {
		Stats struct {
			Stories int `json:"story_count"`
			Tasks   int `json:"task_count"`
		} `json:"stats"`
	}
	callOK(t, mux, sessionID, "get_prd", map[string]any{"prd_id": prdID}, &prd)
	if prd.Stats.Stories != 1 || prd.Stats.Tasks != 2 {
		t.Errorf("prd stats = %+v, want 1 story, 2 tasks", prd.Stats)
	}

	var story struct {
		Stats struct {
			TaskCount      int `json:"task_count"`
			CompletedTasks int `json:"completed_tasks"`
		} `json:"stats"`
	}
	callOK(t, mux, sessionID, "get_story", map[string]any{"story_id": storyID}, &story)
	if story.Stats.TaskCount != 2 || story.Stats.CompletedTasks != 0 {
		t.Errorf("story stats = %+v, want 2 tasks, 0 completed", story.Stats)
	}
}

func TestTools_AgentIDAlias(t *testing.T) {
	mux := newTestServer(t)
	sessionID := initSession(t, mux)

	var project idPayload
	callOK(t, mux, sessionID, "create_project", map[string]any{"name": "Orchestrator"}, &project)

	// agent_id is accepted where created_by is documented
	var prd struct {
		CreatedBy string `json:"created_by"`
	}
	callOK(t, mux, sessionID, "create_prd", map[string]any{
		"project_id": project.ID,
		"title":      "Agent onboarding",
		"agent_id":   "agent-7",
	}, &prd)
	if prd.CreatedBy != "agent-7" {
		t.Errorf("created_by = %q, want %q", prd.CreatedBy, "agent-7")
	}
}

func TestTools_DomainErrors(t *testing.T) {
	mux := newTestServer(t)
	sessionID := initSession(t, mux)

	t.Run("missing parent", func(t *testing.T) {
		msg := callErr(t, mux, sessionID, "create_prd", map[string]any{
			"project_id": "no-such-project",
			"title":      "Orphan",
		})
		if !strings.Contains(msg, "not found") {
			t.Errorf("message = %q, want it to mention not found", msg)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		msg := callErr(t, mux, sessionID, "get_project", map[string]any{"project_id": "nope"})
		if !strings.Contains(msg, "not found") {
			t.Errorf("message = %q, want it to mention not found", msg)
		}
	})

	t.Run("wrong argument type", func(t *testing.T) {
		msg := callErr(t, mux, sessionID, "create_project", map[string]any{"name": 42})
		if !strings.Contains(msg, "invalid input") {
			t.Errorf("message = %q, want it to mention invalid input", msg)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		msg := callErr(t, mux, sessionID, "create_project", map[string]any{"name": "   "})
		if !strings.Contains(msg, "name") {
			t.Errorf("message = %q, want it to mention the field", msg)
		}
	})
}

func TestTools_TaskFlowAndStoryProgress(t *testing.T) {
	mux := newTestServer(t)
	sessionID := initSession(t, mux)
	_, _, storyID := seedHierarchy(t, mux, sessionID)

	var task idPayload
	callOK(t, mux, sessionID, "create_task", map[string]any{
		"story_id":    storyID,
		"title":       "Wire up endpoint",
		"assigned_to": "agent-2",
	}, &task)

	var updated struct {
		Status     string `json:"status"`
		AssignedTo string `json:"assigned_to"`
	}
	callOK(t, mux, sessionID, "update_task", map[string]any{
		"task_id":     task.ID,
		"status":      "done",
		"assigned_to": "agent-9",
	}, &updated)
	if updated.Status != "done" || updated.AssignedTo != "agent-9" {
		t.Errorf("updated task = %+v, want done/agent-9", updated)
	}

	var progress struct {
		TotalTasks int     `json:"total_tasks"`
		Done       int     `json:"done"`
		Completion float64 `json:"completion_percent"`
	}
	callOK(t, mux, sessionID, "get_story_progress", map[string]any{"story_id": storyID}, &progress)
	if progress.TotalTasks != 1 || progress.Done != 1 {
		t.Errorf("progress = %+v, want 1/1", progress)
	}
	if progress.Completion != 100 {
		t.Errorf("completion = %v, want 100", progress.Completion)
	}

	msg := callErr(t, mux, sessionID, "update_task", map[string]any{
		"task_id": task.ID,
		"status":  "paused",
	})
	if !strings.Contains(msg, "status") {
		t.Errorf("message = %q, want it to mention status", msg)
	}
}

func TestTools_Comments(t *testing.T) {
	mux := newTestServer(t)
	sessionID := initSession(t, mux)
	_, _, storyID := seedHierarchy(t, mux, sessionID)

	// entity_type and agent_id aliases resolve to entity_kind and author
	var comment struct {
		Author      string `json:"author"`
		CommentType string `json:"comment_type"`
		EntityKind  string `json:"entity_kind"`
	}
	callOK(t, mux, sessionID, "add_comment", map[string]any{
		"entity_type": "story",
		"entity_id":   storyID,
		"content":     "Schema question: do we need a separate index?",
		"agent_id":    "agent-3",
	}, &comment)
	if comment.Author != "agent-3" {
		t.Errorf("author = %q, want %q", comment.Author, "agent-3")
	}
	if comment.CommentType != "comment" {
		t.Errorf("comment_type = %q, want default comment", comment.CommentType)
	}
	if comment.EntityKind != "story" {
		t.Errorf("entity_kind = %q, want story", comment.EntityKind)
	}

	var listed struct {
		Count    int `json:"count"`
		Comments []struct {
			Content string `json:"content"`
		} `json:"comments"`
	}
	callOK(t, mux, sessionID, "get_comments", map[string]any{
		"entity_kind": "story",
		"entity_id":   storyID,
	}, &listed)
	if listed.Count != 1 {
		t.Fatalf("count = %d, want 1", listed.Count)
	}
	if !strings.Contains(listed.Comments[0].Content, "Schema question") {
		t.Errorf("content = %q", listed.Comments[0].Content)
	}

	msg := callErr(t, mux, sessionID, "add_comment", map[string]any{
		"entity_kind": "task",
		"entity_id":   "no-such-task",
		"content":     "lost",
	})
	if !strings.Contains(msg, "not found") {
		t.Errorf("message = %q, want it to mention not found", msg)
	}
}

func TestTools_ProjectProgress(t *testing.T) {
	mux := newTestServer(t)
	sessionID := initSession(t, mux)
	projectID, _, storyID := seedHierarchy(t, mux, sessionID)

	var task idPayload
	callOK(t, mux, sessionID, "create_task", map[string]any{
		"story_id":    storyID,
		"title":       "Schema",
		"assigned_to": "agent-2",
	}, &task)
	callOK(t, mux, sessionID, "update_task", map[string]any{"task_id": task.ID, "status": "done"}, nil)
	callOK(t, mux, sessionID, "create_task", map[string]any{
		"story_id":    storyID,
		"title":       "Handler",
		"assigned_to": "agent-2",
	}, nil)

	var progress struct {
		TaskCount     int            `json:"task_count"`
		TasksByStatus map[string]int `json:"tasks_by_status"`
		TasksByAgent  map[string]int `json:"tasks_by_agent"`
		Completion    float64        `json:"completion_percent"`
	}
	callOK(t, mux, sessionID, "get_project_progress", map[string]any{"project_id": projectID}, &progress)
	if progress.TaskCount != 2 {
		t.Errorf("task_count = %d, want 2", progress.TaskCount)
	}
	if progress.TasksByStatus["done"] != 1 || progress.TasksByStatus["todo"] != 1 {
		t.Errorf("tasks_by_status = %v", progress.TasksByStatus)
	}
	if progress.TasksByAgent["agent-2"] != 2 {
		t.Errorf("tasks_by_agent = %v", progress.TasksByAgent)
	}
	if progress.Completion != 50 {
		t.Errorf("completion = %v, want 50", progress.Completion)
	}
}

func TestTools_AgentWorkload(t *testing.T) {
	mux := newTestServer(t)
	sessionID := initSession(t, mux)
	projectID, _, storyID := seedHierarchy(t, mux, sessionID)

	for _, title := range []string{"Schema", "Handler"} {
		callOK(t, mux, sessionID, "create_task", map[string]any{
			"story_id":    storyID,
			"title":       title,
			"assigned_to": "agent-2",
		}, nil)
	}

	var workload struct {
		AgentID   string `json:"agent_id"`
		TaskCount int    `json:"task_count"`
		Tasks     []struct {
			StoryTitle string `json:"story_title"`
			ProjectID  string `json:"project_id"`
		} `json:"tasks"`
	}
	callOK(t, mux, sessionID, "get_agent_workload", map[string]any{"agent_id": "agent-2"}, &workload)
	if workload.TaskCount != 2 {
		t.Fatalf("task_count = %d, want 2", workload.TaskCount)
	}
	for _, task := range workload.Tasks {
		if task.StoryTitle != "Registration flow" {
			t.Errorf("story_title = %q", task.StoryTitle)
		}
		if task.ProjectID != projectID {
			t.Errorf("project_id = %q, want %q", task.ProjectID, projectID)
		}
	}

	msg := callErr(t, mux, sessionID, "get_agent_workload", map[string]any{})
	if !strings.Contains(msg, "agent_id") {
		t.Errorf("message = %q, want it to mention agent_id", msg)
	}
}

func TestTools_RecentActivity(t *testing.T) {
	mux := newTestServer(t)
	sessionID := initSession(t, mux)
	seedHierarchy(t, mux, sessionID)

	var activity struct {
		Count  int `json:"count"`
		Events []struct {
			Type    string `json:"type"`
			Display string `json:"display"`
		} `json:"events"`
	}
	callOK(t, mux, sessionID, "get_recent_activity", map[string]any{}, &activity)
	if activity.Count != 3 {
		t.Fatalf("count = %d, want 3", activity.Count)
	}
	if activity.Events[0].Type != "story.created" {
		t.Errorf("newest event type = %q, want story.created", activity.Events[0].Type)
	}
	for _, e := range activity.Events {
		if e.Display == "" {
			t.Error("event with empty display string")
		}
	}

	// The project create defaulted to the system actor; the rest were agent-1
	var filtered struct {
		Count int `json:"count"`
	}
	callOK(t, mux, sessionID, "get_recent_activity", map[string]any{"agent_id": "agent-1"}, &filtered)
	if filtered.Count != 2 {
		t.Errorf("filtered count = %d, want 2", filtered.Count)
	}
}
