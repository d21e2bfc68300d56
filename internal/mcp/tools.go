// ABOUTME: Tool catalog exposed over MCP: CRUD, comments, progress, and activity tools.
// ABOUTME: Handlers translate tool arguments into service calls and marshal the results.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/service"
	"github.com/agentboard/agentboard/internal/store"
)

// toolHandlers implements every tool in the catalog against the service layer.
type toolHandlers struct {
	svc *service.Service
}

// toolCatalog builds the advertised tool list and the name -> handler map.
// Catalog order is what tools/list returns, so keep related tools grouped.
func toolCatalog(svc *service.Service) ([]Tool, map[string]ToolHandler) {
	h := &toolHandlers{svc: svc}

	defs := []struct {
		tool    Tool
		handler ToolHandler
	}{
		{
			tool: Tool{
				Name:        "create_project",
				Description: "Create a new project. Projects are the top-level container for PRDs, stories, and tasks.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"name":{"type":"string","description":"Project name"},"description":{"type":"string","description":"What this project covers"},"created_by":{"type":"string","description":"Agent recording the project (defaults to system)"},"metadata":{"type":"object","description":"Arbitrary key-value metadata"}},"required":["name"]}`),
			},
			handler: h.createProject,
		},
		{
			tool: Tool{
				Name:        "get_project",
				Description: "Get a project by ID, including PRD, story, and task counts.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"project_id":{"type":"string","description":"Project ID"}},"required":["project_id"]}`),
			},
			handler: h.getProject,
		},
		{
			tool: Tool{
				Name:        "update_project",
				Description: "Update a project's name, description, or metadata. Omitted fields are left unchanged.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"project_id":{"type":"string","description":"Project ID"},"name":{"type":"string","description":"New project name"},"description":{"type":"string","description":"New description"},"metadata":{"type":"object","description":"Replacement metadata map"}},"required":["project_id"]}`),
			},
			handler: h.updateProject,
		},
		{
			tool: Tool{
				Name:        "list_projects",
				Description: "List all projects, newest first, with per-project PRD, story, and task counts.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"limit":{"type":"integer","description":"Max rows to return (default 50, max 500)"},"offset":{"type":"integer","description":"Rows to skip for pagination"}}}`),
			},
			handler: h.listProjects,
		},
		{
			tool: Tool{
				Name:        "create_prd",
				Description: "Create a PRD (product requirements document) under a project. New PRDs start in draft status.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"project_id":{"type":"string","description":"Parent project ID"},"title":{"type":"string","description":"PRD title"},"description":{"type":"string","description":"Requirements text"},"created_by":{"type":"string","description":"Agent recording the PRD (defaults to system)"},"metadata":{"type":"object","description":"Arbitrary key-value metadata"}},"required":["project_id","title"]}`),
			},
			handler: h.createPRD,
		},
		{
			tool: Tool{
				Name:        "get_prd",
				Description: "Get a PRD by ID, including story and task counts.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"prd_id":{"type":"string","description":"PRD ID"}},"required":["prd_id"]}`),
			},
			handler: h.getPRD,
		},
		{
			tool: Tool{
				Name:        "update_prd",
				Description: "Update a PRD's title, description, status, or metadata. Omitted fields are left unchanged.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"prd_id":{"type":"string","description":"PRD ID"},"title":{"type":"string","description":"New title"},"description":{"type":"string","description":"New requirements text"},"status":{"type":"string","enum":["draft","active","completed","archived"],"description":"New status"},"metadata":{"type":"object","description":"Replacement metadata map"}},"required":["prd_id"]}`),
			},
			handler: h.updatePRD,
		},
		{
			tool: Tool{
				Name:        "list_prds",
				Description: "List PRDs, newest first, optionally filtered by project, status, or creator.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"project_id":{"type":"string","description":"Only PRDs under this project"},"status":{"type":"string","enum":["draft","active","completed","archived"],"description":"Only PRDs with this status"},"created_by":{"type":"string","description":"Only PRDs recorded by this agent"},"limit":{"type":"integer","description":"Max rows to return (default 50, max 500)"},"offset":{"type":"integer","description":"Rows to skip for pagination"}}}`),
			},
			handler: h.listPRDs,
		},
		{
			tool: Tool{
				Name:        "create_story",
				Description: "Create a story under a PRD. New stories start in todo status.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"prd_id":{"type":"string","description":"Parent PRD ID"},"title":{"type":"string","description":"Story title"},"description":{"type":"string","description":"Story description"},"acceptance_criteria":{"type":"string","description":"Conditions for calling the story done"},"story_points":{"type":"integer","description":"Relative effort estimate"},"assigned_to":{"type":"string","description":"Agent assigned to the story"},"created_by":{"type":"string","description":"Agent recording the story (defaults to system)"},"metadata":{"type":"object","description":"Arbitrary key-value metadata"}},"required":["prd_id","title"]}`),
			},
			handler: h.createStory,
		},
		{
			tool: Tool{
				Name:        "get_story",
				Description: "Get a story by ID, including total and completed task counts.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"story_id":{"type":"string","description":"Story ID"}},"required":["story_id"]}`),
			},
			handler: h.getStory,
		},
		{
			tool: Tool{
				Name:        "update_story",
				Description: "Update a story's fields. Omitted fields are left unchanged; pass an empty assigned_to to unassign.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"story_id":{"type":"string","description":"Story ID"},"title":{"type":"string","description":"New title"},"description":{"type":"string","description":"New description"},"status":{"type":"string","enum":["todo","in_progress","review","done","archived"],"description":"New status"},"assigned_to":{"type":"string","description":"New assignee (empty string unassigns)"},"story_points":{"type":"integer","description":"New effort estimate"},"acceptance_criteria":{"type":"string","description":"New acceptance criteria"},"metadata":{"type":"object","description":"Replacement metadata map"}},"required":["story_id"]}`),
			},
			handler: h.updateStory,
		},
		{
			tool: Tool{
				Name:        "list_stories",
				Description: "List stories, newest first, optionally filtered by PRD, status, or assignee.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"prd_id":{"type":"string","description":"Only stories under this PRD"},"status":{"type":"string","enum":["todo","in_progress","review","done","archived"],"description":"Only stories with this status"},"assigned_to":{"type":"string","description":"Only stories assigned to this agent"},"limit":{"type":"integer","description":"Max rows to return (default 50, max 500)"},"offset":{"type":"integer","description":"Rows to skip for pagination"}}}`),
			},
			handler: h.listStories,
		},
		{
			tool: Tool{
				Name:        "create_task",
				Description: "Create a task under a story. Tasks must be assigned to an agent at creation.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"story_id":{"type":"string","description":"Parent story ID"},"title":{"type":"string","description":"Task title"},"description":{"type":"string","description":"Task description"},"assigned_to":{"type":"string","description":"Agent responsible for the task"},"depends_on":{"type":"array","items":{"type":"string"},"description":"Task IDs that must exist before this one"},"created_by":{"type":"string","description":"Agent recording the task (defaults to system)"},"metadata":{"type":"object","description":"Arbitrary key-value metadata"}},"required":["story_id","title","assigned_to"]}`),
			},
			handler: h.createTask,
		},
		{
			tool: Tool{
				Name:        "get_task",
				Description: "Get a task by ID.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"task_id":{"type":"string","description":"Task ID"}},"required":["task_id"]}`),
			},
			handler: h.getTask,
		},
		{
			tool: Tool{
				Name:        "update_task",
				Description: "Update a task's fields. Omitted fields are left unchanged; depends_on replaces the stored list.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"task_id":{"type":"string","description":"Task ID"},"title":{"type":"string","description":"New title"},"description":{"type":"string","description":"New description"},"status":{"type":"string","enum":["todo","in_progress","blocked","review","done","archived"],"description":"New status"},"assigned_to":{"type":"string","description":"New assignee"},"depends_on":{"type":"array","items":{"type":"string"},"description":"Replacement dependency list (empty list clears)"},"metadata":{"type":"object","description":"Replacement metadata map"}},"required":["task_id"]}`),
			},
			handler: h.updateTask,
		},
		{
			tool: Tool{
				Name:        "list_tasks",
				Description: "List tasks, newest first, optionally filtered by story, status, or assignee.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"story_id":{"type":"string","description":"Only tasks under this story"},"status":{"type":"string","enum":["todo","in_progress","blocked","review","done","archived"],"description":"Only tasks with this status"},"assigned_to":{"type":"string","description":"Only tasks assigned to this agent"},"limit":{"type":"integer","description":"Max rows to return (default 50, max 500)"},"offset":{"type":"integer","description":"Rows to skip for pagination"}}}`),
			},
			handler: h.listTasks,
		},
		{
			tool: Tool{
				Name:        "add_comment",
				Description: "Add a comment to a PRD, story, or task. Comments are immutable once written.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"entity_kind":{"type":"string","enum":["prd","story","task"],"description":"Kind of entity to comment on"},"entity_id":{"type":"string","description":"ID of the entity to comment on"},"content":{"type":"string","description":"Comment text"},"author":{"type":"string","description":"Commenting agent (defaults to system)"},"comment_type":{"type":"string","enum":["comment","question","decision","blocker"],"description":"Comment category (defaults to comment)"},"metadata":{"type":"object","description":"Arbitrary key-value metadata"}},"required":["entity_kind","entity_id","content"]}`),
			},
			handler: h.addComment,
		},
		{
			tool: Tool{
				Name:        "get_comments",
				Description: "List comments on a PRD, story, or task, newest first.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"entity_kind":{"type":"string","enum":["prd","story","task"],"description":"Kind of entity the comments are on"},"entity_id":{"type":"string","description":"ID of the commented entity"},"limit":{"type":"integer","description":"Max rows to return (default 50, max 500)"},"offset":{"type":"integer","description":"Rows to skip for pagination"}},"required":["entity_kind","entity_id"]}`),
			},
			handler: h.getComments,
		},
		{
			tool: Tool{
				Name:        "get_story_progress",
				Description: "Get task completion progress for a story: totals per status and completion percentage.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"story_id":{"type":"string","description":"Story ID"}},"required":["story_id"]}`),
			},
			handler: h.getStoryProgress,
		},
		{
			tool: Tool{
				Name:        "get_project_progress",
				Description: "Get rollup progress for a project: story and task status breakdowns, per-agent task counts, and completion percentage.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"project_id":{"type":"string","description":"Project ID"}},"required":["project_id"]}`),
			},
			handler: h.getProjectProgress,
		},
		{
			tool: Tool{
				Name:        "get_agent_workload",
				Description: "List an agent's assigned tasks with story and PRD context, optionally narrowed by project or status.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"agent_id":{"type":"string","description":"Agent whose tasks to list"},"project_id":{"type":"string","description":"Only tasks under this project"},"status":{"type":"string","enum":["todo","in_progress","blocked","review","done","archived"],"description":"Only tasks with this status"}},"required":["agent_id"]}`),
			},
			handler: h.getAgentWorkload,
		},
		{
			tool: Tool{
				Name:        "get_recent_activity",
				Description: "List recent create and comment events, newest first, optionally filtered to one agent.",
				InputSchema: json.RawMessage(`{"type":"object","properties":{"agent_id":{"type":"string","description":"Only events recorded by this agent"},"limit":{"type":"integer","description":"Max events to return (default 50)"}}}`),
			},
			handler: h.getRecentActivity,
		},
	}

	tools := make([]Tool, 0, len(defs))
	handlers := make(map[string]ToolHandler, len(defs))
	for _, d := range defs {
		tools = append(tools, d.tool)
		handlers[d.tool.Name] = d.handler
	}
	return tools, handlers
}

// actorFrom resolves the acting agent. The agent_id field is accepted as an
// alias for created_by so older clients keep working.
func actorFrom(createdBy, agentID string) string {
	if createdBy != "" {
		return createdBy
	}
	return agentID
}

// marshalResult renders a tool result as indented JSON so it stays readable
// when agents echo it into transcripts.
func marshalResult(v any) (json.RawMessage, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return data, nil
}

// Project tools

type createProjectInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedBy   string         `json:"created_by"`
	AgentID     string         `json:"agent_id"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *toolHandlers) createProject(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in createProjectInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	p, err := h.svc.CreateProject(ctx, &store.Project{
		Name:        in.Name,
		Description: in.Description,
		Metadata:    in.Metadata,
	}, actorFrom(in.CreatedBy, in.AgentID))
	if err != nil {
		return nil, err
	}
	return marshalResult(p)
}

type getProjectInput struct {
	ProjectID string `json:"project_id"`
}

func (h *toolHandlers) getProject(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in getProjectInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	detail, err := h.svc.GetProject(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	return marshalResult(detail)
}

type updateProjectInput struct {
	ProjectID   string         `json:"project_id"`
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *toolHandlers) updateProject(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in updateProjectInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	p, err := h.svc.UpdateProject(ctx, in.ProjectID, store.ProjectPatch{
		Name:        in.Name,
		Description: in.Description,
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(p)
}

type listProjectsInput struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (h *toolHandlers) listProjects(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in listProjectsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	projects, err := h.svc.ListProjects(ctx, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	return marshalResult(map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// PRD tools

type createPRDInput struct {
	ProjectID   string         `json:"project_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	CreatedBy   string         `json:"created_by"`
	AgentID     string         `json:"agent_id"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *toolHandlers) createPRD(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in createPRDInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	p, err := h.svc.CreatePRD(ctx, &store.PRD{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		CreatedBy:   actorFrom(in.CreatedBy, in.AgentID),
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(p)
}

type getPRDInput struct {
	PRDID string `json:"prd_id"`
}

func (h *toolHandlers) getPRD(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in getPRDInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	detail, err := h.svc.GetPRD(ctx, in.PRDID, true)
	if err != nil {
		return nil, err
	}
	return marshalResult(detail)
}

type updatePRDInput struct {
	PRDID       string         `json:"prd_id"`
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *string        `json:"status"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *toolHandlers) updatePRD(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in updatePRDInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	p, err := h.svc.UpdatePRD(ctx, in.PRDID, store.PRDPatch{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(p)
}

type listPRDsInput struct {
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	CreatedBy string `json:"created_by"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

func (h *toolHandlers) listPRDs(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in listPRDsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	prds, err := h.svc.ListPRDs(ctx, store.PRDFilter{
		ProjectID: in.ProjectID,
		Status:    in.Status,
		CreatedBy: in.CreatedBy,
		Limit:     in.Limit,
		Offset:    in.Offset,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(map[string]any{
		"prds":  prds,
		"count": len(prds),
	})
}

// Story tools

type createStoryInput struct {
	PRDID              string         `json:"prd_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	AcceptanceCriteria string         `json:"acceptance_criteria"`
	StoryPoints        *int           `json:"story_points"`
	AssignedTo         string         `json:"assigned_to"`
	CreatedBy          string         `json:"created_by"`
	AgentID            string         `json:"agent_id"`
	Metadata           map[string]any `json:"metadata"`
}

func (h *toolHandlers) createStory(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in createStoryInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	st, err := h.svc.CreateStory(ctx, &store.Story{
		PRDID:              in.PRDID,
		Title:              in.Title,
		Description:        in.Description,
		AcceptanceCriteria: in.AcceptanceCriteria,
		StoryPoints:        in.StoryPoints,
		AssignedTo:         in.AssignedTo,
		CreatedBy:          actorFrom(in.CreatedBy, in.AgentID),
		Metadata:           in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(st)
}

type getStoryInput struct {
	StoryID string `json:"story_id"`
}

func (h *toolHandlers) getStory(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in getStoryInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	detail, err := h.svc.GetStory(ctx, in.StoryID, true)
	if err != nil {
		return nil, err
	}
	return marshalResult(detail)
}

type updateStoryInput struct {
	StoryID            string         `json:"story_id"`
	Title              *string        `json:"title"`
	Description        *string        `json:"description"`
	Status             *string        `json:"status"`
	AssignedTo         *string        `json:"assigned_to"`
	StoryPoints        *int           `json:"story_points"`
	AcceptanceCriteria *string        `json:"acceptance_criteria"`
	Metadata           map[string]any `json:"metadata"`
}

func (h *toolHandlers) updateStory(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in updateStoryInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	st, err := h.svc.UpdateStory(ctx, in.StoryID, store.StoryPatch{
		Title:              in.Title,
		Description:        in.Description,
		Status:             in.Status,
		AssignedTo:         in.AssignedTo,
		StoryPoints:        in.StoryPoints,
		AcceptanceCriteria: in.AcceptanceCriteria,
		Metadata:           in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(st)
}

type listStoriesInput struct {
	PRDID      string `json:"prd_id"`
	Status     string `json:"status"`
	AssignedTo string `json:"assigned_to"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

func (h *toolHandlers) listStories(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in listStoriesInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	stories, err := h.svc.ListStories(ctx, store.StoryFilter{
		PRDID:      in.PRDID,
		Status:     in.Status,
		AssignedTo: in.AssignedTo,
		Limit:      in.Limit,
		Offset:     in.Offset,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(map[string]any{
		"stories": stories,
		"count":   len(stories),
	})
}

// Task tools

type createTaskInput struct {
	StoryID     string         `json:"story_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AssignedTo  string         `json:"assigned_to"`
	DependsOn   []string       `json:"depends_on"`
	CreatedBy   string         `json:"created_by"`
	AgentID     string         `json:"agent_id"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *toolHandlers) createTask(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in createTaskInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	t, err := h.svc.CreateTask(ctx, &store.Task{
		StoryID:     in.StoryID,
		Title:       in.Title,
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		DependsOn:   in.DependsOn,
		CreatedBy:   actorFrom(in.CreatedBy, in.AgentID),
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(t)
}

type getTaskInput struct {
	TaskID string `json:"task_id"`
}

func (h *toolHandlers) getTask(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in getTaskInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	t, err := h.svc.GetTask(ctx, in.TaskID)
	if err != nil {
		return nil, err
	}
	return marshalResult(t)
}

type updateTaskInput struct {
	TaskID      string         `json:"task_id"`
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Status      *string        `json:"status"`
	AssignedTo  *string        `json:"assigned_to"`
	DependsOn   []string       `json:"depends_on"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *toolHandlers) updateTask(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in updateTaskInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	t, err := h.svc.UpdateTask(ctx, in.TaskID, store.TaskPatch{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		AssignedTo:  in.AssignedTo,
		DependsOn:   in.DependsOn,
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(t)
}

type listTasksInput struct {
	StoryID    string `json:"story_id"`
	Status     string `json:"status"`
	AssignedTo string `json:"assigned_to"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

func (h *toolHandlers) listTasks(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in listTasksInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	tasks, err := h.svc.ListTasks(ctx, store.TaskFilter{
		StoryID:    in.StoryID,
		Status:     in.Status,
		AssignedTo: in.AssignedTo,
		Limit:      in.Limit,
		Offset:     in.Offset,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Comment tools

type addCommentInput struct {
	EntityKind  string         `json:"entity_kind"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Content     string         `json:"content"`
	Author      string         `json:"author"`
	AgentID     string         `json:"agent_id"`
	CommentType string         `json:"comment_type"`
	Metadata    map[string]any `json:"metadata"`
}

func (h *toolHandlers) addComment(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in addCommentInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	// entity_type and agent_id are accepted as aliases for entity_kind and author.
	kind := in.EntityKind
	if kind == "" {
		kind = in.EntityType
	}

	c, err := h.svc.AddComment(ctx, &store.Comment{
		EntityKind:  kind,
		EntityID:    in.EntityID,
		Content:     in.Content,
		Author:      actorFrom(in.Author, in.AgentID),
		CommentType: in.CommentType,
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(c)
}

type getCommentsInput struct {
	EntityKind string `json:"entity_kind"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

func (h *toolHandlers) getComments(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in getCommentsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	kind := in.EntityKind
	if kind == "" {
		kind = in.EntityType
	}

	comments, err := h.svc.GetComments(ctx, kind, in.EntityID, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	return marshalResult(map[string]any{
		"comments": comments,
		"count":    len(comments),
	})
}

// Progress and activity tools

type storyProgressInput struct {
	StoryID string `json:"story_id"`
}

func (h *toolHandlers) getStoryProgress(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in storyProgressInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	progress, err := h.svc.StoryProgress(ctx, in.StoryID)
	if err != nil {
		return nil, err
	}
	return marshalResult(progress)
}

type projectProgressInput struct {
	ProjectID string `json:"project_id"`
}

func (h *toolHandlers) getProjectProgress(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in projectProgressInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	progress, err := h.svc.ProjectProgress(ctx, in.ProjectID)
	if err != nil {
		return nil, err
	}
	return marshalResult(progress)
}

type agentWorkloadInput struct {
	AgentID   string `json:"agent_id"`
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
}

func (h *toolHandlers) getAgentWorkload(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in agentWorkloadInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if in.AgentID == "" {
		return nil, errors.New("agent_id is required")
	}

	workload, err := h.svc.AgentWorkload(ctx, in.AgentID, in.ProjectID, in.Status)
	if err != nil {
		return nil, err
	}
	return marshalResult(workload)
}

type recentActivityInput struct {
	AgentID string `json:"agent_id"`
	Limit   int    `json:"limit"`
}

// activityEntry pairs a raw event with its rendered display line.
type activityEntry struct {
	events.Event
	Display string `json:"display"`
}

func (h *toolHandlers) getRecentActivity(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in recentActivityInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	var evs []events.Event
	if in.AgentID != "" {
		evs = h.svc.AgentActivity(in.AgentID, in.Limit)
	} else {
		evs = h.svc.Activity(in.Limit)
	}

	entries := make([]activityEntry, 0, len(evs))
	for _, e := range evs {
		entries = append(entries, activityEntry{Event: e, Display: e.DisplayString()})
	}
	return marshalResult(map[string]any{
		"events": entries,
		"count":  len(entries),
	})
}
