// ABOUTME: Service is the domain layer orchestrating the store and the event log
// ABOUTME: All mutations flow through here - reference checks, event emission, and derived statistics

package service

import (
	"context"
	"log/slog"

	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/store"
)

// systemAgent is the actor recorded when a caller supplies none.
const systemAgent = "system"

// Service coordinates the persistent store and the in-memory event log.
// Every successful creation appends exactly one event; the event log is
// injected by the composition root, never a package global.
type Service struct {
	store  store.Store
	events *events.Log
	logger *slog.Logger
}

// New creates a domain service over the given store and event log.
func New(st store.Store, log *events.Log, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		events: log,
		logger: logger.With("component", "service"),
	}
}

// defaultActor substitutes the system agent when no actor was supplied.
func defaultActor(agentID string) string {
	if agentID == "" {
		return systemAgent
	}
	return agentID
}

// ProjectDetail is a project with its descendant counts.
type ProjectDetail struct {
	*store.Project
	Counts *store.ProjectCounts `json:"counts"`
}

// PRDDetail is a PRD with optional descendant counts.
type PRDDetail struct {
	*store.PRD
	Stats *store.PRDCounts `json:"stats,omitempty"`
}

// StoryStats summarizes task completion under a story.
type StoryStats struct {
	TaskCount      int `json:"task_count"`
	CompletedTasks int `json:"completed_tasks"`
}

// StoryDetail is a story with optional task stats.
type StoryDetail struct {
	*store.Story
	Stats *StoryStats `json:"stats,omitempty"`
}

// CreateProject persists a project and records a creation event.
// The actor defaults to "system" when empty.
func (s *Service) CreateProject(ctx context.Context, p *store.Project, actor string) (*store.Project, error) {
	actor = defaultActor(actor)

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	s.events.Append(events.Event{
		Type:       events.TypeProjectCreated,
		AgentID:    actor,
		EntityKind: store.KindProject,
		EntityID:   p.ID,
		EntityName: p.Name,
	})
	s.logger.Debug("project created", "id", p.ID, "actor", actor)
	return p, nil
}

// CreatePRD persists a PRD under an existing project and records a creation
// event attributed to the PRD's creator.
func (s *Service) CreatePRD(ctx context.Context, p *store.PRD) (*store.PRD, error) {
	p.CreatedBy = defaultActor(p.CreatedBy)

	if err := s.store.CreatePRD(ctx, p); err != nil {
		return nil, err
	}

	s.events.Append(events.Event{
		Type:       events.TypePRDCreated,
		AgentID:    p.CreatedBy,
		EntityKind: store.KindPRD,
		EntityID:   p.ID,
		EntityName: p.Title,
		Details:    map[string]any{"project_id": p.ProjectID},
	})
	s.logger.Debug("prd created", "id", p.ID, "project_id", p.ProjectID, "actor", p.CreatedBy)
	return p, nil
}

// CreateStory persists a story under an existing PRD and records a creation
// event attributed to the story's creator.
func (s *Service) CreateStory(ctx context.Context, st *store.Story) (*store.Story, error) {
	st.CreatedBy = defaultActor(st.CreatedBy)

	if err := s.store.CreateStory(ctx, st); err != nil {
		return nil, err
	}

	s.events.Append(events.Event{
		Type:       events.TypeStoryCreated,
		AgentID:    st.CreatedBy,
		EntityKind: store.KindStory,
		EntityID:   st.ID,
		EntityName: st.Title,
		Details:    map[string]any{"prd_id": st.PRDID},
	})
	s.logger.Debug("story created", "id", st.ID, "prd_id", st.PRDID, "actor", st.CreatedBy)
	return st, nil
}

// CreateTask persists a task under an existing story and records a creation
// event attributed to the task's creator. Dependency IDs are verified before
// anything is written; the first unresolved ID aborts the whole create.
func (s *Service) CreateTask(ctx context.Context, t *store.Task) (*store.Task, error) {
	t.CreatedBy = defaultActor(t.CreatedBy)

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	s.events.Append(events.Event{
		Type:       events.TypeTaskCreated,
		AgentID:    t.CreatedBy,
		EntityKind: store.KindTask,
		EntityID:   t.ID,
		EntityName: t.Title,
		Details:    map[string]any{"story_id": t.StoryID, "assigned_to": t.AssignedTo},
	})
	s.logger.Debug("task created", "id", t.ID, "story_id", t.StoryID, "actor", t.CreatedBy)
	return t, nil
}

// AddComment attaches a comment to an existing PRD, story, or task and
// records a creation event attributed to the comment's author.
func (s *Service) AddComment(ctx context.Context, c *store.Comment) (*store.Comment, error) {
	c.Author = defaultActor(c.Author)

	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}

	s.events.Append(events.Event{
		Type:       events.TypeCommentCreated,
		AgentID:    c.Author,
		EntityKind: c.EntityKind,
		EntityID:   c.EntityID,
		Details:    map[string]any{"comment_id": c.ID, "comment_type": c.CommentType},
	})
	s.logger.Debug("comment added", "id", c.ID, "entity_kind", c.EntityKind, "entity_id", c.EntityID)
	return c, nil
}

// GetProject returns a project with its descendant counts.
func (s *Service) GetProject(ctx context.Context, id string) (*ProjectDetail, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.ProjectCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{Project: project, Counts: counts}, nil
}

// ListProjects returns projects with their descendant counts, newest first.
func (s *Service) ListProjects(ctx context.Context, limit, offset int) ([]*ProjectDetail, error) {
	projects, err := s.store.ListProjects(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	details := make([]*ProjectDetail, 0, len(projects))
	for _, p := range projects {
		counts, err := s.store.ProjectCounts(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, &ProjectDetail{Project: p, Counts: counts})
	}
	return details, nil
}

// UpdateProject applies a partial update.
func (s *Service) UpdateProject(ctx context.Context, id string, patch store.ProjectPatch) (*store.Project, error) {
	return s.store.UpdateProject(ctx, id, patch)
}

// DeleteProject removes a project and its whole tree.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", "id", id)
	return nil
}

// GetPRD returns a PRD, optionally with descendant counts.
func (s *Service) GetPRD(ctx context.Context, id string, withStats bool) (*PRDDetail, error) {
	prd, err := s.store.GetPRD(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &PRDDetail{PRD: prd}
	if withStats {
		counts, err := s.store.PRDCounts(ctx, id)
		if err != nil {
			return nil, err
		}
		detail.Stats = counts
	}
	return detail, nil
}

// ListPRDs returns PRDs matching the filter, newest first.
func (s *Service) ListPRDs(ctx context.Context, filter store.PRDFilter) ([]*store.PRD, error) {
	return s.store.ListPRDs(ctx, filter)
}

// UpdatePRD applies a partial update.
func (s *Service) UpdatePRD(ctx context.Context, id string, patch store.PRDPatch) (*store.PRD, error) {
	return s.store.UpdatePRD(ctx, id, patch)
}

// DeletePRD removes a PRD and its whole tree.
func (s *Service) DeletePRD(ctx context.Context, id string) error {
	if err := s.store.DeletePRD(ctx, id); err != nil {
		return err
	}
	s.logger.Info("prd deleted", "id", id)
	return nil
}

// GetStory returns a story, optionally with task completion stats.
func (s *Service) GetStory(ctx context.Context, id string, withStats bool) (*StoryDetail, error) {
	story, err := s.store.GetStory(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &StoryDetail{Story: story}
	if withStats {
		counts, err := s.store.StoryTaskStatusCounts(ctx, id)
		if err != nil {
			return nil, err
		}
		stats := &StoryStats{CompletedTasks: counts[store.TaskStatusDone]}
		for _, n := range counts {
			stats.TaskCount += n
		}
		detail.Stats = stats
	}
	return detail, nil
}

// ListStories returns stories matching the filter, newest first.
func (s *Service) ListStories(ctx context.Context, filter store.StoryFilter) ([]*store.Story, error) {
	return s.store.ListStories(ctx, filter)
}

// UpdateStory applies a partial update.
func (s *Service) UpdateStory(ctx context.Context, id string, patch store.StoryPatch) (*store.Story, error) {
	return s.store.UpdateStory(ctx, id, patch)
}

// DeleteStory removes a story and its tasks.
func (s *Service) DeleteStory(ctx context.Context, id string) error {
	if err := s.store.DeleteStory(ctx, id); err != nil {
		return err
	}
	s.logger.Info("story deleted", "id", id)
	return nil
}

// GetTask returns a task by ID.
func (s *Service) GetTask(ctx context.Context, id string) (*store.Task, error) {
	return s.store.GetTask(ctx, id)
}

// ListTasks returns tasks matching the filter, newest first.
func (s *Service) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*store.Task, error) {
	return s.store.ListTasks(ctx, filter)
}

// UpdateTask applies a partial update, re-validating any new dependency list.
func (s *Service) UpdateTask(ctx context.Context, id string, patch store.TaskPatch) (*store.Task, error) {
	return s.store.UpdateTask(ctx, id, patch)
}

// GetComments returns comments for an entity, newest first.
func (s *Service) GetComments(ctx context.Context, entityKind, entityID string, limit, offset int) ([]*store.Comment, error) {
	return s.store.ListComments(ctx, entityKind, entityID, limit, offset)
}

// Activity returns the most recent events, newest first.
func (s *Service) Activity(limit int) []events.Event {
	return s.events.Recent(limit)
}

// AgentActivity returns the most recent events recorded for an agent.
func (s *Service) AgentActivity(agentID string, limit int) []events.Event {
	return s.events.ByAgent(agentID, limit)
}

// EntityActivity returns all retained events for an entity.
func (s *Service) EntityActivity(entityKind, entityID string) []events.Event {
	return s.events.ByEntity(entityKind, entityID)
}
