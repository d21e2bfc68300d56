// ABOUTME: Progress rollups computed from live store counts - story, project, and per-agent views
// ABOUTME: Nothing here is cached; every call recomputes from the database

package service

import (
	"context"
	"errors"
	"math"

	"github.com/agentboard/agentboard/internal/store"
)

// workloadScanLimit bounds the per-agent task walk.
const workloadScanLimit = 500

// StoryProgress is a completion rollup for a single story.
type StoryProgress struct {
	StoryID    string  `json:"story_id"`
	Title      string  `json:"title"`
	TotalTasks int     `json:"total_tasks"`
	Done       int     `json:"done"`
	InProgress int     `json:"in_progress"`
	Blocked    int     `json:"blocked"`
	Completion float64 `json:"completion_percent"`
}

// ProjectProgress is a completion rollup across a whole project tree.
type ProjectProgress struct {
	ProjectID       string         `json:"project_id"`
	Name            string         `json:"name"`
	PRDCount        int            `json:"prd_count"`
	StoryCount      int            `json:"story_count"`
	TaskCount       int            `json:"task_count"`
	StoriesByStatus map[string]int `json:"stories_by_status"`
	TasksByStatus   map[string]int `json:"tasks_by_status"`
	TasksByAgent    map[string]int `json:"tasks_by_agent"`
	Completion      float64        `json:"completion_percent"`
}

// WorkloadTask is a task annotated with its position in the hierarchy.
type WorkloadTask struct {
	*store.Task
	StoryTitle string `json:"story_title"`
	PRDTitle   string `json:"prd_title"`
	ProjectID  string `json:"project_id"`
}

// AgentWorkload is the set of tasks assigned to one agent.
type AgentWorkload struct {
	AgentID   string          `json:"agent_id"`
	TaskCount int             `json:"task_count"`
	Tasks     []*WorkloadTask `json:"tasks"`
}

// percent returns done/total as a percentage rounded to two decimals.
// A story or project with no tasks reports 0, not NaN.
func percent(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(done)/float64(total)*10000) / 100
}

// zeroStatusMap returns a count map with every status present at zero, so
// callers can index without existence checks.
func zeroStatusMap(statuses []string) map[string]int {
	m := make(map[string]int, len(statuses))
	for _, st := range statuses {
		m[st] = 0
	}
	return m
}

// StoryProgress computes the task completion rollup for one story.
func (s *Service) StoryProgress(ctx context.Context, storyID string) (*StoryProgress, error) {
	story, err := s.store.GetStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.StoryTaskStatusCounts(ctx, storyID)
	if err != nil {
		return nil, err
	}

	progress := &StoryProgress{
		StoryID:    story.ID,
		Title:      story.Title,
		Done:       counts[store.TaskStatusDone],
		InProgress: counts[store.TaskStatusInProgress],
		Blocked:    counts[store.TaskStatusBlocked],
	}
	for _, n := range counts {
		progress.TotalTasks += n
	}
	progress.Completion = percent(progress.Done, progress.TotalTasks)
	return progress, nil
}

// ProjectProgress computes the full-tree rollup for one project. Status maps
// carry every known status, zero-valued when absent.
func (s *Service) ProjectProgress(ctx context.Context, projectID string) (*ProjectProgress, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.ProjectCounts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	storyStatus, err := s.store.ProjectStoryStatusCounts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	taskStatus, err := s.store.ProjectTaskStatusCounts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	byAgent, err := s.store.ProjectTaskAgentCounts(ctx, projectID)
	if err != nil {
		return nil, err
	}

	progress := &ProjectProgress{
		ProjectID:  project.ID,
		Name:       project.Name,
		PRDCount:   counts.PRDs,
		StoryCount: counts.Stories,
		TaskCount:  counts.Tasks,
		StoriesByStatus: zeroStatusMap([]string{
			store.StoryStatusTodo, store.StoryStatusInProgress, store.StoryStatusReview,
			store.StoryStatusDone, store.StoryStatusArchived,
		}),
		TasksByStatus: zeroStatusMap([]string{
			store.TaskStatusTodo, store.TaskStatusInProgress, store.TaskStatusBlocked,
			store.TaskStatusReview, store.TaskStatusDone, store.TaskStatusArchived,
		}),
		TasksByAgent: byAgent,
	}
	for st, n := range storyStatus {
		progress.StoriesByStatus[st] = n
	}
	for st, n := range taskStatus {
		progress.TasksByStatus[st] = n
	}
	progress.Completion = percent(progress.TasksByStatus[store.TaskStatusDone], counts.Tasks)
	return progress, nil
}

// AgentWorkload returns the tasks assigned to an agent with hierarchy context,
// optionally filtered to one project and one status. Tasks whose ancestors
// vanish mid-walk are skipped rather than failing the whole report.
func (s *Service) AgentWorkload(ctx context.Context, agentID, projectID, status string) (*AgentWorkload, error) {
	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{
		AssignedTo: agentID,
		Status:     status,
		Limit:      workloadScanLimit,
	})
	if err != nil {
		return nil, err
	}

	workload := &AgentWorkload{
		AgentID: agentID,
		Tasks:   make([]*WorkloadTask, 0, len(tasks)),
	}
	for _, t := range tasks {
		story, err := s.store.GetStory(ctx, t.StoryID)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("workload skipping task with missing story", "task_id", t.ID, "story_id", t.StoryID)
			continue
		}
		if err != nil {
			return nil, err
		}
		prd, err := s.store.GetPRD(ctx, story.PRDID)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Debug("workload skipping task with missing prd", "task_id", t.ID, "prd_id", story.PRDID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if projectID != "" && prd.ProjectID != projectID {
			continue
		}
		workload.Tasks = append(workload.Tasks, &WorkloadTask{
			Task:       t,
			StoryTitle: story.Title,
			PRDTitle:   prd.Title,
			ProjectID:  prd.ProjectID,
		})
	}
	workload.TaskCount = len(workload.Tasks)
	return workload, nil
}
