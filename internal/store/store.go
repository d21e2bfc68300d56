// ABOUTME: Store interface and data types for agentboard persistence
// ABOUTME: Defines Project, PRD, Story, Task, Comment and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ValidationError is returned when a create or update payload fails a field check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConstraintError is returned when a referenced row does not exist: a missing
// parent on create, a missing comment target, or a missing task dependency.
type ConstraintError struct {
	Ref  string // "parent", "target", or "dependency"
	Kind string // entity kind of the missing row
	ID   string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s %s %s not found", e.Ref, e.Kind, e.ID)
}

// IsValidation reports whether err is a ValidationError.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConstraint reports whether err is a ConstraintError.
// Uses errors.As to handle wrapped errors.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}

// Entity kind constants for comment targets and event subjects
const (
	KindProject = "project"
	KindPRD     = "prd"
	KindStory   = "story"
	KindTask    = "task"
	KindComment = "comment"
)

// PRD status values
const (
	PRDStatusDraft     = "draft"
	PRDStatusActive    = "active"
	PRDStatusCompleted = "completed"
	PRDStatusArchived  = "archived"
)

// Story status values
const (
	StoryStatusTodo       = "todo"
	StoryStatusInProgress = "in_progress"
	StoryStatusReview     = "review"
	StoryStatusDone       = "done"
	StoryStatusArchived   = "archived"
)

// Task status values
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusBlocked    = "blocked"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
	TaskStatusArchived   = "archived"
)

// Comment type values
const (
	CommentTypeComment  = "comment"
	CommentTypeQuestion = "question"
	CommentTypeDecision = "decision"
	CommentTypeBlocker  = "blocker"
)

var prdStatuses = map[string]bool{
	PRDStatusDraft:     true,
	PRDStatusActive:    true,
	PRDStatusCompleted: true,
	PRDStatusArchived:  true,
}

var storyStatuses = map[string]bool{
	StoryStatusTodo:       true,
	StoryStatusInProgress: true,
	StoryStatusReview:     true,
	StoryStatusDone:       true,
	StoryStatusArchived:   true,
}

var taskStatuses = map[string]bool{
	TaskStatusTodo:       true,
	TaskStatusInProgress: true,
	TaskStatusBlocked:    true,
	TaskStatusReview:     true,
	TaskStatusDone:       true,
	TaskStatusArchived:   true,
}

var commentTypes = map[string]bool{
	CommentTypeComment:  true,
	CommentTypeQuestion: true,
	CommentTypeDecision: true,
	CommentTypeBlocker:  true,
}

var commentKinds = map[string]bool{
	KindPRD:   true,
	KindStory: true,
	KindTask:  true,
}

// Project is the top-level container for a body of work
type Project struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PRD is a product requirements document grouping related stories under a project
type PRD struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"project_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"` // draft, active, completed, archived
	CreatedBy   string         `json:"created_by"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Story is a unit of deliverable work under a PRD
type Story struct {
	ID                 string         `json:"id"`
	PRDID              string         `json:"prd_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Status             string         `json:"status"` // todo, in_progress, review, done, archived
	CreatedBy          string         `json:"created_by"`
	AssignedTo         string         `json:"assigned_to,omitempty"`
	StoryPoints        *int           `json:"story_points,omitempty"`
	AcceptanceCriteria string         `json:"acceptance_criteria,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Task is an assignable step toward completing a story.
// DependsOn lists task IDs that must exist when the task is written.
type Task struct {
	ID          string         `json:"id"`
	StoryID     string         `json:"story_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"` // todo, in_progress, blocked, review, done, archived
	CreatedBy   string         `json:"created_by"`
	AssignedTo  string         `json:"assigned_to"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Comment is a note attached to a PRD, story, or task.
// Comments are immutable once written.
type Comment struct {
	ID          string         `json:"id"`
	EntityKind  string         `json:"entity_kind"` // prd, story, task
	EntityID    string         `json:"entity_id"`
	Author      string         `json:"author"`
	Content     string         `json:"content"`
	CommentType string         `json:"comment_type"` // comment, question, decision, blocker
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ProjectPatch describes a partial update to a project.
// Nil fields are left unchanged; a non-nil Metadata replaces the stored map.
type ProjectPatch struct {
	Name        *string
	Description *string
	Metadata    map[string]any
}

// PRDPatch describes a partial update to a PRD. Nil fields are left unchanged.
type PRDPatch struct {
	Title       *string
	Description *string
	Status      *string
	Metadata    map[string]any
}

// StoryPatch describes a partial update to a story. Nil fields are left unchanged.
type StoryPatch struct {
	Title              *string
	Description        *string
	Status             *string
	AssignedTo         *string
	StoryPoints        *int
	AcceptanceCriteria *string
	Metadata           map[string]any
}

// TaskPatch describes a partial update to a task.
// Nil fields are left unchanged. A non-nil DependsOn replaces the stored list;
// an empty non-nil list clears it. Every ID in DependsOn must reference an
// existing task or the update is rejected.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	AssignedTo  *string
	DependsOn   []string
	Metadata    map[string]any
}

// PRDFilter narrows ListPRDs results. Zero-value fields are ignored.
type PRDFilter struct {
	ProjectID string
	Status    string
	CreatedBy string
	Limit     int
	Offset    int
}

// StoryFilter narrows ListStories results. Zero-value fields are ignored.
type StoryFilter struct {
	PRDID      string
	Status     string
	AssignedTo string
	Limit      int
	Offset     int
}

// TaskFilter narrows ListTasks results. Zero-value fields are ignored.
type TaskFilter struct {
	StoryID    string
	Status     string
	AssignedTo string
	Limit      int
	Offset     int
}

// ProjectCounts aggregates descendant totals for a project
type ProjectCounts struct {
	PRDs    int `json:"prd_count"`
	Stories int `json:"story_count"`
	Tasks   int `json:"task_count"`
}

// PRDCounts aggregates descendant totals for a PRD
type PRDCounts struct {
	Stories int `json:"story_count"`
	Tasks   int `json:"task_count"`
}

// Store defines the interface for work item persistence.
//
// All list methods return newest first, ordered by created_at with the row ID
// as tiebreak so pagination is stable. Delete methods cascade: removing a row
// removes every descendant row and the comments attached to them.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context, limit, offset int) ([]*Project, error)
	UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error)
	DeleteProject(ctx context.Context, id string) error

	// PRDs
	CreatePRD(ctx context.Context, p *PRD) error
	GetPRD(ctx context.Context, id string) (*PRD, error)
	ListPRDs(ctx context.Context, filter PRDFilter) ([]*PRD, error)
	UpdatePRD(ctx context.Context, id string, patch PRDPatch) (*PRD, error)
	DeletePRD(ctx context.Context, id string) error

	// Stories
	CreateStory(ctx context.Context, st *Story) error
	GetStory(ctx context.Context, id string) (*Story, error)
	ListStories(ctx context.Context, filter StoryFilter) ([]*Story, error)
	UpdateStory(ctx context.Context, id string, patch StoryPatch) (*Story, error)
	DeleteStory(ctx context.Context, id string) error

	// Tasks
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error)

	// Comments
	CreateComment(ctx context.Context, c *Comment) error
	ListComments(ctx context.Context, entityKind, entityID string, limit, offset int) ([]*Comment, error)

	// Aggregates (computed per call, never cached)
	ProjectCounts(ctx context.Context, projectID string) (*ProjectCounts, error)
	PRDCounts(ctx context.Context, prdID string) (*PRDCounts, error)
	StoryTaskStatusCounts(ctx context.Context, storyID string) (map[string]int, error)
	ProjectStoryStatusCounts(ctx context.Context, projectID string) (map[string]int, error)
	ProjectTaskStatusCounts(ctx context.Context, projectID string) (map[string]int, error)
	ProjectTaskAgentCounts(ctx context.Context, projectID string) (map[string]int, error)

	// Close releases any resources held by the store
	Close() error
}
