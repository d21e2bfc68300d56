// ABOUTME: Task CRUD operations for the SQLite store
// ABOUTME: Validates depends_on references inside the write transaction so no partial row lands

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateTask creates a new task under an existing story.
// Every ID in DependsOn must reference an existing task; the first unresolved
// ID aborts the create with a ConstraintError and nothing is written.
func (s *SQLiteStore) CreateTask(ctx context.Context, t *Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(t.AssignedTo) == "" {
		return &ValidationError{Field: "assigned_to", Reason: "must not be empty"}
	}
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	if !taskStatuses[t.Status] {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", t.Status)}
	}

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedBy == "" {
		t.CreatedBy = "system"
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt

	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}
	deps, err := encodeDeps(t.DependsOn)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := rowExists(ctx, tx, "stories", t.StoryID)
	if err != nil {
		return err
	}
	if !ok {
		return &ConstraintError{Ref: "parent", Kind: KindStory, ID: t.StoryID}
	}
	if err := checkDeps(ctx, tx, t.DependsOn); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (id, story_id, title, description, status, created_by,
			assigned_to, depends_on, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.StoryID, t.Title, t.Description, t.Status, t.CreatedBy,
		t.AssignedTo, deps, metadata, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing task insert: %w", err)
	}

	s.logger.Debug("created task", "id", t.ID, "story_id", t.StoryID, "assigned_to", t.AssignedTo)
	return nil
}

// GetTask retrieves a task by ID.
// Returns ErrNotFound if the task doesn't exist.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, story_id, title, description, status, created_by,
			assigned_to, depends_on, metadata, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`, id)
	return scanTask(row)
}

// ListTasks retrieves tasks matching the filter, newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	query := `
		SELECT id, story_id, title, description, status, created_by,
			assigned_to, depends_on, metadata, created_at, updated_at
		FROM tasks WHERE 1=1`
	var args []any

	if filter.StoryID != "" {
		query += ` AND story_id = ?`
		args = append(args, filter.StoryID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.AssignedTo != "" {
		query += ` AND assigned_to = ?`
		args = append(args, filter.AssignedTo)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, clampLimit(filter.Limit), offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update and returns the updated task.
// A non-nil DependsOn replaces the stored list after re-validating every ID.
// Returns ErrNotFound if the task doesn't exist.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	var sets []string
	var args []any

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
		}
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		if !taskStatuses[*patch.Status] {
			return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *patch.Status)}
		}
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.AssignedTo != nil {
		if strings.TrimSpace(*patch.AssignedTo) == "" {
			return nil, &ValidationError{Field: "assigned_to", Reason: "must not be empty"}
		}
		sets = append(sets, "assigned_to = ?")
		args = append(args, *patch.AssignedTo)
	}
	if patch.DependsOn != nil {
		deps, err := encodeDeps(patch.DependsOn)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "depends_on = ?")
		args = append(args, deps)
	}
	if patch.Metadata != nil {
		metadata, err := encodeMetadata(patch.Metadata)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "metadata = ?")
		args = append(args, metadata)
	}

	if len(sets) == 0 {
		return s.GetTask(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), id)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if patch.DependsOn != nil {
		if err := checkDeps(ctx, tx, patch.DependsOn); err != nil {
			return nil, err
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing task update: %w", err)
	}

	s.logger.Debug("updated task", "id", id)
	return s.GetTask(ctx, id)
}

// checkDeps verifies dependency IDs are unique and reference existing tasks.
func checkDeps(ctx context.Context, tx *sql.Tx, deps []string) error {
	seen := make(map[string]bool, len(deps))
	for _, depID := range deps {
		if seen[depID] {
			return &ValidationError{Field: "depends_on", Reason: fmt.Sprintf("duplicate task id %q", depID)}
		}
		seen[depID] = true

		ok, err := rowExists(ctx, tx, "tasks", depID)
		if err != nil {
			return err
		}
		if !ok {
			return &ConstraintError{Ref: "dependency", Kind: KindTask, ID: depID}
		}
	}
	return nil
}

// encodeDeps serializes a dependency list to JSON text.
// Empty lists are stored as NULL.
func encodeDeps(deps []string) (*string, error) {
	if len(deps) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(deps)
	if err != nil {
		return nil, fmt.Errorf("marshaling depends_on: %w", err)
	}
	str := string(b)
	return &str, nil
}

func scanTask(row *sql.Row) (*Task, error) {
	var t Task
	var deps, metadata sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.StoryID, &t.Title, &t.Description, &t.Status,
		&t.CreatedBy, &t.AssignedTo, &deps, &metadata, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	fillTask(&t, deps, metadata, createdAt, updatedAt)
	return &t, nil
}

func scanTaskRow(rows *sql.Rows) (*Task, error) {
	var t Task
	var deps, metadata sql.NullString
	var createdAt, updatedAt string

	if err := rows.Scan(&t.ID, &t.StoryID, &t.Title, &t.Description, &t.Status,
		&t.CreatedBy, &t.AssignedTo, &deps, &metadata, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning task row: %w", err)
	}

	fillTask(&t, deps, metadata, createdAt, updatedAt)
	return &t, nil
}

func fillTask(t *Task, deps, metadata sql.NullString, createdAt, updatedAt string) {
	if deps.Valid {
		_ = json.Unmarshal([]byte(deps.String), &t.DependsOn) // Best effort: invalid JSON leaves the list empty
	}
	t.Metadata = decodeMetadata(metadata)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
}
