// ABOUTME: Project CRUD operations for the SQLite store
// ABOUTME: Includes the transactional cascade delete that removes a project's whole tree

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateProject creates a new project.
// The ID and timestamps are filled in when zero.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt

	metadata, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, metadata, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}

	s.logger.Debug("created project", "id", p.ID, "name", p.Name)
	return nil
}

// GetProject retrieves a project by ID.
// Returns ErrNotFound if the project doesn't exist.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, metadata, created_at, updated_at
		FROM projects
		WHERE id = ?
	`, id)
	return scanProject(row)
}

// ListProjects retrieves projects, newest first.
// If limit is 0 or negative, a default limit of 50 is used.
func (s *SQLiteStore) ListProjects(ctx context.Context, limit, offset int) ([]*Project, error) {
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, metadata, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject applies a partial update and returns the updated project.
// An empty patch returns the current row without touching updated_at.
// Returns ErrNotFound if the project doesn't exist.
func (s *SQLiteStore) UpdateProject(ctx context.Context, id string, patch ProjectPatch) (*Project, error) {
	var sets []string
	var args []any

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
		}
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
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
		return s.GetProject(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated project", "id", id)
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project and every PRD, story, task, and comment
// under it, in a single transaction.
// Returns ErrNotFound if the project doesn't exist.
func (s *SQLiteStore) DeleteProject(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Comments carry no FK, so sweep them for every descendant before the
	// cascading row delete.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM comments
		WHERE (entity_kind = 'task' AND entity_id IN (
				SELECT t.id FROM tasks t
				JOIN stories st ON t.story_id = st.id
				JOIN prds p ON st.prd_id = p.id
				WHERE p.project_id = ?))
		   OR (entity_kind = 'story' AND entity_id IN (
				SELECT st.id FROM stories st
				JOIN prds p ON st.prd_id = p.id
				WHERE p.project_id = ?))
		   OR (entity_kind = 'prd' AND entity_id IN (
				SELECT id FROM prds WHERE project_id = ?))
	`, id, id, id)
	if err != nil {
		return fmt.Errorf("deleting project comments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing project delete: %w", err)
	}

	s.logger.Debug("deleted project", "id", id)
	return nil
}

// scanProject scans a single project row.
func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var metadata sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.Description, &metadata, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	p.Metadata = decodeMetadata(metadata)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// scanProjectRow scans a project from a multi-row result set.
func scanProjectRow(rows *sql.Rows) (*Project, error) {
	var p Project
	var metadata sql.NullString
	var createdAt, updatedAt string

	if err := rows.Scan(&p.ID, &p.Name, &p.Description, &metadata, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning project row: %w", err)
	}

	p.Metadata = decodeMetadata(metadata)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
