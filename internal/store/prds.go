// ABOUTME: PRD CRUD operations for the SQLite store
// ABOUTME: Creates verify the parent project inside the insert transaction

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreatePRD creates a new PRD under an existing project.
// Returns a ConstraintError if the parent project doesn't exist.
func (s *SQLiteStore) CreatePRD(ctx context.Context, p *PRD) error {
	if strings.TrimSpace(p.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if p.Status == "" {
		p.Status = PRDStatusDraft
	}
	if !prdStatuses[p.Status] {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", p.Status)}
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedBy == "" {
		p.CreatedBy = "system"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt

	metadata, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := rowExists(ctx, tx, "projects", p.ProjectID)
	if err != nil {
		return err
	}
	if !ok {
		return &ConstraintError{Ref: "parent", Kind: KindProject, ID: p.ProjectID}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO prds (id, project_id, title, description, status, created_by, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.ProjectID, p.Title, p.Description, p.Status, p.CreatedBy, metadata,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting prd: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing prd insert: %w", err)
	}

	s.logger.Debug("created prd", "id", p.ID, "project_id", p.ProjectID)
	return nil
}

// GetPRD retrieves a PRD by ID.
// Returns ErrNotFound if the PRD doesn't exist.
func (s *SQLiteStore) GetPRD(ctx context.Context, id string) (*PRD, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, description, status, created_by, metadata, created_at, updated_at
		FROM prds
		WHERE id = ?
	`, id)
	return scanPRD(row)
}

// ListPRDs retrieves PRDs matching the filter, newest first.
func (s *SQLiteStore) ListPRDs(ctx context.Context, filter PRDFilter) ([]*PRD, error) {
	query := `
		SELECT id, project_id, title, description, status, created_by, metadata, created_at, updated_at
		FROM prds WHERE 1=1`
	var args []any

	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.CreatedBy != "" {
		query += ` AND created_by = ?`
		args = append(args, filter.CreatedBy)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, clampLimit(filter.Limit), offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying prds: %w", err)
	}
	defer rows.Close()

	var prds []*PRD
	for rows.Next() {
		p, err := scanPRDRow(rows)
		if err != nil {
			return nil, err
		}
		prds = append(prds, p)
	}
	return prds, rows.Err()
}

// UpdatePRD applies a partial update and returns the updated PRD.
// Returns ErrNotFound if the PRD doesn't exist.
func (s *SQLiteStore) UpdatePRD(ctx context.Context, id string, patch PRDPatch) (*PRD, error) {
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
		if !prdStatuses[*patch.Status] {
			return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *patch.Status)}
		}
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
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
		return s.GetPRD(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE prds SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating prd: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated prd", "id", id)
	return s.GetPRD(ctx, id)
}

// DeletePRD removes a PRD and every story, task, and comment under it,
// in a single transaction.
// Returns ErrNotFound if the PRD doesn't exist.
func (s *SQLiteStore) DeletePRD(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM comments
		WHERE (entity_kind = 'task' AND entity_id IN (
				SELECT t.id FROM tasks t
				JOIN stories st ON t.story_id = st.id
				WHERE st.prd_id = ?))
		   OR (entity_kind = 'story' AND entity_id IN (
				SELECT id FROM stories WHERE prd_id = ?))
		   OR (entity_kind = 'prd' AND entity_id = ?)
	`, id, id, id)
	if err != nil {
		return fmt.Errorf("deleting prd comments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM prds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting prd: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing prd delete: %w", err)
	}

	s.logger.Debug("deleted prd", "id", id)
	return nil
}

func scanPRD(row *sql.Row) (*PRD, error) {
	var p PRD
	var metadata sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.ProjectID, &p.Title, &p.Description, &p.Status,
		&p.CreatedBy, &metadata, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning prd: %w", err)
	}

	p.Metadata = decodeMetadata(metadata)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func scanPRDRow(rows *sql.Rows) (*PRD, error) {
	var p PRD
	var metadata sql.NullString
	var createdAt, updatedAt string

	if err := rows.Scan(&p.ID, &p.ProjectID, &p.Title, &p.Description, &p.Status,
		&p.CreatedBy, &metadata, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning prd row: %w", err)
	}

	p.Metadata = decodeMetadata(metadata)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
