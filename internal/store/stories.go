// ABOUTME: Story CRUD operations for the SQLite store
// ABOUTME: Handles nullable assignment, story points, and acceptance criteria columns

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateStory creates a new story under an existing PRD.
// Returns a ConstraintError if the parent PRD doesn't exist.
func (s *SQLiteStore) CreateStory(ctx context.Context, st *Story) error {
	if strings.TrimSpace(st.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if st.Status == "" {
		st.Status = StoryStatusTodo
	}
	if !storyStatuses[st.Status] {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", st.Status)}
	}
	if st.StoryPoints != nil && *st.StoryPoints < 0 {
		return &ValidationError{Field: "story_points", Reason: "must not be negative"}
	}

	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.CreatedBy == "" {
		st.CreatedBy = "system"
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	st.UpdatedAt = st.CreatedAt

	metadata, err := encodeMetadata(st.Metadata)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := rowExists(ctx, tx, "prds", st.PRDID)
	if err != nil {
		return err
	}
	if !ok {
		return &ConstraintError{Ref: "parent", Kind: KindPRD, ID: st.PRDID}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stories (id, prd_id, title, description, status, created_by,
			assigned_to, story_points, acceptance_criteria, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.PRDID, st.Title, st.Description, st.Status, st.CreatedBy,
		nullString(st.AssignedTo), st.StoryPoints, nullString(st.AcceptanceCriteria),
		metadata, formatTime(st.CreatedAt), formatTime(st.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting story: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing story insert: %w", err)
	}

	s.logger.Debug("created story", "id", st.ID, "prd_id", st.PRDID)
	return nil
}

// GetStory retrieves a story by ID.
// Returns ErrNotFound if the story doesn't exist.
func (s *SQLiteStore) GetStory(ctx context.Context, id string) (*Story, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, prd_id, title, description, status, created_by,
			assigned_to, story_points, acceptance_criteria, metadata, created_at, updated_at
		FROM stories
		WHERE id = ?
	`, id)
	return scanStory(row)
}

// ListStories retrieves stories matching the filter, newest first.
func (s *SQLiteStore) ListStories(ctx context.Context, filter StoryFilter) ([]*Story, error) {
	query := `
		SELECT id, prd_id, title, description, status, created_by,
			assigned_to, story_points, acceptance_criteria, metadata, created_at, updated_at
		FROM stories WHERE 1=1`
	var args []any

	if filter.PRDID != "" {
		query += ` AND prd_id = ?`
		args = append(args, filter.PRDID)
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
		return nil, fmt.Errorf("querying stories: %w", err)
	}
	defer rows.Close()

	var stories []*Story
	for rows.Next() {
		st, err := scanStoryRow(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, st)
	}
	return stories, rows.Err()
}

// UpdateStory applies a partial update and returns the updated story.
// Returns ErrNotFound if the story doesn't exist.
func (s *SQLiteStore) UpdateStory(ctx context.Context, id string, patch StoryPatch) (*Story, error) {
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
		if !storyStatuses[*patch.Status] {
			return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *patch.Status)}
		}
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.AssignedTo != nil {
		sets = append(sets, "assigned_to = ?")
		args = append(args, nullString(*patch.AssignedTo))
	}
	if patch.StoryPoints != nil {
		if *patch.StoryPoints < 0 {
			return nil, &ValidationError{Field: "story_points", Reason: "must not be negative"}
		}
		sets = append(sets, "story_points = ?")
		args = append(args, *patch.StoryPoints)
	}
	if patch.AcceptanceCriteria != nil {
		sets = append(sets, "acceptance_criteria = ?")
		args = append(args, nullString(*patch.AcceptanceCriteria))
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
		return s.GetStory(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE stories SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("updating story: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated story", "id", id)
	return s.GetStory(ctx, id)
}

// DeleteStory removes a story and every task and comment under it,
// in a single transaction.
// Returns ErrNotFound if the story doesn't exist.
func (s *SQLiteStore) DeleteStory(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM comments
		WHERE (entity_kind = 'task' AND entity_id IN (
				SELECT id FROM tasks WHERE story_id = ?))
		   OR (entity_kind = 'story' AND entity_id = ?)
	`, id, id)
	if err != nil {
		return fmt.Errorf("deleting story comments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting story: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing story delete: %w", err)
	}

	s.logger.Debug("deleted story", "id", id)
	return nil
}

func scanStory(row *sql.Row) (*Story, error) {
	var st Story
	var assignedTo, acceptance, metadata sql.NullString
	var points sql.NullInt64
	var createdAt, updatedAt string

	err := row.Scan(&st.ID, &st.PRDID, &st.Title, &st.Description, &st.Status,
		&st.CreatedBy, &assignedTo, &points, &acceptance, &metadata, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning story: %w", err)
	}

	fillStory(&st, assignedTo, points, acceptance, metadata, createdAt, updatedAt)
	return &st, nil
}

func scanStoryRow(rows *sql.Rows) (*Story, error) {
	var st Story
	var assignedTo, acceptance, metadata sql.NullString
	var points sql.NullInt64
	var createdAt, updatedAt string

	if err := rows.Scan(&st.ID, &st.PRDID, &st.Title, &st.Description, &st.Status,
		&st.CreatedBy, &assignedTo, &points, &acceptance, &metadata, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning story row: %w", err)
	}

	fillStory(&st, assignedTo, points, acceptance, metadata, createdAt, updatedAt)
	return &st, nil
}

func fillStory(st *Story, assignedTo sql.NullString, points sql.NullInt64, acceptance, metadata sql.NullString, createdAt, updatedAt string) {
	if assignedTo.Valid {
		st.AssignedTo = assignedTo.String
	}
	if points.Valid {
		p := int(points.Int64)
		st.StoryPoints = &p
	}
	if acceptance.Valid {
		st.AcceptanceCriteria = acceptance.String
	}
	st.Metadata = decodeMetadata(metadata)
	st.CreatedAt = parseTime(createdAt)
	st.UpdatedAt = parseTime(updatedAt)
}
