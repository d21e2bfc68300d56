// ABOUTME: Comment operations for the SQLite store
// ABOUTME: Comments attach to PRDs, stories, or tasks and are immutable once written

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// kindTables maps comment target kinds to their backing tables.
var kindTables = map[string]string{
	KindPRD:   "prds",
	KindStory: "stories",
	KindTask:  "tasks",
}

// CreateComment attaches a comment to an existing PRD, story, or task.
// Returns a ConstraintError if the target doesn't exist.
func (s *SQLiteStore) CreateComment(ctx context.Context, c *Comment) error {
	if !commentKinds[c.EntityKind] {
		return &ValidationError{Field: "entity_kind", Reason: fmt.Sprintf("unknown kind %q", c.EntityKind)}
	}
	if strings.TrimSpace(c.Content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if c.CommentType == "" {
		c.CommentType = CommentTypeComment
	}
	if !commentTypes[c.CommentType] {
		return &ValidationError{Field: "comment_type", Reason: fmt.Sprintf("unknown type %q", c.CommentType)}
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Author == "" {
		c.Author = "system"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := rowExists(ctx, tx, kindTables[c.EntityKind], c.EntityID)
	if err != nil {
		return err
	}
	if !ok {
		return &ConstraintError{Ref: "target", Kind: c.EntityKind, ID: c.EntityID}
	}

	metadata, err := encodeMetadata(c.Metadata)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO comments (id, entity_kind, entity_id, author, content, comment_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.EntityKind, c.EntityID, c.Author, c.Content, c.CommentType, metadata, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing comment insert: %w", err)
	}

	s.logger.Debug("created comment", "id", c.ID, "entity_kind", c.EntityKind, "entity_id", c.EntityID)
	return nil
}

// ListComments retrieves comments for an entity, newest first.
func (s *SQLiteStore) ListComments(ctx context.Context, entityKind, entityID string, limit, offset int) ([]*Comment, error) {
	if !commentKinds[entityKind] {
		return nil, &ValidationError{Field: "entity_kind", Reason: fmt.Sprintf("unknown kind %q", entityKind)}
	}
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_kind, entity_id, author, content, comment_type, metadata, created_at
		FROM comments
		WHERE entity_kind = ? AND entity_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, entityKind, entityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		var c Comment
		var metadata sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.EntityKind, &c.EntityID, &c.Author, &c.Content, &c.CommentType, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning comment row: %w", err)
		}
		c.Metadata = decodeMetadata(metadata)
		c.CreatedAt = parseTime(createdAt)
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
