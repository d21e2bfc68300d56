// ABOUTME: Aggregate count queries over the project/PRD/story/task hierarchy
// ABOUTME: Counts are computed per call from the live rows, never cached

package store

import (
	"context"
	"fmt"
)

// ProjectCounts returns descendant totals for a project.
// Returns ErrNotFound if the project doesn't exist.
func (s *SQLiteStore) ProjectCounts(ctx context.Context, projectID string) (*ProjectCounts, error) {
	ok, err := rowExists(ctx, s.db, "projects", projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM prds WHERE project_id = ?) as prd_count,
			(SELECT COUNT(*) FROM stories st
				JOIN prds p ON st.prd_id = p.id
				WHERE p.project_id = ?) as story_count,
			(SELECT COUNT(*) FROM tasks t
				JOIN stories st ON t.story_id = st.id
				JOIN prds p ON st.prd_id = p.id
				WHERE p.project_id = ?) as task_count
	`

	var counts ProjectCounts
	err = s.db.QueryRowContext(ctx, query, projectID, projectID, projectID).Scan(
		&counts.PRDs,
		&counts.Stories,
		&counts.Tasks,
	)
	if err != nil {
		return nil, fmt.Errorf("querying project counts: %w", err)
	}
	return &counts, nil
}

// PRDCounts returns descendant totals for a PRD.
// Returns ErrNotFound if the PRD doesn't exist.
func (s *SQLiteStore) PRDCounts(ctx context.Context, prdID string) (*PRDCounts, error) {
	ok, err := rowExists(ctx, s.db, "prds", prdID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	query := `
		SELECT
			(SELECT COUNT(*) FROM stories WHERE prd_id = ?) as story_count,
			(SELECT COUNT(*) FROM tasks t
				JOIN stories st ON t.story_id = st.id
				WHERE st.prd_id = ?) as task_count
	`

	var counts PRDCounts
	err = s.db.QueryRowContext(ctx, query, prdID, prdID).Scan(&counts.Stories, &counts.Tasks)
	if err != nil {
		return nil, fmt.Errorf("querying prd counts: %w", err)
	}
	return &counts, nil
}

// StoryTaskStatusCounts returns task counts for a story keyed by status.
// Statuses with no tasks are absent from the map.
// Returns ErrNotFound if the story doesn't exist.
func (s *SQLiteStore) StoryTaskStatusCounts(ctx context.Context, storyID string) (map[string]int, error) {
	ok, err := rowExists(ctx, s.db, "stories", storyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	counts, err := s.countGroups(ctx, `
		SELECT status, COUNT(*) FROM tasks
		WHERE story_id = ?
		GROUP BY status
	`, storyID)
	if err != nil {
		return nil, fmt.Errorf("querying story task counts: %w", err)
	}
	return counts, nil
}

// ProjectStoryStatusCounts returns story counts for a project keyed by status.
// Returns ErrNotFound if the project doesn't exist.
func (s *SQLiteStore) ProjectStoryStatusCounts(ctx context.Context, projectID string) (map[string]int, error) {
	ok, err := rowExists(ctx, s.db, "projects", projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	counts, err := s.countGroups(ctx, `
		SELECT st.status, COUNT(*) FROM stories st
		JOIN prds p ON st.prd_id = p.id
		WHERE p.project_id = ?
		GROUP BY st.status
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying project story counts: %w", err)
	}
	return counts, nil
}

// ProjectTaskStatusCounts returns task counts for a project keyed by status.
// Returns ErrNotFound if the project doesn't exist.
func (s *SQLiteStore) ProjectTaskStatusCounts(ctx context.Context, projectID string) (map[string]int, error) {
	ok, err := rowExists(ctx, s.db, "projects", projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	counts, err := s.countGroups(ctx, `
		SELECT t.status, COUNT(*) FROM tasks t
		JOIN stories st ON t.story_id = st.id
		JOIN prds p ON st.prd_id = p.id
		WHERE p.project_id = ?
		GROUP BY t.status
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying project task counts: %w", err)
	}
	return counts, nil
}

// ProjectTaskAgentCounts returns task counts for a project keyed by assignee,
// regardless of task status.
// Returns ErrNotFound if the project doesn't exist.
func (s *SQLiteStore) ProjectTaskAgentCounts(ctx context.Context, projectID string) (map[string]int, error) {
	ok, err := rowExists(ctx, s.db, "projects", projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	counts, err := s.countGroups(ctx, `
		SELECT t.assigned_to, COUNT(*) FROM tasks t
		JOIN stories st ON t.story_id = st.id
		JOIN prds p ON st.prd_id = p.id
		WHERE p.project_id = ?
		GROUP BY t.assigned_to
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying project agent counts: %w", err)
	}
	return counts, nil
}

// countGroups runs a two-column (key, count) query into a map.
func (s *SQLiteStore) countGroups(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
