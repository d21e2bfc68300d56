// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides work item persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys so cascade deletes work
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			metadata    TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS prds (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'draft',
			created_by  TEXT NOT NULL DEFAULT 'system',
			metadata    TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,

			CHECK (status IN ('draft', 'active', 'completed', 'archived'))
		);

		CREATE INDEX IF NOT EXISTS idx_prds_project ON prds(project_id);

		CREATE TABLE IF NOT EXISTS stories (
			id                  TEXT PRIMARY KEY,
			prd_id              TEXT NOT NULL REFERENCES prds(id) ON DELETE CASCADE,
			title               TEXT NOT NULL,
			description         TEXT NOT NULL DEFAULT '',
			status              TEXT NOT NULL DEFAULT 'todo',
			created_by          TEXT NOT NULL DEFAULT 'system',
			assigned_to         TEXT,
			story_points        INTEGER,
			acceptance_criteria TEXT,
			metadata            TEXT,
			created_at          TEXT NOT NULL,
			updated_at          TEXT NOT NULL,

			CHECK (status IN ('todo', 'in_progress', 'review', 'done', 'archived'))
		);

		CREATE INDEX IF NOT EXISTS idx_stories_prd ON stories(prd_id);
		CREATE INDEX IF NOT EXISTS idx_stories_assigned ON stories(assigned_to);

		CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			story_id    TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'todo',
			created_by  TEXT NOT NULL DEFAULT 'system',
			assigned_to TEXT NOT NULL,
			depends_on  TEXT,
			metadata    TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,

			CHECK (status IN ('todo', 'in_progress', 'blocked', 'review', 'done', 'archived'))
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_story ON tasks(story_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_assigned ON tasks(assigned_to);

		-- Comments reference one of three parent tables, so no FK; cascade
		-- cleanup happens in the delete transactions.
		CREATE TABLE IF NOT EXISTS comments (
			id           TEXT PRIMARY KEY,
			entity_kind  TEXT NOT NULL,
			entity_id    TEXT NOT NULL,
			author       TEXT NOT NULL,
			content      TEXT NOT NULL,
			comment_type TEXT NOT NULL DEFAULT 'comment',
			metadata     TEXT,
			created_at   TEXT NOT NULL,

			CHECK (entity_kind IN ('prd', 'story', 'task')),
			CHECK (comment_type IN ('comment', 'question', 'decision', 'blocker'))
		);

		CREATE INDEX IF NOT EXISTS idx_comments_entity ON comments(entity_kind, entity_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// runMigrations applies schema migrations for existing databases.
// These are idempotent - safe to run multiple times.
func (s *SQLiteStore) runMigrations() error {
	// SQLite doesn't support ADD COLUMN IF NOT EXISTS, so we check first
	migrations := []struct {
		check  string // Query to check if migration is needed
		apply  string // Query to apply the migration
		table  string
		column string // Column name for logging
	}{
		{
			check:  `SELECT 1 FROM pragma_table_info('stories') WHERE name = 'acceptance_criteria'`,
			apply:  `ALTER TABLE stories ADD COLUMN acceptance_criteria TEXT`,
			table:  "stories",
			column: "acceptance_criteria",
		},
		{
			check:  `SELECT 1 FROM pragma_table_info('stories') WHERE name = 'story_points'`,
			apply:  `ALTER TABLE stories ADD COLUMN story_points INTEGER`,
			table:  "stories",
			column: "story_points",
		},
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(m.check).Scan(&exists)
		if err == nil {
			// Column already exists, skip
			continue
		}
		if _, err := s.db.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to %s: %w", m.column, m.table, err)
		}
		s.logger.Info("applied migration", "column", m.column, "table", m.table)
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)

// clampLimit applies the default page size and upper bound for list queries.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}

// encodeMetadata serializes a metadata map to JSON text.
// Empty maps are stored as NULL.
func encodeMetadata(m map[string]any) (*string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	str := string(b)
	return &str, nil
}

// decodeMetadata parses stored metadata JSON.
func decodeMetadata(src sql.NullString) map[string]any {
	if !src.Valid || src.String == "" {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal([]byte(src.String), &m) // Best effort: invalid JSON leaves metadata empty
	return m
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// rowExists reports whether a row with the given id exists in the table.
// The table name always comes from a constant at the call site.
func rowExists(ctx context.Context, q queryRower, table, id string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s existence: %w", table, err)
	}
	return true, nil
}

// queryRower is satisfied by both *sql.DB and *sql.Tx
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// formatTime renders a timestamp in the canonical column format.
// Nanosecond precision keeps created_at ordering meaningful for rows
// written within the same second.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a stored timestamp, returning the zero time on failure.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
