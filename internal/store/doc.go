// Package store provides persistent storage for agentboard using SQLite.
//
// # Data Models
//
// The hierarchy is Project → PRD → Story → Task, with Comments attachable to
// PRDs, stories, and tasks:
//
//   - Project: Top-level container for a body of work
//   - PRD: Requirements document grouping related stories
//   - Story: Deliverable unit of work with optional assignee and points
//   - Task: Assignable step with a dependency list of other task IDs
//   - Comment: Immutable note (comment, question, decision, blocker)
//
// Every entity carries a UUID, UTC created_at/updated_at timestamps, and an
// open-ended metadata map stored as JSON.
//
// # Referential Integrity
//
// Creates verify the parent row inside the insert transaction and fail with a
// ConstraintError when it is missing. Task dependency lists are validated the
// same way. Deletes cascade: removing a project, PRD, or story removes every
// descendant row plus the comments attached to them, in one transaction.
//
// # Ordering
//
// List methods return newest first, ordered by created_at with the row ID as
// tiebreak, so offset pagination never skips or repeats rows.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
//   - ErrNotFound: Requested entity does not exist
//   - ValidationError: A payload field failed a check
//   - ConstraintError: A referenced parent, target, or dependency is missing
//
// All methods accept context.Context for cancellation support.
// Use NewSQLiteStore(":memory:") for tests that need a throwaway database.
package store
