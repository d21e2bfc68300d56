// Package service provides the domain layer over the store and event log.
//
// # Overview
//
// The service package sits between the transport layers (MCP, web, CLI) and
// the persistence layer, adding event emission and derived statistics on top
// of raw store operations.
//
// # Service
//
// The Service coordinates all domain operations:
//
//	svc := service.New(store, eventLog, logger)
//
// Key operations:
//
//   - CreateProject / CreatePRD / CreateStory / CreateTask: persist and emit
//     exactly one creation event on success
//   - AddComment: attach discussion to a PRD, story, or task
//   - GetProject / ListProjects: entities enriched with descendant counts
//   - StoryProgress / ProjectProgress: completion rollups recomputed per call
//   - AgentWorkload: tasks for one agent with hierarchy context
//   - Activity / AgentActivity / EntityActivity: recent event views
//
// # Event Emission
//
// Creation operations append to the injected event log only after the store
// write succeeds. A failed write emits nothing. Updates and deletes do not
// emit events; the activity feed records how the tree grew, not every edit.
//
// # Progress Semantics
//
// Progress is never stored. Each rollup call recomputes from live counts, so
// a completion percentage can move in either direction as tasks are added or
// reassigned. Completion is done tasks over total tasks, rounded to two
// decimals, and 0 when there are no tasks.
//
// # Actor Attribution
//
// Every mutation is attributed to an agent ID. Callers that supply none get
// the "system" actor.
package service
