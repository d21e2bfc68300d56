// ABOUTME: Thread-safe bounded in-memory log of domain events.
// ABOUTME: Holds the most recent N events with ring-buffer eviction, queryable by recency, agent, or entity.

package events

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacity is the number of events retained when no capacity is given.
const DefaultCapacity = 1000

// defaultRecentLimit is the page size for Recent and ByAgent when the caller
// passes no limit.
const defaultRecentLimit = 50

// Event type constants. Creation events are emitted today; the update,
// status-change, and assignment vocabulary is reserved for callers that
// want finer-grained feeds.
const (
	TypeProjectCreated = "project.created"
	TypePRDCreated     = "prd.created"
	TypeStoryCreated   = "story.created"
	TypeTaskCreated    = "task.created"
	TypeCommentCreated = "comment.created"

	TypePRDUpdated   = "prd.updated"
	TypeStoryUpdated = "story.updated"
	TypeTaskUpdated  = "task.updated"

	TypeStoryStatusChanged = "story.status_changed"
	TypeTaskStatusChanged  = "task.status_changed"

	TypeStoryAssigned = "story.assigned"
	TypeTaskAssigned  = "task.assigned"
)

// Event is an immutable record of a mutation.
type Event struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Type       string         `json:"type"`
	AgentID    string         `json:"agent_id"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	EntityName string         `json:"entity_name,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// DisplayString renders a one-line human-readable form for activity feeds,
// e.g. `agent-7 created task "Wire up endpoint"`.
// Comment events name the entity the comment was attached to.
func (e Event) DisplayString() string {
	subject, action, ok := strings.Cut(e.Type, ".")
	verb := e.Type
	if ok {
		switch action {
		case "created":
			verb = "created"
			if subject == "comment" && e.EntityKind != "comment" {
				verb = "commented on"
			}
		case "updated":
			verb = "updated"
		case "status_changed":
			verb = "changed status of"
		case "assigned":
			verb = "reassigned"
		}
	}

	name := e.EntityName
	if name == "" {
		// Unnamed entities show a short ID prefix instead.
		name = e.EntityID
		if len(name) > 8 {
			name = name[:8]
		}
	}
	return fmt.Sprintf("%s %s %s %q", e.AgentID, verb, e.EntityKind, name)
}

// Log is a thread-safe, fixed-capacity event log. Once capacity is exceeded
// the oldest entry is evicted, so the log holds at most the capacity
// most-recent events. Uses a doubly-linked list to maintain append order for
// O(1) eviction.
type Log struct {
	mu       sync.RWMutex
	order    *list.List // Events in append order (oldest at front)
	capacity int
}

// New creates an event log retaining at most capacity events.
// A capacity of 0 or less falls back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		order:    list.New(),
		capacity: capacity,
	}
}

// Append adds an event to the tail, evicting the oldest entry when the log
// is full. The ID and timestamp are filled in when zero.
func (l *Log) Append(e Event) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.order.PushBack(e)
	if l.order.Len() > l.capacity {
		l.order.Remove(l.order.Front())
	}
}

// Recent returns up to limit events, newest first.
// If limit is 0 or negative, a default limit of 50 is used.
func (l *Log) Recent(limit int) []Event {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	events := make([]Event, 0, min(limit, l.order.Len()))
	for el := l.order.Back(); el != nil && len(events) < limit; el = el.Prev() {
		events = append(events, el.Value.(Event))
	}
	return events
}

// ByAgent returns up to limit events recorded for the given agent, newest first.
// If limit is 0 or negative, a default limit of 50 is used.
func (l *Log) ByAgent(agentID string, limit int) []Event {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var events []Event
	for el := l.order.Back(); el != nil && len(events) < limit; el = el.Prev() {
		e := el.Value.(Event)
		if e.AgentID == agentID {
			events = append(events, e)
		}
	}
	return events
}

// ByEntity returns all retained events referencing the exact (kind, id) pair,
// newest first.
func (l *Log) ByEntity(entityKind, entityID string) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var events []Event
	for el := l.order.Back(); el != nil; el = el.Prev() {
		e := el.Value.(Event)
		if e.EntityKind == entityKind && e.EntityID == entityID {
			events = append(events, e)
		}
	}
	return events
}

// Clear removes all retained events.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order.Init()
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.order.Len()
}
