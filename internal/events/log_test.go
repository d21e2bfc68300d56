// ABOUTME: Tests for the bounded event log.
// ABOUTME: Validates ring-buffer eviction, newest-first queries, filtering, and concurrency safety.

package events

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_Append_FillsDefaults(t *testing.T) {
	log := New(10)

	log.Append(Event{Type: TypeProjectCreated, AgentID: "agent-1", EntityKind: "project", EntityID: "p1"})

	events := log.Recent(1)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestLog_Recent_NewestFirst(t *testing.T) {
	log := New(10)

	for i := 0; i < 5; i++ {
		log.Append(Event{
			Type:       TypeTaskCreated,
			AgentID:    "agent-1",
			EntityKind: "task",
			EntityID:   fmt.Sprintf("t-%d", i),
		})
	}

	events := log.Recent(3)
	require.Len(t, events, 3)
	assert.Equal(t, "t-4", events[0].EntityID)
	assert.Equal(t, "t-3", events[1].EntityID)
	assert.Equal(t, "t-2", events[2].EntityID)
}

func TestLog_Eviction(t *testing.T) {
	log := New(5)

	// Push capacity + 3 events; only the 5 most recent survive
	for i := 0; i < 8; i++ {
		log.Append(Event{
			Type:       TypeStoryCreated,
			EntityKind: "story",
			EntityID:   fmt.Sprintf("s-%d", i),
		})
	}

	assert.Equal(t, 5, log.Len())

	events := log.Recent(100)
	require.Len(t, events, 5)
	assert.Equal(t, "s-7", events[0].EntityID)
	assert.Equal(t, "s-3", events[4].EntityID)
}

func TestLog_ByAgent(t *testing.T) {
	log := New(10)

	log.Append(Event{Type: TypeTaskCreated, AgentID: "alice", EntityKind: "task", EntityID: "t1"})
	log.Append(Event{Type: TypeTaskCreated, AgentID: "bob", EntityKind: "task", EntityID: "t2"})
	log.Append(Event{Type: TypeStoryCreated, AgentID: "alice", EntityKind: "story", EntityID: "s1"})

	events := log.ByAgent("alice", 10)
	require.Len(t, events, 2)
	assert.Equal(t, "s1", events[0].EntityID)
	assert.Equal(t, "t1", events[1].EntityID)

	assert.Empty(t, log.ByAgent("carol", 10))
}

func TestLog_ByEntity(t *testing.T) {
	log := New(10)

	log.Append(Event{Type: TypeTaskCreated, AgentID: "alice", EntityKind: "task", EntityID: "t1"})
	log.Append(Event{Type: TypeCommentCreated, AgentID: "bob", EntityKind: "task", EntityID: "t1"})
	log.Append(Event{Type: TypeTaskCreated, AgentID: "alice", EntityKind: "task", EntityID: "t2"})

	events := log.ByEntity("task", "t1")
	require.Len(t, events, 2)
	assert.Equal(t, TypeCommentCreated, events[0].Type)
	assert.Equal(t, TypeTaskCreated, events[1].Type)
}

func TestLog_Clear(t *testing.T) {
	log := New(10)

	log.Append(Event{Type: TypeProjectCreated, EntityKind: "project", EntityID: "p1"})
	require.Equal(t, 1, log.Len())

	log.Clear()
	assert.Equal(t, 0, log.Len())
	assert.Empty(t, log.Recent(10))
}

func TestLog_DefaultCapacity(t *testing.T) {
	log := New(0)

	for i := 0; i < DefaultCapacity+10; i++ {
		log.Append(Event{Type: TypeTaskCreated, EntityKind: "task", EntityID: fmt.Sprintf("t-%d", i)})
	}

	assert.Equal(t, DefaultCapacity, log.Len())
}

func TestLog_Concurrent(t *testing.T) {
	log := New(10000)

	const numGoroutines = 50
	const eventsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				log.Append(Event{
					Type:       TypeTaskCreated,
					AgentID:    fmt.Sprintf("agent-%d", id),
					EntityKind: "task",
					EntityID:   fmt.Sprintf("t-%d-%d", id, j),
				})
				log.Recent(5)
			}
		}(i)
	}
	wg.Wait()

	// No appends were lost
	assert.Equal(t, numGoroutines*eventsPerGoroutine, log.Len())
}

func TestLog_ConcurrentEviction(t *testing.T) {
	log := New(100)

	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				log.Append(Event{Type: TypeTaskCreated, EntityKind: "task", EntityID: fmt.Sprintf("t-%d-%d", id, j)})
			}
		}(i)
	}
	wg.Wait()

	// Retention never exceeds capacity under concurrent load
	assert.Equal(t, 100, log.Len())
}

func TestEvent_DisplayString(t *testing.T) {
	created := Event{
		Type:       TypeTaskCreated,
		AgentID:    "agent-7",
		EntityKind: "task",
		EntityID:   "t1",
		EntityName: "Wire up endpoint",
		Timestamp:  time.Now(),
	}
	assert.Equal(t, `agent-7 created task "Wire up endpoint"`, created.DisplayString())

	comment := Event{
		Type:       TypeCommentCreated,
		AgentID:    "agent-2",
		EntityKind: "story",
		EntityID:   "s1",
		EntityName: "Render dashboard",
	}
	assert.Equal(t, `agent-2 commented on story "Render dashboard"`, comment.DisplayString())

	// Falls back to the entity ID when no name was recorded
	unnamed := Event{Type: TypePRDCreated, AgentID: "sys", EntityKind: "prd", EntityID: "p9"}
	assert.Equal(t, `sys created prd "p9"`, unnamed.DisplayString())

	// Long IDs show only the leading prefix
	uuid := Event{Type: TypeStoryCreated, AgentID: "sys", EntityKind: "story", EntityID: "0f8fad5b-d9cb-469f-a165-70867728950e"}
	assert.Equal(t, `sys created story "0f8fad5b"`, uuid.DisplayString())
}
