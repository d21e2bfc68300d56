package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ProjectCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project := &Project{Name: "Counted"}
	require.NoError(t, store.CreateProject(ctx, project))

	// 2 PRDs, 3 stories each, 2 tasks per story
	for i := 0; i < 2; i++ {
		prd := &PRD{ProjectID: project.ID, Title: fmt.Sprintf("prd-%d", i)}
		require.NoError(t, store.CreatePRD(ctx, prd))
		for j := 0; j < 3; j++ {
			story := &Story{PRDID: prd.ID, Title: fmt.Sprintf("story-%d-%d", i, j)}
			require.NoError(t, store.CreateStory(ctx, story))
			for k := 0; k < 2; k++ {
				require.NoError(t, store.CreateTask(ctx, &Task{
					StoryID:    story.ID,
					Title:      fmt.Sprintf("task-%d-%d-%d", i, j, k),
					AssignedTo: "agent-1",
				}))
			}
		}
	}

	counts, err := store.ProjectCounts(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.PRDs)
	assert.Equal(t, 6, counts.Stories)
	assert.Equal(t, 12, counts.Tasks)
}

func TestStore_ProjectCounts_Empty(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project := &Project{Name: "Empty"}
	require.NoError(t, store.CreateProject(ctx, project))

	counts, err := store.ProjectCounts(ctx, project.ID)
	require.NoError(t, err)
	assert.Zero(t, counts.PRDs)
	assert.Zero(t, counts.Stories)
	assert.Zero(t, counts.Tasks)
}

func TestStore_ProjectCounts_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.ProjectCounts(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_StoryTaskStatusCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, _, story, _ := makeTree(t, store)

	statuses := []string{
		TaskStatusDone, TaskStatusDone, TaskStatusDone,
		TaskStatusInProgress, TaskStatusBlocked,
		TaskStatusTodo,
	}
	for i, status := range statuses {
		require.NoError(t, store.CreateTask(ctx, &Task{
			StoryID:    story.ID,
			Title:      fmt.Sprintf("t-%d", i),
			AssignedTo: "agent-1",
			Status:     status,
		}))
	}

	counts, err := store.StoryTaskStatusCounts(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[TaskStatusDone])
	assert.Equal(t, 1, counts[TaskStatusInProgress])
	assert.Equal(t, 1, counts[TaskStatusBlocked])
	// makeTree added one more todo task
	assert.Equal(t, 2, counts[TaskStatusTodo])
}

func TestStore_ProjectTaskAgentCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project, _, story, _ := makeTree(t, store)

	done := TaskStatusDone
	require.NoError(t, store.CreateTask(ctx, &Task{StoryID: story.ID, Title: "a", AssignedTo: "alice", Status: done}))
	require.NoError(t, store.CreateTask(ctx, &Task{StoryID: story.ID, Title: "b", AssignedTo: "alice"}))
	require.NoError(t, store.CreateTask(ctx, &Task{StoryID: story.ID, Title: "c", AssignedTo: "bob"}))

	counts, err := store.ProjectTaskAgentCounts(ctx, project.ID)
	require.NoError(t, err)
	// Counts include every status
	assert.Equal(t, 2, counts["alice"])
	assert.Equal(t, 1, counts["bob"])
	// makeTree's task belongs to agent-2
	assert.Equal(t, 1, counts["agent-2"])
}

func TestStore_ProjectStatusCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project, prd, _, _ := makeTree(t, store)

	doing := StoryStatusInProgress
	require.NoError(t, store.CreateStory(ctx, &Story{PRDID: prd.ID, Title: "s2", Status: doing}))

	storyCounts, err := store.ProjectStoryStatusCounts(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, storyCounts[StoryStatusTodo])
	assert.Equal(t, 1, storyCounts[StoryStatusInProgress])

	taskCounts, err := store.ProjectTaskStatusCounts(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, taskCounts[TaskStatusTodo])
}

func TestStore_PRDCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, prd, story, _ := makeTree(t, store)

	require.NoError(t, store.CreateTask(ctx, &Task{StoryID: story.ID, Title: "extra", AssignedTo: "x"}))

	counts, err := store.PRDCounts(ctx, prd.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Stories)
	assert.Equal(t, 2, counts.Tasks)
}
