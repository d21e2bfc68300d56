package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreatePRD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project := &Project{Name: "Apollo"}
	require.NoError(t, store.CreateProject(ctx, project))

	prd := &PRD{
		ProjectID:   project.ID,
		Title:       "Telemetry",
		Description: "Stream vehicle telemetry",
		CreatedBy:   "agent-1",
	}
	require.NoError(t, store.CreatePRD(ctx, prd))

	retrieved, err := store.GetPRD(ctx, prd.ID)
	require.NoError(t, err)
	assert.Equal(t, "Telemetry", retrieved.Title)
	assert.Equal(t, PRDStatusDraft, retrieved.Status, "status defaults to draft")
	assert.Equal(t, "agent-1", retrieved.CreatedBy)
	assert.Equal(t, retrieved.CreatedAt, retrieved.UpdatedAt)
}

func TestStore_CreatePRD_MissingProject(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.CreatePRD(ctx, &PRD{ProjectID: "nonexistent", Title: "Orphan"})
	require.Error(t, err)

	var ce *ConstraintError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, KindProject, ce.Kind)
	assert.Equal(t, "nonexistent", ce.ID)

	// Nothing was persisted
	prds, listErr := store.ListPRDs(ctx, PRDFilter{})
	require.NoError(t, listErr)
	assert.Empty(t, prds)
}

func TestStore_CreatePRD_InvalidStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project := &Project{Name: "Apollo"}
	require.NoError(t, store.CreateProject(ctx, project))

	err := store.CreatePRD(ctx, &PRD{ProjectID: project.ID, Title: "Bad", Status: "shipped"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestStore_CreatePRD_DefaultsCreatedBy(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project := &Project{Name: "Apollo"}
	require.NoError(t, store.CreateProject(ctx, project))

	prd := &PRD{ProjectID: project.ID, Title: "No author"}
	require.NoError(t, store.CreatePRD(ctx, prd))

	retrieved, err := store.GetPRD(ctx, prd.ID)
	require.NoError(t, err)
	assert.Equal(t, "system", retrieved.CreatedBy)
}

func TestStore_UpdatePRD_Status(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project := &Project{Name: "Apollo"}
	require.NoError(t, store.CreateProject(ctx, project))
	prd := &PRD{ProjectID: project.ID, Title: "Telemetry"}
	require.NoError(t, store.CreatePRD(ctx, prd))

	status := PRDStatusActive
	updated, err := store.UpdatePRD(ctx, prd.ID, PRDPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, PRDStatusActive, updated.Status)
	assert.Equal(t, "Telemetry", updated.Title, "title untouched")

	bad := "launched"
	_, err = store.UpdatePRD(ctx, prd.ID, PRDPatch{Status: &bad})
	assert.True(t, IsValidation(err))
}

func TestStore_ListPRDs_Filters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	p1 := &Project{Name: "One"}
	p2 := &Project{Name: "Two"}
	require.NoError(t, store.CreateProject(ctx, p1))
	require.NoError(t, store.CreateProject(ctx, p2))

	active := PRDStatusActive
	require.NoError(t, store.CreatePRD(ctx, &PRD{ProjectID: p1.ID, Title: "a", Status: active}))
	require.NoError(t, store.CreatePRD(ctx, &PRD{ProjectID: p1.ID, Title: "b"}))
	require.NoError(t, store.CreatePRD(ctx, &PRD{ProjectID: p2.ID, Title: "c", Status: active}))

	byProject, err := store.ListPRDs(ctx, PRDFilter{ProjectID: p1.ID})
	require.NoError(t, err)
	assert.Len(t, byProject, 2)

	byStatus, err := store.ListPRDs(ctx, PRDFilter{Status: active})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	both, err := store.ListPRDs(ctx, PRDFilter{ProjectID: p1.ID, Status: active})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "a", both[0].Title)
}

func TestStore_ListPRDs_FilterByCreator(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	project := &Project{Name: "Apollo"}
	require.NoError(t, store.CreateProject(ctx, project))

	require.NoError(t, store.CreatePRD(ctx, &PRD{ProjectID: project.ID, Title: "a", CreatedBy: "agent-1"}))
	require.NoError(t, store.CreatePRD(ctx, &PRD{ProjectID: project.ID, Title: "b", CreatedBy: "agent-2"}))
	require.NoError(t, store.CreatePRD(ctx, &PRD{ProjectID: project.ID, Title: "c", CreatedBy: "agent-1"}))

	mine, err := store.ListPRDs(ctx, PRDFilter{CreatedBy: "agent-1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, prd := range mine {
		assert.Equal(t, "agent-1", prd.CreatedBy)
	}
}
