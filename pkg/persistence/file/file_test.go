package file

import (
	"context"
	"testing"
	"time"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun(status models.RunStatus, createdAt time.Time) *models.PipelineRun {
	return &models.PipelineRun{
		ID: uuid.New().String(),
		Event: models.TriggerEvent{
			ID:         uuid.New().String(),
			Kind:       models.EventPush,
			Repository: "https://example.com/acme/widget.git",
			Branch:     "main",
			ReceivedAt: createdAt,
		},
		Workflows: []string{"build"},
		Status:    status,
		Jobs: []*models.JobRun{
			{Workflow: "build", Name: "build", Status: status},
		},
		CreatedAt: createdAt,
	}
}

func TestCreateAndGetRun(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	run := testRun(models.RunStatusPending, time.Now().UTC())

	require.NoError(t, store.CreateRun(ctx, run))

	got, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Event.Repository, got.Event.Repository)
	require.Len(t, got.Jobs, 1)
	assert.Equal(t, "build", got.Jobs[0].Name)
}

func TestCreateRun_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	run := testRun(models.RunStatusPending, time.Now().UTC())

	require.NoError(t, store.CreateRun(ctx, run))

	err := store.CreateRun(ctx, run)
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrRunAlreadyExists)
}

func TestSaveRun_UpdatesExisting(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	run := testRun(models.RunStatusPending, time.Now().UTC())
	require.NoError(t, store.CreateRun(ctx, run))

	run.Status = models.RunStatusFailed
	run.Jobs[0].Status = models.RunStatusFailed
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
}

func TestRunByID_NotFound(t *testing.T) {
	store := NewPersistence(t.TempDir())

	_, err := store.RunByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsRunNotFound(err))
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	now := time.Now().UTC()
	oldest := testRun(models.RunStatusSucceeded, now.Add(-2*time.Hour))
	middle := testRun(models.RunStatusFailed, now.Add(-1*time.Hour))
	newest := testRun(models.RunStatusSucceeded, now)

	for _, run := range []*models.PipelineRun{oldest, middle, newest} {
		require.NoError(t, store.CreateRun(ctx, run))
	}

	runs, err := store.ListRuns(ctx, persistence.ListRunsOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, newest.ID, runs[0].ID)
	assert.Equal(t, oldest.ID, runs[2].ID)
}

func TestListRuns_StatusFilter(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	require.NoError(t, store.CreateRun(ctx, testRun(models.RunStatusSucceeded, time.Now().UTC())))
	require.NoError(t, store.CreateRun(ctx, testRun(models.RunStatusFailed, time.Now().UTC())))

	failed := models.RunStatusFailed

	runs, err := store.ListRuns(ctx, persistence.ListRunsOptions{Status: &failed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusFailed, runs[0].Status)
}

func TestListRuns_Pagination(t *testing.T) {
	ctx := context.Background()
	store := NewPersistence(t.TempDir())

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.CreateRun(ctx, testRun(models.RunStatusSucceeded, now.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := store.ListRuns(ctx, persistence.ListRunsOptions{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = store.ListRuns(ctx, persistence.ListRunsOptions{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	runs, err = store.ListRuns(ctx, persistence.ListRunsOptions{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNewPersistence_StripsFileScheme(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewPersistence("file://" + dir)

	require.NoError(t, store.CreateRun(ctx, testRun(models.RunStatusPending, time.Now().UTC())))
	assert.NoError(t, store.HealthCheck(ctx))
}
