//go:build integration
// +build integration

package postgresql

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

func setupTestDB(t *testing.T) (*Persistence, context.Context) {
	t.Helper()

	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error
		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("conveyor_test"),
			postgres.WithUsername("conveyor"),
			postgres.WithPassword("conveyor"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	return store, ctx
}

func testRun(status models.RunStatus) *models.PipelineRun {
	now := time.Now().UTC().Truncate(time.Millisecond)

	return &models.PipelineRun{
		ID: uuid.New().String(),
		Event: models.TriggerEvent{
			ID:         uuid.New().String(),
			Kind:       models.EventPush,
			Repository: "https://example.com/acme/widget.git",
			Branch:     "main",
			ReceivedAt: now,
		},
		Workflows: []string{"build", "fmt"},
		Status:    status,
		Jobs: []*models.JobRun{
			{Workflow: "build", Name: "build", Status: status},
			{Workflow: "fmt", Name: "fmt", Status: status},
		},
		CreatedAt: now,
	}
}

func TestPostgresPersistence_CreateAndGet(t *testing.T) {
	store, ctx := setupTestDB(t)

	run := testRun(models.RunStatusPending)
	require.NoError(t, store.CreateRun(ctx, run))

	got, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Event.Repository, got.Event.Repository)
	assert.Equal(t, []string{"build", "fmt"}, got.Workflows)
	require.Len(t, got.Jobs, 2)
}

func TestPostgresPersistence_DuplicateCreate(t *testing.T) {
	store, ctx := setupTestDB(t)

	run := testRun(models.RunStatusPending)
	require.NoError(t, store.CreateRun(ctx, run))

	err := store.CreateRun(ctx, run)
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrRunAlreadyExists)
}

func TestPostgresPersistence_SaveUpdates(t *testing.T) {
	store, ctx := setupTestDB(t)

	run := testRun(models.RunStatusRunning)
	require.NoError(t, store.CreateRun(ctx, run))

	finished := time.Now().UTC().Truncate(time.Millisecond)
	run.Status = models.RunStatusFailed
	run.FinishedAt = &finished
	run.Jobs[0].Status = models.RunStatusFailed
	run.Jobs[0].Error = "step build failed"

	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.RunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, "step build failed", got.Jobs[0].Error)
}

func TestPostgresPersistence_NotFound(t *testing.T) {
	store, ctx := setupTestDB(t)

	_, err := store.RunByID(ctx, uuid.New().String())
	require.Error(t, err)
	assert.True(t, persistence.IsRunNotFound(err))
}

func TestPostgresPersistence_ListWithStatusFilter(t *testing.T) {
	store, ctx := setupTestDB(t)

	require.NoError(t, store.CreateRun(ctx, testRun(models.RunStatusSucceeded)))
	failed := testRun(models.RunStatusFailed)
	require.NoError(t, store.CreateRun(ctx, failed))

	status := models.RunStatusFailed

	runs, err := store.ListRuns(ctx, persistence.ListRunsOptions{Status: &status})
	require.NoError(t, err)
	require.NotEmpty(t, runs)

	for _, run := range runs {
		assert.Equal(t, models.RunStatusFailed, run.Status)
	}
}

func TestPostgresPersistence_HealthCheck(t *testing.T) {
	store, ctx := setupTestDB(t)

	assert.NoError(t, store.HealthCheck(ctx))
}
