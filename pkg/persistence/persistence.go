// Package persistence provides the storage abstraction for pipeline runs.
package persistence

import (
	"context"

	"github.com/conveyor-ci/conveyor/pkg/models"
)

// ListRunsOptions filters and paginates run listings.
type ListRunsOptions struct {
	Status *models.RunStatus
	Limit  int
	Offset int
}

type Persistence interface {
	CreateRun(ctx context.Context, run *models.PipelineRun) error
	SaveRun(ctx context.Context, run *models.PipelineRun) error
	RunByID(ctx context.Context, id string) (*models.PipelineRun, error)
	ListRuns(ctx context.Context, opts ListRunsOptions) ([]*models.PipelineRun, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
