// Package postgresql provides the PostgreSQL run store for multi-node
// deployments.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/persistence"
	"github.com/conveyor-ci/conveyor/pkg/persistence/sqlbase"

	_ "github.com/lib/pq" // postgres driver
)

type Persistence struct {
	db      *sql.DB
	logger  *slog.Logger
	runRepo *RunRepository
}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:      database,
		logger:  logger,
		runRepo: NewRunRepository(database, logger),
	}, nil
}

func (p *Persistence) CreateRun(ctx context.Context, run *models.PipelineRun) error {
	return p.runRepo.Create(ctx, run)
}

func (p *Persistence) SaveRun(ctx context.Context, run *models.PipelineRun) error {
	return p.runRepo.Save(ctx, run)
}

func (p *Persistence) RunByID(ctx context.Context, id string) (*models.PipelineRun, error) {
	return p.runRepo.GetByID(ctx, id)
}

func (p *Persistence) ListRuns(ctx context.Context, opts persistence.ListRunsOptions) ([]*models.PipelineRun, error) {
	return p.runRepo.List(ctx, opts)
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

var _ persistence.Persistence = (*Persistence)(nil)
