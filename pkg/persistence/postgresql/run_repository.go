package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/persistence"
	"github.com/lib/pq"
)

// RunRepository persists pipeline runs. Event and job documents are stored as
// JSONB; listing filters happen in SQL.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

func (r *RunRepository) Create(ctx context.Context, run *models.PipelineRun) error {
	eventJSON, workflowsJSON, jobsJSON, err := marshalRun(run)
	if err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, event, workflows, status, jobs, created_at, started_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID, eventJSON, workflowsJSON, run.Status, jobsJSON,
		run.CreatedAt, run.StartedAt, run.FinishedAt, run.Error)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return persistence.NewRunError("Create", run.ID, persistence.ErrRunAlreadyExists)
		}

		return persistence.NewRunError("Create", run.ID, err)
	}

	return nil
}

func (r *RunRepository) Save(ctx context.Context, run *models.PipelineRun) error {
	eventJSON, workflowsJSON, jobsJSON, err := marshalRun(run)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, event, workflows, status, jobs, created_at, started_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			jobs = EXCLUDED.jobs,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			error = EXCLUDED.error
	`, run.ID, eventJSON, workflowsJSON, run.Status, jobsJSON,
		run.CreatedAt, run.StartedAt, run.FinishedAt, run.Error)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.PipelineRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, event, workflows, status, jobs, created_at, started_at, finished_at, error
		FROM pipeline_runs WHERE id = $1
	`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewRunError("GetByID", id, err)
	}

	return run, nil
}

func (r *RunRepository) List(ctx context.Context, opts persistence.ListRunsOptions) ([]*models.PipelineRun, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	query := `
		SELECT id, event, workflows, status, jobs, created_at, started_at, finished_at, error
		FROM pipeline_runs
	`
	args := []any{}

	if opts.Status != nil {
		query += " WHERE status = $1"
		args = append(args, *opts.Status)
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []*models.PipelineRun

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*models.PipelineRun, error) {
	var (
		run           models.PipelineRun
		eventJSON     []byte
		workflowsJSON []byte
		jobsJSON      []byte
	)

	err := row.Scan(&run.ID, &eventJSON, &workflowsJSON, &run.Status, &jobsJSON,
		&run.CreatedAt, &run.StartedAt, &run.FinishedAt, &run.Error)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(eventJSON, &run.Event); err != nil {
		return nil, fmt.Errorf("corrupt event document: %w", err)
	}

	if err := json.Unmarshal(workflowsJSON, &run.Workflows); err != nil {
		return nil, fmt.Errorf("corrupt workflows document: %w", err)
	}

	if err := json.Unmarshal(jobsJSON, &run.Jobs); err != nil {
		return nil, fmt.Errorf("corrupt jobs document: %w", err)
	}

	return &run, nil
}

func marshalRun(run *models.PipelineRun) (eventJSON, workflowsJSON, jobsJSON []byte, err error) {
	eventJSON, err = json.Marshal(run.Event)
	if err != nil {
		return nil, nil, nil, err
	}

	workflows := run.Workflows
	if workflows == nil {
		workflows = []string{}
	}

	workflowsJSON, err = json.Marshal(workflows)
	if err != nil {
		return nil, nil, nil, err
	}

	jobs := run.Jobs
	if jobs == nil {
		jobs = []*models.JobRun{}
	}

	jobsJSON, err = json.Marshal(jobs)
	if err != nil {
		return nil, nil, nil, err
	}

	return eventJSON, workflowsJSON, jobsJSON, nil
}
