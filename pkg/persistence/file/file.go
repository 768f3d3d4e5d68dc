// Package file provides the JSON-file run store used by single-node
// deployments and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/persistence"
)

// Persistence stores each pipeline run as one JSON document under
// <root>/runs/.
type Persistence struct {
	root string
}

func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

func (p *Persistence) runsDir() string {
	return filepath.Join(p.root, "runs")
}

func (p *Persistence) runPath(id string) string {
	return filepath.Join(p.runsDir(), id+".json")
}

func (p *Persistence) CreateRun(ctx context.Context, run *models.PipelineRun) error {
	if _, err := os.Stat(p.runPath(run.ID)); err == nil {
		return persistence.NewRunError("Create", run.ID, persistence.ErrRunAlreadyExists)
	}

	return p.SaveRun(ctx, run)
}

func (p *Persistence) SaveRun(_ context.Context, run *models.PipelineRun) error {
	err := os.MkdirAll(p.runsDir(), 0o755)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	err = os.WriteFile(p.runPath(run.ID), data, 0o644)
	if err != nil {
		return persistence.NewRunError("Save", run.ID, err)
	}

	return nil
}

func (p *Persistence) RunByID(_ context.Context, id string) (*models.PipelineRun, error) {
	data, err := os.ReadFile(p.runPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewRunError("GetByID", id, err)
	}

	var run models.PipelineRun

	err = json.Unmarshal(data, &run)
	if err != nil {
		return nil, persistence.NewRunError("GetByID", id, fmt.Errorf("corrupt run document: %w", err))
	}

	return &run, nil
}

func (p *Persistence) ListRuns(ctx context.Context, opts persistence.ListRunsOptions) ([]*models.PipelineRun, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	entries, err := os.ReadDir(p.runsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.PipelineRun{}, nil
		}

		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	all := make([]*models.PipelineRun, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		run, err := p.RunByID(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}

		if opts.Status != nil && run.Status != *opts.Status {
			continue
		}

		all = append(all, run)
	}

	// Newest first.
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if opts.Offset >= len(all) {
		return []*models.PipelineRun{}, nil
	}

	end := opts.Offset + opts.Limit
	if end > len(all) {
		end = len(all)
	}

	return all[opts.Offset:end], nil
}

// HealthCheck verifies the storage root exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

var _ persistence.Persistence = (*Persistence)(nil)
