// Package protocol defines the interfaces implemented by step runners.
package protocol

import (
	"context"
	"log/slog"

	"github.com/conveyor-ci/conveyor/pkg/models"
)

// Runner executes a single configured step inside a job. The returned map is
// recorded on the step result for diagnostics; a non-nil error fails the
// enclosing job.
type Runner interface {
	Execute(ctx context.Context, jobCtx models.JobContext, logger *slog.Logger) (map[string]any, error)
}

// RunnerFactory builds runners from step configuration. Schema describes the
// accepted configuration as a JSON schema; the registry validates step
// configuration against it before Create is called.
type RunnerFactory interface {
	ID() string
	Schema() map[string]any
	Create(config map[string]any) (Runner, error)
}
