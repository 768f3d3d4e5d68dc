// Package pipeline executes the jobs a trigger event schedules: every job of
// every matched workflow, as independent parallel units of sequential
// fail-fast steps.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/conveyor-ci/conveyor/pkg/eventbus"
	"github.com/conveyor-ci/conveyor/pkg/events"
	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/otelhelper"
	"github.com/conveyor-ci/conveyor/pkg/persistence"
	"github.com/conveyor-ci/conveyor/pkg/registry"
	"github.com/conveyor-ci/conveyor/pkg/runners/checkout"
	"github.com/conveyor-ci/conveyor/pkg/workflow"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config carries the optional collaborators of an Executor.
type Config struct {
	// WorkRoot is the base directory for job workspaces and logs. Empty
	// falls back to the system temp directory.
	WorkRoot string

	// WorkerID tags published lifecycle events.
	WorkerID string

	// Publisher receives job and pipeline lifecycle events. Nil disables
	// publishing.
	Publisher eventbus.EventPublisher

	// Tracer defaults to the globally registered provider.
	Tracer trace.Tracer

	// KeepWorkspaces retains job workspaces after the run, for debugging.
	KeepWorkspaces bool
}

type Executor struct {
	logger   *slog.Logger
	registry *registry.Registry
	store    persistence.Persistence
	loader   *workflow.Loader
	matcher  *workflow.Matcher
	config   Config

	mu sync.Mutex // guards run mutation and store writes across job goroutines
}

func NewExecutor(logger *slog.Logger, reg *registry.Registry, store persistence.Persistence, config Config) *Executor {
	if config.WorkRoot == "" {
		config.WorkRoot = os.TempDir()
	}

	if config.Tracer == nil {
		config.Tracer = otel.Tracer("conveyor/pipeline")
	}

	return &Executor{
		logger:   logger.With("module", "pipeline_executor"),
		registry: reg,
		store:    store,
		loader:   workflow.NewLoader(logger),
		matcher:  workflow.NewMatcher(logger),
		config:   config,
	}
}

// Execute evaluates the event against the repository's workflow definitions
// and runs every scheduled job. It returns the finished run, or (nil, nil)
// when no workflow matched. Job failures are reflected in the run status, not
// in the error: a failed job is a detected outcome, not an executor fault.
func (e *Executor) Execute(ctx context.Context, event models.TriggerEvent) (*models.PipelineRun, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.config.Tracer, "pipeline.execute",
		attribute.String(otelhelper.EventKindKey, string(event.Kind)),
		attribute.String(otelhelper.WorkerIDKey, e.config.WorkerID),
	)
	defer span.End()

	logger := e.logger.With("event_kind", event.Kind, "branch", event.Branch, "repository", event.Repository)
	logger.Info("Evaluating trigger event")

	runID := uuid.New().String()
	span.SetAttributes(attribute.String(otelhelper.RunIDKey, runID))

	scratch, err := os.MkdirTemp(e.config.WorkRoot, "conveyor-defs-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(scratch)
	}()

	workflows, err := e.loadDefinitions(ctx, event, scratch, logger)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	matched := e.matcher.Match(event, workflows)
	if len(matched) == 0 {
		logger.Info("No workflow matched, nothing scheduled")

		return nil, nil
	}

	run := e.newRun(runID, event, matched)

	err = e.store.CreateRun(ctx, run)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to persist run %s: %w", runID, err)
	}

	logger = logger.With("run_id", runID)
	logger.Info("Scheduling jobs", "jobs", len(run.Jobs))

	e.runJobs(ctx, run, matched, logger)

	if run.Failed() {
		otelhelper.SetError(span, fmt.Errorf("run %s failed", runID))
	}

	return run, nil
}

// newRun builds the pending run with one job run per scheduled job, exactly
// once each.
func (e *Executor) newRun(runID string, event models.TriggerEvent, matched []*models.Workflow) *models.PipelineRun {
	run := &models.PipelineRun{
		ID:        runID,
		Event:     event,
		Status:    models.RunStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	for _, wf := range matched {
		run.Workflows = append(run.Workflows, wf.Name)

		for _, job := range wf.Jobs {
			run.Jobs = append(run.Jobs, &models.JobRun{
				Workflow: wf.Name,
				Name:     job.Name,
				Status:   models.RunStatusPending,
			})
		}
	}

	return run
}

func (e *Executor) runJobs(ctx context.Context, run *models.PipelineRun, matched []*models.Workflow, logger *slog.Logger) {
	started := time.Now().UTC()

	e.mu.Lock()
	run.Status = models.RunStatusRunning
	run.StartedAt = &started
	e.saveRunLocked(ctx, run, logger)
	e.mu.Unlock()

	var wg sync.WaitGroup

	for _, wf := range matched {
		for _, job := range wf.Jobs {
			wg.Add(1)

			go func(wf *models.Workflow, job models.Job) {
				defer wg.Done()
				e.runJob(ctx, run, wf, job, logger)
			}(wf, job)
		}
	}

	wg.Wait()

	finished := time.Now().UTC()

	e.mu.Lock()
	run.FinishedAt = &finished

	if run.Failed() {
		run.Status = models.RunStatusFailed
	} else {
		run.Status = models.RunStatusSucceeded
	}

	e.saveRunLocked(ctx, run, logger)
	e.mu.Unlock()

	duration := finished.Sub(started)

	if run.Status == models.RunStatusFailed {
		failedJobs := 0

		for _, jobRun := range run.Jobs {
			if jobRun.Status == models.RunStatusFailed {
				failedJobs++
			}
		}

		e.publish(ctx, run.ID, events.PipelineFailed{
			BaseEvent:    e.newBaseEvent(events.PipelineFailedEvent, run.ID),
			JobsExecuted: len(run.Jobs),
			JobsFailed:   failedJobs,
			Duration:     duration,
		})
		logger.Warn("Pipeline run failed", "jobs_failed", failedJobs, "duration", duration)

		return
	}

	e.publish(ctx, run.ID, events.PipelineCompleted{
		BaseEvent:    e.newBaseEvent(events.PipelineCompletedEvent, run.ID),
		JobsExecuted: len(run.Jobs),
		Duration:     duration,
	})
	logger.Info("Pipeline run completed", "duration", duration)
}

// runJob executes one job in isolation: fresh workspace, sequential steps,
// fail-fast. A job failure is recorded and never touches sibling jobs.
func (e *Executor) runJob(ctx context.Context, run *models.PipelineRun, wf *models.Workflow, job models.Job, logger *slog.Logger) {
	ctx, span := otelhelper.StartSpan(ctx, e.config.Tracer, "pipeline.job",
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.WorkflowKey, wf.Name),
		attribute.String(otelhelper.JobKey, job.Name),
	)
	defer span.End()

	logger = logger.With("workflow", wf.Name, "job", job.Name)

	jobRun := run.JobRunByName(wf.Name, job.Name)
	startedAt := time.Now().UTC()

	e.mu.Lock()
	jobRun.Status = models.RunStatusRunning
	jobRun.StartedAt = &startedAt
	e.saveRunLocked(ctx, run, logger)
	e.mu.Unlock()

	e.publish(ctx, run.ID, events.JobStarted{
		BaseEvent: e.newBaseEvent(events.JobStartedEvent, run.ID),
		Workflow:  wf.Name,
		Job:       job.Name,
	})

	jobErr := e.executeSteps(ctx, run, wf, job, jobRun, logger)

	finishedAt := time.Now().UTC()
	durationMs := finishedAt.Sub(startedAt).Milliseconds()

	e.mu.Lock()
	jobRun.FinishedAt = &finishedAt

	if jobErr != nil {
		jobRun.Status = models.RunStatusFailed
		jobRun.Error = jobErr.Error()
	} else {
		jobRun.Status = models.RunStatusSucceeded
	}

	e.saveRunLocked(ctx, run, logger)
	e.mu.Unlock()

	if jobErr != nil {
		otelhelper.SetError(span, jobErr)
		e.publish(ctx, run.ID, events.JobFailed{
			BaseEvent:  e.newBaseEvent(events.JobFailedEvent, run.ID),
			Workflow:   wf.Name,
			Job:        job.Name,
			Error:      jobErr.Error(),
			DurationMs: durationMs,
		})
		logger.Warn("Job failed", "error", jobErr)

		return
	}

	e.publish(ctx, run.ID, events.JobFinished{
		BaseEvent:  e.newBaseEvent(events.JobFinishedEvent, run.ID),
		Workflow:   wf.Name,
		Job:        job.Name,
		DurationMs: durationMs,
	})
	logger.Info("Job finished")
}

func (e *Executor) executeSteps(ctx context.Context, run *models.PipelineRun, wf *models.Workflow, job models.Job, jobRun *models.JobRun, logger *slog.Logger) error {
	workspace, err := os.MkdirTemp(e.config.WorkRoot, "conveyor-job-")
	if err != nil {
		return fmt.Errorf("failed to create job workspace: %w", err)
	}

	if !e.config.KeepWorkspaces {
		defer func() {
			_ = os.RemoveAll(workspace)
		}()
	}

	jobLog, logPath, err := e.openJobLog(run.ID, wf.Name, job.Name)
	if err != nil {
		return err
	}
	defer func() {
		_ = jobLog.Close()
	}()

	e.mu.Lock()
	jobRun.LogPath = logPath
	e.mu.Unlock()

	jobCtx := models.JobContext{
		RunID:     run.ID,
		Workflow:  wf.Name,
		Job:       job.Name,
		Workspace: workspace,
		Event:     run.Event,
		Env:       wf.Env,
		Log:       jobLog,
	}

	for _, step := range job.Steps {
		stepName := step.Name
		if stepName == "" {
			stepName = step.Uses
		}

		stepStart := time.Now()

		err := e.executeStep(ctx, jobCtx, step, logger.With("step", stepName))

		result := models.StepResult{
			Name:       stepName,
			Uses:       step.Uses,
			Status:     models.RunStatusSucceeded,
			DurationMs: time.Since(stepStart).Milliseconds(),
		}

		if err != nil {
			result.Status = models.RunStatusFailed
			result.Error = err.Error()
		}

		e.mu.Lock()
		jobRun.Steps = append(jobRun.Steps, result)
		e.mu.Unlock()

		// Fail-fast: the first failing step aborts the remaining steps
		// of this job.
		if err != nil {
			return fmt.Errorf("step %s failed: %w", stepName, err)
		}
	}

	return nil
}

func (e *Executor) executeStep(ctx context.Context, jobCtx models.JobContext, step models.Step, logger *slog.Logger) error {
	runner, err := e.registry.CreateRunner(step.Uses, step.With)
	if err != nil {
		return err
	}

	stepCtx := jobCtx
	stepCtx.Env = jobCtx.MergedEnv(step.Env)

	_, err = runner.Execute(ctx, stepCtx, logger)

	return err
}

// loadDefinitions resolves the repository's workflow files. A plain local
// directory is read in place; anything else is checked out into scratch
// first.
func (e *Executor) loadDefinitions(ctx context.Context, event models.TriggerEvent, scratch string, logger *slog.Logger) ([]*models.Workflow, error) {
	root := event.Repository

	if !checkout.IsPlainWorkTree(root) {
		defsDir := filepath.Join(scratch, "definitions")

		err := os.MkdirAll(defsDir, 0o755)
		if err != nil {
			return nil, fmt.Errorf("failed to create definitions directory: %w", err)
		}

		_, err = checkout.NewRunner(nil).Execute(ctx, models.JobContext{
			Workspace: defsDir,
			Event:     event,
			Log:       io.Discard,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to check out workflow definitions: %w", err)
		}

		root = defsDir
	}

	return e.loader.LoadRepository(root)
}

func (e *Executor) openJobLog(runID, workflowName, jobName string) (*os.File, string, error) {
	logDir := filepath.Join(e.config.WorkRoot, "logs", runID)

	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, workflowName+"-"+jobName+".log")

	jobLog, err := os.Create(logPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create job log: %w", err)
	}

	return jobLog, logPath, nil
}

// saveRunLocked persists the run; callers hold e.mu. Storage failures are
// logged, not propagated: the in-memory run stays authoritative for the rest
// of the execution.
func (e *Executor) saveRunLocked(ctx context.Context, run *models.PipelineRun, logger *slog.Logger) {
	err := e.store.SaveRun(ctx, run)
	if err != nil {
		logger.Error("Failed to persist run", "error", err)
	}
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.config.Publisher == nil {
		return
	}

	err := e.config.Publisher.Publish(ctx, key, event)
	if err != nil {
		e.logger.Error("Failed to publish event", "error", err, "event_type", event.GetType())
	}
}

func (e *Executor) newBaseEvent(eventType events.EventType, runID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, runID)
	base.WorkerID = e.config.WorkerID

	return base
}
