package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/conveyor-ci/conveyor/pkg/dedup"
	"github.com/conveyor-ci/conveyor/pkg/eventbus"
	"github.com/conveyor-ci/conveyor/pkg/events"
	"github.com/conveyor-ci/conveyor/pkg/otelhelper"
	"github.com/conveyor-ci/conveyor/pkg/persistence"
	"github.com/conveyor-ci/conveyor/pkg/pipeline"
	"github.com/conveyor-ci/conveyor/pkg/registry"
	"go.opentelemetry.io/otel/trace"
)

// Worker consumes pipeline.triggered events from the bus and executes the
// scheduled pipelines.
type Worker struct {
	id       string
	logger   *slog.Logger
	eventBus eventbus.EventBus
	guard    dedup.Guard
	executor *pipeline.Executor
}

func NewWorker(
	id string,
	workRoot string,
	logger *slog.Logger,
	reg *registry.Registry,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	guard dedup.Guard,
) *Worker {
	var tracer trace.Tracer

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		t, err := otelhelper.NewTracer(context.Background(), "conveyor-worker")
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			tracer = t
		}
	}

	executor := pipeline.NewExecutor(logger, reg, store, pipeline.Config{
		WorkRoot:  workRoot,
		WorkerID:  id,
		Publisher: eventBus,
		Tracer:    tracer,
	})

	return &Worker{
		id:       id,
		logger:   logger,
		eventBus: eventBus,
		guard:    guard,
		executor: executor,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := w.eventBus.Handle(events.PipelineTriggeredEvent, w.handlePipelineTriggered)
	if err != nil {
		return fmt.Errorf("failed to register handler: %w", err)
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	w.logger.InfoContext(ctx, "Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.Info("Shutting down worker")
	case <-ctx.Done():
	}

	return nil
}

func (w *Worker) handlePipelineTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.PipelineTriggered)
	if !ok {
		w.logger.Error("Invalid event payload for pipeline.triggered")

		return nil
	}

	// Forges retry webhook delivery; with several workers on one consumer
	// group duplicates are rare but possible across restarts.
	fresh, err := w.guard.FirstSeen(ctx, triggered.Event.ID)
	if err != nil {
		return err
	}

	if !fresh {
		return nil
	}

	logger := w.logger.With("event_id", triggered.Event.ID, "repository", triggered.Event.Repository)
	logger.InfoContext(ctx, "Processing trigger event")

	run, err := w.executor.Execute(ctx, triggered.Event)
	if err != nil {
		logger.ErrorContext(ctx, "Pipeline execution failed", "error", err)

		return err
	}

	if run == nil {
		logger.InfoContext(ctx, "No workflow matched event")

		return nil
	}

	logger.InfoContext(ctx, "Pipeline run finished", "run_id", run.ID, "status", run.Status)

	return nil
}
