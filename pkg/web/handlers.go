// Package web provides the HTTP handlers of the conveyor server: webhook
// ingestion and run inspection.
package web

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/conveyor-ci/conveyor/pkg/dedup"
	"github.com/conveyor-ci/conveyor/pkg/eventbus"
	"github.com/conveyor-ci/conveyor/pkg/events"
	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type Handlers struct {
	logger    *slog.Logger
	store     persistence.Persistence
	publisher eventbus.EventPublisher
	guard     dedup.Guard
	validator *validator.Validate
}

func NewHandlers(
	logger *slog.Logger,
	store persistence.Persistence,
	publisher eventbus.EventPublisher,
	guard dedup.Guard,
	validate *validator.Validate,
) *Handlers {
	return &Handlers{
		logger:    logger.With("module", "web"),
		store:     store,
		publisher: publisher,
		guard:     guard,
		validator: validate,
	}
}

// PostPushEvent accepts a push notification and schedules pipeline
// evaluation. Whether any workflow actually matches is decided by the worker;
// a push that schedules nothing is still a valid request.
func (h *Handlers) PostPushEvent(c fiber.Ctx) error {
	var payload PushPayload

	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(payload); err != nil {
		return badRequest(c, err.Error())
	}

	event := models.TriggerEvent{
		ID:         uuid.New().String(),
		Kind:       models.EventPush,
		Repository: payload.Repository,
		Branch:     payload.Branch,
		Revision:   payload.Revision,
		ReceivedAt: time.Now().UTC(),
	}

	return h.accept(c, event)
}

func (h *Handlers) PostMergeRequestEvent(c fiber.Ctx) error {
	var payload MergeRequestPayload

	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(payload); err != nil {
		return badRequest(c, err.Error())
	}

	event := models.TriggerEvent{
		ID:         uuid.New().String(),
		Kind:       models.EventMergeRequest,
		Repository: payload.Repository,
		Branch:     payload.Branch,
		Revision:   payload.Revision,
		ReceivedAt: time.Now().UTC(),
	}

	if payload.TargetBranch != "" {
		event.Metadata = map[string]any{"target_branch": payload.TargetBranch}
	}

	return h.accept(c, event)
}

func (h *Handlers) accept(c fiber.Ctx, event models.TriggerEvent) error {
	fresh, err := h.guard.FirstSeen(c.Context(), event.ID)
	if err != nil {
		return internalError(c, err)
	}

	if !fresh {
		return c.Status(fiber.StatusOK).JSON(AcceptedResponse{
			EventID: event.ID,
			Status:  "duplicate",
		})
	}

	err = h.publisher.Publish(c.Context(), event.ID, events.PipelineTriggered{
		BaseEvent: events.NewBaseEvent(events.PipelineTriggeredEvent, ""),
		Event:     event,
	})
	if err != nil {
		h.logger.Error("Failed to publish trigger event", "error", err, "event_id", event.ID)

		return internalError(c, err)
	}

	h.logger.Info("Trigger event accepted",
		"event_id", event.ID, "kind", event.Kind, "repository", event.Repository, "branch", event.Branch)

	return c.Status(fiber.StatusAccepted).JSON(AcceptedResponse{
		EventID: event.ID,
		Status:  "accepted",
	})
}

func (h *Handlers) GetRuns(c fiber.Ctx) error {
	opts := persistence.ListRunsOptions{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid limit: "+limitStr)
		}

		opts.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return badRequest(c, "Invalid offset: "+offsetStr)
		}

		opts.Offset = offset
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.RunStatus(statusStr)
		opts.Status = &status
	}

	runs, err := h.store.ListRuns(c.Context(), opts)
	if err != nil {
		return handleStoreError(c, err)
	}

	if runs == nil {
		runs = []*models.PipelineRun{}
	}

	return c.JSON(fiber.Map{
		"runs": runs,
	})
}

func (h *Handlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")

	run, err := h.store.RunByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(run)
}

func (h *Handlers) HealthCheck(c fiber.Ctx) error {
	err := h.store.HealthCheck(c.Context())
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}
