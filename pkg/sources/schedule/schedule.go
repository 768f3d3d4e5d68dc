// Package schedule emits synthetic trigger events on cron expressions, so
// repositories get periodic pipeline runs without an external forge event.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conveyor-ci/conveyor/pkg/eventbus"
	"github.com/conveyor-ci/conveyor/pkg/events"
	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Entry schedules one repository on one cron expression.
type Entry struct {
	Spec       string `json:"spec"       validate:"required"`
	Repository string `json:"repository" validate:"required"`
	Branch     string `json:"branch"`
}

type Source struct {
	logger    *slog.Logger
	publisher eventbus.EventPublisher
	cron      *cron.Cron
}

func NewSource(logger *slog.Logger, publisher eventbus.EventPublisher) *Source {
	return &Source{
		logger:    logger.With("module", "schedule_source"),
		publisher: publisher,
		cron:      cron.New(),
	}
}

// Add registers an entry. The returned error surfaces invalid cron
// expressions before the source starts.
func (s *Source) Add(entry Entry) error {
	_, err := s.cron.AddFunc(entry.Spec, func() {
		s.fire(entry)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", entry.Spec, err)
	}

	s.logger.Info("Schedule registered", "spec", entry.Spec, "repository", entry.Repository)

	return nil
}

// Start runs the scheduler until ctx is cancelled.
func (s *Source) Start(ctx context.Context) {
	s.cron.Start()

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
}

func (s *Source) fire(entry Entry) {
	event := models.TriggerEvent{
		ID:         uuid.New().String(),
		Kind:       models.EventSchedule,
		Repository: entry.Repository,
		Branch:     entry.Branch,
		ReceivedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.publisher.Publish(ctx, event.ID, events.PipelineTriggered{
		BaseEvent: events.NewBaseEvent(events.PipelineTriggeredEvent, ""),
		Event:     event,
	})
	if err != nil {
		s.logger.Error("Failed to publish scheduled event", "error", err, "repository", entry.Repository)

		return
	}

	s.logger.Info("Scheduled event published", "repository", entry.Repository, "branch", entry.Branch)
}
