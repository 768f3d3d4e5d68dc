package eventbus

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/conveyor-ci/conveyor/pkg/channels/gochannel"
	"github.com/conveyor-ci/conveyor/pkg/events"
	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan *events.PipelineTriggered, 1)

	err := bus.Handle(events.PipelineTriggeredEvent, func(ctx context.Context, event any) error {
		triggered, ok := event.(*events.PipelineTriggered)
		if ok {
			received <- triggered
		}

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.PipelineTriggered{
		BaseEvent: events.NewBaseEvent(events.PipelineTriggeredEvent, ""),
		Event: models.TriggerEvent{
			ID:         "evt-1",
			Kind:       models.EventPush,
			Repository: "https://example.com/acme/widget.git",
			Branch:     "main",
		},
	}

	require.NoError(t, bus.Publish(ctx, sent.Event.ID, sent))

	select {
	case got := <-received:
		assert.Equal(t, "evt-1", got.Event.ID)
		assert.Equal(t, models.EventPush, got.Event.Kind)
		assert.Equal(t, events.PipelineTriggeredEvent, got.GetType())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypesAreAcked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan struct{}, 1)

	err := bus.Handle(events.JobFinishedEvent, func(ctx context.Context, event any) error {
		received <- struct{}{}

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// An event type with no handler must not wedge the subscription.
	require.NoError(t, bus.Publish(ctx, "run-1", events.JobStarted{
		BaseEvent: events.NewBaseEvent(events.JobStartedEvent, "run-1"),
		Workflow:  "build",
		Job:       "build",
	}))

	require.NoError(t, bus.Publish(ctx, "run-1", events.JobFinished{
		BaseEvent:  events.NewBaseEvent(events.JobFinishedEvent, "run-1"),
		Workflow:   "build",
		Job:        "build",
		DurationMs: 12,
	}))

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handled event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	a := bus.GenerateID()
	b := bus.GenerateID()

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
