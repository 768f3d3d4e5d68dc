// Package events defines event types for pipeline lifecycle notifications.
package events

import (
	"time"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "conveyor.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	PipelineTriggeredEvent EventType = "pipeline.triggered"
	PipelineCompletedEvent EventType = "pipeline.completed"
	PipelineFailedEvent    EventType = "pipeline.failed"

	JobStartedEvent  EventType = "job.started"
	JobFinishedEvent EventType = "job.finished"
	JobFailedEvent   EventType = "job.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// PipelineTriggered is published once per accepted trigger event; the worker
// consuming it executes every matched job exactly once.
type PipelineTriggered struct {
	BaseEvent

	Event models.TriggerEvent `json:"event"`
}

func (p PipelineTriggered) GetType() EventType {
	return PipelineTriggeredEvent
}

type PipelineCompleted struct {
	BaseEvent

	JobsExecuted int           `json:"jobs_executed"`
	Duration     time.Duration `json:"duration"`
}

func (p PipelineCompleted) GetType() EventType {
	return PipelineCompletedEvent
}

type PipelineFailed struct {
	BaseEvent

	Error        string        `json:"error,omitempty"`
	JobsExecuted int           `json:"jobs_executed"`
	JobsFailed   int           `json:"jobs_failed"`
	Duration     time.Duration `json:"duration"`
}

func (p PipelineFailed) GetType() EventType {
	return PipelineFailedEvent
}

type JobStarted struct {
	BaseEvent

	Workflow string `json:"workflow"`
	Job      string `json:"job"`
}

func (j JobStarted) GetType() EventType {
	return JobStartedEvent
}

type JobFinished struct {
	BaseEvent

	Workflow   string `json:"workflow"`
	Job        string `json:"job"`
	DurationMs int64  `json:"duration_ms"`
}

func (j JobFinished) GetType() EventType {
	return JobFinishedEvent
}

// JobFailed carries the failure of a single job. Sibling jobs are unaffected
// and publish their own terminal events.
type JobFailed struct {
	BaseEvent

	Workflow   string `json:"workflow"`
	Job        string `json:"job"`
	Error      string `json:"error"`
	DurationMs int64  `json:"duration_ms"`
}

func (j JobFailed) GetType() EventType {
	return JobFailedEvent
}

func NewBaseEvent(eventType EventType, runID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Metadata:  make(map[string]any),
	}
}
