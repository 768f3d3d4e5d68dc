package models

import "time"

// EventKind identifies the repository event that triggered a pipeline.
type EventKind string

const (
	EventPush         EventKind = "push"
	EventMergeRequest EventKind = "merge_request"
	EventSchedule     EventKind = "schedule"
)

// TriggerEvent is the normalized form of an incoming repository event. A
// non-matching event simply schedules nothing; it is never an error.
type TriggerEvent struct {
	ID         string         `json:"id"`
	Kind       EventKind      `json:"kind"     validate:"required,oneof=push merge_request schedule"`
	Repository string         `json:"repository" validate:"required"` // clone URL or local path
	Branch     string         `json:"branch"`
	Revision   string         `json:"revision"` // empty means the tip of the branch
	ReceivedAt time.Time      `json:"received_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
