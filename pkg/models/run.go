package models

import "time"

// RunStatus represents the lifecycle state of a pipeline or job run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// PipelineRun records one evaluation of a trigger event: every job of every
// matched workflow, scheduled exactly once. The run fails iff at least one job
// failed, and that status is only decided after all jobs have finished.
type PipelineRun struct {
	ID         string       `json:"id"`
	Event      TriggerEvent `json:"event"`
	Workflows  []string     `json:"workflows"`
	Status     RunStatus    `json:"status"`
	Jobs       []*JobRun    `json:"jobs"`
	CreatedAt  time.Time    `json:"created_at"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// JobRun records the outcome of a single job within a pipeline run.
type JobRun struct {
	Workflow   string       `json:"workflow"`
	Name       string       `json:"name"`
	Status     RunStatus    `json:"status"`
	Steps      []StepResult `json:"steps,omitempty"`
	LogPath    string       `json:"log_path,omitempty"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// StepResult records one executed step. Steps skipped by fail-fast are not
// recorded at all.
type StepResult struct {
	Name       string    `json:"name"`
	Uses       string    `json:"uses"`
	Status     RunStatus `json:"status"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Failed reports whether any job of the run failed.
func (r *PipelineRun) Failed() bool {
	for _, job := range r.Jobs {
		if job.Status == RunStatusFailed {
			return true
		}
	}

	return false
}

// JobRunByName returns the job run for the given workflow and job name.
func (r *PipelineRun) JobRunByName(workflow, name string) *JobRun {
	for _, job := range r.Jobs {
		if job.Workflow == workflow && job.Name == name {
			return job
		}
	}

	return nil
}
