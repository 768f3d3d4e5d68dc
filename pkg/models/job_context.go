package models

import "io"

// JobContext carries everything a runner needs to execute one step of a job:
// the private workspace of the job, the triggering event, the merged
// environment and the sink for external tool output. The workspace is local
// to the job and discarded when the job ends.
type JobContext struct {
	RunID     string            `json:"run_id"`
	Workflow  string            `json:"workflow"`
	Job       string            `json:"job"`
	Workspace string            `json:"workspace"`
	Event     TriggerEvent      `json:"event"`
	Env       map[string]string `json:"env,omitempty"`
	Log       io.Writer         `json:"-"`
}

// MergedEnv returns the job environment with the step overrides applied.
func (c *JobContext) MergedEnv(overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(c.Env)+len(overrides))

	for k, v := range c.Env {
		merged[k] = v
	}

	for k, v := range overrides {
		merged[k] = v
	}

	return merged
}
