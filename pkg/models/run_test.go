package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineRun_Failed(t *testing.T) {
	run := &PipelineRun{Jobs: []*JobRun{
		{Workflow: "build", Name: "build", Status: RunStatusSucceeded},
		{Workflow: "build", Name: "build-examples", Status: RunStatusSucceeded},
	}}
	assert.False(t, run.Failed())

	run.Jobs[1].Status = RunStatusFailed
	assert.True(t, run.Failed())
}

func TestPipelineRun_JobRunByName(t *testing.T) {
	run := &PipelineRun{Jobs: []*JobRun{
		{Workflow: "build", Name: "build"},
		{Workflow: "fmt", Name: "fmt"},
	}}

	job := run.JobRunByName("fmt", "fmt")
	assert.NotNil(t, job)
	assert.Equal(t, "fmt", job.Workflow)

	assert.Nil(t, run.JobRunByName("build", "missing"))
}

func TestJobContext_MergedEnv(t *testing.T) {
	jobCtx := JobContext{Env: map[string]string{
		"CARGO_TERM_COLOR": "always",
		"RUST_LOG":         "info",
	}}

	merged := jobCtx.MergedEnv(map[string]string{"RUST_LOG": "debug", "EXTRA": "1"})

	assert.Equal(t, "always", merged["CARGO_TERM_COLOR"])
	assert.Equal(t, "debug", merged["RUST_LOG"])
	assert.Equal(t, "1", merged["EXTRA"])

	// The job-level map is untouched.
	assert.Equal(t, "info", jobCtx.Env["RUST_LOG"])
}
