package build

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewRunner_Defaults(t *testing.T) {
	runner := NewRunner(map[string]any{})

	assert.Equal(t, "cargo", runner.Tool)
	assert.Empty(t, runner.Dir)
	assert.Empty(t, runner.Features)
}

func TestNewRunner_FromStepConfig(t *testing.T) {
	// With-maps come out of the YAML decoder as map[string]any with []any
	// values.
	runner := NewRunner(map[string]any{
		"dir":      "examples",
		"tool":     "cargo",
		"features": []any{"handler", "extended-handler"},
		"env":      map[string]any{"CARGO_TERM_COLOR": "always"},
	})

	assert.Equal(t, "examples", runner.Dir)
	assert.Equal(t, []string{"handler", "extended-handler"}, runner.Features)
	assert.Equal(t, map[string]string{"CARGO_TERM_COLOR": "always"}, runner.Env)
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name     string
		features []string
		args     []string
		want     []string
	}{
		{
			name: "no features",
			want: []string{"build", "--verbose"},
		},
		{
			name:     "single feature",
			features: []string{"handler"},
			want:     []string{"build", "--verbose", "--features", "handler"},
		},
		{
			name:     "multiple features collapse into one flag",
			features: []string{"handler", "extended-handler"},
			want:     []string{"build", "--verbose", "--features", "handler,extended-handler"},
		},
		{
			name:     "extra args come last",
			features: []string{"handler"},
			args:     []string{"--locked"},
			want:     []string{"build", "--verbose", "--features", "handler", "--locked"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &Runner{Tool: "cargo", Features: tt.features, Args: tt.args}
			assert.Equal(t, tt.want, runner.CommandArgs())
		})
	}
}

func TestExecute_Success(t *testing.T) {
	var logBuf bytes.Buffer

	runner := &Runner{Tool: "true"}
	jobCtx := models.JobContext{Workspace: t.TempDir(), Log: &logBuf}

	result, err := runner.Execute(context.Background(), jobCtx, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "true", result["tool"])
}

func TestExecute_ToolOutputReachesJobLog(t *testing.T) {
	var logBuf bytes.Buffer

	runner := &Runner{Tool: "echo"}
	jobCtx := models.JobContext{Workspace: t.TempDir(), Log: &logBuf}

	_, err := runner.Execute(context.Background(), jobCtx, testLogger())
	require.NoError(t, err)
	assert.Contains(t, logBuf.String(), "build --verbose")
}

func TestExecute_NonZeroExitIsBuildFailure(t *testing.T) {
	var logBuf bytes.Buffer

	runner := &Runner{Tool: "false"}
	jobCtx := models.JobContext{Workspace: t.TempDir(), Log: &logBuf}

	_, err := runner.Execute(context.Background(), jobCtx, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildFailed)
	assert.Contains(t, err.Error(), "exited with status 1")
}

func TestExecute_MissingToolIsNotBuildFailure(t *testing.T) {
	var logBuf bytes.Buffer

	runner := &Runner{Tool: "definitely-not-a-real-tool"}
	jobCtx := models.JobContext{Workspace: t.TempDir(), Log: &logBuf}

	_, err := runner.Execute(context.Background(), jobCtx, testLogger())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBuildFailed)
}

func TestExecute_MissingDirFails(t *testing.T) {
	var logBuf bytes.Buffer

	runner := &Runner{Tool: "true", Dir: "does-not-exist"}
	jobCtx := models.JobContext{Workspace: t.TempDir(), Log: &logBuf}

	_, err := runner.Execute(context.Background(), jobCtx, testLogger())
	assert.Error(t, err)
}
