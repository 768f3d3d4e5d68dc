package format

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, root, rel string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("fn main() {}\n"), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.rs")
	writeFile(t, root, "src/lib.rs")
	writeFile(t, root, "benches/bench.rs")
	writeFile(t, root, "README.md")
	writeFile(t, root, "target/debug/generated.rs")
	writeFile(t, root, "nested/target/cache.rs")

	runner := &Runner{Suffix: ".rs", Exclude: []string{"target"}}

	files, err := runner.Discover(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.FromSlash("benches/bench.rs"),
		filepath.FromSlash("src/lib.rs"),
		filepath.FromSlash("src/main.rs"),
	}, files)
}

func TestDiscover_ExcludeMatchesDirNameAnywhere(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "target/skipped.rs")
	writeFile(t, root, "deep/target/also_skipped.rs")
	writeFile(t, root, "kept.rs")

	runner := &Runner{Suffix: ".rs", Exclude: []string{"target"}}

	files, err := runner.Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.rs"}, files)
}

func TestDiscover_EmptyTree(t *testing.T) {
	runner := &Runner{Suffix: ".rs"}

	files, err := runner.Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.rs")
	writeFile(t, root, "b.rs")

	runner := &Runner{Suffix: ".rs"}

	first, err := runner.Discover(root)
	require.NoError(t, err)

	second, err := runner.Discover(root)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExecute_CheckPasses(t *testing.T) {
	var logBuf bytes.Buffer

	root := t.TempDir()
	writeFile(t, root, "src/main.rs")

	runner := &Runner{Tool: "true", Suffix: ".rs"}
	jobCtx := models.JobContext{Workspace: root, Log: &logBuf}

	result, err := runner.Execute(context.Background(), jobCtx, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, result["files_checked"])
}

func TestExecute_ViolationSurfacesAsError(t *testing.T) {
	var logBuf bytes.Buffer

	root := t.TempDir()
	writeFile(t, root, "src/main.rs")

	runner := &Runner{Tool: "false", Suffix: ".rs"}
	jobCtx := models.JobContext{Workspace: root, Log: &logBuf}

	_, err := runner.Execute(context.Background(), jobCtx, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormatViolation)
}

func TestExecute_ZeroFilesStillInvokesTool(t *testing.T) {
	var logBuf bytes.Buffer

	// The tool decides the outcome even with nothing discovered: a failing
	// tool fails the step.
	runner := &Runner{Tool: "false", Suffix: ".rs"}
	jobCtx := models.JobContext{Workspace: t.TempDir(), Log: &logBuf}

	_, err := runner.Execute(context.Background(), jobCtx, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormatViolation)
	assert.Contains(t, err.Error(), "0 file(s)")
}

func TestExecute_CheckDoesNotModifyFiles(t *testing.T) {
	var logBuf bytes.Buffer

	root := t.TempDir()
	writeFile(t, root, "src/main.rs")

	before, err := os.ReadFile(filepath.Join(root, "src", "main.rs"))
	require.NoError(t, err)

	runner := &Runner{Tool: "true", Suffix: ".rs"}
	jobCtx := models.JobContext{Workspace: root, Log: &logBuf}

	_, err = runner.Execute(context.Background(), jobCtx, testLogger())
	require.NoError(t, err)

	after, err := os.ReadFile(filepath.Join(root, "src", "main.rs"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestNewRunner_Defaults(t *testing.T) {
	runner := NewRunner(map[string]any{})

	assert.Equal(t, "rustfmt", runner.Tool)
	assert.Equal(t, ".rs", runner.Suffix)
}
