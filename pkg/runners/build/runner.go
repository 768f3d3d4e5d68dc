// Package build provides the runner invoking the build tool of the checked
// out tree with an optional feature-flag set.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/protocol"
)

// ErrBuildFailed indicates the external build tool exited non-zero. The tool
// diagnostics are in the job log; the error carries only the exit status.
var ErrBuildFailed = errors.New("build failed")

const defaultTool = "cargo"

type Runner struct {
	Dir      string
	Tool     string
	Features []string
	Args     []string
	Env      map[string]string
}

func NewRunner(config map[string]any) *Runner {
	dir, _ := config["dir"].(string)

	tool, _ := config["tool"].(string)
	if tool == "" {
		tool = defaultTool
	}

	return &Runner{
		Dir:      dir,
		Tool:     tool,
		Features: stringSlice(config["features"]),
		Args:     stringSlice(config["args"]),
		Env:      stringMap(config["env"]),
	}
}

// CommandArgs returns the argument list passed to the build tool. The
// verbosity flag is always present; a non-empty feature set contributes
// exactly one --features argument.
func (r *Runner) CommandArgs() []string {
	args := []string{"build", "--verbose"}

	if len(r.Features) > 0 {
		args = append(args, "--features", strings.Join(r.Features, ","))
	}

	return append(args, r.Args...)
}

func (r *Runner) Execute(ctx context.Context, jobCtx models.JobContext, logger *slog.Logger) (map[string]any, error) {
	dir := filepath.Join(jobCtx.Workspace, r.Dir)
	args := r.CommandArgs()

	logger = logger.With("runner", "build", "tool", r.Tool, "dir", r.Dir, "features", r.Features)
	logger.Info("Invoking build tool")

	cmd := exec.CommandContext(ctx, r.Tool, args...)
	cmd.Dir = dir
	cmd.Env = mergedEnviron(jobCtx.MergedEnv(r.Env))
	cmd.Stdout = jobCtx.Log
	cmd.Stderr = jobCtx.Log

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s %s exited with status %d",
				ErrBuildFailed, r.Tool, strings.Join(args, " "), exitErr.ExitCode())
		}

		return nil, fmt.Errorf("failed to invoke %s: %w", r.Tool, err)
	}

	logger.Info("Build succeeded")

	return map[string]any{
		"tool":     r.Tool,
		"args":     args,
		"dir":      r.Dir,
		"features": r.Features,
	}, nil
}

// mergedEnviron appends the step environment to the process environment, so
// cosmetic overrides like colorized tool output reach the child process.
func mergedEnviron(env map[string]string) []string {
	environ := os.Environ()
	for k, v := range env {
		environ = append(environ, k+"="+v)
	}

	return environ
}

func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

func stringMap(value any) map[string]string {
	switch v := value.(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))

		for k, item := range v {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}

		return out
	default:
		return nil
	}
}

var _ protocol.Runner = (*Runner)(nil)
