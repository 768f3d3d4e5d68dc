// Package format provides the runner verifying that every discovered source
// file already conforms to the canonical style, without modifying any file.
package format

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/protocol"
)

// ErrFormatViolation indicates the verifier found at least one file deviating
// from the canonical style.
var ErrFormatViolation = errors.New("formatting violation")

const (
	defaultTool   = "rustfmt"
	defaultSuffix = ".rs"
)

type Runner struct {
	Dir     string
	Tool    string
	Suffix  string
	Exclude []string
	Env     map[string]string
}

func NewRunner(config map[string]any) *Runner {
	dir, _ := config["dir"].(string)

	tool, _ := config["tool"].(string)
	if tool == "" {
		tool = defaultTool
	}

	suffix, _ := config["suffix"].(string)
	if suffix == "" {
		suffix = defaultSuffix
	}

	return &Runner{
		Dir:     dir,
		Tool:    tool,
		Suffix:  suffix,
		Exclude: stringSlice(config["exclude"]),
		Env:     stringMap(config["env"]),
	}
}

// Discover walks the root recursively and returns the paths of every file
// matching the suffix, relative to root. Any directory whose name is on the
// exclusion list is skipped entirely, uncommitted content included.
func (r *Runner) Discover(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && slices.Contains(r.Exclude, d.Name()) {
				return fs.SkipDir
			}

			return nil
		}

		if strings.HasSuffix(d.Name(), r.Suffix) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			files = append(files, rel)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover source files under %s: %w", root, err)
	}

	slices.Sort(files)

	return files, nil
}

func (r *Runner) Execute(ctx context.Context, jobCtx models.JobContext, logger *slog.Logger) (map[string]any, error) {
	root := filepath.Join(jobCtx.Workspace, r.Dir)

	logger = logger.With("runner", "format", "tool", r.Tool, "dir", r.Dir)

	files, err := r.Discover(root)
	if err != nil {
		return nil, err
	}

	logger.Info("Running format check", "files", len(files))

	// Zero discovered files: the verifier is still invoked and its exit
	// status taken as-is.
	args := append([]string{"--check"}, files...)

	cmd := exec.CommandContext(ctx, r.Tool, args...)
	cmd.Dir = root
	cmd.Env = mergedEnviron(jobCtx.MergedEnv(r.Env))
	cmd.Stdout = jobCtx.Log
	cmd.Stderr = jobCtx.Log

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s --check exited with status %d over %d file(s)",
				ErrFormatViolation, r.Tool, exitErr.ExitCode(), len(files))
		}

		return nil, fmt.Errorf("failed to invoke %s: %w", r.Tool, err)
	}

	logger.Info("Format check passed")

	return map[string]any{
		"tool":          r.Tool,
		"files_checked": len(files),
	}, nil
}

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
