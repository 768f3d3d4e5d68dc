// Package checkout provides the runner acquiring a working tree of the
// repository at the event's revision, local to the calling job.
package checkout

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/protocol"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

type Runner struct {
	Depth int
}

func NewRunner(config map[string]any) *Runner {
	depth := 0
	if d, ok := config["depth"].(int); ok {
		depth = d
	} else if d, ok := config["depth"].(float64); ok {
		depth = int(d)
	}

	return &Runner{Depth: depth}
}

func (r *Runner) Execute(ctx context.Context, jobCtx models.JobContext, logger *slog.Logger) (map[string]any, error) {
	event := jobCtx.Event

	logger = logger.With("runner", "checkout", "repository", event.Repository, "branch", event.Branch)
	logger.Info("Acquiring working tree")

	// Local runs may point at a plain work tree with no version control;
	// those are copied instead of cloned.
	if IsPlainWorkTree(event.Repository) {
		err := copyTree(event.Repository, jobCtx.Workspace)
		if err != nil {
			return nil, fmt.Errorf("failed to copy work tree %s: %w", event.Repository, err)
		}

		logger.Info("Working tree copied")

		return map[string]any{"revision": "worktree"}, nil
	}

	opts := &git.CloneOptions{
		URL:   event.Repository,
		Depth: r.Depth,
	}

	// A pinned revision needs the full history of the branch; only clone a
	// single branch when we stay on its tip.
	if event.Branch != "" && event.Revision == "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(event.Branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, jobCtx.Workspace, false, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", event.Repository, err)
	}

	if event.Revision != "" {
		worktree, err := repo.Worktree()
		if err != nil {
			return nil, fmt.Errorf("failed to open worktree: %w", err)
		}

		err = worktree.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(event.Revision)})
		if err != nil {
			return nil, fmt.Errorf("failed to check out revision %s: %w", event.Revision, err)
		}
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	logger.Info("Working tree ready", "revision", head.Hash().String())

	return map[string]any{
		"revision": head.Hash().String(),
	}, nil
}

// IsPlainWorkTree reports whether path is a local directory that is not a git
// repository. Such trees are read in place or copied rather than cloned.
func IsPlainWorkTree(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}

	_, err = os.Stat(filepath.Join(path, ".git"))

	return os.IsNotExist(err)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		contents, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		return os.WriteFile(target, contents, 0o644)
	})
}

var _ protocol.Runner = (*Runner)(nil)
