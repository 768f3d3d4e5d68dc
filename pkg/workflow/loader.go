// Package workflow loads pipeline definitions from a repository and decides
// which of them a trigger event schedules.
package workflow

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultDir is where a repository declares its workflows, one file each.
const DefaultDir = ".conveyor/workflows"

type Loader struct {
	logger   *slog.Logger
	validate *validator.Validate
}

func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{
		logger:   logger.With("module", "workflow_loader"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// FromFile parses a single workflow definition. The workflow name is the file
// stem; it is not part of the document.
func (l *Loader) FromFile(name string, contents []byte) (*models.Workflow, error) {
	var wf models.Workflow

	err := yaml.Unmarshal(contents, &wf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", name, err)
	}

	wf.Name = strings.TrimSuffix(strings.TrimSuffix(name, ".yml"), ".yaml")

	err = l.validate.Struct(&wf)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow %s: %w", wf.Name, err)
	}

	// Job names key the run records, so they must be unique per workflow.
	seen := make(map[string]bool, len(wf.Jobs))

	for _, job := range wf.Jobs {
		if seen[job.Name] {
			return nil, fmt.Errorf("invalid workflow %s: duplicate job name %q", wf.Name, job.Name)
		}

		seen[job.Name] = true
	}

	return &wf, nil
}

// LoadDir reads every *.yml / *.yaml file directly under dir. A missing
// directory yields no workflows, not an error: a repository without
// definitions simply schedules nothing.
func (l *Loader) LoadDir(dir string) ([]*models.Workflow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug("No workflow directory", "dir", dir)

			return nil, nil
		}

		return nil, fmt.Errorf("failed to read workflow directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext == ".yml" || ext == ".yaml" {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)

	workflows := make([]*models.Workflow, 0, len(names))

	for _, name := range names {
		contents, err := readFile(dir, name)
		if err != nil {
			return nil, err
		}

		wf, err := l.FromFile(name, contents)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, wf)
	}

	l.logger.Debug("Loaded workflow definitions", "dir", dir, "count", len(workflows))

	return workflows, nil
}

// LoadRepository loads the definitions of a checked out repository from its
// conventional location.
func (l *Loader) LoadRepository(root string) ([]*models.Workflow, error) {
	return l.LoadDir(filepath.Join(root, filepath.FromSlash(DefaultDir)))
}

func readFile(dir, name string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("failed to read workflow file %s: %w", name, err)
		}

		return nil, err
	}

	return contents, nil
}
