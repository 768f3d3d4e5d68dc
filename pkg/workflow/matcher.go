package workflow

import (
	"log/slog"

	"github.com/conveyor-ci/conveyor/pkg/models"
)

// Matcher evaluates trigger events against workflow constraints. A
// non-matching event schedules nothing; it is never an error.
type Matcher struct {
	logger *slog.Logger
}

func NewMatcher(logger *slog.Logger) *Matcher {
	return &Matcher{
		logger: logger.With("module", "trigger_matcher"),
	}
}

// Match returns the workflows whose constraints accept the event, in the
// order they were loaded.
func (m *Matcher) Match(event models.TriggerEvent, workflows []*models.Workflow) []*models.Workflow {
	var matched []*models.Workflow

	for _, wf := range workflows {
		if wf.Matches(event) {
			matched = append(matched, wf)
		}
	}

	m.logger.Debug("Evaluated trigger event",
		"kind", event.Kind,
		"branch", event.Branch,
		"workflows", len(workflows),
		"matched", len(matched))

	return matched
}

// ScheduledJob pairs a job with the workflow declaring it.
type ScheduledJob struct {
	Workflow *models.Workflow
	Job      models.Job
}

// ScheduledJobs expands the matched workflows into the flat set of jobs the
// event schedules. Every job appears exactly once per event.
func (m *Matcher) ScheduledJobs(event models.TriggerEvent, workflows []*models.Workflow) []ScheduledJob {
	var jobs []ScheduledJob

	for _, wf := range m.Match(event, workflows) {
		for _, job := range wf.Jobs {
			jobs = append(jobs, ScheduledJob{Workflow: wf, Job: job})
		}
	}

	return jobs
}
