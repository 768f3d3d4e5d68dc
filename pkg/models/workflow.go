// Package models defines the core domain models for pipeline execution.
package models

import (
	"errors"
	"fmt"
)

// Workflow is the structural representation of a single workflow definition
// file. A repository may carry several workflow files; every workflow matched
// by a trigger event contributes its jobs to the same pipeline run.
type Workflow struct {
	Name string            `json:"name"           yaml:"-"` // file stem of the definition
	When []Constraint      `json:"when,omitempty" yaml:"when"`
	Env  map[string]string `json:"env,omitempty"  yaml:"env"`
	Jobs []Job             `json:"jobs"           yaml:"jobs" validate:"required,min=1,dive"`
}

// Job is an isolated unit of sequential steps. Jobs of the same pipeline run
// execute independently and in parallel; no job's outcome affects whether a
// sibling runs.
type Job struct {
	Name  string `json:"name"  yaml:"name"  validate:"required"`
	Steps []Step `json:"steps" yaml:"steps" validate:"required,min=1,dive"`
}

// Step is one action within a job: a runner reference plus its configuration.
// Steps run strictly sequentially; the first failure aborts the remaining
// steps of the job (fail-fast).
type Step struct {
	Name string            `json:"name,omitempty" yaml:"name"`
	Uses string            `json:"uses"           yaml:"uses" validate:"required"`
	With map[string]any    `json:"with,omitempty" yaml:"with"`
	Env  map[string]string `json:"env,omitempty"  yaml:"env"`
}

// Constraint restricts when a workflow is scheduled. An empty field matches
// everything, so a workflow with no constraints runs on every event.
type Constraint struct {
	Event  StringList `json:"event,omitempty"  yaml:"event"`
	Branch StringList `json:"branch,omitempty" yaml:"branch"`
}

// Matches reports whether the constraint accepts the given event. Event kinds
// are matched exactly; branches support a single "*" wildcard.
func (c *Constraint) Matches(event TriggerEvent) bool {
	if len(c.Event) > 0 && !c.Event.contains(string(event.Kind)) {
		return false
	}

	if len(c.Branch) > 0 && !c.Branch.matchesPattern(event.Branch) {
		return false
	}

	return true
}

// Matches reports whether any of the workflow's constraints accepts the
// event. A workflow without constraints matches every event.
func (w *Workflow) Matches(event TriggerEvent) bool {
	if len(w.When) == 0 {
		return true
	}

	for i := range w.When {
		if w.When[i].Matches(event) {
			return true
		}
	}

	return false
}

// JobCount returns the number of jobs declared by the workflow.
func (w *Workflow) JobCount() int {
	return len(w.Jobs)
}

// StringList accepts either a scalar or a sequence in YAML.
type StringList []string

func (s *StringList) UnmarshalYAML(unmarshal func(any) error) error {
	var scalar string
	if err := unmarshal(&scalar); err == nil {
		*s = []string{scalar}

		return nil
	}

	var seq []any
	if err := unmarshal(&seq); err == nil {
		parts := make([]string, len(seq))

		for i, v := range seq {
			sv, ok := v.(string)
			if !ok {
				return fmt.Errorf("cannot unmarshal %v of type %T into a string value", v, v)
			}

			parts[i] = sv
		}

		*s = parts

		return nil
	}

	return errors.New("expected a string or a list of strings")
}

func (s StringList) contains(value string) bool {
	for _, item := range s {
		if item == value {
			return true
		}
	}

	return false
}

// matchesPattern matches value against each entry, treating "*" as a
// wildcard. "release/*" matches every branch under release/.
func (s StringList) matchesPattern(value string) bool {
	for _, pattern := range s {
		if matchPattern(value, pattern) {
			return true
		}
	}

	return false
}

func matchPattern(value, pattern string) bool {
	if pattern == "*" {
		return true
	}

	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' {
			prefix := pattern[:i]
			suffix := pattern[i+1:]

			return len(value) >= len(prefix)+len(suffix) &&
				value[:len(prefix)] == prefix &&
				value[len(value)-len(suffix):] == suffix
		}
	}

	return value == pattern
}
