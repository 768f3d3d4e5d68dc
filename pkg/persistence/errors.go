// Package persistence provides standardized error types for run storage.
package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrRunNotFound indicates no pipeline run exists for the given identifier.
	ErrRunNotFound = errors.New("pipeline run not found")

	// ErrRunAlreadyExists indicates a run with the same identifier already exists.
	ErrRunAlreadyExists = errors.New("pipeline run already exists")
)

// RunError wraps run-related storage errors with operation context.
type RunError struct {
	Op    string // Operation being performed (e.g. "Create", "Save", "GetByID")
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRunError creates a run storage error with context.
func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

// IsRunNotFound checks if an error indicates a missing run.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
