package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunError_WrapsSentinel(t *testing.T) {
	err := NewRunError("GetByID", "run-1", ErrRunNotFound)

	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.True(t, IsRunNotFound(err))
	assert.Contains(t, err.Error(), "run-1")
}

func TestRunError_WrappedFurther(t *testing.T) {
	err := fmt.Errorf("handler: %w", NewRunError("Create", "run-2", ErrRunAlreadyExists))

	assert.ErrorIs(t, err, ErrRunAlreadyExists)
	assert.False(t, IsRunNotFound(err))
}

func TestIsRunNotFound_UnrelatedError(t *testing.T) {
	assert.False(t, IsRunNotFound(errors.New("boom")))
	assert.False(t, IsRunNotFound(nil))
}
