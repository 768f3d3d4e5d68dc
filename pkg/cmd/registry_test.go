package cmd

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRegistry_NativeRunners(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	reg := NewRegistry(logger)

	assert.ElementsMatch(t, []string{"checkout", "build", "format"}, reg.RunnerIDs())
}
