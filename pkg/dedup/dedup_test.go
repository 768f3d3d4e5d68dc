package dedup

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopGuard_AdmitsEverything(t *testing.T) {
	guard := NoopGuard{}

	for i := 0; i < 3; i++ {
		fresh, err := guard.FirstSeen(context.Background(), "evt-1")
		assert.NoError(t, err)
		assert.True(t, fresh)
	}

	assert.NoError(t, guard.Close())
}

func TestNewRedisGuard_InvalidURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	_, err := NewRedisGuard(context.Background(), logger, "://not-a-url", DefaultRetention)
	assert.Error(t, err)
}
