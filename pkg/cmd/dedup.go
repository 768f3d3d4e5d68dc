package cmd

import (
	"context"
	"log/slog"

	"github.com/conveyor-ci/conveyor/pkg/dedup"
)

// NewDedupGuard builds the duplicate-event guard. An empty URL means no
// shared state is available and every event is admitted.
func NewDedupGuard(ctx context.Context, logger *slog.Logger, redisURL string) (dedup.Guard, error) {
	if redisURL == "" {
		return dedup.NoopGuard{}, nil
	}

	return dedup.NewRedisGuard(ctx, logger, redisURL, dedup.DefaultRetention)
}
