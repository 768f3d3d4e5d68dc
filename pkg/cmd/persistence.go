package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/conveyor-ci/conveyor/pkg/persistence"
	"github.com/conveyor-ci/conveyor/pkg/persistence/file"
	"github.com/conveyor-ci/conveyor/pkg/persistence/postgresql"
)

// NewPersistence picks the store from the URL scheme. postgres:// gets the
// SQL store; anything else falls back to the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres persistence: %w", err)
		}

		return store, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
