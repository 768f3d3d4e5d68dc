// Package dedup guards trigger events against duplicate delivery. Forges and
// webhook relays retry; a job scheduled twice for the same event would burn
// capacity and confuse run history.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard decides whether an event has been seen before.
type Guard interface {
	// FirstSeen reports whether eventID is new. The first caller for a given
	// ID gets true; every later caller within the retention window gets
	// false.
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	Close() error
}

// RedisGuard implements Guard on a shared redis instance so that multiple
// workers agree on what they have seen.
type RedisGuard struct {
	client    *redis.Client
	logger    *slog.Logger
	retention time.Duration
}

const DefaultRetention = 24 * time.Hour

func NewRedisGuard(ctx context.Context, logger *slog.Logger, redisURL string, retention time.Duration) (*RedisGuard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if retention <= 0 {
		retention = DefaultRetention
	}

	return &RedisGuard{
		client:    client,
		logger:    logger.With("module", "dedup"),
		retention: retention,
	}, nil
}

func (g *RedisGuard) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, "conveyor:event:"+eventID, 1, g.retention).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check failed for event %s: %w", eventID, err)
	}

	if !ok {
		g.logger.Info("Duplicate event ignored", "event_id", eventID)
	}

	return ok, nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

// NoopGuard admits every event. Used when no redis instance is configured,
// typically single-worker deployments and local runs.
type NoopGuard struct{}

func (NoopGuard) FirstSeen(context.Context, string) (bool, error) { return true, nil }

func (NoopGuard) Close() error { return nil }

var (
	_ Guard = (*RedisGuard)(nil)
	_ Guard = NoopGuard{}
)
