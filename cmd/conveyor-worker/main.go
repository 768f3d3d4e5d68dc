package main

import (
	"context"
	"os"

	"github.com/conveyor-ci/conveyor/pkg/cmd"
	"github.com/conveyor-ci/conveyor/pkg/log"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "conveyor-worker",
		EnableShellCompletion: true,
		Usage:                 "Start a worker consuming trigger events and executing pipelines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for duplicate-event detection (optional)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "work-root",
				Usage:   "Base directory for job workspaces and logs",
				Value:   "",
				Sources: cli.EnvVars("WORK_ROOT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("conveyor-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing conveyor worker")

			registry := cmd.NewRegistry(logger)

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "conveyor-worker", logger)
			if err != nil {
				return err
			}
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}
			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			guard, err := cmd.NewDedupGuard(ctx, logger, command.String("redis-url"))
			if err != nil {
				return err
			}
			defer func() {
				_ = guard.Close()
			}()

			worker := NewWorker(workerID, command.String("work-root"), logger, registry, store, eventBus, guard)

			return worker.Start(ctx)
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
