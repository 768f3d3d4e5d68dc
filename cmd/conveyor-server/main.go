package main

import (
	"context"
	"os"

	"github.com/conveyor-ci/conveyor/pkg/cmd"
	"github.com/conveyor-ci/conveyor/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "conveyor-server",
		EnableShellCompletion: true,
		Usage:                 "Start the conveyor HTTP server accepting trigger events and serving run state",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the server on",
				Value:   8080,
				Sources: cli.EnvVars("PORT"),
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
				Name:    "schedules-file",
				Usage:   "YAML file with cron schedules publishing synthetic trigger events",
				Value:   "",
				Sources: cli.EnvVars("SCHEDULES_FILE"),
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

			logger := log.WithModule("conveyor-server")

			logger.InfoContext(ctx, "Initializing conveyor server")

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "conveyor-server", logger)
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

			server := NewServer(logger, store, eventBus, guard)

			err = server.StartSchedules(ctx, command.String("schedules-file"))
			if err != nil {
				return err
			}

			return server.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
