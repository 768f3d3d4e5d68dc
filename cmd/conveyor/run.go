package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/conveyor-ci/conveyor/pkg/cmd"
	"github.com/conveyor-ci/conveyor/pkg/log"
	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/persistence/file"
	"github.com/conveyor-ci/conveyor/pkg/pipeline"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Evaluate a trigger event against a repository and execute the matched jobs",
		ArgsUsage: "[repository]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "event",
				Aliases: []string{"e"},
				Usage:   "Event kind (push, merge_request, schedule)",
				Value:   "push",
			},
			&cli.StringFlag{
				Name:    "branch",
				Aliases: []string{"b"},
				Usage:   "Branch the event refers to",
				Value:   "main",
			},
			&cli.StringFlag{
				Name:  "revision",
				Usage: "Commit to check out (defaults to the branch tip)",
				Value: "",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Where to store run state",
				Value:   "file://.conveyor/runs",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:  "work-root",
				Usage: "Base directory for job workspaces and logs",
				Value: "",
			},
			&cli.BoolFlag{
				Name:  "keep-workspaces",
				Usage: "Retain job workspaces after the run",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, command *cli.Command) error {
	log.Setup(command.Root().String("log-level"))
	logger := log.WithModule("conveyor")

	repository := command.Args().First()
	if repository == "" {
		repository = "."
	}

	repository, err := filepath.Abs(repository)
	if err != nil {
		return err
	}

	event := models.TriggerEvent{
		ID:         uuid.New().String(),
		Kind:       models.EventKind(command.String("event")),
		Repository: repository,
		Branch:     command.String("branch"),
		Revision:   command.String("revision"),
		ReceivedAt: time.Now().UTC(),
	}

	store := file.NewPersistence(command.String("database-url"))
	defer func() {
		_ = store.Close(ctx)
	}()

	executor := pipeline.NewExecutor(logger, cmd.NewRegistry(logger), store, pipeline.Config{
		WorkRoot:       command.String("work-root"),
		WorkerID:       "local",
		KeepWorkspaces: command.Bool("keep-workspaces"),
	})

	run, err := executor.Execute(ctx, event)
	if err != nil {
		return err
	}

	if run == nil {
		fmt.Println("No workflow matched the event; nothing to run.")

		return nil
	}

	printRun(run)

	if run.Failed() {
		return fmt.Errorf("run %s failed", run.ID)
	}

	return nil
}

func printRun(run *models.PipelineRun) {
	fmt.Printf("Run %s: %s\n", run.ID, run.Status)

	for _, job := range run.Jobs {
		fmt.Printf("  %s/%s: %s", job.Workflow, job.Name, job.Status)

		if job.Error != "" {
			fmt.Printf(" (%s)", job.Error)
		}

		fmt.Println()

		if job.LogPath != "" {
			fmt.Printf("    log: %s\n", job.LogPath)
		}
	}
}
