package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/conveyor-ci/conveyor/pkg/log"
	"github.com/conveyor-ci/conveyor/pkg/models"
	"github.com/conveyor-ci/conveyor/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func jobsCommand() *cli.Command {
	return &cli.Command{
		Name:      "jobs",
		Usage:     "List the jobs an event would schedule, without running them",
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
		},
		Action: jobsAction,
	}
}

func jobsAction(ctx context.Context, command *cli.Command) error {
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

	workflows, err := workflow.NewLoader(logger).LoadRepository(repository)
	if err != nil {
		return err
	}

	event := models.TriggerEvent{
		Kind:       models.EventKind(command.String("event")),
		Repository: repository,
		Branch:     command.String("branch"),
		ReceivedAt: time.Now().UTC(),
	}

	scheduled := workflow.NewMatcher(logger).ScheduledJobs(event, workflows)
	if len(scheduled) == 0 {
		fmt.Println("No jobs scheduled for this event.")

		return nil
	}

	for _, job := range scheduled {
		fmt.Printf("%s/%s\n", job.Workflow.Name, job.Job.Name)
	}

	return nil
}
