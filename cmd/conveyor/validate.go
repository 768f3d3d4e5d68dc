package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/conveyor-ci/conveyor/pkg/log"
	"github.com/conveyor-ci/conveyor/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Parse and validate the repository's workflow definitions",
		ArgsUsage: "[repository]",
		Action:    validateAction,
	}
}

func validateAction(ctx context.Context, command *cli.Command) error {
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

	if len(workflows) == 0 {
		fmt.Printf("No workflow definitions found under %s.\n", filepath.Join(repository, workflow.DefaultDir))

		return nil
	}

	for _, wf := range workflows {
		fmt.Printf("%s: ok (%d jobs)\n", wf.Name, len(wf.Jobs))
	}

	return nil
}
