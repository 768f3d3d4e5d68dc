// Package cmd provides common initialization functions for the conveyor
// command-line applications.
package cmd

import (
	"log/slog"

	"github.com/conveyor-ci/conveyor/pkg/registry"
	"github.com/conveyor-ci/conveyor/pkg/runners/build"
	"github.com/conveyor-ci/conveyor/pkg/runners/checkout"
	"github.com/conveyor-ci/conveyor/pkg/runners/format"
)

func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerNativeRunners(reg)

	return reg
}

func registerNativeRunners(reg *registry.Registry) {
	reg.RegisterRunner(checkout.NewRunnerFactory())
	reg.RegisterRunner(build.NewRunnerFactory())
	reg.RegisterRunner(format.NewRunnerFactory())
}
