package build

import "github.com/conveyor-ci/conveyor/pkg/protocol"

func NewRunnerFactory() protocol.RunnerFactory {
	return &RunnerFactory{}
}

type RunnerFactory struct{}

func (*RunnerFactory) ID() string {
	return "build"
}

func (*RunnerFactory) Schema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Build Runner Configuration",
		"description": "Invokes the build tool in a working directory with an optional feature-flag set",
		"properties": map[string]any{
			"dir": map[string]any{
				"type":        "string",
				"description": "Working directory relative to the job workspace",
			},
			"tool": map[string]any{
				"type":        "string",
				"description": "Build tool executable",
				"default":     defaultTool,
			},
			"features": map[string]any{
				"type":        "array",
				"description": "Feature flags enabled for this build",
				"items":       map[string]any{"type": "string"},
			},
			"args": map[string]any{
				"type":        "array",
				"description": "Extra arguments appended to the build invocation",
				"items":       map[string]any{"type": "string"},
			},
			"env": map[string]any{
				"type":                 "object",
				"description":          "Environment overrides for the build invocation",
				"additionalProperties": map[string]any{"type": "string"},
			},
		},
		"additionalProperties": false,
	}
}

func (f *RunnerFactory) Create(config map[string]any) (protocol.Runner, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewRunner(config), nil
}
