package format

import "github.com/conveyor-ci/conveyor/pkg/protocol"

func NewRunnerFactory() protocol.RunnerFactory {
	return &RunnerFactory{}
}

type RunnerFactory struct{}

func (*RunnerFactory) ID() string {
	return "format"
}

func (*RunnerFactory) Schema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Format Check Runner Configuration",
		"description": "Discovers source files recursively and runs the formatting verifier in check-only mode",
		"properties": map[string]any{
			"dir": map[string]any{
				"type":        "string",
				"description": "Root directory relative to the job workspace",
			},
			"tool": map[string]any{
				"type":        "string",
				"description": "Formatting verifier executable",
				"default":     defaultTool,
			},
			"suffix": map[string]any{
				"type":        "string",
				"description": "Source file suffix to discover",
				"default":     defaultSuffix,
			},
			"exclude": map[string]any{
				"type":        "array",
				"description": "Directory names excluded from discovery (e.g. build output)",
				"items":       map[string]any{"type": "string"},
			},
			"env": map[string]any{
				"type":                 "object",
				"description":          "Environment overrides for the verifier invocation",
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
