package checkout

import "github.com/conveyor-ci/conveyor/pkg/protocol"

func NewRunnerFactory() protocol.RunnerFactory {
	return &RunnerFactory{}
}

type RunnerFactory struct{}

func (*RunnerFactory) ID() string {
	return "checkout"
}

func (*RunnerFactory) Schema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Checkout Runner Configuration",
		"description": "Clones the repository of the triggering event into the job workspace",
		"properties": map[string]any{
			"depth": map[string]any{
				"type":        "integer",
				"description": "Clone depth; 0 clones the full history",
				"minimum":     0,
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
