// Package registry maps runner IDs to their factories and validates step
// configuration before a runner is built.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/conveyor-ci/conveyor/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger          *slog.Logger
	runnerFactories map[string]protocol.RunnerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:          logger,
		runnerFactories: make(map[string]protocol.RunnerFactory),
	}
}

func (r *Registry) RegisterRunner(factory protocol.RunnerFactory) {
	r.runnerFactories[factory.ID()] = factory
}

// RunnerIDs returns the registered runner identifiers.
func (r *Registry) RunnerIDs() []string {
	ids := make([]string, 0, len(r.runnerFactories))
	for id := range r.runnerFactories {
		ids = append(ids, id)
	}

	return ids
}

// CreateRunner validates config against the factory schema and builds the
// runner.
func (r *Registry) CreateRunner(runnerID string, config map[string]any) (protocol.Runner, error) {
	factory, ok := r.runnerFactories[runnerID]
	if !ok {
		return nil, fmt.Errorf("runner '%s' not registered", runnerID)
	}

	if err := r.validateConfig(factory, config); err != nil {
		return nil, fmt.Errorf("invalid configuration for runner '%s': %w", runnerID, err)
	}

	return factory.Create(config)
}

func (r *Registry) validateConfig(factory protocol.RunnerFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal runner schema: %w", err)
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal runner config: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(configJSON),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			r.logger.Warn("Runner configuration rejected",
				"runner", factory.ID(), "violation", desc.String())
		}

		return fmt.Errorf("configuration does not match schema: %s", result.Errors()[0].String())
	}

	return nil
}
