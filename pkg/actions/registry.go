package actions

import (
	"fmt"
	"log/slog"

	"github.com/radiflow/radiflow/pkg/models"
)

// Registry is the kind-keyed dispatch table for action factories. New
// action kinds register a factory; the traversal core never branches on
// kind strings.
type Registry struct {
	logger    *slog.Logger
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]Factory),
	}
}

// Register adds an action factory under its kind.
func (r *Registry) Register(factory Factory) {
	r.factories[factory.Kind()] = factory
}

// Create builds an action for the given kind from a node payload.
func (r *Registry) Create(kind string, data models.NodeData) (Action, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("action type %q not registered", kind)
	}

	return factory.Create(data)
}

// Kinds returns the registered action kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}
