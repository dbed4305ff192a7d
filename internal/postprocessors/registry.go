package postprocessors

import (
	"fmt"
	"sort"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// BuilderFunc creates a TextFilter.
type BuilderFunc func() driven.TextFilter

// Registry maps filter names to their builders.
// It allows the filter chain to be selected from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new filter registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a filter builder to the registry.
// Name should match the filter's Name() return value.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a filter by name.
func (r *Registry) Build(name string) (driven.TextFilter, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown text filter %q", domain.ErrConfiguration, name)
	}
	return builder(), nil
}

// BuildAll creates filters for names, preserving their order.
func (r *Registry) BuildAll(names []string) ([]driven.TextFilter, error) {
	filters := make([]driven.TextFilter, 0, len(names))
	for _, name := range names {
		f, err := r.Build(name)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// Has returns true if a filter with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered filter names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
