package postprocessors

import (
	"fmt"
	"strings"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
	"github.com/criskgl/peritoai/internal/logger"
	"github.com/criskgl/peritoai/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in filters with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(FilterWhitespace, func() driven.TextFilter { return Whitespace{} })
	r.Register(FilterDehyphenate, func() driven.TextFilter { return Dehyphenate{} })
	r.Register(FilterPageNumbers, func() driven.TextFilter { return PageNumbers{} })
}

// Build creates the pipeline described by settings: the configured filters
// followed by a chunker with the configured size and overlap.
// Invalid settings are reported as domain.ErrConfiguration.
func Build(settings domain.ChunkingSettings) (*Pipeline, error) {
	c, err := chunker.New(
		chunker.WithChunkSize(settings.Size),
		chunker.WithOverlap(settings.Overlap),
	)
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	RegisterDefaults(r)

	filters, err := r.BuildAll(settings.Filters)
	if err != nil {
		return nil, fmt.Errorf("chunking filters: %w", err)
	}

	p := NewPipeline(c, filters...)
	logger.Debug("Chunk filters: %s", strings.Join(p.Names(), ", "))
	return p, nil
}
