// Package postprocessors turns extracted document text into chunks.
// A pipeline applies text filters in order and hands the result to the
// chunker.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline chains text filters and a chunker.
type Pipeline struct {
	chunker driven.Chunker
	filters []driven.TextFilter
}

// NewPipeline creates a pipeline that runs filters in the order provided,
// then chunks the text.
func NewPipeline(chunker driven.Chunker, filters ...driven.TextFilter) *Pipeline {
	return &Pipeline{
		chunker: chunker,
		filters: filters,
	}
}

// Process filters text and splits it into chunks owned by doc.
func (p *Pipeline) Process(ctx context.Context, doc domain.Document, text string) ([]domain.Chunk, error) {
	if p.chunker == nil {
		return nil, fmt.Errorf("%w: pipeline has no chunker", domain.ErrConfiguration)
	}

	for _, f := range p.filters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text = f.Apply(text)
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return p.chunker.Chunk(doc, text), nil
}

// Names returns the filter names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = f.Name()
	}
	return names
}
