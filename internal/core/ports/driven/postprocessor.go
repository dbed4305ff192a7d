package driven

import (
	"context"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// TextFilter cleans extracted text before it is chunked.
// Filters are chained in a pipeline (e.g., whitespace, dehyphenation).
type TextFilter interface {
	// Name returns the filter name for logging and configuration.
	Name() string

	// Apply returns the cleaned text.
	Apply(text string) string
}

// Chunker splits a document's text into chunks without embeddings.
type Chunker interface {
	Chunk(doc domain.Document, text string) []domain.Chunk
}

// PostProcessorPipeline turns extracted text into chunks.
type PostProcessorPipeline interface {
	// Process runs every filter in order, then chunks the result.
	// Text that is empty after filtering produces no chunks.
	Process(ctx context.Context, doc domain.Document, text string) ([]domain.Chunk, error)
}
