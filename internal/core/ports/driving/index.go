package driving

import (
	"context"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// IndexService ingests the document collections.
type IndexService interface {
	// Index runs one indexing pass over the selected collections.
	// Per-file extraction failures are reported, never returned as errors.
	Index(ctx context.Context, opts domain.IndexOptions) (*domain.IndexReport, error)

	// Watch reindexes files as they change until ctx is cancelled.
	Watch(ctx context.Context) error

	// RemoveDocument deletes a document and its chunks from the index.
	RemoveDocument(ctx context.Context, ref domain.DocumentRef) error
}
