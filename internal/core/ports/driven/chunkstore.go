package driven

import (
	"context"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// ChunkStore persists documents with their embedded chunks and answers
// similarity queries over them.
//
// Implementations must make Insert atomic per document: a reader never
// observes a document with a mix of old and new chunks.
type ChunkStore interface {
	// IsIndexed reports whether at least one chunk of the document is stored.
	IsIndexed(ctx context.Context, ref domain.DocumentRef) (bool, error)

	// Insert stores doc and all of its chunks in one transaction.
	// With InsertSkipIfPresent an indexed document is left untouched and
	// inserted is false. With InsertReplaceAll prior chunks are removed
	// before the new set is written.
	Insert(ctx context.Context, doc domain.Document, chunks []domain.Chunk, mode domain.InsertMode) (inserted bool, err error)

	// ListDocuments returns one entry per indexed document, ordered by id
	// then kind.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// Search returns up to limit chunks belonging to refs, ranked by cosine
	// similarity to vector (see domain.RankBefore). An empty refs set
	// matches nothing. A limit of zero or less returns every match.
	Search(ctx context.Context, vector []float32, refs []domain.DocumentRef, limit int) ([]domain.ScoredChunk, error)

	// DeleteDocument removes a document and its chunks.
	// Deleting a missing document returns domain.ErrNotFound.
	DeleteDocument(ctx context.Context, ref domain.DocumentRef) error

	// EmbeddingModel returns the model recorded for the stored vectors, or
	// the zero value when none has been recorded.
	EmbeddingModel(ctx context.Context) (domain.EmbeddingModel, error)

	// SetEmbeddingModel records the model that produced the stored vectors.
	SetEmbeddingModel(ctx context.Context, model domain.EmbeddingModel) error

	// Close releases resources.
	Close() error
}
