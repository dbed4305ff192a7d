package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
	"github.com/criskgl/peritoai/internal/logger"
)

// IndexStore is the persisted index of embedded chunks.
//
// It pairs a chunk store with the embedding service used to build it. The
// store records which model produced its vectors; inserting or querying
// with another model fails with domain.ErrEmbeddingModelChanged until the
// index is rebuilt. It is created once at startup and released with Close.
type IndexStore struct {
	store    driven.ChunkStore
	embedder driven.EmbeddingService
	metrics  driven.Metrics
}

// NewIndexStore creates an index store.
// The embedder may be nil for read-only use; embedding calls then fail
// with domain.ErrEmbeddingUnavailable.
func NewIndexStore(store driven.ChunkStore, embedder driven.EmbeddingService) *IndexStore {
	return &IndexStore{
		store:    store,
		embedder: embedder,
		metrics:  nopMetrics{},
	}
}

// SetMetrics sets the metrics recorder.
func (s *IndexStore) SetMetrics(m driven.Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// Model returns the configured embedding model. It is zero when no
// embedder is configured or the embedder cannot tell.
func (s *IndexStore) Model() domain.EmbeddingModel {
	if s.embedder == nil {
		return domain.EmbeddingModel{}
	}
	return domain.EmbeddingModel{Name: s.embedder.ModelName(), Dimensions: s.embedder.Dimensions()}
}

// CheckModel fails with domain.ErrEmbeddingModelChanged when the stored
// vectors were produced by another model than the configured one. An empty
// index, an index with no recorded model and an unknown configured model
// all pass.
func (s *IndexStore) CheckModel(ctx context.Context) error {
	_, err := s.checkModel(ctx)
	return err
}

// checkModel is CheckModel returning the recorded model.
func (s *IndexStore) checkModel(ctx context.Context) (domain.EmbeddingModel, error) {
	recorded, err := s.store.EmbeddingModel(ctx)
	if err != nil {
		return domain.EmbeddingModel{}, fmt.Errorf("read embedding model: %w", err)
	}
	configured := s.Model()
	if recorded.IsZero() || configured.IsZero() || recorded.Compatible(configured) {
		return recorded, nil
	}

	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return domain.EmbeddingModel{}, fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		return recorded, nil
	}
	return recorded, fmt.Errorf("%w: the index was built with %s but %s is configured; run 'peritoai index --rebuild'",
		domain.ErrEmbeddingModelChanged, recorded, configured)
}

// IsIndexed reports whether the document has any stored chunk.
func (s *IndexStore) IsIndexed(ctx context.Context, ref domain.DocumentRef) (bool, error) {
	ok, err := s.store.IsIndexed(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", ref, err)
	}
	return ok, nil
}

// Insert stores a document with its embedded chunks.
// Every chunk must carry an embedding.
func (s *IndexStore) Insert(
	ctx context.Context, doc domain.Document, chunks []domain.Chunk, mode domain.InsertMode,
) (bool, error) {
	if len(chunks) == 0 {
		return false, fmt.Errorf("%w: document %s has no chunks", domain.ErrInvalidInput, doc.Ref())
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return false, fmt.Errorf("%w: chunk %s of %s has no embedding", domain.ErrInvalidInput, c.ID, doc.Ref())
		}
	}

	recorded, err := s.checkModel(ctx)
	if err != nil {
		return false, err
	}

	doc.ChunkCount = len(chunks)
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = time.Now().UTC()
	}

	inserted, err := s.store.Insert(ctx, doc, chunks, mode)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", doc.Ref(), err)
	}
	if !inserted {
		return false, nil
	}
	s.metrics.ChunksStored(len(chunks))

	if configured := s.Model(); !configured.IsZero() && recorded != configured {
		if err := s.store.SetEmbeddingModel(ctx, configured); err != nil {
			return true, fmt.Errorf("record embedding model: %w", err)
		}
	}
	return true, nil
}

// ListDocuments returns every indexed document ordered by id, then kind.
func (s *IndexStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and its chunks.
func (s *IndexStore) DeleteDocument(ctx context.Context, ref domain.DocumentRef) error {
	if err := s.store.DeleteDocument(ctx, ref); err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

// EmbedQuery embeds a query string.
// Failures are wrapped in domain.ErrEmbeddingService and not retried.
func (s *IndexStore) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	if err := s.CheckModel(ctx); err != nil {
		return nil, err
	}

	defer logger.Timed("embed query")()
	vec, err := s.embedder.Embed(ctx, query)
	s.metrics.EmbeddingRequest(err == nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err)
	}
	if err := s.checkVector(vec); err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrEmbeddingService, err)
	}
	return vec, nil
}

// EmbedChunks fills in the embedding of every chunk, batchSize texts per
// request. Chunks are updated in place.
func (s *IndexStore) EmbedChunks(ctx context.Context, chunks []domain.Chunk, batchSize int) error {
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	if batchSize <= 0 {
		batchSize = len(chunks)
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = chunks[start+i].Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		s.metrics.EmbeddingRequest(err == nil)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrEmbeddingService, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: expected %d embeddings, got %d",
				domain.ErrEmbeddingService, len(texts), len(vectors))
		}
		for i, v := range vectors {
			if err := s.checkVector(v); err != nil {
				return fmt.Errorf("%w: chunk %s: %w", domain.ErrEmbeddingService, chunks[start+i].ID, err)
			}
			chunks[start+i].Embedding = v
		}
	}
	return nil
}

// checkVector rejects empty vectors and vectors whose length differs from
// the embedder's declared dimensions.
func (s *IndexStore) checkVector(v []float32) error {
	if len(v) == 0 {
		return errors.New("empty embedding returned")
	}
	if dims := s.embedder.Dimensions(); dims > 0 && len(v) != dims {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(v), dims)
	}
	return nil
}

// Search embeds query once and returns up to limit chunks of refs ranked by
// similarity. An empty refs set returns nothing without embedding.
func (s *IndexStore) Search(
	ctx context.Context, query string, refs []domain.DocumentRef, limit int,
) ([]domain.ScoredChunk, error) {
	if len(refs) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	vec, err := s.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.SearchVector(ctx, vec, refs, limit)
}

// SearchVector is Search with a query that is already embedded.
func (s *IndexStore) SearchVector(
	ctx context.Context, vec []float32, refs []domain.DocumentRef, limit int,
) ([]domain.ScoredChunk, error) {
	if len(refs) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	start := time.Now()
	results, err := s.store.Search(ctx, vec, refs, limit)
	s.metrics.SearchCompleted(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// Close releases the chunk store and the embedding service.
func (s *IndexStore) Close() error {
	var errs []error
	if s.embedder != nil {
		if err := s.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close embedder: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
