// Package memory provides an in-memory chunk store for tests and
// ephemeral runs. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// A document's chunk set is swapped under the write lock, so readers never
// see a partial replacement.
type ChunkStore struct {
	mu        sync.RWMutex
	documents map[domain.DocumentRef]domain.Document
	chunks    map[domain.DocumentRef][]domain.Chunk
	model     domain.EmbeddingModel
	now       func() time.Time
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		documents: make(map[domain.DocumentRef]domain.Document),
		chunks:    make(map[domain.DocumentRef][]domain.Chunk),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IsIndexed reports whether the document has at least one chunk.
func (s *ChunkStore) IsIndexed(_ context.Context, ref domain.DocumentRef) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[ref]) > 0, nil
}

// Insert stores a document and its chunks.
func (s *ChunkStore) Insert(
	_ context.Context, doc domain.Document, chunks []domain.Chunk, mode domain.InsertMode,
) (bool, error) {
	if doc.ID == "" || !doc.Kind.IsValid() {
		return false, fmt.Errorf("%w: document needs an id and a valid kind", domain.ErrInvalidInput)
	}
	if len(chunks) == 0 {
		return false, fmt.Errorf("%w: document %s has no chunks", domain.ErrInvalidInput, doc.Ref())
	}

	ref := doc.Ref()
	stored := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.DocumentID = doc.ID
		c.Kind = doc.Kind
		c.Embedding = append([]float32(nil), c.Embedding...)
		stored[i] = c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == domain.InsertSkipIfPresent && len(s.chunks[ref]) > 0 {
		return false, nil
	}

	doc.ChunkCount = len(stored)
	doc.IndexedAt = s.now()
	s.documents[ref] = doc
	s.chunks[ref] = stored
	return true, nil
}

// ListDocuments returns all documents ordered by id, then kind.
func (s *ChunkStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Ref().Less(docs[j].Ref())
	})
	return docs, nil
}

// Search ranks the chunks of refs by cosine similarity to vector.
func (s *ChunkStore) Search(
	_ context.Context, vector []float32, refs []domain.DocumentRef, limit int,
) ([]domain.ScoredChunk, error) {
	if len(refs) == 0 {
		return []domain.ScoredChunk{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[domain.DocumentRef]bool, len(refs))
	var results []domain.ScoredChunk
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true

		for _, c := range s.chunks[ref] {
			score, err := domain.CosineSimilarity(vector, c.Embedding)
			if err != nil {
				return nil, fmt.Errorf("scoring chunk %s: %w", c.ID, err)
			}
			results = append(results, domain.ScoredChunk{Chunk: c, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return domain.RankBefore(results[i], results[j])
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []domain.ScoredChunk{}
	}
	return results, nil
}

// DeleteDocument removes a document and its chunks.
func (s *ChunkStore) DeleteDocument(_ context.Context, ref domain.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[ref]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, ref)
	delete(s.chunks, ref)
	return nil
}

// EmbeddingModel returns the recorded embedding model.
func (s *ChunkStore) EmbeddingModel(_ context.Context) (domain.EmbeddingModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, nil
}

// SetEmbeddingModel records the embedding model.
func (s *ChunkStore) SetEmbeddingModel(_ context.Context, model domain.EmbeddingModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
	return nil
}

// Close is a no-op for the in-memory store.
func (s *ChunkStore) Close() error {
	return nil
}
