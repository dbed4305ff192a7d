// Package storagetest holds the behaviour every driven.ChunkStore must share.
// Adapter packages run it from their own tests.
package storagetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) driven.ChunkStore

// Doc builds a test document.
func Doc(id string, kind domain.Kind) domain.Document {
	return domain.Document{
		ID:               id,
		Kind:             kind,
		DisplayName:      domain.DisplayName(id, kind),
		SourceFile:       id + ".pdf",
		SourcePath:       "/data/" + kind.Collection() + "/" + id + ".pdf",
		SourceCollection: kind.Collection(),
	}
}

// Chunks builds one chunk per vector, in sequence order.
func Chunks(doc domain.Document, vectors ...[]float32) []domain.Chunk {
	chunks := make([]domain.Chunk, len(vectors))
	for i, v := range vectors {
		chunks[i] = domain.Chunk{
			ID:         fmt.Sprintf("%s-%s-%d", doc.Kind, doc.ID, i),
			DocumentID: doc.ID,
			Kind:       doc.Kind,
			SourceFile: doc.SourceFile,
			SourcePath: doc.SourcePath,
			Sequence:   i,
			Text:       fmt.Sprintf("%s chunk %d", doc.ID, i),
			Embedding:  v,
		}
	}
	return chunks
}

// Run executes the shared suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("insert then indexed and listed once", func(t *testing.T) {
		testInsertIndexed(t, newStore(t))
	})
	t.Run("skip if present keeps old chunks", func(t *testing.T) {
		testSkipIfPresent(t, newStore(t))
	})
	t.Run("replace all swaps the whole set", func(t *testing.T) {
		testReplaceAll(t, newStore(t))
	})
	t.Run("rejects empty chunk set", func(t *testing.T) {
		testRejectsEmpty(t, newStore(t))
	})
	t.Run("same id in two kinds stays separate", func(t *testing.T) {
		testKindsSeparate(t, newStore(t))
	})
	t.Run("list is sorted", func(t *testing.T) {
		testListSorted(t, newStore(t))
	})
	t.Run("search restricted to refs", func(t *testing.T) {
		testSearchRestricted(t, newStore(t))
	})
	t.Run("search with no refs finds nothing", func(t *testing.T) {
		testSearchEmptyRefs(t, newStore(t))
	})
	t.Run("search ties are deterministic", func(t *testing.T) {
		testSearchTies(t, newStore(t))
	})
	t.Run("search limit", func(t *testing.T) {
		testSearchLimit(t, newStore(t))
	})
	t.Run("delete document", func(t *testing.T) {
		testDelete(t, newStore(t))
	})
	t.Run("embedding model is recorded", func(t *testing.T) {
		testEmbeddingModel(t, newStore(t))
	})
}

func testInsertIndexed(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	doc := Doc("POLIZA_HOGAR_GLOBAL", domain.KindPolicy)

	indexed, err := store.IsIndexed(ctx, doc.Ref())
	require.NoError(t, err)
	assert.False(t, indexed)

	inserted, err := store.Insert(ctx, doc, Chunks(doc, []float32{1, 0}, []float32{0, 1}), domain.InsertSkipIfPresent)
	require.NoError(t, err)
	assert.True(t, inserted)

	indexed, err = store.IsIndexed(ctx, doc.Ref())
	require.NoError(t, err)
	assert.True(t, indexed)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
	assert.Equal(t, doc.Kind, docs[0].Kind)
	assert.Equal(t, doc.DisplayName, docs[0].DisplayName)
	assert.Equal(t, doc.SourceFile, docs[0].SourceFile)
	assert.Equal(t, doc.SourcePath, docs[0].SourcePath)
	assert.Equal(t, doc.SourceCollection, docs[0].SourceCollection)
	assert.Equal(t, 2, docs[0].ChunkCount)
	assert.False(t, docs[0].IndexedAt.IsZero())
}

func testSkipIfPresent(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	doc := Doc("A", domain.KindPolicy)

	_, err := store.Insert(ctx, doc, Chunks(doc, []float32{1, 0}), domain.InsertSkipIfPresent)
	require.NoError(t, err)

	replacement := Chunks(doc, []float32{0, 1}, []float32{0, 1})
	replacement[0].ID, replacement[1].ID = "new-0", "new-1"
	inserted, err := store.Insert(ctx, doc, replacement, domain.InsertSkipIfPresent)
	require.NoError(t, err)
	assert.False(t, inserted)

	results, err := store.Search(ctx, []float32{1, 0}, []domain.DocumentRef{doc.Ref()}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "policy-A-0", results[0].Chunk.ID)
}

func testReplaceAll(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	doc := Doc("A", domain.KindPolicy)

	_, err := store.Insert(ctx, doc, Chunks(doc, []float32{1, 0}, []float32{1, 1}, []float32{0, 1}), domain.InsertSkipIfPresent)
	require.NoError(t, err)

	replacement := Chunks(doc, []float32{0, 1})
	replacement[0].ID = "new-0"
	replacement[0].Text = "new text"
	inserted, err := store.Insert(ctx, doc, replacement, domain.InsertReplaceAll)
	require.NoError(t, err)
	assert.True(t, inserted)

	results, err := store.Search(ctx, []float32{1, 0}, []domain.DocumentRef{doc.Ref()}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new-0", results[0].Chunk.ID)
	assert.Equal(t, "new text", results[0].Chunk.Text)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, docs[0].ChunkCount)
}

func testRejectsEmpty(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	doc := Doc("A", domain.KindPolicy)

	_, err := store.Insert(ctx, doc, nil, domain.InsertReplaceAll)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	indexed, err := store.IsIndexed(ctx, doc.Ref())
	require.NoError(t, err)
	assert.False(t, indexed)
}

func testKindsSeparate(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	policy := Doc("GENERAL", domain.KindPolicy)
	protocol := Doc("GENERAL", domain.KindProtocol)

	_, err := store.Insert(ctx, policy, Chunks(policy, []float32{1, 0}), domain.InsertSkipIfPresent)
	require.NoError(t, err)
	_, err = store.Insert(ctx, protocol, Chunks(protocol, []float32{0, 1}, []float32{1, 1}), domain.InsertSkipIfPresent)
	require.NoError(t, err)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, domain.KindPolicy, docs[0].Kind)
	assert.Equal(t, domain.KindProtocol, docs[1].Kind)

	results, err := store.Search(ctx, []float32{1, 0}, []domain.DocumentRef{protocol.Ref()}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, domain.KindProtocol, r.Chunk.Kind)
	}
}

func testListSorted(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		doc := Doc(id, domain.KindProtocol)
		_, err := store.Insert(ctx, doc, Chunks(doc, []float32{1}), domain.InsertSkipIfPresent)
		require.NoError(t, err)
	}

	first, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	second, err := store.ListDocuments(ctx)
	require.NoError(t, err)

	ids := make([]string, len(first))
	for i, d := range first {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, first, second)
}

func testSearchRestricted(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	a := Doc("A", domain.KindPolicy)
	b := Doc("B", domain.KindPolicy)

	_, err := store.Insert(ctx, a, Chunks(a, []float32{0.2, 1}, []float32{1, 0}), domain.InsertSkipIfPresent)
	require.NoError(t, err)
	_, err = store.Insert(ctx, b, Chunks(b, []float32{1, 0.01}), domain.InsertSkipIfPresent)
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0}, []domain.DocumentRef{a.Ref()}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Chunk.Sequence)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, 0, results[1].Chunk.Sequence)
	assert.Greater(t, results[0].Score, results[1].Score)
	for _, r := range results {
		assert.Equal(t, "A", r.Chunk.DocumentID)
		assert.Equal(t, "A.pdf", r.Chunk.SourceFile)
	}
}

func testSearchEmptyRefs(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	doc := Doc("A", domain.KindPolicy)
	_, err := store.Insert(ctx, doc, Chunks(doc, []float32{1, 0}), domain.InsertSkipIfPresent)
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = store.Search(ctx, []float32{1, 0}, []domain.DocumentRef{{Kind: domain.KindPolicy, ID: "missing"}}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func testSearchTies(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	a := Doc("A", domain.KindPolicy)
	b := Doc("B", domain.KindPolicy)
	same := []float32{1, 1}

	_, err := store.Insert(ctx, b, Chunks(b, same, same), domain.InsertSkipIfPresent)
	require.NoError(t, err)
	_, err = store.Insert(ctx, a, Chunks(a, same, same), domain.InsertSkipIfPresent)
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 1}, []domain.DocumentRef{b.Ref(), a.Ref()}, 0)
	require.NoError(t, err)
	require.Len(t, results, 4)

	got := make([]string, len(results))
	for i, r := range results {
		got[i] = fmt.Sprintf("%s%d", r.Chunk.DocumentID, r.Chunk.Sequence)
	}
	assert.Equal(t, []string{"A0", "B0", "A1", "B1"}, got)
}

func testSearchLimit(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	doc := Doc("A", domain.KindPolicy)
	_, err := store.Insert(ctx, doc,
		Chunks(doc, []float32{1, 0}, []float32{0.9, 0.1}, []float32{0.5, 0.5}, []float32{0, 1}),
		domain.InsertSkipIfPresent)
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0}, []domain.DocumentRef{doc.Ref()}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Chunk.Sequence)
	assert.Equal(t, 1, results[1].Chunk.Sequence)
}

func testDelete(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()
	doc := Doc("A", domain.KindPolicy)
	_, err := store.Insert(ctx, doc, Chunks(doc, []float32{1, 0}), domain.InsertSkipIfPresent)
	require.NoError(t, err)

	require.NoError(t, store.DeleteDocument(ctx, doc.Ref()))

	indexed, err := store.IsIndexed(ctx, doc.Ref())
	require.NoError(t, err)
	assert.False(t, indexed)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.ErrorIs(t, store.DeleteDocument(ctx, doc.Ref()), domain.ErrNotFound)
}

func testEmbeddingModel(t *testing.T, store driven.ChunkStore) {
	ctx := context.Background()

	model, err := store.EmbeddingModel(ctx)
	require.NoError(t, err)
	assert.True(t, model.IsZero())

	require.NoError(t, store.SetEmbeddingModel(ctx, domain.EmbeddingModel{Name: "hashing", Dimensions: 256}))
	require.NoError(t, store.SetEmbeddingModel(ctx, domain.EmbeddingModel{Name: "hashing", Dimensions: 768}))

	model, err = store.EmbeddingModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingModel{Name: "hashing", Dimensions: 768}, model)
}
