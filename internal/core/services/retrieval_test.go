package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criskgl/peritoai/internal/claims"
	"github.com/criskgl/peritoai/internal/core/domain"
)

// newIndexedRetrieval indexes the sample collections and returns a
// retrieval service over them.
func newIndexedRetrieval(t *testing.T, settings domain.RetrievalSettings) (*RetrievalService, *fixture) {
	t.Helper()
	f := newFixture(t.TempDir())
	f.addFile(f.policies, "POLIZA_HOGAR_GLOBAL.pdf", hogarText)
	f.addFile(f.policies, "POLIZA_AUTO.pdf", autoText)
	f.addFile(f.protocols, "21._Lluvia_y_nieve.pdf", lluviaText)
	f.addFile(f.protocols, "07._Incendio.pdf", incendioText)

	_, err := f.service.Index(context.Background(), domain.IndexOptions{})
	require.NoError(t, err)

	svc := NewRetrievalService(f.index, settings)
	svc.SetMetrics(f.metrics)
	return svc, f
}

func chunksPerDocument(chunks []domain.ScoredChunk) map[domain.DocumentRef]int {
	counts := make(map[domain.DocumentRef]int)
	for _, sc := range chunks {
		counts[sc.Chunk.Ref()]++
	}
	return counts
}

func TestRetrievalService_BuildContext_WaterDamage(t *testing.T) {
	svc, f := newIndexedRetrieval(t, domain.RetrievalSettings{})
	req := domain.ContextRequest{
		Query:            "daños por agua",
		DocumentIDs:      []string{"POLIZA_HOGAR_GLOBAL", "21._Lluvia_y_nieve"},
		PerDocumentLimit: 3,
	}

	bundle, err := svc.BuildContext(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "daños por agua", bundle.Query)
	assert.Empty(t, bundle.Unresolved)

	require.Len(t, bundle.Chunks, 6)
	counts := chunksPerDocument(bundle.Chunks)
	assert.Equal(t, 3, counts[domain.DocumentRef{Kind: domain.KindPolicy, ID: "POLIZA_HOGAR_GLOBAL"}])
	assert.Equal(t, 3, counts[domain.DocumentRef{Kind: domain.KindProtocol, ID: "21._Lluvia_y_nieve"}])

	for i := 1; i < len(bundle.Chunks); i++ {
		assert.False(t, domain.RankBefore(bundle.Chunks[i], bundle.Chunks[i-1]), "chunks are in rank order")
	}

	require.Len(t, bundle.Documents, 2)
	assert.Equal(t, bundle.Chunks[0].Chunk.Ref(), bundle.Documents[0].Ref(), "best chunk's document comes first")

	ctx := bundle.Context
	assert.Equal(t, 1, strings.Count(ctx, "[Póliza: POLIZA_HOGAR_GLOBAL]"))
	assert.Equal(t, 1, strings.Count(ctx, "[Protocolo: 21. Lluvia y nieve]"))
	assert.Contains(t, ctx, "(Fuente: POLIZA_HOGAR_GLOBAL.pdf)")
	assert.Contains(t, ctx, "(Fuente: 21._Lluvia_y_nieve.pdf)")
	assert.Contains(t, ctx, "daños por agua")
	assert.NotContains(t, ctx, "POLIZA_AUTO")
	assert.NotContains(t, ctx, "Incendio")

	assert.Equal(t, []int{6}, f.metrics.contexts)
}

func TestRetrievalService_BuildContext_Deterministic(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{})
	req := domain.ContextRequest{
		Query:            "daños por agua",
		DocumentIDs:      []string{"POLIZA_HOGAR_GLOBAL", "21._Lluvia_y_nieve"},
		PerDocumentLimit: 3,
	}

	first, err := svc.BuildContext(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.BuildContext(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Context, second.Context)
}

func TestRetrievalService_BuildContext_SelectionOrderDoesNotMatter(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{})

	a, err := svc.BuildContext(context.Background(), domain.ContextRequest{
		Query:       "daños por agua",
		DocumentIDs: []string{"POLIZA_HOGAR_GLOBAL", "21._Lluvia_y_nieve"},
	})
	require.NoError(t, err)
	b, err := svc.BuildContext(context.Background(), domain.ContextRequest{
		Query:       "daños por agua",
		DocumentIDs: []string{"21._Lluvia_y_nieve", "POLIZA_HOGAR_GLOBAL"},
	})
	require.NoError(t, err)

	assert.Equal(t, a.Context, b.Context)
}

func TestRetrievalService_BuildContext_Budget(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{})
	req := domain.ContextRequest{
		Query:            "daños por agua",
		DocumentIDs:      []string{"POLIZA_HOGAR_GLOBAL", "21._Lluvia_y_nieve"},
		PerDocumentLimit: 3,
	}

	full, err := svc.BuildContext(context.Background(), req)
	require.NoError(t, err)

	req.TotalChunkBudget = 1
	cut, err := svc.BuildContext(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, full.Chunks[:1], cut.Chunks, "a budget below the document count cuts by global rank")

	req.TotalChunkBudget = 2
	cut, err = svc.BuildContext(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, cut.Chunks, 2)
	assert.Equal(t, full.Chunks[0], cut.Chunks[0])
	for ref, n := range chunksPerDocument(cut.Chunks) {
		assert.Equal(t, 1, n, "%s keeps its best chunk", ref)
	}
	assert.Len(t, cut.Documents, 2)
	assert.Equal(t, 2, strings.Count(cut.Context, "[Sección "))
}

func TestRetrievalService_BuildContext_BudgetKeepsEveryDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t.TempDir())
	f.addFile(f.policies, "POLIZA_HOGAR_GLOBAL.pdf", hogarText)
	f.addFile(f.protocols, "22._Nieve.pdf", nieveText)
	_, err := f.service.Index(ctx, domain.IndexOptions{})
	require.NoError(t, err)
	svc := NewRetrievalService(f.index, domain.RetrievalSettings{})

	bundle, err := svc.BuildContext(ctx, domain.ContextRequest{
		Query:            "daños por agua",
		DocumentIDs:      []string{"POLIZA_HOGAR_GLOBAL", "22._Nieve"},
		PerDocumentLimit: 3,
		TotalChunkBudget: 3,
	})

	require.NoError(t, err)
	require.Len(t, bundle.Chunks, 3)
	counts := chunksPerDocument(bundle.Chunks)
	assert.GreaterOrEqual(t, counts[domain.DocumentRef{Kind: domain.KindPolicy, ID: "POLIZA_HOGAR_GLOBAL"}], 1)
	assert.GreaterOrEqual(t, counts[domain.DocumentRef{Kind: domain.KindProtocol, ID: "22._Nieve"}], 1)
	require.Len(t, bundle.Documents, 2)
	assert.Contains(t, bundle.Context, "[Protocolo: 22. Nieve]")

	for i := 1; i < len(bundle.Chunks); i++ {
		assert.False(t, domain.RankBefore(bundle.Chunks[i], bundle.Chunks[i-1]), "chunks are in rank order")
	}
}

func TestRetrievalService_BuildContext_NegativeBudgetIsUnlimited(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{PerDocumentLimit: 3, TotalChunkBudget: 2})
	req := domain.ContextRequest{
		Query:       "daños por agua",
		DocumentIDs: []string{"POLIZA_HOGAR_GLOBAL", "21._Lluvia_y_nieve"},
	}

	capped, err := svc.BuildContext(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, capped.Chunks, 2, "zero selects the configured budget")

	req.TotalChunkBudget = -1
	unlimited, err := svc.BuildContext(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, unlimited.Chunks, 6)
}

func TestRetrievalService_BuildContext_DefaultLimits(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{PerDocumentLimit: 2, TotalChunkBudget: 3})

	bundle, err := svc.BuildContext(context.Background(), domain.ContextRequest{
		Query:       "daños por agua",
		DocumentIDs: []string{"POLIZA_HOGAR_GLOBAL", "21._Lluvia_y_nieve"},
	})

	require.NoError(t, err)
	assert.Len(t, bundle.Chunks, 3)
	for _, n := range chunksPerDocument(bundle.Chunks) {
		assert.LessOrEqual(t, n, 2)
	}
}

func TestRetrievalService_BuildContext_PartialResolution(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{})

	bundle, err := svc.BuildContext(context.Background(), domain.ContextRequest{
		Query:       "daños por agua",
		DocumentIDs: []string{"poliza_hogar_global", "POLIZA_INEXISTENTE", "protocolo:lluvia", "POLIZA_HOGAR_GLOBAL"},
	})

	require.NoError(t, err)
	require.Len(t, bundle.Documents, 2)
	require.Len(t, bundle.Unresolved, 1)
	assert.Equal(t, "POLIZA_INEXISTENTE", bundle.Unresolved[0].Raw)
	assert.ErrorIs(t, bundle.Unresolved[0].Err, domain.ErrNotFound)
}

func TestRetrievalService_BuildContext_NothingResolved(t *testing.T) {
	svc, f := newIndexedRetrieval(t, domain.RetrievalSettings{})

	_, err := svc.BuildContext(context.Background(), domain.ContextRequest{
		Query:       "daños por agua",
		DocumentIDs: []string{"POLIZA"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoRelevantDocuments)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	var noDocs *domain.NoRelevantDocumentsError
	require.True(t, errors.As(err, &noDocs))
	require.Len(t, noDocs.Failures, 1)
	assert.ErrorIs(t, noDocs.Failures[0].Err, domain.ErrAmbiguousIdentifier)

	embed, _ := f.embedder.calls()
	assert.Zero(t, embed, "nothing is embedded when nothing resolves")
}

func TestRetrievalService_BuildContext_NoDocuments(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{})

	_, err := svc.BuildContext(context.Background(), domain.ContextRequest{Query: "agua"})

	assert.ErrorIs(t, err, domain.ErrNoRelevantDocuments)
}

func TestRetrievalService_BuildContext_QueryFromClaim(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{})
	claim := "Póliza: 80012345\nCausa: Lluvia y nieve\nDescripción del siniestro: Entrada de agua por la cubierta."

	bundle, err := svc.BuildContext(context.Background(), domain.ContextRequest{
		DocumentIDs: []string{"21._Lluvia_y_nieve"},
		ClaimText:   claim,
	})

	require.NoError(t, err)
	assert.Equal(t, claims.Parse(claim).Query(), bundle.Query)
	assert.NotEmpty(t, bundle.Chunks)
}

func TestRetrievalService_BuildContext_EmptyQuery(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{})

	_, err := svc.BuildContext(context.Background(), domain.ContextRequest{
		Query:       "  ",
		DocumentIDs: []string{"POLIZA_AUTO"},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_BuildContext_EmbeddingFailure(t *testing.T) {
	svc, f := newIndexedRetrieval(t, domain.RetrievalSettings{})
	f.embedder.fail(errEmbedding)

	_, err := svc.BuildContext(context.Background(), domain.ContextRequest{
		Query:       "agua",
		DocumentIDs: []string{"POLIZA_AUTO"},
	})

	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
}

func TestRetrievalService_ResolveDocument(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{})
	ctx := context.Background()

	doc, err := svc.ResolveDocument(ctx, "incendio")
	require.NoError(t, err)
	assert.Equal(t, "07._Incendio", doc.ID)
	assert.Equal(t, domain.KindProtocol, doc.Kind)

	_, err = svc.ResolveDocument(ctx, "granizo")
	var notFound *domain.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, []string{"07._Incendio", "21._Lluvia_y_nieve", "POLIZA_AUTO", "POLIZA_HOGAR_GLOBAL"}, notFound.Suggestions)
}

func TestRetrievalService_ListDocuments(t *testing.T) {
	svc, _ := newIndexedRetrieval(t, domain.RetrievalSettings{})

	docs, err := svc.ListDocuments(context.Background())

	require.NoError(t, err)
	assert.Len(t, docs, 4)
}
