package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/criskgl/peritoai/internal/claims"
	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
	"github.com/criskgl/peritoai/internal/core/ports/driving"
	"github.com/criskgl/peritoai/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService builds grounded context from a selection of documents.
type RetrievalService struct {
	index   *IndexStore
	metrics driven.Metrics

	defaultPerDocument int
	defaultBudget      int
}

// NewRetrievalService creates a retrieval service over index.
// Requests without limits use the given retrieval settings.
func NewRetrievalService(index *IndexStore, settings domain.RetrievalSettings) *RetrievalService {
	perDoc := settings.PerDocumentLimit
	if perDoc <= 0 {
		perDoc = domain.DefaultPerDocumentLimit
	}
	return &RetrievalService{
		index:              index,
		metrics:            nopMetrics{},
		defaultPerDocument: perDoc,
		defaultBudget:      settings.TotalChunkBudget,
	}
}

// SetMetrics sets the metrics recorder.
func (s *RetrievalService) SetMetrics(m driven.Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// ListDocuments returns every indexed document.
func (s *RetrievalService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.index.ListDocuments(ctx)
}

// ResolveDocument maps a raw identifier to an indexed document.
func (s *RetrievalService) ResolveDocument(ctx context.Context, raw string) (*domain.Document, error) {
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := domain.Resolve(raw, docs)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// BuildContext resolves the selected documents, searches each one for the
// query and formats the ranked chunks.
//
// Every resolved document is searched separately with the per-document
// limit so a long or very similar document cannot crowd out the others.
// The merged set is then cut to the total budget: when the budget covers
// every document with matches, each keeps its best chunk and the rest is
// filled by global rank; a smaller budget is a plain cut by global rank.
// Identifiers that fail to resolve are reported in the bundle; when none
// resolves, or nothing matches, the result is
// *domain.NoRelevantDocumentsError.
func (s *RetrievalService) BuildContext(
	ctx context.Context, req domain.ContextRequest,
) (*domain.ContextBundle, error) {
	logger.Section("Build Context")
	defer logger.Timed("build context")()

	query := strings.TrimSpace(req.Query)
	if query == "" && strings.TrimSpace(req.ClaimText) != "" {
		query = claims.Parse(req.ClaimText).Query()
		logger.Debug("Query from claim: %q", query)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: a query or claim text is required", domain.ErrInvalidInput)
	}

	perDoc := req.PerDocumentLimit
	if perDoc <= 0 {
		perDoc = s.defaultPerDocument
	}
	budget := req.TotalChunkBudget
	if budget == 0 {
		budget = s.defaultBudget
	}
	logger.Debug("Query: %q, per document: %d, budget: %d", query, perDoc, budget)

	// 1. Resolve identifiers against the current index.
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	resolved, failures := resolveAll(req.DocumentIDs, docs)
	for _, f := range failures {
		logger.Warn("Unresolved %q: %v", f.Raw, f.Err)
	}

	// 2. Nothing to search.
	if len(resolved) == 0 {
		return nil, &domain.NoRelevantDocumentsError{
			Reason:   "no document identifier resolved",
			Failures: failures,
		}
	}

	// 3. Search each document with the same query vector.
	vec, err := s.index.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	perDocResults, err := s.searchEach(ctx, vec, resolved, perDoc)
	if err != nil {
		return nil, err
	}

	// 4. Merge and cut to the budget.
	var merged []domain.ScoredChunk
	for _, r := range perDocResults {
		merged = append(merged, r...)
	}
	ranked := applyBudget(rankChunks(merged), budget)
	if len(ranked) == 0 {
		return nil, &domain.NoRelevantDocumentsError{
			Reason:   "no matching chunks in the selected documents",
			Failures: failures,
		}
	}

	// 5. Group and format.
	byRef := make(map[domain.DocumentRef]domain.Document, len(resolved))
	for _, d := range resolved {
		byRef[d.Ref()] = d
	}
	groups := groupChunks(ranked, byRef)

	bundle := &domain.ContextBundle{
		Context:    formatContext(groups),
		Query:      query,
		Documents:  make([]domain.Document, len(groups)),
		Chunks:     ranked,
		Unresolved: failures,
	}
	for i, g := range groups {
		bundle.Documents[i] = g.doc
	}

	s.metrics.ContextBuilt(len(ranked))
	logger.Info("Context: %d chunks from %d documents", len(ranked), len(groups))
	return bundle, nil
}

// resolveAll resolves raw identifiers in order, dropping duplicates of an
// already resolved document.
func resolveAll(raws []string, docs []domain.Document) ([]domain.Document, []domain.ResolutionFailure) {
	var resolved []domain.Document
	var failures []domain.ResolutionFailure
	seen := make(map[domain.DocumentRef]bool)

	for _, raw := range raws {
		doc, err := domain.Resolve(raw, docs)
		if err != nil {
			failures = append(failures, domain.ResolutionFailure{Raw: raw, Err: err})
			continue
		}
		if seen[doc.Ref()] {
			continue
		}
		seen[doc.Ref()] = true
		resolved = append(resolved, doc)
	}
	return resolved, failures
}

// searchEach searches every document concurrently. Results are returned in
// the order of docs. Any failure fails the whole call.
func (s *RetrievalService) searchEach(
	ctx context.Context, vec []float32, docs []domain.Document, limit int,
) ([][]domain.ScoredChunk, error) {
	results := make([][]domain.ScoredChunk, len(docs))
	errs := make([]error, len(docs))

	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.index.SearchVector(ctx, vec, []domain.DocumentRef{doc.Ref()}, limit)
			if errs[i] == nil {
				logger.Debug("%s: %d chunks", doc.Ref(), len(results[i]))
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return results, nil
}
