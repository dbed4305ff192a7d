package mcp

import (
	"context"
	"time"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	docs    []domain.Document
	bundle  *domain.ContextBundle
	lastReq domain.ContextRequest
	err     error
}

func (m *mockRetrievalService) BuildContext(
	_ context.Context,
	req domain.ContextRequest,
) (*domain.ContextBundle, error) {
	m.lastReq = req
	return m.bundle, m.err
}

func (m *mockRetrievalService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockRetrievalService) ResolveDocument(_ context.Context, raw string) (*domain.Document, error) {
	doc, err := domain.Resolve(raw, m.docs)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	report   *domain.IndexReport
	lastOpts domain.IndexOptions
	err      error
}

func (m *mockIndexService) Index(_ context.Context, opts domain.IndexOptions) (*domain.IndexReport, error) {
	m.lastOpts = opts
	return m.report, m.err
}

func (m *mockIndexService) Watch(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (m *mockIndexService) RemoveDocument(_ context.Context, _ domain.DocumentRef) error {
	return m.err
}

// sampleDocuments returns one policy and one protocol.
func sampleDocuments() []domain.Document {
	indexed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []domain.Document{
		{
			ID:          "21._Lluvia_y_nieve",
			Kind:        domain.KindProtocol,
			DisplayName: "21. Lluvia y nieve",
			SourceFile:  "21._Lluvia_y_nieve.pdf",
			ChunkCount:  7,
			IndexedAt:   indexed,
		},
		{
			ID:          "POLIZA_HOGAR_GLOBAL",
			Kind:        domain.KindPolicy,
			DisplayName: "POLIZA_HOGAR_GLOBAL",
			SourceFile:  "POLIZA_HOGAR_GLOBAL.pdf",
			ChunkCount:  42,
			IndexedAt:   indexed,
		},
	}
}
