package driving

import (
	"context"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// RetrievalService builds grounded context from selected documents.
type RetrievalService interface {
	// BuildContext resolves the requested identifiers, searches each
	// resolved document and formats the ranked chunks.
	// Returns *domain.NoRelevantDocumentsError when nothing resolves or no
	// chunk is found.
	BuildContext(ctx context.Context, req domain.ContextRequest) (*domain.ContextBundle, error)

	// ListDocuments returns every indexed document.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ResolveDocument maps a raw identifier to an indexed document.
	ResolveDocument(ctx context.Context, raw string) (*domain.Document, error)
}
