package driven

import (
	"context"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// EmbeddingValidator checks embedding settings against the provider they
// describe before they are stored.
type EmbeddingValidator interface {
	// ValidateEmbedding creates the described service and pings it.
	// Returns nil if the settings are valid or not configured.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error
}
