package ai

import (
	"context"
	"fmt"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// Ensure Unavailable implements the interface.
var _ driven.EmbeddingService = (*Unavailable)(nil)

// Unavailable stands in for an embedding service that could not be built.
// Listing documents keeps working; anything that needs vectors fails with
// domain.ErrEmbeddingUnavailable and the original cause.
type Unavailable struct {
	Cause error
}

// NewUnavailable returns a placeholder service failing with cause.
func NewUnavailable(cause error) *Unavailable {
	return &Unavailable{Cause: cause}
}

func (u *Unavailable) err() error {
	if u.Cause == nil {
		return domain.ErrEmbeddingUnavailable
	}
	return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, u.Cause)
}

// Embed always fails.
func (u *Unavailable) Embed(context.Context, string) ([]float32, error) {
	return nil, u.err()
}

// EmbedBatch always fails.
func (u *Unavailable) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, u.err()
}

// Dimensions returns 0.
func (u *Unavailable) Dimensions() int { return 0 }

// ModelName returns an empty name: the model is unknown.
func (u *Unavailable) ModelName() string { return "" }

// Ping always fails.
func (u *Unavailable) Ping(context.Context) error {
	return u.err()
}

// Close releases nothing.
func (u *Unavailable) Close() error { return nil }
