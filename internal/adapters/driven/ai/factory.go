// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/criskgl/peritoai/internal/adapters/driven/embedding/gemini"
	"github.com/criskgl/peritoai/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/criskgl/peritoai/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/criskgl/peritoai/internal/adapters/driven/embedding/openai"
	"github.com/criskgl/peritoai/internal/adapters/driven/embedding/ratelimit"
	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

const fixHint = "Run 'peritoai settings set-key' or 'peritoai settings set embedding.provider hashing' to fix"

// ValidateEmbeddingConfig creates a service from settings and pings it.
// Unconfigured settings validate as nil. Failures wrap
// domain.ErrEmbeddingUnavailable and say how to fix the settings.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		return fmt.Errorf("%w: %s service unreachable (%w). %s",
			domain.ErrEmbeddingUnavailable, settings.Provider, err, fixHint)
	}
	return nil
}

// CreateEmbeddingService creates the embedding service selected by settings,
// throttled when RequestsPerSecond is set.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc        driven.EmbeddingService
		classifier ratelimit.Classifier
		err        error
	)

	switch settings.Provider {
	case domain.EmbeddingProviderGemini:
		svc, err = gemini.NewEmbeddingService(ctx, gemini.Config{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
			Endpoint:   settings.BaseURL,
		})
		classifier = gemini.RetryAfter

	case domain.EmbeddingProviderOpenAI:
		svc, err = openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		classifier = openaiembed.RetryAfter

	case domain.EmbeddingProviderOllama:
		svc = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.EmbeddingProviderHashing:
		svc = hashing.NewEmbeddingService(settings.Dimensions)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return ratelimit.Wrap(svc, ratelimit.Config{
		RequestsPerSecond: settings.RequestsPerSecond,
		Classifier:        classifier,
	}), nil
}
