package driving

import (
	"context"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Set stores a single setting by key after validating it.
	Set(key, value string) error

	// SetEmbeddingProvider stores the embedding provider, model and API key
	// after pinging the provider with them. An empty apiKey keeps the
	// stored one.
	SetEmbeddingProvider(ctx context.Context, provider domain.EmbeddingProvider, model, apiKey string) error

	// SetAPIKey stores the embedding API key after pinging the configured
	// provider with it.
	SetAPIKey(ctx context.Context, apiKey string) error

	// Keys returns the supported setting keys.
	Keys() []string

	// Validate checks the effective settings.
	Validate() error

	// ConfigPath returns the configuration file path.
	ConfigPath() string
}
