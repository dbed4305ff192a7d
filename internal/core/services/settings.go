package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
	"github.com/criskgl/peritoai/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyPoliciesPath     = "collections.policies.path"
	KeyProtocolsPath    = "collections.protocols.path"
	KeyPattern          = "collections.pattern"
	KeyChunkSize        = "chunking.size"
	KeyChunkOverlap     = "chunking.overlap"
	KeyChunkFilters     = "chunking.filters"
	KeyEmbedProvider    = "embedding.provider"
	KeyEmbedModel       = "embedding.model"
	KeyEmbedBaseURL     = "embedding.base_url"
	KeyEmbedAPIKey      = "embedding.api_key"
	KeyEmbedDimensions  = "embedding.dimensions"
	KeyEmbedRPS         = "embedding.requests_per_second"
	KeyEmbedBatchSize   = "embedding.batch_size"
	KeyPerDocumentLimit = "retrieval.per_document_limit"
	KeyTotalChunkBudget = "retrieval.total_chunk_budget"
	KeyStorageBackend   = "storage.backend"
	KeyStorageDataDir   = "storage.data_dir"
)

// settingKeys lists the supported keys in display order.
var settingKeys = []string{
	KeyPoliciesPath, KeyProtocolsPath, KeyPattern,
	KeyChunkSize, KeyChunkOverlap, KeyChunkFilters,
	KeyEmbedProvider, KeyEmbedModel, KeyEmbedBaseURL, KeyEmbedAPIKey,
	KeyEmbedDimensions, KeyEmbedRPS, KeyEmbedBatchSize,
	KeyPerDocumentLimit, KeyTotalChunkBudget,
	KeyStorageBackend, KeyStorageDataDir,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.EmbeddingValidator
}

// NewSettingsService creates a new settings service.
// A nil validator skips provider checks.
func NewSettingsService(configStore driven.ConfigStore, validator driven.EmbeddingValidator) *SettingsService {
	return &SettingsService{configStore: configStore, validator: validator}
}

// Get returns the effective settings: stored values over defaults.
// Stored values are returned as-is; Validate reports invalid ones.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()
	provider := domain.EmbeddingProvider(s.getString(KeyEmbedProvider, d.Embedding.Provider.String()))

	settings := &domain.AppSettings{
		Collections: domain.CollectionSettings{
			PoliciesPath:  expandHome(s.getString(KeyPoliciesPath, d.Collections.PoliciesPath)),
			ProtocolsPath: expandHome(s.getString(KeyProtocolsPath, d.Collections.ProtocolsPath)),
			Pattern:       s.getString(KeyPattern, d.Collections.Pattern),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(KeyChunkSize, d.Chunking.Size),
			Overlap: s.getInt(KeyChunkOverlap, d.Chunking.Overlap),
			Filters: s.getList(KeyChunkFilters, d.Chunking.Filters),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          provider,
			Model:             s.getString(KeyEmbedModel, provider.DefaultModel()),
			BaseURL:           s.configStore.GetString(KeyEmbedBaseURL), // empty selects the provider default
			APIKey:            s.configStore.GetString(KeyEmbedAPIKey),
			Dimensions:        s.getInt(KeyEmbedDimensions, d.Embedding.Dimensions),
			RequestsPerSecond: s.getFloat(KeyEmbedRPS, d.Embedding.RequestsPerSecond),
			BatchSize:         s.getInt(KeyEmbedBatchSize, d.Embedding.BatchSize),
		},
		Retrieval: domain.RetrievalSettings{
			PerDocumentLimit: s.getInt(KeyPerDocumentLimit, d.Retrieval.PerDocumentLimit),
			TotalChunkBudget: s.getInt(KeyTotalChunkBudget, d.Retrieval.TotalChunkBudget),
		},
		Storage: domain.StorageSettings{
			Backend: domain.StorageBackend(s.getString(KeyStorageBackend, d.Storage.Backend.String())),
			DataDir: expandHome(s.configStore.GetString(KeyStorageDataDir)),
		},
	}

	return settings, nil
}

// Set validates and stores a single setting.
// The change is rejected with domain.ErrConfiguration when the resulting
// settings would be invalid. Changing the provider also resets the model
// to the provider's default.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	typed, err := apply(settings, key, strings.TrimSpace(value))
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if key == KeyEmbedProvider {
		if err := s.configStore.Set(KeyEmbedModel, settings.Embedding.Provider.DefaultModel()); err != nil {
			return fmt.Errorf("save %s: %w", KeyEmbedModel, err)
		}
	}
	return nil
}

// SetEmbeddingProvider pings the provider with the given model and API key
// and stores them only when it answers. An empty model selects the
// provider's default; an empty apiKey keeps the stored one.
func (s *SettingsService) SetEmbeddingProvider(
	ctx context.Context, provider domain.EmbeddingProvider, model, apiKey string,
) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, provider)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = provider.DefaultModel()
	}
	apiKey = strings.TrimSpace(apiKey)

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if apiKey != "" {
		settings.Embedding.APIKey = apiKey
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.validateEmbedding(ctx, &settings.Embedding); err != nil {
		return err
	}

	if err := s.configStore.Set(KeyEmbedProvider, provider.String()); err != nil {
		return fmt.Errorf("save %s: %w", KeyEmbedProvider, err)
	}
	if err := s.configStore.Set(KeyEmbedModel, model); err != nil {
		return fmt.Errorf("save %s: %w", KeyEmbedModel, err)
	}
	if apiKey != "" {
		if err := s.configStore.Set(KeyEmbedAPIKey, apiKey); err != nil {
			return fmt.Errorf("save %s: %w", KeyEmbedAPIKey, err)
		}
	}
	return nil
}

// SetAPIKey pings the configured provider with apiKey and stores the key
// only when it answers.
func (s *SettingsService) SetAPIKey(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("%w: API key must not be empty", domain.ErrConfiguration)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.APIKey = apiKey
	if err := s.validateEmbedding(ctx, &settings.Embedding); err != nil {
		return err
	}
	if err := s.configStore.Set(KeyEmbedAPIKey, apiKey); err != nil {
		return fmt.Errorf("save %s: %w", KeyEmbedAPIKey, err)
	}
	return nil
}

func (s *SettingsService) validateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.ValidateEmbedding(ctx, settings); err != nil {
		return fmt.Errorf("validating %s embedding: %w", settings.Provider, err)
	}
	return nil
}

// Keys returns the supported setting keys.
func (s *SettingsService) Keys() []string {
	return SettingKeys()
}

// SettingKeys returns the supported setting keys in display order.
func SettingKeys() []string {
	return append([]string(nil), settingKeys...)
}

// Validate checks the effective settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// ConfigPath returns the configuration file path.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// apply parses value for key, sets it on settings and returns the value
// to persist.
//
//nolint:gocyclo // One case per supported key.
func apply(settings *domain.AppSettings, key, value string) (any, error) {
	switch key {
	case KeyPoliciesPath:
		settings.Collections.PoliciesPath = value
		return value, nil
	case KeyProtocolsPath:
		settings.Collections.ProtocolsPath = value
		return value, nil
	case KeyPattern:
		settings.Collections.Pattern = value
		return value, nil
	case KeyChunkSize:
		return parseInt(key, value, &settings.Chunking.Size)
	case KeyChunkOverlap:
		return parseInt(key, value, &settings.Chunking.Overlap)
	case KeyChunkFilters:
		settings.Chunking.Filters = splitList(value)
		return strings.Join(settings.Chunking.Filters, ","), nil
	case KeyEmbedProvider:
		p := domain.EmbeddingProvider(strings.ToLower(value))
		if !p.IsValid() {
			return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfiguration, value)
		}
		settings.Embedding.Provider = p
		settings.Embedding.Model = p.DefaultModel()
		return p.String(), nil
	case KeyEmbedModel:
		settings.Embedding.Model = value
		return value, nil
	case KeyEmbedBaseURL:
		settings.Embedding.BaseURL = value
		return value, nil
	case KeyEmbedAPIKey:
		settings.Embedding.APIKey = value
		return value, nil
	case KeyEmbedDimensions:
		return parseInt(key, value, &settings.Embedding.Dimensions)
	case KeyEmbedRPS:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrConfiguration, key, value)
		}
		settings.Embedding.RequestsPerSecond = f
		return f, nil
	case KeyEmbedBatchSize:
		return parseInt(key, value, &settings.Embedding.BatchSize)
	case KeyPerDocumentLimit:
		return parseInt(key, value, &settings.Retrieval.PerDocumentLimit)
	case KeyTotalChunkBudget:
		return parseInt(key, value, &settings.Retrieval.TotalChunkBudget)
	case KeyStorageBackend:
		settings.Storage.Backend = domain.StorageBackend(strings.ToLower(value))
		return settings.Storage.Backend.String(), nil
	case KeyStorageDataDir:
		settings.Storage.DataDir = value
		return value, nil
	default:
		return nil, fmt.Errorf("%w: unknown setting %q", domain.ErrConfiguration, key)
	}
}

func parseInt(key, value string, dst *int) (any, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrConfiguration, key, value)
	}
	*dst = n
	return n, nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

// getList reads a comma-separated string or a TOML array.
func (s *SettingsService) getList(key string, defaultVal []string) []string {
	val, exists := s.configStore.Get(key)
	if !exists {
		return append([]string(nil), defaultVal...)
	}
	switch v := val.(type) {
	case string:
		return splitList(v)
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
		return out
	default:
		return append([]string(nil), defaultVal...)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
