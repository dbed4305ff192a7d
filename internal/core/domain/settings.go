package domain

import "fmt"

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the service that turns text into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderGemini is the Google Generative Language API.
	EmbeddingProviderGemini EmbeddingProvider = "gemini"

	// EmbeddingProviderOpenAI is the OpenAI API or a compatible endpoint.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderHashing is the offline feature-hashing embedder.
	EmbeddingProviderHashing EmbeddingProvider = "hashing"
)

// EmbeddingProviders returns all supported providers, cloud providers first.
func EmbeddingProviders() []EmbeddingProvider {
	return []EmbeddingProvider{
		EmbeddingProviderGemini,
		EmbeddingProviderOpenAI,
		EmbeddingProviderOllama,
		EmbeddingProviderHashing,
	}
}

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderGemini, EmbeddingProviderOpenAI, EmbeddingProviderOllama, EmbeddingProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderGemini || p == EmbeddingProviderOpenAI
}

// IsLocal returns true if this provider runs without network access to a cloud API.
func (p EmbeddingProvider) IsLocal() bool {
	return p == EmbeddingProviderOllama || p == EmbeddingProviderHashing
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderGemini:
		return "Google Gemini (cloud)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderHashing:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// DefaultModel returns the default embedding model for the provider.
func (p EmbeddingProvider) DefaultModel() string {
	switch p {
	case EmbeddingProviderGemini:
		return "models/text-embedding-004"
	case EmbeddingProviderOpenAI:
		return "text-embedding-3-small"
	case EmbeddingProviderOllama:
		return "nomic-embed-text"
	case EmbeddingProviderHashing:
		return "hashing-v1"
	default:
		return ""
	}
}

// StorageBackend selects the chunk store implementation.
type StorageBackend string

// Available storage backends.
const (
	StorageSQLite StorageBackend = "sqlite"
	StorageMemory StorageBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageSQLite || b == StorageMemory
}

// String returns the string representation.
func (b StorageBackend) String() string {
	return string(b)
}

// CollectionSettings locates the watched document collections.
type CollectionSettings struct {
	// PoliciesPath is the directory holding policy files.
	PoliciesPath string

	// ProtocolsPath is the directory holding protocol files.
	ProtocolsPath string

	// Pattern is the doublestar glob selecting files inside each directory.
	Pattern string
}

// Path returns the configured directory for a kind.
func (c CollectionSettings) Path(kind Kind) string {
	if kind == KindProtocol {
		return c.ProtocolsPath
	}
	return c.PoliciesPath
}

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int

	// Filters names the text filters applied before chunking, in order.
	Filters []string
}

// Validate fails when the overlap would prevent progress.
func (c ChunkingSettings) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrConfiguration, c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			ErrConfiguration, c.Overlap, c.Size)
	}
	return nil
}

// EmbeddingSettings configures the embedding service.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the model name.
	Model string

	// BaseURL overrides the provider endpoint (OpenAI-compatible, Ollama).
	BaseURL string

	// APIKey authenticates cloud providers.
	APIKey string

	// Dimensions overrides the vector size where the provider supports it.
	Dimensions int

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64

	// BatchSize is the number of chunks embedded per request.
	BatchSize int
}

// IsConfigured returns true if the provider has what it needs to run.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings holds the default limits for context building.
type RetrievalSettings struct {
	PerDocumentLimit int
	TotalChunkBudget int
}

// StorageSettings configures where the index lives.
type StorageSettings struct {
	Backend StorageBackend
	DataDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Collections CollectionSettings
	Chunking    ChunkingSettings
	Embedding   EmbeddingSettings
	Retrieval   RetrievalSettings
	Storage     StorageSettings
}

// Validate checks the settings that must be correct before startup.
func (s AppSettings) Validate() error {
	if err := s.Chunking.Validate(); err != nil {
		return err
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrConfiguration, s.Embedding.Provider)
	}
	if s.Embedding.BatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size must be positive", ErrConfiguration)
	}
	if s.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: embedding requests per second must not be negative", ErrConfiguration)
	}
	if !s.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", ErrConfiguration, s.Storage.Backend)
	}
	if s.Collections.Pattern == "" {
		return fmt.Errorf("%w: collection pattern must not be empty", ErrConfiguration)
	}
	return nil
}

// DefaultAppSettings returns the default settings.
// DataDir is left empty so the storage adapter applies its own default.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Collections: CollectionSettings{
			PoliciesPath:  "data/policies",
			ProtocolsPath: "data/internal_protocol_coverage",
			Pattern:       "**/*.{pdf,txt,md,docx}",
		},
		Chunking: ChunkingSettings{
			Size:    1000,
			Overlap: 200,
			Filters: []string{"page_numbers", "dehyphenate", "whitespace"},
		},
		Embedding: EmbeddingSettings{
			Provider:  EmbeddingProviderGemini,
			Model:     EmbeddingProviderGemini.DefaultModel(),
			BatchSize: 32,
		},
		Retrieval: RetrievalSettings{
			PerDocumentLimit: DefaultPerDocumentLimit,
			TotalChunkBudget: DefaultTotalChunkBudget,
		},
		Storage: StorageSettings{
			Backend: StorageSQLite,
		},
	}
}
