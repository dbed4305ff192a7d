package cli

import (
	"context"
	"net/http"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driving"
)

// mockRetrievalService implements driving.RetrievalService for testing.
type mockRetrievalService struct {
	docs    []domain.Document
	bundle  *domain.ContextBundle
	err     error
	lastReq domain.ContextRequest
}

func (m *mockRetrievalService) BuildContext(_ context.Context, req domain.ContextRequest) (*domain.ContextBundle, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.bundle, nil
}

func (m *mockRetrievalService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.docs, nil
}

func (m *mockRetrievalService) ResolveDocument(_ context.Context, raw string) (*domain.Document, error) {
	doc, err := domain.Resolve(raw, m.docs)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// mockIndexService implements driving.IndexService for testing.
type mockIndexService struct {
	report   *domain.IndexReport
	err      error
	watchErr error
	lastOpts domain.IndexOptions
	watched  bool
	removed  []domain.DocumentRef
}

func (m *mockIndexService) Index(_ context.Context, opts domain.IndexOptions) (*domain.IndexReport, error) {
	m.lastOpts = opts
	return m.report, m.err
}

func (m *mockIndexService) Watch(_ context.Context) error {
	m.watched = true
	return m.watchErr
}

func (m *mockIndexService) RemoveDocument(_ context.Context, ref domain.DocumentRef) error {
	m.removed = append(m.removed, ref)
	return m.err
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	values      map[string]string
	setErr      error
	validateErr error
	pingErr     error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		values:   make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(
	_ context.Context, provider domain.EmbeddingProvider, model, apiKey string,
) error {
	if m.pingErr != nil {
		return m.pingErr
	}
	m.values["embedding.provider"] = provider.String()
	m.values["embedding.model"] = model
	if apiKey != "" {
		m.values["embedding.api_key"] = apiKey
	}
	return nil
}

func (m *mockSettingsService) SetAPIKey(_ context.Context, apiKey string) error {
	if m.pingErr != nil {
		return m.pingErr
	}
	m.values["embedding.api_key"] = apiKey
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"chunking.size", "embedding.provider"}
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) ConfigPath() string {
	return "/home/perito/.peritoai/config.toml"
}

var (
	_ driving.RetrievalService = (*mockRetrievalService)(nil)
	_ driving.IndexService     = (*mockIndexService)(nil)
	_ driving.SettingsService  = (*mockSettingsService)(nil)
)

func sampleDocuments() []domain.Document {
	return []domain.Document{
		{
			ID:               "21._Lluvia_y_nieve",
			Kind:             domain.KindProtocol,
			DisplayName:      "21. Lluvia y nieve",
			SourceFile:       "21._Lluvia_y_nieve.pdf",
			SourceCollection: "internal_protocol_coverage",
			ChunkCount:       7,
		},
		{
			ID:               "POLIZA_HOGAR_GLOBAL",
			Kind:             domain.KindPolicy,
			DisplayName:      "POLIZA_HOGAR_GLOBAL",
			SourceFile:       "POLIZA_HOGAR_GLOBAL.pdf",
			SourceCollection: "policies",
			ChunkCount:       42,
		},
	}
}

type testServices struct {
	retrieval *mockRetrievalService
	index     *mockIndexService
	settings  *mockSettingsService
}

// setupTestServices installs mock services and returns them with a
// cleanup func restoring the previous ones.
func setupTestServices() (*testServices, func()) {
	oldRetrieval, oldIndex, oldSettings, oldMetrics, oldErr := retrievalService, indexService, settingsService, metricsHandler, setupErr

	ts := &testServices{
		retrieval: &mockRetrievalService{docs: sampleDocuments()},
		index:     &mockIndexService{report: &domain.IndexReport{}},
		settings:  newMockSettingsService(),
	}
	SetServices(Services{
		Retrieval: ts.retrieval,
		Index:     ts.index,
		Settings:  ts.settings,
		Metrics:   http.NotFoundHandler(),
	})

	return ts, func() {
		retrievalService = oldRetrieval
		indexService = oldIndex
		settingsService = oldSettings
		metricsHandler = oldMetrics
		setupErr = oldErr
	}
}
