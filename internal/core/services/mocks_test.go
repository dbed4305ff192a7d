package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/criskgl/peritoai/internal/adapters/driven/embedding/hashing"
	"github.com/criskgl/peritoai/internal/adapters/driven/storage/memory"
	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// mockConfigStore is an in-memory driven.ConfigStore.
type mockConfigStore struct {
	mu     sync.Mutex
	values map[string]any
	setErr error
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return "/tmp/peritoai/config.toml" }

// mockEmbeddingValidator records the settings it is asked to validate.
type mockEmbeddingValidator struct {
	err  error
	seen []domain.EmbeddingSettings
}

func (m *mockEmbeddingValidator) ValidateEmbedding(_ context.Context, settings *domain.EmbeddingSettings) error {
	m.seen = append(m.seen, *settings)
	return m.err
}

// stubCollection serves a fixed file list and a test-fed event channel.
type stubCollection struct {
	kind     domain.Kind
	root     string
	files    []driven.SourceFile
	events   chan driven.FileEvent
	listErr  error
	watchErr error
}

func newStubCollection(kind domain.Kind, root string, names ...string) *stubCollection {
	c := &stubCollection{kind: kind, root: root, events: make(chan driven.FileEvent)}
	for _, name := range names {
		c.add(name)
	}
	return c
}

func (c *stubCollection) add(name string) string {
	path := filepath.Join(c.root, name)
	c.files = append(c.files, driven.SourceFile{Path: path, Name: name})
	return path
}

func (c *stubCollection) remove(name string) {
	c.files = slices.DeleteFunc(c.files, func(f driven.SourceFile) bool { return f.Name == name })
}

func (c *stubCollection) path(name string) string { return filepath.Join(c.root, name) }

func (c *stubCollection) Name() string      { return c.kind.Collection() }
func (c *stubCollection) Kind() domain.Kind { return c.kind }
func (c *stubCollection) Root() string      { return c.root }

func (c *stubCollection) List(context.Context) ([]driven.SourceFile, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return slices.Clone(c.files), nil
}

func (c *stubCollection) Watch(ctx context.Context) (<-chan driven.FileEvent, error) {
	if c.watchErr != nil {
		return nil, c.watchErr
	}
	out := make(chan driven.FileEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-c.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// mapExtractors returns canned text per path.
type mapExtractors struct {
	mu    sync.Mutex
	texts map[string]string
	errs  map[string]error
	calls int
}

func newMapExtractors() *mapExtractors {
	return &mapExtractors{texts: make(map[string]string), errs: make(map[string]error)}
}

func (m *mapExtractors) set(path, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[path] = text
}

func (m *mapExtractors) Register(driven.Extractor) {}

func (m *mapExtractors) Extract(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err, ok := m.errs[path]; ok {
		return "", err
	}
	text, ok := m.texts[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path))
	}
	return text, nil
}

func (m *mapExtractors) Supports(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.texts[path]
	return ok
}

func (m *mapExtractors) extractCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// paragraphPipeline makes one chunk per blank-line separated paragraph,
// with ids derived from the document so runs are reproducible.
type paragraphPipeline struct{}

func (paragraphPipeline) Process(_ context.Context, doc domain.Document, text string) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		seq := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s:%s#%d", doc.Kind, doc.ID, seq),
			DocumentID: doc.ID,
			Kind:       doc.Kind,
			SourceFile: doc.SourceFile,
			SourcePath: doc.SourcePath,
			Sequence:   seq,
			Text:       para,
		})
	}
	return chunks, nil
}

// failingPipeline is paragraphPipeline with per-document failures.
type failingPipeline struct {
	errs map[string]error
}

func (p failingPipeline) Process(ctx context.Context, doc domain.Document, text string) ([]domain.Chunk, error) {
	if err, ok := p.errs[doc.ID]; ok {
		return nil, err
	}
	return paragraphPipeline{}.Process(ctx, doc, text)
}

// mockEmbedder wraps the hashing embedder and counts or fails calls.
type mockEmbedder struct {
	inner *hashing.EmbeddingService

	mu         sync.Mutex
	embedCalls int
	batchCalls int
	batchSizes []int
	err        error
	closeErr   error

	// blankFor makes texts containing it embed to an empty vector.
	blankFor string
	// dims overrides the declared dimensions when positive.
	dims int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{inner: hashing.NewEmbeddingService(256)}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.inner.Embed(ctx, text)
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	vectors, err := m.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i, text := range texts {
		if m.blankFor != "" && strings.Contains(text, m.blankFor) {
			vectors[i] = nil
		}
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return m.inner.Dimensions()
}

func (m *mockEmbedder) ModelName() string          { return m.inner.ModelName() }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return m.closeErr }

func (m *mockEmbedder) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockEmbedder) calls() (embed, batch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedCalls, m.batchCalls
}

// closingStore is a memory store whose Close fails.
type closingStore struct {
	*memory.ChunkStore
	err error
}

func (s closingStore) Close() error { return s.err }

// recordingMetrics keeps every measurement.
type recordingMetrics struct {
	mu       sync.Mutex
	results  map[string]int
	chunks   int
	embedOK  int
	embedErr int
	searches int
	contexts []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{results: make(map[string]int)}
}

func (m *recordingMetrics) DocumentIndexed(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result]++
}

func (m *recordingMetrics) ChunksStored(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks += n
}

func (m *recordingMetrics) EmbeddingRequest(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.embedOK++
	} else {
		m.embedErr++
	}
}

func (m *recordingMetrics) SearchCompleted(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
}

func (m *recordingMetrics) ContextBuilt(chunks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts = append(m.contexts, chunks)
}

func (m *recordingMetrics) result(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results[name]
}

var errEmbedding = errors.New("quota exceeded")

// fixture wires an index service over two stub collections, a memory store
// and the hashing embedder.
type fixture struct {
	policies   *stubCollection
	protocols  *stubCollection
	extractors *mapExtractors
	embedder   *mockEmbedder
	store      *memory.ChunkStore
	index      *IndexStore
	metrics    *recordingMetrics
	service    *IndexService
}

func newFixture(root string, opts ...IndexOption) *fixture {
	f := &fixture{
		policies:   newStubCollection(domain.KindPolicy, filepath.Join(root, "policies")),
		protocols:  newStubCollection(domain.KindProtocol, filepath.Join(root, "internal_protocol_coverage")),
		extractors: newMapExtractors(),
		embedder:   newMockEmbedder(),
		store:      memory.NewChunkStore(),
		metrics:    newRecordingMetrics(),
	}
	f.index = NewIndexStore(f.store, f.embedder)
	f.index.SetMetrics(f.metrics)

	opts = append([]IndexOption{WithMetrics(f.metrics)}, opts...)
	f.service = NewIndexService(
		f.index,
		[]driven.Collection{f.policies, f.protocols},
		f.extractors,
		paragraphPipeline{},
		opts...,
	)
	return f
}

// addFile registers a file in col with the given text.
func (f *fixture) addFile(col *stubCollection, name, text string) string {
	path := col.add(name)
	f.extractors.set(path, text)
	return path
}

// Sample collection texts.
const (
	hogarText = `Cobertura de daños por agua: se cubren los daños por agua causados por escapes accidentales de las conducciones fijas de la vivienda.

Responsabilidad civil del asegurado frente a terceros por daños materiales.

Robo y expoliación dentro de la vivienda asegurada con violencia en las puertas.

Rotura de cristales, lunas y espejos fijos de la vivienda.

Exclusiones: daños por agua debidos a la falta de mantenimiento o a filtraciones por humedad persistente.`

	autoText = `Cobertura de daños propios del vehículo asegurado por colisión.

Asistencia en carretera desde el kilómetro cero.

Defensa jurídica y reclamación de daños.`

	lluviaText = `Lluvia y nieve: la entrada de agua de lluvia por tejados y cubiertas se atiende como daños por agua cuando la precipitación supere los 40 litros por metro cuadrado.

El perito comprobará los datos meteorológicos de la zona en la fecha del siniestro.

La acumulación de nieve sobre cubiertas se cubre si supera 80 kilos por metro cuadrado.

No se cubren los daños por agua de lluvia que entre por ventanas o puertas abiertas.`

	nieveText = `Nieve: la acumulación de nieve sobre cubiertas se valora según el peso soportado por metro cuadrado.

El perito revisará canalones y cubiertas tras la nevada.`

	incendioText = `Incendio: el perito verificará el origen del fuego y la existencia de informe de bomberos.

Humo y hollín se valoran junto a los daños del incendio.

Explosión de la caldera o instalaciones de gas de la vivienda.`
)
