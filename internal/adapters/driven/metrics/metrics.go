// Package metrics provides the Prometheus implementation of driven.Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.Metrics = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the retrieval engine.
type Metrics struct {
	registry *prometheus.Registry

	// Indexing
	DocumentsTotal *prometheus.CounterVec
	ChunksTotal    prometheus.Counter

	// Embedding
	EmbeddingRequestsTotal *prometheus.CounterVec

	// Retrieval
	SearchDuration prometheus.Histogram
	ContextChunks  prometheus.Histogram
}

// NewMetrics creates and registers all metrics on a private registry,
// together with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newMetrics(reg)
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.DocumentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peritoai_index_documents_total",
			Help: "Documents processed by indexing passes, by outcome",
		},
		[]string{"result"},
	)

	m.ChunksTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "peritoai_index_chunks_total",
			Help: "Chunks written to the index",
		},
	)

	m.EmbeddingRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peritoai_embedding_requests_total",
			Help: "Calls to the embedding service, by outcome",
		},
		[]string{"result"},
	)

	m.SearchDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "peritoai_search_duration_seconds",
			Help:    "Duration of per-document similarity searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.ContextChunks = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "peritoai_context_chunks",
			Help:    "Number of chunks included in a built context",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	return m
}

// DocumentIndexed counts a document outcome.
func (m *Metrics) DocumentIndexed(result string) {
	m.DocumentsTotal.WithLabelValues(result).Inc()
}

// ChunksStored counts chunks written to the store.
func (m *Metrics) ChunksStored(n int) {
	m.ChunksTotal.Add(float64(n))
}

// EmbeddingRequest counts an embedding call.
func (m *Metrics) EmbeddingRequest(ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	m.EmbeddingRequestsTotal.WithLabelValues(result).Inc()
}

// SearchCompleted observes a search duration.
func (m *Metrics) SearchCompleted(d time.Duration) {
	m.SearchDuration.Observe(d.Seconds())
}

// ContextBuilt observes the size of a built context.
func (m *Metrics) ContextBuilt(chunks int) {
	m.ContextChunks.Observe(float64(chunks))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
