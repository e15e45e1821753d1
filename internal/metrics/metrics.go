// Package metrics exposes Prometheus instrumentation for Cortex.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service records into. One instance is
// shared by the API server and the ingestion pipeline.
type Metrics struct {
	registry *prometheus.Registry

	IngestsTotal     *prometheus.CounterVec
	IngestDuration   prometheus.Histogram
	DocumentsIndexed prometheus.Counter
	ChunksEmbedded   prometheus.Counter
	ChatsTotal       *prometheus.CounterVec
	ChatDuration     prometheus.Histogram
	HTTPRequests     *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		IngestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_ingests_total",
			Help: "Ingestion runs by mode and outcome.",
		}, []string{"mode", "outcome"}),
		IngestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cortex_ingest_duration_seconds",
			Help:    "Wall time of complete ingestion runs.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		DocumentsIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "cortex_documents_indexed_total",
			Help: "Source documents written into collections.",
		}),
		ChunksEmbedded: factory.NewCounter(prometheus.CounterOpts{
			Name: "cortex_chunks_embedded_total",
			Help: "Text chunks sent through the embedding provider.",
		}),
		ChatsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_chats_total",
			Help: "Chat requests by outcome.",
		}, []string{"outcome"}),
		ChatDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cortex_chat_duration_seconds",
			Help:    "Latency of chat completions including retrieval.",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_http_requests_total",
			Help: "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
	}
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
