package metrics

import "github.com/prometheus/client_golang/prometheus"

// Embedding Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mosaic",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	EmbeddingRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "embedding_retries_total",
			Help:      "Embedding calls retried after a transient failure",
		},
		[]string{"provider"},
	)
)

// Generation Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "generation_requests_total",
			Help:      "Total number of language model requests",
		},
		[]string{"provider", "model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mosaic",
			Name:      "generation_request_duration_seconds",
			Help:      "Language model request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "generation_tokens_total",
			Help:      "Total language model tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)
)

// Retrieval Prometheus metrics.
var (
	RetrievalLegTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "retrieval_leg_total",
			Help:      "Index queries by source and status",
		},
		[]string{"source", "status"},
	)

	RetrievalDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mosaic",
			Name:      "retrieval_degraded_total",
			Help:      "Hybrid queries served from a single surviving source",
		},
		[]string{"failed_source"},
	)
)

// ObserveRetrievalLeg records one index query outcome.
func ObserveRetrievalLeg(source string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RetrievalLegTotal.WithLabelValues(source, status).Inc()
}

var registered bool

// Register registers all mosaic metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingTokensTotal,
		EmbeddingCacheTotal,
		EmbeddingRetriesTotal,
		GenerationRequestsTotal,
		GenerationRequestDuration,
		GenerationTokensTotal,
		RetrievalLegTotal,
		RetrievalDegradedTotal,
	)
	registered = true
}
