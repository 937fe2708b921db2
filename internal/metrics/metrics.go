package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome and status label values.
const (
	OutcomeOK       = "ok"
	OutcomePartial  = "partial"
	OutcomeEmpty    = "empty"
	OutcomeFailed   = "failed"
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheInvalidate = "invalidate"
	StatusStored    = "stored"
	StatusFailed    = "failed"
)

// Recorder holds the application's Prometheus metrics on a dedicated
// registry. A nil *Recorder is valid and records nothing, so components can
// be built without metrics in tests.
type Recorder struct {
	registry *prometheus.Registry

	retrievals          *prometheus.CounterVec
	indexFailures       *prometheus.CounterVec
	patternCache        *prometheus.CounterVec
	summarizerFallbacks prometheus.Counter
	chunksIngested      *prometheus.CounterVec
	embeddingFailures   *prometheus.CounterVec
	detectDuration      prometheus.Histogram
}

// New registers all metrics on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,

		retrievals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthtrace_retrievals_total",
			Help: "Context retrievals by outcome",
		}, []string{"outcome"}),

		indexFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthtrace_index_failures_total",
			Help: "Failed similarity index operations",
		}, []string{"operation"}),

		patternCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthtrace_pattern_cache_total",
			Help: "Pattern cache lookups and invalidations",
		}, []string{"result"}),

		summarizerFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "healthtrace_summarizer_fallbacks_total",
			Help: "Pattern descriptions that fell back to the template",
		}),

		chunksIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthtrace_chunks_ingested_total",
			Help: "Document chunks processed during ingestion by status",
		}, []string{"status"}),

		embeddingFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "healthtrace_embedding_failures_total",
			Help: "Failed embedding calls by operation",
		}, []string{"operation"}),

		detectDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "healthtrace_detect_duration_seconds",
			Help:    "Full pattern detection latency in seconds (cache misses only)",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Retrieval(outcome string) {
	if r != nil {
		r.retrievals.WithLabelValues(outcome).Inc()
	}
}

func (r *Recorder) IndexFailure(operation string) {
	if r != nil {
		r.indexFailures.WithLabelValues(operation).Inc()
	}
}

func (r *Recorder) PatternCache(result string) {
	if r != nil {
		r.patternCache.WithLabelValues(result).Inc()
	}
}

func (r *Recorder) SummarizerFallback() {
	if r != nil {
		r.summarizerFallbacks.Inc()
	}
}

func (r *Recorder) ChunkIngested(status string) {
	if r != nil {
		r.chunksIngested.WithLabelValues(status).Inc()
	}
}

func (r *Recorder) EmbeddingFailure(operation string) {
	if r != nil {
		r.embeddingFailures.WithLabelValues(operation).Inc()
	}
}

func (r *Recorder) ObserveDetect(d time.Duration) {
	if r != nil {
		r.detectDuration.Observe(d.Seconds())
	}
}
