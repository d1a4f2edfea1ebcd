package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	diagnosisRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnosis_requests_total",
			Help: "Total number of diagnosis requests by outcome",
		},
		[]string{"outcome"},
	)

	diagnosisCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "diagnosis_cache_hits_total",
			Help: "Total number of diagnosis cache hits",
		},
	)

	diagnosisCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "diagnosis_cache_misses_total",
			Help: "Total number of diagnosis cache misses",
		},
	)

	modelSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diagnosis_model_selections_total",
			Help: "Total number of model tier selections",
		},
		[]string{"model"},
	)

	providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_provider_requests_total",
			Help: "Total number of AI provider invocations",
		},
		[]string{"model", "status"},
	)

	providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_provider_request_duration_seconds",
			Help:    "AI provider request duration in seconds",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 15, 20, 25, 30},
		},
		[]string{"model"},
	)

	auditEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total number of audit entries created",
		},
	)

	wearableFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wearable_fetches_total",
			Help: "Total number of wearable summary fetches",
		},
		[]string{"status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses per-resource path segments to avoid label
// cardinality explosion.
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordDiagnosisRequest records a diagnosis request outcome
// (success, cache_hit, conflicting_vitals, inconclusive, timeout, error).
func RecordDiagnosisRequest(outcome string) {
	diagnosisRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheHit records a diagnosis cache hit
func RecordCacheHit() {
	diagnosisCacheHits.Inc()
}

// RecordCacheMiss records a diagnosis cache miss
func RecordCacheMiss() {
	diagnosisCacheMisses.Inc()
}

// RecordModelSelection records which model tier was chosen
func RecordModelSelection(model string) {
	modelSelections.WithLabelValues(model).Inc()
}

// RecordProviderRequest records an AI provider invocation
func RecordProviderRequest(model, status string, duration time.Duration) {
	providerRequestsTotal.WithLabelValues(model, status).Inc()
	providerRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordAuditEntry records an audit entry creation
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

// RecordWearableFetch records a wearable summary fetch outcome
func RecordWearableFetch(status string) {
	wearableFetchesTotal.WithLabelValues(status).Inc()
}
