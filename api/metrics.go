/*
metrics.go - Prometheus metrics for the transfer ledger

PURPOSE:
  Counts and times what matters operationally: HTTP traffic, ledger
  appends, import batches and rejected writes. Exposed on /metrics via
  promhttp.

METRIC GROUPS:
  http_requests_total / http_request_duration_seconds
    Per method+path+status traffic and latency.
  events_recorded_total
    Chain appends by event type.
  writes_rejected_total
    Validation and consistency rejections by reason.
  players_imported_total
    Rows created via CSV import.
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the service registers.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	eventsRecorded  *prometheus.CounterVec
	writesRejected  *prometheus.CounterVec
	playersImported prometheus.Counter
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transfer",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "transfer",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		eventsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transfer",
			Name:      "events_recorded_total",
			Help:      "History events appended, by event type.",
		}, []string{"type"}),

		writesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "transfer",
			Name:      "writes_rejected_total",
			Help:      "Writes rejected before commit, by reason.",
		}, []string{"reason"}),

		playersImported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "transfer",
			Name:      "players_imported_total",
			Help:      "Players created through CSV import.",
		}),
	}
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEvent counts one appended history event.
func (m *Metrics) RecordEvent(eventType string) {
	m.eventsRecorded.WithLabelValues(eventType).Inc()
}

// RecordRejection counts one rejected write.
func (m *Metrics) RecordRejection(reason string) {
	m.writesRejected.WithLabelValues(reason).Inc()
}

// RecordImported counts players created by an import batch.
func (m *Metrics) RecordImported(n int) {
	m.playersImported.Add(float64(n))
}

// Middleware instruments every request. The path label uses the chi
// route pattern, not the raw URL, to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
