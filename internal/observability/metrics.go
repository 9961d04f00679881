package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the Prometheus collectors used across the API. Collectors
// live on a caller-owned registry, not the global default one.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	latencySeconds  *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	uploadsStored   prometheus.Counter
	uploadsRejected *prometheus.CounterVec
	activityDropped prometheus.Counter
	statsCacheHits  *prometheus.CounterVec
}

// NewMetrics builds the collector set on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"}),
		latencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"}),
		uploadsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "icon_uploads_stored_total",
			Help: "Total number of icon files written to the uploads directory.",
		}),
		uploadsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "icon_uploads_rejected_total",
			Help: "Total number of icon uploads rejected before storage.",
		}, []string{"reason"}),
		activityDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "activity_log_failures_total",
			Help: "Total number of audit entries that could not be persisted.",
		}),
		statsCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "page_stats_cache_total",
			Help: "Cache outcomes for the page statistics endpoint.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.latencySeconds,
		m.errorsTotal,
		m.uploadsStored,
		m.uploadsRejected,
		m.activityDropped,
		m.statsCacheHits,
	)

	return m
}

// Requests exposes the request counter.
func (m *Metrics) Requests() *prometheus.CounterVec { return m.requestsTotal }

// Latency exposes the request latency histogram.
func (m *Metrics) Latency() *prometheus.HistogramVec { return m.latencySeconds }

// Errors exposes the error-response counter.
func (m *Metrics) Errors() *prometheus.CounterVec { return m.errorsTotal }

// UploadsStored exposes the stored-icon counter.
func (m *Metrics) UploadsStored() prometheus.Counter { return m.uploadsStored }

// UploadsRejected exposes the rejected-icon counter.
func (m *Metrics) UploadsRejected() *prometheus.CounterVec { return m.uploadsRejected }

// ActivityDropped exposes the counter of audit entries lost to write failures.
func (m *Metrics) ActivityDropped() prometheus.Counter { return m.activityDropped }

// StatsCache exposes the stats-cache outcome counter.
func (m *Metrics) StatsCache() *prometheus.CounterVec { return m.statsCacheHits }
