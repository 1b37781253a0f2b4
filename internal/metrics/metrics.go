package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for Bosun
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// Upstream Metrics
	UpstreamRequestsTotal   prometheus.CounterVec
	UpstreamRequestDuration prometheus.HistogramVec

	// Sync Metrics
	SyncRunsTotal     prometheus.CounterVec
	SyncRunDuration   prometheus.HistogramVec
	SyncItemsTotal    prometheus.CounterVec
	TokenRefreshes    prometheus.CounterVec
	ConnectionsActive prometheus.Gauge
}

// NewMetricsRegistry initializes and returns a new MetricsRegistry with all metrics
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bosun_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bosun_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bosun_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method"},
		),

		// Upstream Metrics
		UpstreamRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bosun_upstream_requests_total",
				Help: "Total requests against the Pelagic platform by endpoint and status code",
			},
			[]string{"endpoint", "status_code"},
		),
		UpstreamRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bosun_upstream_request_duration_seconds",
				Help:    "Upstream request latency distribution in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),

		// Sync Metrics
		SyncRunsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bosun_sync_runs_total",
				Help: "Total sync runs by entity type and terminal status",
			},
			[]string{"entity_type", "status"},
		),
		SyncRunDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bosun_sync_run_duration_seconds",
				Help:    "Sync run execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"entity_type"},
		),
		SyncItemsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bosun_sync_items_total",
				Help: "Total records processed by sync runs, by entity type and outcome",
			},
			[]string{"entity_type", "outcome"},
		),
		TokenRefreshes: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bosun_token_refreshes_total",
				Help: "Total OAuth token refresh attempts by result",
			},
			[]string{"result"},
		),
		ConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bosun_connections_active",
				Help: "Current number of active upstream connections",
			},
		),
	}
}
