package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	togglesTotal     *prometheus.CounterVec
	enrichDuration   prometheus.Histogram
	enrichRows       *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	searchRequests   *prometheus.CounterVec
	watchlistEntries prometheus.Histogram
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.togglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_toggles_total",
			Help: "Total number of watchlist toggles by action and result code",
		},
		[]string{"action", "result"},
	)
	r.enrichDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockwatch_enrich_duration_seconds",
			Help:    "Watchlist enrichment duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.enrichRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_enrich_rows_total",
			Help: "Enriched watchlist rows by outcome",
		},
		[]string{"outcome"},
	)
	r.upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_upstream_requests_total",
			Help: "Market data requests by provider, operation and status",
		},
		[]string{"provider", "operation", "status"},
	)
	r.upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockwatch_upstream_duration_seconds",
			Help:    "Market data request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "operation"},
	)
	r.searchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockwatch_search_requests_total",
			Help: "Instrument searches by mode",
		},
		[]string{"mode"},
	)
	r.watchlistEntries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockwatch_watchlist_entries",
			Help:    "Number of stored entries per enriched watchlist",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	reg.MustRegister(r.togglesTotal)
	reg.MustRegister(r.enrichDuration)
	reg.MustRegister(r.enrichRows)
	reg.MustRegister(r.upstreamRequests)
	reg.MustRegister(r.upstreamDuration)
	reg.MustRegister(r.searchRequests)
	reg.MustRegister(r.watchlistEntries)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordToggle records a watchlist toggle outcome. result is "ok" or an error code.
func (r *Registry) RecordToggle(action, result string) {
	r.togglesTotal.WithLabelValues(action, result).Inc()
}

// RecordEnrich records one enrichment pass.
func (r *Registry) RecordEnrich(entries, kept int, duration float64) {
	r.watchlistEntries.Observe(float64(entries))
	r.enrichRows.WithLabelValues("kept").Add(float64(kept))
	r.enrichRows.WithLabelValues("dropped").Add(float64(entries - kept))
	r.enrichDuration.Observe(duration)
}

// RecordUpstream records a market data request.
func (r *Registry) RecordUpstream(provider, operation string, err error, duration float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.upstreamRequests.WithLabelValues(provider, operation, status).Inc()
	r.upstreamDuration.WithLabelValues(provider, operation).Observe(duration)
}

// RecordSearch records an instrument search. mode is "query" or "popular".
func (r *Registry) RecordSearch(mode string) {
	r.searchRequests.WithLabelValues(mode).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
