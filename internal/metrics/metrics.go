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
	ordersGenerated  *prometheus.CounterVec
	ordersRejected   *prometheus.CounterVec
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	symbolsFetched   *prometheus.CounterVec
	fetchDuration    prometheus.Histogram
	jobsActive       prometheus.Gauge
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
	r.ordersGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharos_orders_generated_total",
			Help: "Total number of orders produced by strategies",
		},
		[]string{"strategy", "side"},
	)
	r.ordersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharos_orders_rejected_total",
			Help: "Total number of orders rejected by the simulator",
		},
		[]string{"reason"},
	)
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharos_backtests_total",
			Help: "Total number of backtests",
		},
		[]string{"strategy", "status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pharos_backtest_duration_seconds",
			Help:    "Backtest duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)
	r.symbolsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pharos_symbols_fetched_total",
			Help: "Total number of symbols fetched from market data sources",
		},
		[]string{"source", "status"},
	)
	r.fetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pharos_fetch_duration_seconds",
			Help:    "Market data fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.jobsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pharos_jobs_active",
			Help: "Number of active backtest jobs",
		},
	)

	reg.MustRegister(r.ordersGenerated)
	reg.MustRegister(r.ordersRejected)
	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.symbolsFetched)
	reg.MustRegister(r.fetchDuration)
	reg.MustRegister(r.jobsActive)

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

// RecordOrder records an order produced by a strategy.
func (r *Registry) RecordOrder(strategy, side string) {
	r.ordersGenerated.WithLabelValues(strategy, side).Inc()
}

// RecordRejection records an order rejected by the simulator.
func (r *Registry) RecordRejection(reason string) {
	r.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(strategy, status string, duration float64) {
	r.backtestsTotal.WithLabelValues(strategy, status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordFetch records a per-symbol fetch outcome.
func (r *Registry) RecordFetch(source, status string) {
	r.symbolsFetched.WithLabelValues(source, status).Inc()
}

// RecordFetchDuration records the duration of a full fetch.
func (r *Registry) RecordFetchDuration(duration float64) {
	r.fetchDuration.Observe(duration)
}

// SetJobsActive sets the number of active jobs.
func (r *Registry) SetJobsActive(count int) {
	r.jobsActive.Set(float64(count))
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
