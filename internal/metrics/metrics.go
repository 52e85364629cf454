// Package metrics exposes run, trade and skip counters in Prometheus form.
// A batch run flushes them to a node-exporter textfile or a Pushgateway; the
// scheduler can also serve them over HTTP.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Skip reasons.
const (
	SkipFetchFailed      = "fetch_failed"
	SkipInsufficientData = "insufficient_data"
	SkipNoPrice          = "no_price"
	SkipPositionCap      = "position_cap"
	SkipZeroShares       = "zero_shares"
	SkipOrderFailed      = "order_failed"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	lastRun          *prometheus.GaugeVec
	signalsTotal     *prometheus.CounterVec
	tradesTotal      *prometheus.CounterVec
	skipsTotal       *prometheus.CounterVec
	capital          *prometheus.GaugeVec
	watchlistSymbols prometheus.Gauge
	notifications    *prometheus.CounterVec
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
	r.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etfbot_runs_total",
			Help: "Total number of runs by outcome",
		},
		[]string{"mode", "status"},
	)
	r.runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etfbot_run_duration_seconds",
			Help:    "Run duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)
	r.lastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "etfbot_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		},
		[]string{"mode"},
	)
	r.signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etfbot_signals_total",
			Help: "Evaluated signals by resulting action",
		},
		[]string{"mode", "action"},
	)
	r.tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etfbot_trades_total",
			Help: "Trades recorded in the trade log",
		},
		[]string{"mode", "action"},
	)
	r.skipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etfbot_skips_total",
			Help: "Tickers skipped by reason",
		},
		[]string{"mode", "reason"},
	)
	r.capital = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "etfbot_capital",
			Help: "Capital the run sized against",
		},
		[]string{"mode"},
	)
	r.watchlistSymbols = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "etfbot_watchlist_symbols",
			Help: "Number of symbols in watchlist",
		},
	)
	r.notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etfbot_notifications_total",
			Help: "Notifications sent by notifier and status",
		},
		[]string{"notifier", "status"},
	)

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.lastRun)
	reg.MustRegister(r.signalsTotal)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.skipsTotal)
	reg.MustRegister(r.capital)
	reg.MustRegister(r.watchlistSymbols)
	reg.MustRegister(r.notifications)

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

// RecordRun records a finished run. status is "ok" or "error".
func (r *Registry) RecordRun(mode, status string, duration float64, finishedAt float64) {
	r.runsTotal.WithLabelValues(mode, status).Inc()
	r.runDuration.WithLabelValues(mode).Observe(duration)
	r.lastRun.WithLabelValues(mode).Set(finishedAt)
}

// RecordSignal records an evaluated signal.
func (r *Registry) RecordSignal(mode, action string) {
	r.signalsTotal.WithLabelValues(mode, action).Inc()
}

// RecordTrade records a trade-log entry.
func (r *Registry) RecordTrade(mode, action string) {
	r.tradesTotal.WithLabelValues(mode, action).Inc()
}

// RecordSkip records a skipped ticker.
func (r *Registry) RecordSkip(mode, reason string) {
	r.skipsTotal.WithLabelValues(mode, reason).Inc()
}

// SetCapital sets the capital used for sizing.
func (r *Registry) SetCapital(mode string, value float64) {
	r.capital.WithLabelValues(mode).Set(value)
}

// SetWatchlistSize sets the watchlist size.
func (r *Registry) SetWatchlistSize(size int) {
	r.watchlistSymbols.Set(float64(size))
}

// RecordNotification records a notifier delivery.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notifications.WithLabelValues(notifier, status).Inc()
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
