// Package metrics provides Prometheus metrics collection for the gateway's
// HTTP surface and session lifecycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	subsystem = "gateway"
)

// Metrics provides Prometheus metrics collection for the gateway.
type Metrics struct {
	reg *prometheus.Registry

	TotalHTTPRequestsCounter prometheus.Counter
	HTTPDurationHistogram    prometheus.Histogram

	SessionsActiveGauge      prometheus.Gauge
	SessionsConnectedGauge   prometheus.Gauge
	MessagesSentCounter      prometheus.Counter
	ReconnectAttemptsCounter prometheus.Counter
	WebhookDeliveriesCounter *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all gateway collectors registered.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
	}

	m.TotalHTTPRequestsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "total_http_requests",
		Help:      "Total HTTP requests",
	})
	m.HTTPDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 1.0, 3.0, 5.0, 7.0, 10.0},
	})

	m.SessionsActiveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "sessions_active",
		Help:      "Number of sessions currently tracked in the registry",
	})
	m.SessionsConnectedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "sessions_connected",
		Help:      "Number of sessions currently connected",
	})
	m.MessagesSentCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "messages_sent_total",
		Help:      "Total messages successfully dispatched to the transport",
	})
	m.ReconnectAttemptsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "reconnect_attempts_total",
		Help:      "Total reconnect attempts scheduled after recoverable closes",
	})
	m.WebhookDeliveriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "webhook_deliveries_total",
		Help:      "Webhook delivery attempts by outcome",
	}, []string{"outcome"})

	m.reg.MustRegister(
		m.TotalHTTPRequestsCounter,
		m.HTTPDurationHistogram,
		m.SessionsActiveGauge,
		m.SessionsConnectedGauge,
		m.MessagesSentCounter,
		m.ReconnectAttemptsCounter,
		m.WebhookDeliveriesCounter,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// HTTPMiddleware counts requests and observes their duration.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.TotalHTTPRequestsCounter.Inc()
		next.ServeHTTP(w, r)
		m.HTTPDurationHistogram.Observe(time.Since(start).Seconds())
	})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
