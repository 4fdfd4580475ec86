// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the transcode pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry so the /metrics
// endpoint only reports what this process registers.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal  *prometheus.CounterVec
	RequestErrors  *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	StreamBytes    prometheus.Counter
	TunedChannels  *prometheus.CounterVec
}

// New creates the collectors and registers them.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airwave_http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "code"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airwave_http_request_errors_total",
			Help: "HTTP requests that ended in a server error, by route.",
		}, []string{"route"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "airwave_stream_sessions_active",
			Help: "Transcode sessions currently running.",
		}),
		StreamBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airwave_stream_bytes_total",
			Help: "Bytes of transcoded output written to clients.",
		}),
		TunedChannels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airwave_channel_tunes_total",
			Help: "Stream starts, by channel number.",
		}, []string{"channel"}),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestErrors,
		m.ActiveSessions,
		m.StreamBytes,
		m.TunedChannels,
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
