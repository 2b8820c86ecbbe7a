package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frame rejection reasons
const (
	RejectMalformedLength = "malformed_length"
	RejectBadHeader       = "bad_header"
	RejectConnectionLimit = "connection_limit"
)

// Metrics holds the Kafka listener collectors on a registry owned by one
// server process.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	connections    prometheus.Gauge
	framesRejected *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "monowire",
				Subsystem: "kafka",
				Name:      "requests_total",
				Help:      "Kafka requests answered, by API and response error code.",
			},
			[]string{"api", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "monowire",
				Subsystem: "kafka",
				Name:      "request_duration_seconds",
				Help:      "Time from frame read to response written.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"api"},
		),
		connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "monowire",
				Subsystem: "kafka",
				Name:      "connections_active",
				Help:      "Open client connections.",
			},
		),
		framesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "monowire",
				Subsystem: "kafka",
				Name:      "frames_rejected_total",
				Help:      "Connections closed without a response, by reason.",
			},
			[]string{"reason"},
		),
	}
	m.registry.MustRegister(
		m.requests, m.duration, m.connections, m.framesRejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RecordRequest(api string, code int16, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(api, strconv.Itoa(int(code))).Inc()
	m.duration.WithLabelValues(api).Observe(duration.Seconds())
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) FrameRejected(reason string) {
	if m == nil {
		return
	}
	m.framesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
