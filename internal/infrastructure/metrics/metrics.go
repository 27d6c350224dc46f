package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors. A nil *Metrics is valid and
// records nothing, which keeps tests free of registries.
type Metrics struct {
	registry *prometheus.Registry

	Connections     *prometheus.GaugeVec
	Events          *prometheus.CounterVec
	EventErrors     *prometheus.CounterVec
	Automodded      *prometheus.CounterVec
	AuditFailures   prometheus.Counter
	RateLimited     *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	DroppedMessages prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		Connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pfcontrol_ws_connections",
			Help: "Open websocket connections per namespace.",
		}, []string{"namespace"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pfcontrol_ws_events_total",
			Help: "Inbound websocket events per namespace and type.",
		}, []string{"namespace", "type"}),
		EventErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pfcontrol_ws_event_errors_total",
			Help: "Inbound websocket events that produced an error event.",
		}, []string{"namespace", "type"}),
		Automodded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pfcontrol_automod_flags_total",
			Help: "Chat messages flagged by automod.",
		}, []string{"scope"}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pfcontrol_audit_failures_total",
			Help: "Audit entries that could not be recorded.",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pfcontrol_rate_limited_total",
			Help: "Requests or events rejected by a rate limiter.",
		}, []string{"limiter"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pfcontrol_http_requests_total",
			Help: "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pfcontrol_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		DroppedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pfcontrol_ws_dropped_messages_total",
			Help: "Outbound messages dropped because a client buffer was full.",
		}),
	}

	reg.MustRegister(
		m.Connections, m.Events, m.EventErrors, m.Automodded, m.AuditFailures,
		m.RateLimited, m.HTTPRequests, m.HTTPDuration, m.DroppedMessages,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ConnectionOpened(namespace string) {
	if m != nil {
		m.Connections.WithLabelValues(namespace).Inc()
	}
}

func (m *Metrics) ConnectionClosed(namespace string) {
	if m != nil {
		m.Connections.WithLabelValues(namespace).Dec()
	}
}

func (m *Metrics) Event(namespace, eventType string) {
	if m != nil {
		m.Events.WithLabelValues(namespace, eventType).Inc()
	}
}

func (m *Metrics) EventError(namespace, eventType string) {
	if m != nil {
		m.EventErrors.WithLabelValues(namespace, eventType).Inc()
	}
}

func (m *Metrics) Automod(scope string) {
	if m != nil {
		m.Automodded.WithLabelValues(scope).Inc()
	}
}

func (m *Metrics) AuditFailure() {
	if m != nil {
		m.AuditFailures.Inc()
	}
}

func (m *Metrics) Limited(limiter string) {
	if m != nil {
		m.RateLimited.WithLabelValues(limiter).Inc()
	}
}

func (m *Metrics) Dropped() {
	if m != nil {
		m.DroppedMessages.Inc()
	}
}
