package sse

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a set of prometheus collectors describing SSE sessions. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Sessions   prometheus.Gauge
	Events     *prometheus.CounterVec
	Heartbeats prometheus.Counter
	Failures   *prometheus.CounterVec
}

// NewMetrics creates SSE collectors under given namespace. Collectors still
// have to be registered, see Register.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "open_sessions",
			Help:      "Number of currently open SSE sessions",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "events_sent_total",
			Help:      "Total events written to SSE sessions",
		}, []string{"event"}),
		Heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "heartbeats_total",
			Help:      "Total keep-alive comments written to SSE sessions",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sse",
			Name:      "write_failures_total",
			Help:      "Total failed writes to SSE sessions",
		}, []string{"op"}),
	}
}

// Register adds all collectors to the registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Sessions, m.Events, m.Heartbeats, m.Failures} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) sessionOpened() {
	if m != nil {
		m.Sessions.Inc()
	}
}

func (m *Metrics) sessionClosed() {
	if m != nil {
		m.Sessions.Dec()
	}
}

func (m *Metrics) eventsSent(events []*Event) {
	if m == nil {
		return
	}
	for _, e := range events {
		name := e.Event
		if name == "" {
			name = "message"
		}
		m.Events.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) heartbeat() {
	if m != nil {
		m.Heartbeats.Inc()
	}
}

func (m *Metrics) failure(op string) {
	if m != nil {
		m.Failures.WithLabelValues(op).Inc()
	}
}
