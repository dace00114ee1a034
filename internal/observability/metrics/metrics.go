package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/gauges for the messaging relay.
type ChatMetrics struct {
	connectionsActive prometheus.Gauge
	deliveriesTotal   *prometheus.CounterVec
	persistFailures   prometheus.Counter
	persistLatency    prometheus.Histogram
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "telehealth",
			Subsystem: "chat",
			Name:      "connections_active",
			Help:      "Currently open chat connections",
		}),
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "chat",
			Name:      "deliveries_total",
			Help:      "Relay delivery outcomes",
		}, []string{"outcome"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "chat",
			Name:      "persist_failures_total",
			Help:      "Message persist failures surfaced to senders",
		}),
		persistLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telehealth",
			Subsystem: "chat",
			Name:      "persist_latency_seconds",
			Help:      "Latency of message store writes",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.connectionsActive, m.deliveriesTotal, m.persistFailures, m.persistLatency)
	return m
}

func (m *ChatMetrics) ObserveConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsActive.Inc()
}

func (m *ChatMetrics) ObserveConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

// ObserveDelivery records a relay outcome: delivered, offline or failed.
func (m *ChatMetrics) ObserveDelivery(outcome string) {
	if m == nil {
		return
	}
	m.deliveriesTotal.WithLabelValues(outcome).Inc()
}

func (m *ChatMetrics) ObservePersist(seconds float64, err error) {
	if m == nil {
		return
	}
	m.persistLatency.Observe(seconds)
	if err != nil {
		m.persistFailures.Inc()
	}
}
