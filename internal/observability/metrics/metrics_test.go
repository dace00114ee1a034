package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestChatMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveConnectionOpened()
	m.ObserveConnectionOpened()
	m.ObserveConnectionClosed()
	m.ObserveDelivery("delivered")
	m.ObserveDelivery("offline")
	m.ObserveDelivery("delivered")
	m.ObservePersist(0.01, nil)
	m.ObservePersist(0.5, errors.New("boom"))

	families := gather(t, reg)

	gauge := families["telehealth_chat_connections_active"]
	require.NotNil(t, gauge)
	assert.Equal(t, float64(1), gauge.GetMetric()[0].GetGauge().GetValue())

	deliveries := families["telehealth_chat_deliveries_total"]
	require.NotNil(t, deliveries)
	byOutcome := map[string]float64{}
	for _, metric := range deliveries.GetMetric() {
		byOutcome[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, float64(2), byOutcome["delivered"])
	assert.Equal(t, float64(1), byOutcome["offline"])

	failures := families["telehealth_chat_persist_failures_total"]
	require.NotNil(t, failures)
	assert.Equal(t, float64(1), failures.GetMetric()[0].GetCounter().GetValue())

	latency := families["telehealth_chat_persist_latency_seconds"]
	require.NotNil(t, latency)
	assert.Equal(t, uint64(2), latency.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveConnectionOpened()
	m.ObserveConnectionClosed()
	m.ObserveDelivery("delivered")
	m.ObservePersist(0, nil)
}
