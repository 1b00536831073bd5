package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ContextToolMetrics instruments the context/tool server's storage reads,
// writes, and tool invocations.
type ContextToolMetrics struct {
	storeOperations  *prometheus.CounterVec
	storeDuration    *prometheus.HistogramVec
	toolInvocations  *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	telemetryBridged *prometheus.CounterVec
}

// NewContextToolMetrics creates a new Prometheus-backed ContextToolMetrics
// instance, or nil if metrics are not enabled.
func NewContextToolMetrics() *ContextToolMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &ContextToolMetrics{
		storeOperations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_contexttool_store_operations_total",
				Help: "Total context store operations by operation and status",
			},
			[]string{"operation", "status"}, // operation: get|put
		),
		storeDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "capfabric_contexttool_store_duration_milliseconds",
				Help:    "Duration of context store operations in milliseconds",
				Buckets: []float64{0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		),
		toolInvocations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_contexttool_invocations_total",
				Help: "Total tool invocations by tool name and status",
			},
			[]string{"tool", "status"},
		),
		toolDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "capfabric_contexttool_invocation_duration_milliseconds",
				Help:    "Duration of tool invocations in milliseconds",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
			},
			[]string{"tool"},
		),
		telemetryBridged: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_contexttool_telemetry_bridged_total",
				Help: "Total telemetry messages bridged from Redis to SubscribeTelemetry streams",
			},
			[]string{"stream_id"},
		),
	}
}

func (m *ContextToolMetrics) RecordStoreOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.storeOperations.WithLabelValues(operation, status).Inc()
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds() * 1000)
}

func (m *ContextToolMetrics) RecordToolInvocation(tool string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.toolInvocations.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds() * 1000)
}

func (m *ContextToolMetrics) RecordTelemetryBridged(streamID string) {
	if m == nil {
		return
	}
	m.telemetryBridged.WithLabelValues(streamID).Inc()
}
