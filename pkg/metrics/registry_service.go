package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegistryMetrics instruments the discovery registry's Register/Lookup/
// Deregister operations.
type RegistryMetrics struct {
	operations *prometheus.CounterVec
	matchCount prometheus.Histogram
	entryCount prometheus.Gauge
}

// NewRegistryMetrics creates a new Prometheus-backed RegistryMetrics
// instance, or nil if metrics are not enabled.
func NewRegistryMetrics() *RegistryMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &RegistryMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_registry_operations_total",
				Help: "Total discovery registry operations by operation and status",
			},
			[]string{"operation", "status"}, // operation: register|lookup|deregister
		),
		matchCount: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "capfabric_registry_lookup_matches",
				Help:    "Distribution of matched endpoint counts per Lookup call",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
		),
		entryCount: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "capfabric_registry_entries",
				Help: "Current number of registered server endpoints",
			},
		),
	}
}

func (m *RegistryMetrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(operation, status).Inc()
}

func (m *RegistryMetrics) RecordLookupMatches(count int) {
	if m == nil {
		return
	}
	m.matchCount.Observe(float64(count))
}

func (m *RegistryMetrics) SetEntryCount(count int) {
	if m == nil {
		return
	}
	m.entryCount.Set(float64(count))
}
