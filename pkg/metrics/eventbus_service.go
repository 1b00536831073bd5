package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EventBusMetrics instruments the event bus's Publish/Subscribe traffic.
type EventBusMetrics struct {
	published   *prometheus.CounterVec
	delivered   *prometheus.CounterVec
	subscribers *prometheus.GaugeVec
	sequence    *prometheus.GaugeVec
}

// NewEventBusMetrics creates a new Prometheus-backed EventBusMetrics
// instance, or nil if metrics are not enabled.
func NewEventBusMetrics() *EventBusMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &EventBusMetrics{
		published: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_eventbus_published_total",
				Help: "Total events published by topic",
			},
			[]string{"topic"},
		),
		delivered: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_eventbus_delivered_total",
				Help: "Total events delivered to subscribers by topic",
			},
			[]string{"topic"},
		),
		subscribers: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capfabric_eventbus_subscribers",
				Help: "Current number of active subscriptions by topic filter",
			},
			[]string{"filter"},
		),
		sequence: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capfabric_eventbus_sequence",
				Help: "Latest sequence number issued per topic",
			},
			[]string{"topic"},
		),
	}
}

func (m *EventBusMetrics) RecordPublish(topic string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(topic).Inc()
}

func (m *EventBusMetrics) RecordDelivery(topic string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.delivered.WithLabelValues(topic).Add(float64(count))
}

func (m *EventBusMetrics) SetSubscriberCount(filter string, count int) {
	if m == nil {
		return
	}
	m.subscribers.WithLabelValues(filter).Set(float64(count))
}

func (m *EventBusMetrics) SetSequence(topic string, seq uint64) {
	if m == nil {
		return
	}
	m.sequence.WithLabelValues(topic).Set(float64(seq))
}
