package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AdmissionMetrics instruments the admission pipeline: per-stage outcomes,
// circuit breaker state, response cache hit ratio, and JWKS refresh
// activity.
type AdmissionMetrics struct {
	stageOutcomes    *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	denyReasons      *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
	breakerTrips     *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	jwksRefreshTotal *prometheus.CounterVec
	wildcardGrants   *prometheus.CounterVec
}

// NewAdmissionMetrics creates a new Prometheus-backed AdmissionMetrics
// instance, or nil if metrics are not enabled (InitRegistry not called).
// Every method on a nil *AdmissionMetrics is a no-op, so callers can wire
// it in unconditionally.
func NewAdmissionMetrics() *AdmissionMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &AdmissionMetrics{
		stageOutcomes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_admission_stage_total",
				Help: "Total admission pipeline stage executions by stage and outcome",
			},
			[]string{"stage", "outcome"}, // stage: extract|authenticate|authorize|guard|dispatch
		),
		stageDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "capfabric_admission_stage_duration_milliseconds",
				Help: "Duration of admission pipeline stages in milliseconds",
				Buckets: []float64{
					0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000,
				},
			},
			[]string{"stage"},
		),
		denyReasons: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_admission_denied_total",
				Help: "Total requests denied by the admission pipeline by reason",
			},
			[]string{"method", "reason"},
		),
		breakerState: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "capfabric_breaker_open",
				Help: "Circuit breaker state (1 = open, 0 = closed) by breaker name",
			},
			[]string{"breaker"},
		),
		breakerTrips: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_breaker_trips_total",
				Help: "Total number of times a circuit breaker opened",
			},
			[]string{"breaker"},
		),
		cacheHits: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_response_cache_hits_total",
				Help: "Total response cache hits by method",
			},
			[]string{"method"},
		),
		cacheMisses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_response_cache_misses_total",
				Help: "Total response cache misses by method",
			},
			[]string{"method"},
		),
		jwksRefreshTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_jwks_refresh_total",
				Help: "Total JWKS refresh attempts by outcome",
			},
			[]string{"outcome"}, // outcome: success|error|coalesced
		),
		wildcardGrants: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "capfabric_wildcard_grants_total",
				Help: "Total requests admitted via a bare wildcard capability or audience entry",
			},
			[]string{"method", "kind"}, // kind: capability|audience
		),
	}
}

// RecordStage records the outcome and duration of an admission pipeline stage.
func (m *AdmissionMetrics) RecordStage(stage, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageOutcomes.WithLabelValues(stage, outcome).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds() * 1000)
}

// RecordDenial records a request denied by the admission pipeline.
func (m *AdmissionMetrics) RecordDenial(method, reason string) {
	if m == nil {
		return
	}
	m.denyReasons.WithLabelValues(method, reason).Inc()
}

// SetBreakerState updates the gauge tracking whether a named breaker is open.
func (m *AdmissionMetrics) SetBreakerState(breaker string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1.0
	}
	m.breakerState.WithLabelValues(breaker).Set(v)
}

// RecordBreakerTrip records a breaker transitioning from closed to open.
func (m *AdmissionMetrics) RecordBreakerTrip(breaker string) {
	if m == nil {
		return
	}
	m.breakerTrips.WithLabelValues(breaker).Inc()
}

// RecordCacheHit records a response cache hit for a method.
func (m *AdmissionMetrics) RecordCacheHit(method string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(method).Inc()
}

// RecordCacheMiss records a response cache miss for a method.
func (m *AdmissionMetrics) RecordCacheMiss(method string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(method).Inc()
}

// RecordJWKSRefresh records the outcome of a key set refresh attempt.
func (m *AdmissionMetrics) RecordJWKSRefresh(outcome string) {
	if m == nil {
		return
	}
	m.jwksRefreshTotal.WithLabelValues(outcome).Inc()
}

// RecordWildcardGrant records a request admitted via a bare "*" capability
// or audience entry, so operators can audit how often the super-grant is
// actually exercised.
func (m *AdmissionMetrics) RecordWildcardGrant(method, kind string) {
	if m == nil {
		return
	}
	m.wildcardGrants.WithLabelValues(method, kind).Inc()
}
