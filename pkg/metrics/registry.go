// Package metrics provides the Prometheus registry gate shared by every
// fabric service. Metrics collection is opt-in: until InitRegistry is
// called, IsEnabled returns false and every metrics constructor in this
// package returns nil, so instrumented code pays zero overhead.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates and installs the process-wide Prometheus registry.
// Call this once, before constructing any metrics-backed component, so that
// IsEnabled reflects the final state by the time stores and pipelines ask.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the process-wide registry, or nil if metrics are
// disabled. Callers should check IsEnabled (or rely on the nil-safe
// metrics constructors) before registering collectors.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Reset tears down the registry. Exposed for tests that need a clean
// metrics state between cases.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
	enabled = false
}
