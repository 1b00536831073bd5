// Package breaker implements the admission pipeline's circuit breaker: a
// single process-wide gate per service guarding the Guard/Dispatch stages
// against a backend in a sustained failure state.
package breaker

import (
	"sync"
	"time"
)

// State is the breaker's externally-observable state.
type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// DefaultThreshold is the number of consecutive failures that trips the
// breaker open.
const DefaultThreshold = 3

// DefaultRecoveryTime is how long the breaker stays open before a single
// probe attempt is allowed.
const DefaultRecoveryTime = 30 * time.Second

// Breaker guards calls to a single backend with a closed/open state
// machine. All state is protected by one mutex; callers never hold the
// lock across the guarded call itself — Allow/RecordSuccess/RecordFailure
// only touch in-memory counters.
type Breaker struct {
	mu sync.Mutex

	threshold    int
	recoveryTime time.Duration

	state               State
	consecutiveFailures int
	lastFailureTime     time.Time
	probeInFlight       bool
}

// Config configures a Breaker. Zero values use the package defaults.
type Config struct {
	Threshold    int
	RecoveryTime time.Duration
}

// New builds a closed Breaker with the given configuration.
func New(cfg Config) *Breaker {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	recovery := cfg.RecoveryTime
	if recovery <= 0 {
		recovery = DefaultRecoveryTime
	}
	return &Breaker{threshold: threshold, recoveryTime: recovery, state: Closed}
}

// Allow reports whether a call may proceed. If the breaker is open and the
// recovery window has elapsed, exactly one caller is let through as a probe
// (probeInFlight gates concurrent callers from all attempting the probe at
// once); all others are rejected until that probe resolves.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Closed {
		return true
	}

	if b.probeInFlight {
		return false
	}

	if time.Since(b.lastFailureTime) > b.recoveryTime {
		b.probeInFlight = true
		return true
	}

	return false
}

// CurrentState returns the breaker's current state.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// RecordSuccess reports a successful call. In closed state this resets the
// failure counter. A successful probe (open state) transitions the breaker
// back to closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.probeInFlight = false
	b.state = Closed
}

// RecordFailure reports a failed call. In closed state this increments the
// failure counter, tripping the breaker open once the threshold is
// crossed. A failing probe (open state) keeps the breaker open and resets
// the recovery window.
func (b *Breaker) RecordFailure() (tripped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureTime = time.Now()
	b.probeInFlight = false

	if b.state == Open {
		return false
	}

	b.consecutiveFailures++
	if b.consecutiveFailures >= b.threshold {
		b.state = Open
		return true
	}
	return false
}
