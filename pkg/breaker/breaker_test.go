package breaker

import (
	"testing"
	"time"
)

func TestBreaker_StaysClosedBelowThreshold(t *testing.T) {
	b := New(Config{Threshold: 3, RecoveryTime: 30 * time.Second})

	for i := 0; i < 2; i++ {
		if !b.Allow() {
			t.Fatal("expected closed breaker to allow calls")
		}
		if tripped := b.RecordFailure(); tripped {
			t.Fatal("breaker tripped before reaching threshold")
		}
	}

	if b.CurrentState() != Closed {
		t.Fatalf("expected Closed, got %v", b.CurrentState())
	}
}

func TestBreaker_TripsAtThreshold(t *testing.T) {
	b := New(Config{Threshold: 3, RecoveryTime: 30 * time.Second})

	b.RecordFailure()
	b.RecordFailure()
	tripped := b.RecordFailure()

	if !tripped {
		t.Fatal("expected breaker to trip on third consecutive failure")
	}
	if b.CurrentState() != Open {
		t.Fatalf("expected Open, got %v", b.CurrentState())
	}
	if b.Allow() {
		t.Fatal("expected open breaker to reject calls before recovery window elapses")
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := New(Config{Threshold: 3, RecoveryTime: 30 * time.Second})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if b.CurrentState() != Closed {
		t.Fatal("expected breaker to remain closed since count was reset by the intervening success")
	}
}

func TestBreaker_ProbeAfterRecoveryWindow(t *testing.T) {
	b := New(Config{Threshold: 1, RecoveryTime: 10 * time.Millisecond})

	b.RecordFailure() // trips open immediately (threshold 1)
	if b.CurrentState() != Open {
		t.Fatal("expected breaker to be open")
	}

	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("expected breaker to allow exactly one probe after recovery window")
	}
	if b.Allow() {
		t.Fatal("expected a second concurrent caller to be rejected while a probe is in flight")
	}
}

func TestBreaker_SuccessfulProbeCloses(t *testing.T) {
	b := New(Config{Threshold: 1, RecoveryTime: 10 * time.Millisecond})

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("expected probe to be allowed")
	}

	b.RecordSuccess()

	if b.CurrentState() != Closed {
		t.Fatal("expected successful probe to close the breaker")
	}
	if !b.Allow() {
		t.Fatal("expected closed breaker to allow calls")
	}
}

func TestBreaker_FailedProbeStaysOpen(t *testing.T) {
	b := New(Config{Threshold: 1, RecoveryTime: 10 * time.Millisecond})

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	b.Allow() // consume the probe slot

	b.RecordFailure()

	if b.CurrentState() != Open {
		t.Fatal("expected breaker to remain open after a failed probe")
	}
	if b.Allow() {
		t.Fatal("expected breaker to reject immediately after a failed probe, before a new recovery window elapses")
	}
}
