package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEnabled_DefaultFalse(t *testing.T) {
	Reset()
	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())
}

func TestInitRegistry_EnablesMetrics(t *testing.T) {
	Reset()
	defer Reset()

	reg := InitRegistry()
	require.NotNil(t, reg)
	assert.True(t, IsEnabled())
	assert.Same(t, reg, GetRegistry())
}

func TestNewAdmissionMetrics_NilWhenDisabled(t *testing.T) {
	Reset()
	m := NewAdmissionMetrics()
	assert.Nil(t, m)

	// Nil-safe: calling any method on a nil *AdmissionMetrics must not panic.
	m.RecordStage("authorize", "allow", 0)
	m.RecordDenial("Lookup", "capability_mismatch")
	m.SetBreakerState("registry", true)
	m.RecordBreakerTrip("registry")
	m.RecordCacheHit("Lookup")
	m.RecordCacheMiss("Lookup")
	m.RecordJWKSRefresh("success")
	m.RecordWildcardGrant("Lookup", "capability")
}

func TestNewAdmissionMetrics_RegistersWhenEnabled(t *testing.T) {
	Reset()
	defer Reset()

	InitRegistry()
	m := NewAdmissionMetrics()
	require.NotNil(t, m)

	// Recording must not panic once registered.
	m.RecordStage("authenticate", "allow", 0)
	m.RecordDenial("Lookup", "expired_token")
	m.SetBreakerState("registry", false)
	m.RecordCacheMiss("Lookup")
}

func TestNewRegistryMetrics_NilWhenDisabled(t *testing.T) {
	Reset()
	m := NewRegistryMetrics()
	assert.Nil(t, m)

	m.RecordOperation("lookup", nil)
	m.RecordLookupMatches(3)
	m.SetEntryCount(10)
}

func TestNewEventBusMetrics_NilWhenDisabled(t *testing.T) {
	Reset()
	m := NewEventBusMetrics()
	assert.Nil(t, m)

	m.RecordPublish("telemetry.stream-1")
	m.RecordDelivery("telemetry.stream-1", 2)
	m.SetSubscriberCount("telemetry.*", 1)
	m.SetSequence("telemetry.stream-1", 42)
}

func TestNewContextToolMetrics_NilWhenDisabled(t *testing.T) {
	Reset()
	m := NewContextToolMetrics()
	assert.Nil(t, m)

	m.RecordStoreOperation("get", 0, nil)
	m.RecordToolInvocation("compute_pricing", 0, nil)
	m.RecordTelemetryBridged("stream-1")
}
