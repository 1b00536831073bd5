package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the three fabric
// services (registry, context/tool, event bus). Use these keys consistently
// across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// RPC identity
	// ========================================================================
	KeyService = "service" // gRPC service name: Registry, ContextTool, EventBus
	KeyMethod  = "method"  // gRPC method name: Register, Lookup, RequestContext, ...

	// ========================================================================
	// Token / capability authentication
	// ========================================================================
	KeyIssuer         = "issuer"          // Token issuer (iss claim)
	KeySubject        = "subject"         // Authenticated principal (sub claim)
	KeyAudience       = "audience"        // Matched audience entry
	KeyKID            = "kid"             // JWKS key ID used to verify the token
	KeyCapability      = "capability"      // Capability string required or matched
	KeyCapabilities   = "capabilities"    // Full capability list on a token
	KeyDelegatee      = "delegatee"       // Delegation target subject
	KeyDelegationProof = "delegation_proof" // Whether a delegation proof was presented
	KeyWildcard       = "wildcard_grant"  // True when a bare "*" capability/audience matched

	// ========================================================================
	// Admission pipeline stages
	// ========================================================================
	KeyStage      = "stage"       // extract, authenticate, authorize, guard, dispatch
	KeyOutcome    = "outcome"     // allow, deny, error
	KeyDenyReason = "deny_reason" // human-readable reason for a denial

	// ========================================================================
	// Circuit breaker
	// ========================================================================
	KeyBreakerName       = "breaker_name"
	KeyBreakerState      = "breaker_state" // closed, open
	KeyBreakerFailures   = "breaker_failures"
	KeyBreakerThreshold  = "breaker_threshold"
	KeyBreakerRecoveryMs = "breaker_recovery_ms"

	// ========================================================================
	// Response cache
	// ========================================================================
	KeyCacheHit = "cache_hit"
	KeyCacheKey = "cache_key"
	KeyCacheTTL = "cache_ttl_s"

	// ========================================================================
	// Registry (discovery)
	// ========================================================================
	KeyServerName = "server_name"
	KeyMatchCount = "match_count"

	// ========================================================================
	// Context/tool store
	// ========================================================================
	KeyContextKey = "context_key"
	KeyToolName   = "tool_name"
	KeyParamHash  = "param_hash"

	// ========================================================================
	// Event bus
	// ========================================================================
	KeyTopic      = "topic"
	KeySequence   = "sequence"
	KeySubscriber = "subscriber"

	// ========================================================================
	// Client / transport
	// ========================================================================
	KeyClientIP   = "client_ip"   // Client IP address
	KeyClientPort = "client_port" // Client source port

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // grpc status code
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Service returns a slog.Attr for the gRPC service name
func Service(name string) slog.Attr {
	return slog.String(KeyService, name)
}

// Method returns a slog.Attr for the gRPC method name
func Method(name string) slog.Attr {
	return slog.String(KeyMethod, name)
}

// Issuer returns a slog.Attr for the token issuer
func Issuer(iss string) slog.Attr {
	return slog.String(KeyIssuer, iss)
}

// Subject returns a slog.Attr for the authenticated principal
func Subject(sub string) slog.Attr {
	return slog.String(KeySubject, sub)
}

// Audience returns a slog.Attr for a matched audience entry
func Audience(aud string) slog.Attr {
	return slog.String(KeyAudience, aud)
}

// KID returns a slog.Attr for the JWKS key ID used to verify a token
func KID(kid string) slog.Attr {
	return slog.String(KeyKID, kid)
}

// Capability returns a slog.Attr for a capability string
func Capability(cap string) slog.Attr {
	return slog.String(KeyCapability, cap)
}

// Capabilities returns a slog.Attr for a full capability list
func Capabilities(caps []string) slog.Attr {
	return slog.Any(KeyCapabilities, caps)
}

// Delegatee returns a slog.Attr for a delegation target subject
func Delegatee(sub string) slog.Attr {
	return slog.String(KeyDelegatee, sub)
}

// Wildcard returns a slog.Attr flagging a bare "*" capability/audience match
func Wildcard(matched bool) slog.Attr {
	return slog.Bool(KeyWildcard, matched)
}

// Stage returns a slog.Attr for the admission pipeline stage
func Stage(name string) slog.Attr {
	return slog.String(KeyStage, name)
}

// Outcome returns a slog.Attr for the admission outcome
func Outcome(outcome string) slog.Attr {
	return slog.String(KeyOutcome, outcome)
}

// DenyReason returns a slog.Attr describing why a request was denied
func DenyReason(reason string) slog.Attr {
	return slog.String(KeyDenyReason, reason)
}

// BreakerName returns a slog.Attr for the circuit breaker identity
func BreakerName(name string) slog.Attr {
	return slog.String(KeyBreakerName, name)
}

// BreakerState returns a slog.Attr for the circuit breaker state
func BreakerState(state string) slog.Attr {
	return slog.String(KeyBreakerState, state)
}

// BreakerFailures returns a slog.Attr for the consecutive failure count
func BreakerFailures(n int) slog.Attr {
	return slog.Int(KeyBreakerFailures, n)
}

// CacheHit returns a slog.Attr for a response cache hit indicator
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// CacheKey returns a slog.Attr for the canonical response cache key
func CacheKey(key string) slog.Attr {
	return slog.String(KeyCacheKey, key)
}

// ServerName returns a slog.Attr for a registered server's name
func ServerName(name string) slog.Attr {
	return slog.String(KeyServerName, name)
}

// MatchCount returns a slog.Attr for a registry lookup's match count
func MatchCount(n int) slog.Attr {
	return slog.Int(KeyMatchCount, n)
}

// ContextKey returns a slog.Attr for a context store key
func ContextKey(key string) slog.Attr {
	return slog.String(KeyContextKey, key)
}

// ToolName returns a slog.Attr for an invoked tool's name
func ToolName(name string) slog.Attr {
	return slog.String(KeyToolName, name)
}

// Topic returns a slog.Attr for an event bus topic
func Topic(topic string) slog.Attr {
	return slog.String(KeyTopic, topic)
}

// Sequence returns a slog.Attr for an event's monotonic sequence number
func Sequence(seq uint64) slog.Attr {
	return slog.Uint64(KeySequence, seq)
}

// Subscriber returns a slog.Attr for a subscription pattern/channel
func Subscriber(pattern string) slog.Attr {
	return slog.String(KeySubscriber, pattern)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// ClientPort returns a slog.Attr for client source port
func ClientPort(port int) slog.Attr {
	return slog.Int(KeyClientPort, port)
}

// DurationMs returns a slog.Attr for operation duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error message, or an empty Attr for a nil error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a grpc status code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
