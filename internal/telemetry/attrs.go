package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for admission pipeline spans. These follow OpenTelemetry
// semantic conventions where applicable; fabric-specific keys use the
// "capfabric." prefix.
const (
	AttrService     = "rpc.service"
	AttrMethod      = "rpc.method"
	AttrPrincipal   = "capfabric.principal"
	AttrIssuer      = "capfabric.issuer"
	AttrAudience    = "capfabric.audience"
	AttrCapability  = "capfabric.capability"
	AttrDelegatee   = "capfabric.delegatee"
	AttrTokenKID    = "capfabric.token_kid"
	AttrCacheHit    = "cache.hit"
	AttrCacheKey    = "capfabric.cache_key"
	AttrBreakerName = "capfabric.breaker_name"
	AttrBreakerOpen = "capfabric.breaker_open"
	AttrTopic       = "capfabric.topic"
	AttrSequence    = "capfabric.sequence"
	AttrStatusCode  = "rpc.grpc.status_code"
)

// Span names for admission pipeline stages.
const (
	SpanExtract       = "admission.extract"
	SpanAuthenticate  = "admission.authenticate"
	SpanAuthorize     = "admission.authorize"
	SpanGuard         = "admission.guard"
	SpanDispatch      = "admission.dispatch"
	SpanJWKSRefresh   = "keyset.refresh"
	SpanRegistryScan  = "registry.scan"
	SpanEventBusWrite = "eventbus.publish"
)

// Service returns an attribute for the gRPC service name.
func Service(name string) attribute.KeyValue {
	return attribute.String(AttrService, name)
}

// Method returns an attribute for the gRPC method name.
func Method(name string) attribute.KeyValue {
	return attribute.String(AttrMethod, name)
}

// Principal returns an attribute for the authenticated subject.
func Principal(sub string) attribute.KeyValue {
	return attribute.String(AttrPrincipal, sub)
}

// Issuer returns an attribute for the token issuer.
func Issuer(iss string) attribute.KeyValue {
	return attribute.String(AttrIssuer, iss)
}

// Audience returns an attribute for the matched audience.
func Audience(aud string) attribute.KeyValue {
	return attribute.String(AttrAudience, aud)
}

// Capability returns an attribute for the capability checked against a request.
func Capability(cap string) attribute.KeyValue {
	return attribute.String(AttrCapability, cap)
}

// Delegatee returns an attribute for the delegation target, if any.
func Delegatee(sub string) attribute.KeyValue {
	return attribute.String(AttrDelegatee, sub)
}

// TokenKID returns an attribute for the token's key ID.
func TokenKID(kid string) attribute.KeyValue {
	return attribute.String(AttrTokenKID, kid)
}

// CacheHit returns an attribute for a response cache hit.
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheKey returns an attribute for the canonical response cache key.
func CacheKey(key string) attribute.KeyValue {
	return attribute.String(AttrCacheKey, key)
}

// BreakerName returns an attribute for the circuit breaker identity.
func BreakerName(name string) attribute.KeyValue {
	return attribute.String(AttrBreakerName, name)
}

// BreakerOpen returns an attribute for whether a breaker rejected the call.
func BreakerOpen(open bool) attribute.KeyValue {
	return attribute.Bool(AttrBreakerOpen, open)
}

// Topic returns an attribute for an event bus topic.
func Topic(topic string) attribute.KeyValue {
	return attribute.String(AttrTopic, topic)
}

// Sequence returns an attribute for an event's monotonic sequence number.
func Sequence(seq uint64) attribute.KeyValue {
	return attribute.Int64(AttrSequence, int64(seq))
}

// StartAdmissionSpan starts a span for one admission pipeline stage.
func StartAdmissionSpan(ctx context.Context, stage, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Service(service), Method(method)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, stage, trace.WithAttributes(allAttrs...))
}
