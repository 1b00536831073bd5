// Package admission implements the per-RPC admission pipeline: a uniform
// five-stage gate (Extract, Authenticate, Authorize, Guard, Dispatch)
// wrapping every handler, rendered as composable grpc.UnaryServerInterceptor
// and grpc.StreamServerInterceptor chains rather than ad-hoc inline checks
// inside each handler.
package admission

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/marmos91/capfabric/internal/logger"
	"github.com/marmos91/capfabric/internal/telemetry"
	"github.com/marmos91/capfabric/pkg/breaker"
	"github.com/marmos91/capfabric/pkg/capability"
	"github.com/marmos91/capfabric/pkg/delegation"
	"github.com/marmos91/capfabric/pkg/metrics"
	"github.com/marmos91/capfabric/pkg/rpc"
	"github.com/marmos91/capfabric/pkg/rpccache"
	"github.com/marmos91/capfabric/pkg/token"
)

// Pipeline holds the shared, process-lifetime state a single service
// fronting's admission gate needs: its own name (the expected audience),
// the token and delegation verifiers, one circuit breaker (the service's
// single process-wide gate), a response cache, and metrics.
type Pipeline struct {
	SelfName   string
	Verifier   *token.Verifier
	Delegation *delegation.Verifier
	Breaker    *breaker.Breaker
	Cache      *rpccache.Cache
	Metrics    *metrics.AdmissionMetrics
}

// New builds a Pipeline. cache may be nil for services with no cacheable
// operations.
func New(selfName string, v *token.Verifier, dv *delegation.Verifier, b *breaker.Breaker, cache *rpccache.Cache) *Pipeline {
	return &Pipeline{
		SelfName:   selfName,
		Verifier:   v,
		Delegation: dv,
		Breaker:    b,
		Cache:      cache,
		Metrics:    metrics.NewAdmissionMetrics(),
	}
}

func (p *Pipeline) recordStage(stage string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "denied"
	}
	p.Metrics.RecordStage(stage, outcome, time.Since(start))
}

// extract obtains the bearer token per the method's carrier.
func (p *Pipeline) extract(d *descriptor, req any, md metadata.MD) (string, error) {
	var tok string
	switch d.carrier {
	case carrierMetadata:
		tok = extractMetadataToken(md, d.metadataKey)
	default:
		tok = d.extractPayload(req)
	}
	if tok == "" {
		return "", Fail(KindUnauthenticated, "missing capability token", nil)
	}
	return tok, nil
}

// authenticate runs the Token Verifier against the service's own name.
func (p *Pipeline) authenticate(ctx context.Context, tok string) (*token.Claims, error) {
	claims, err := p.Verifier.Verify(ctx, tok, p.SelfName)
	if err != nil {
		return nil, Fail(KindUnauthenticated, "authentication failed", err)
	}
	return claims, nil
}

// authorize checks the required capability, falling back to a delegation
// proof re-check when the primary claims don't carry it and the request
// supplies one.
func (p *Pipeline) authorize(ctx context.Context, claims *token.Claims, exactCap, wildcardCap, delegationProof string) error {
	if capability.MatchCapability(claims.Capabilities, exactCap) {
		p.logWildcardGrant(claims, exactCap)
		return nil
	}
	if wildcardCap != "" && capability.MatchCapability(claims.Capabilities, wildcardCap) {
		p.logWildcardGrant(claims, wildcardCap)
		return nil
	}

	if delegationProof != "" {
		delClaims, err := p.Delegation.Verify(ctx, delegationProof, p.SelfName, claims)
		if err != nil {
			if errors.Is(err, delegation.ErrCapabilityEscalation) {
				return Fail(KindCapabilityEscalation, "delegated capabilities exceed parent", err)
			}
			return Fail(KindPermissionDenied, "delegation rejected", err)
		}
		if capability.MatchCapability(delClaims.Capabilities, exactCap) ||
			(wildcardCap != "" && capability.MatchCapability(delClaims.Capabilities, wildcardCap)) {
			return nil
		}
	}

	return Fail(KindPermissionDenied, "capability not granted", nil)
}

func (p *Pipeline) logWildcardGrant(claims *token.Claims, matchedEntry string) {
	if entry, ok := capability.MatchCapabilityEntry(claims.Capabilities, matchedEntry); ok && capability.IsWildcard(entry) {
		logger.Warn("bare wildcard capability granted access", "subject", claims.Subject, "entry", entry)
		if p.Metrics != nil {
			p.Metrics.RecordWildcardGrant(p.SelfName, "capability")
		}
	}
}

// guard consults the circuit breaker. Returns an error if the breaker
// rejects the call.
func (p *Pipeline) guard() error {
	if p.Breaker == nil {
		return nil
	}
	if !p.Breaker.Allow() {
		if p.Metrics != nil {
			p.Metrics.SetBreakerState(p.SelfName, true)
		}
		return Fail(KindUnavailable, "service temporarily unavailable", nil)
	}
	return nil
}

func (p *Pipeline) recordOutcome(err error) {
	if p.Breaker == nil {
		return
	}
	if err != nil {
		if tripped := p.Breaker.RecordFailure(); tripped && p.Metrics != nil {
			p.Metrics.RecordBreakerTrip(p.SelfName)
		}
		return
	}
	p.Breaker.RecordSuccess()
}

func (p *Pipeline) emitTelemetry(ctx context.Context, lc *logger.LogContext, status string, detail string) {
	logger.InfoCtx(ctx, "rpc admitted", "status", status, "detail", detail, "duration_ms", lc.DurationMs())
	telemetry.AddEvent(ctx, "rpc.admission",
		attribute.String("status", status),
		attribute.String("detail", detail),
	)
}

// UnaryInterceptor returns the grpc.UnaryServerInterceptor implementing the
// five admission stages for every unary RPC registered against this
// pipeline's service.
func (p *Pipeline) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		d := lookupDescriptor(info.FullMethod)
		if d == nil {
			return handler(ctx, req)
		}

		lc := logger.NewLogContext("").WithMethod(p.SelfName, info.FullMethod)
		ctx = logger.WithContext(ctx, lc)

		md, _ := metadata.FromIncomingContext(ctx)

		stageStart := time.Now()
		tok, err := p.extract(d, req, md)
		p.recordStage("extract", stageStart, err)
		if err != nil {
			p.Metrics.RecordDenial(info.FullMethod, "missing_token")
			p.emitTelemetry(ctx, lc, "denied", err.Error())
			return nil, Status(err)
		}

		stageStart = time.Now()
		claims, err := p.authenticate(ctx, tok)
		p.recordStage("authenticate", stageStart, err)
		if err != nil {
			p.Metrics.RecordDenial(info.FullMethod, "unauthenticated")
			p.emitTelemetry(ctx, lc, "denied", err.Error())
			return nil, Status(err)
		}
		lc = lc.WithPrincipal(claims.Subject, claims.Issuer)
		ctx = logger.WithContext(ctx, lc)
		ctx = withClaims(ctx, claims)

		exactCap, wildcardCap := d.capability(req)
		delegationProof := delegationProofFrom(req)

		stageStart = time.Now()
		err = p.authorize(ctx, claims, exactCap, wildcardCap, delegationProof)
		p.recordStage("authorize", stageStart, err)
		if err != nil {
			p.Metrics.RecordDenial(info.FullMethod, "permission_denied")
			p.emitTelemetry(ctx, lc, "denied", err.Error())
			return nil, Status(err)
		}
		lc = lc.WithCapability(exactCap)
		ctx = logger.WithContext(ctx, lc)

		stageStart = time.Now()
		err = p.guard()
		p.recordStage("guard", stageStart, err)
		if err != nil {
			p.Metrics.RecordDenial(info.FullMethod, "circuit_open")
			p.emitTelemetry(ctx, lc, "circuit_open", "breaker rejected call")
			return nil, Status(err)
		}

		resp, cacheKey, servedFromCache := p.dispatchLookup(d, req)
		if servedFromCache {
			p.emitTelemetry(ctx, lc, "ok", "served from cache")
			return resp, nil
		}

		resp, err = handler(ctx, req)
		p.recordOutcome(err)
		if err != nil {
			p.emitTelemetry(ctx, lc, "error", err.Error())
			return nil, Status(err)
		}

		p.dispatchStore(d, cacheKey, resp)
		p.emitTelemetry(ctx, lc, "ok", "")
		return resp, nil
	}
}

func (p *Pipeline) dispatchLookup(d *descriptor, req any) (resp any, cacheKey string, hit bool) {
	if !d.cacheable || p.Cache == nil {
		return nil, "", false
	}
	cacheKey = d.cacheKey(req)
	if cacheKey == "" {
		return nil, "", false
	}
	cached, ok := p.Cache.Get(cacheKey)
	if !ok {
		if p.Metrics != nil {
			p.Metrics.RecordCacheMiss(cacheKey)
		}
		return nil, cacheKey, false
	}
	if p.Metrics != nil {
		p.Metrics.RecordCacheHit(cacheKey)
	}
	resp, err := decodeCachedResponse(d, cached)
	if err != nil {
		return nil, cacheKey, false
	}
	return resp, cacheKey, true
}

func (p *Pipeline) dispatchStore(d *descriptor, cacheKey string, resp any) {
	if !d.cacheable || p.Cache == nil || cacheKey == "" {
		return
	}
	encoded, err := encodeCachedResponse(resp)
	if err != nil {
		return
	}
	p.Cache.PutWithTTL(cacheKey, encoded, d.cacheTTL)
}

func delegationProofFrom(req any) string {
	r, ok := req.(*rpc.InvokeToolRequest)
	if !ok {
		return ""
	}
	return r.AgentDelegationProof
}
