package admission

import (
	"context"

	"github.com/marmos91/capfabric/pkg/token"
)

type claimsContextKey struct{}

func withClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// WithClaims attaches claims to ctx the same way the admission pipeline
// does after a successful Authenticate stage. Exported so service tests
// can exercise handlers directly, without driving a full interceptor.
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return withClaims(ctx, claims)
}

// ClaimsFromContext returns the caller's verified claims, as established by
// the admission pipeline's Authenticate stage. Handlers use this to apply
// additional per-operation filtering, such as the Registry's audience
// filter on Lookup results.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims
}
