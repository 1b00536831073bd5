package admission

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/marmos91/capfabric/pkg/breaker"
	"github.com/marmos91/capfabric/pkg/delegation"
	"github.com/marmos91/capfabric/pkg/rpc"
	"github.com/marmos91/capfabric/pkg/rpccache"
	"github.com/marmos91/capfabric/pkg/token"
)

type fakeKeySet struct {
	key *rsa.PrivateKey
	kid string
}

func (f *fakeKeySet) Keyfunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid != f.kid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return &f.key.PublicKey, nil
}

func (f *fakeKeySet) ForceRefresh(ctx context.Context) error { return nil }

func signToken(t *testing.T, key *rsa.PrivateKey, kid, aud string, caps []string) string {
	t.Helper()
	now := time.Now()
	claims := &token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://issuer.example.com",
			Subject:   "agent-1",
			Audience:  jwt.ClaimStrings{aud},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Capabilities: caps,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func setupPipeline(t *testing.T, selfName string) (*Pipeline, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := &fakeKeySet{key: key, kid: "kid-1"}
	tv := token.NewVerifier(ks, token.Config{Issuer: "https://issuer.example.com"})
	dv := delegation.NewVerifier(tv)
	b := breaker.New(breaker.Config{Threshold: 3, RecoveryTime: 30 * time.Second})
	cache := rpccache.New(time.Minute)

	return New(selfName, tv, dv, b, cache), key
}

func callUnary(t *testing.T, p *Pipeline, fullMethod string, req any, handler grpc.UnaryHandler) (any, error) {
	t.Helper()
	interceptor := p.UnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: fullMethod}
	return interceptor(context.Background(), req, info, handler)
}

func TestUnaryInterceptor_MissingToken(t *testing.T) {
	p, _ := setupPipeline(t, "RegistryServer")

	called := false
	_, err := callUnary(t, p, "/capfabric.Registry/Lookup", &rpc.LookupRequest{}, func(ctx context.Context, req any) (any, error) {
		called = true
		return nil, nil
	})

	require.Error(t, err)
	require.Equal(t, codes.Unauthenticated, status.Code(err))
	require.False(t, called, "handler must not run when extraction fails")
}

func TestUnaryInterceptor_ValidTokenReachesHandler(t *testing.T) {
	p, key := setupPipeline(t, "RegistryServer")
	tok := signToken(t, key, "kid-1", "RegistryServer", []string{"registry:lookup"})

	req := &rpc.LookupRequest{RequesterToken: tok}
	resp, err := callUnary(t, p, "/capfabric.Registry/Lookup", req, func(ctx context.Context, req any) (any, error) {
		return &rpc.LookupResponse{Endpoints: []rpc.Endpoint{{ServerName: "X"}}}, nil
	})

	require.NoError(t, err)
	lookupResp, ok := resp.(*rpc.LookupResponse)
	require.True(t, ok)
	require.Len(t, lookupResp.Endpoints, 1)
}

func TestUnaryInterceptor_CapabilityDenied(t *testing.T) {
	p, key := setupPipeline(t, "RegistryServer")
	tok := signToken(t, key, "kid-1", "RegistryServer", []string{"registry:register"}) // wrong cap

	req := &rpc.LookupRequest{RequesterToken: tok}
	_, err := callUnary(t, p, "/capfabric.Registry/Lookup", req, func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler must not run when authorization fails")
		return nil, nil
	})

	require.Error(t, err)
	require.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestUnaryInterceptor_CachesRequestContext(t *testing.T) {
	p, key := setupPipeline(t, "ContextToolServer")
	tok := signToken(t, key, "kid-1", "ContextToolServer", []string{"db:inventory:read"})

	calls := 0
	handler := func(ctx context.Context, req any) (any, error) {
		calls++
		return &rpc.RequestContextResponse{SerializedValue: []byte("42")}, nil
	}

	req := &rpc.RequestContextRequest{ContextKey: "inventory:sku-1", CapabilityToken: tok}

	resp1, err := callUnary(t, p, "/capfabric.ContextTool/RequestContext", req, handler)
	require.NoError(t, err)
	resp2, err := callUnary(t, p, "/capfabric.ContextTool/RequestContext", req, handler)
	require.NoError(t, err)

	require.Equal(t, 1, calls, "second call should be served from cache")
	require.Equal(t, resp1.(*rpc.RequestContextResponse).SerializedValue, resp2.(*rpc.RequestContextResponse).SerializedValue)
}

func TestUnaryInterceptor_WildcardTopicCapability(t *testing.T) {
	p, key := setupPipeline(t, "EventBusServer")
	tok := signToken(t, key, "kid-1", "EventBusServer", []string{"event:publish:inventory:*"})

	req := &rpc.PublishRequest{Topic: "inventory:prod_1:low_stock", PublisherToken: tok}
	_, err := callUnary(t, p, "/capfabric.EventBus/Publish", req, func(ctx context.Context, req any) (any, error) {
		return &rpc.PublishResponse{Success: true}, nil
	})

	require.NoError(t, err)
}

func TestUnaryInterceptor_BreakerOpensAfterFailures(t *testing.T) {
	p, key := setupPipeline(t, "RegistryServer")
	p.Breaker = breaker.New(breaker.Config{Threshold: 2, RecoveryTime: time.Hour})
	tok := signToken(t, key, "kid-1", "RegistryServer", []string{"registry:lookup"})
	req := &rpc.LookupRequest{RequesterToken: tok}

	failingHandler := func(ctx context.Context, req any) (any, error) {
		return nil, Fail(KindInternal, "backend down", nil)
	}

	for i := 0; i < 2; i++ {
		_, err := callUnary(t, p, "/capfabric.Registry/Lookup", req, failingHandler)
		require.Error(t, err)
	}

	called := false
	_, err := callUnary(t, p, "/capfabric.Registry/Lookup", req, func(ctx context.Context, req any) (any, error) {
		called = true
		return nil, nil
	})
	require.Error(t, err)
	require.Equal(t, codes.Unavailable, status.Code(err))
	require.False(t, called, "handler must not run once breaker is open")
}
