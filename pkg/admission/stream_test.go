package admission

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/marmos91/capfabric/pkg/breaker"
	"github.com/marmos91/capfabric/pkg/rpc"
)

// fakeServerStream is a minimal grpc.ServerStream good enough to drive
// RecvMsg/Context for these tests.
type fakeServerStream struct {
	ctx  context.Context
	msgs []any
	idx  int
}

func (f *fakeServerStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeServerStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeServerStream) SetTrailer(metadata.MD)       {}
func (f *fakeServerStream) Context() context.Context     { return f.ctx }
func (f *fakeServerStream) SendMsg(m any) error           { return nil }
func (f *fakeServerStream) RecvMsg(m any) error {
	if f.idx >= len(f.msgs) {
		return io.EOF
	}
	src := f.msgs[f.idx]
	f.idx++
	switch dst := m.(type) {
	case *rpc.SubscribeRequest:
		*dst = *src.(*rpc.SubscribeRequest)
	default:
	}
	return nil
}

func TestStreamInterceptor_PayloadCarrierDeniesBeforeHandlerReadsFurther(t *testing.T) {
	p, key := setupPipeline(t, "EventBusServer")
	tok := signToken(t, key, "kid-1", "EventBusServer", []string{"event:subscribe:wrong-topic"})

	req := &rpc.SubscribeRequest{TopicFilter: "inventory:*", SubscriberToken: tok}
	fs := &fakeServerStream{ctx: context.Background(), msgs: []any{req}}

	interceptor := p.StreamInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/capfabric.EventBus/Subscribe"}

	err := interceptor(nil, fs, info, func(srv any, stream grpc.ServerStream) error {
		var got rpc.SubscribeRequest
		recvErr := stream.RecvMsg(&got)
		require.Error(t, recvErr, "first RecvMsg should surface the admission denial")
		return recvErr
	})

	require.Error(t, err)
	require.Equal(t, codes.PermissionDenied, status.Code(err))
}

func TestStreamInterceptor_PayloadCarrierAdmitsAndExposesClaims(t *testing.T) {
	p, key := setupPipeline(t, "EventBusServer")
	tok := signToken(t, key, "kid-1", "EventBusServer", []string{"event:subscribe:inventory:*"})

	req := &rpc.SubscribeRequest{TopicFilter: "inventory:*", SubscriberToken: tok}
	fs := &fakeServerStream{ctx: context.Background(), msgs: []any{req}}

	interceptor := p.StreamInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/capfabric.EventBus/Subscribe"}

	var sawClaims bool
	err := interceptor(nil, fs, info, func(srv any, stream grpc.ServerStream) error {
		var got rpc.SubscribeRequest
		if err := stream.RecvMsg(&got); err != nil {
			return err
		}
		sawClaims = ClaimsFromContext(stream.Context()) != nil
		return nil
	})

	require.NoError(t, err)
	require.True(t, sawClaims, "handler should see verified claims in context after admission")
}

func TestStreamInterceptor_PayloadCarrierDenialsDoNotTripBreaker(t *testing.T) {
	p, key := setupPipeline(t, "EventBusServer")
	p.Breaker = breaker.New(breaker.Config{Threshold: 2, RecoveryTime: time.Hour})
	tok := signToken(t, key, "kid-1", "EventBusServer", []string{"event:subscribe:wrong-topic"})

	subscribe := func() error {
		req := &rpc.SubscribeRequest{TopicFilter: "inventory:*", SubscriberToken: tok}
		fs := &fakeServerStream{ctx: context.Background(), msgs: []any{req}}
		interceptor := p.StreamInterceptor()
		info := &grpc.StreamServerInfo{FullMethod: "/capfabric.EventBus/Subscribe"}
		return interceptor(nil, fs, info, func(srv any, stream grpc.ServerStream) error {
			var got rpc.SubscribeRequest
			return stream.RecvMsg(&got)
		})
	}

	// Many more denials than the breaker's failure threshold: none of them
	// is a post-admission failure, so the breaker must stay closed.
	for i := 0; i < 5; i++ {
		err := subscribe()
		require.Error(t, err)
		require.Equal(t, codes.PermissionDenied, status.Code(err))
	}

	require.True(t, p.Breaker.Allow(), "admission denials must never trip the breaker")
}
