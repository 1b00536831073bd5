package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/marmos91/capfabric/pkg/rpc"
)

func TestServer_PublishReturnsSuccess(t *testing.T) {
	srv := NewServer(newTestBroker(t))

	resp, err := srv.Publish(context.Background(), &rpc.PublishRequest{Topic: "inventory:update", Payload: []byte("hi")})
	require.NoError(t, err)
	require.True(t, resp.Success)
}

// fakeSubscribeStream is a minimal rpc.EventBus_SubscribeServer for driving
// Subscribe without a real gRPC connection.
type fakeSubscribeStream struct {
	ctx      context.Context
	received chan *rpc.EventEnvelope
}

func (f *fakeSubscribeStream) Send(env *rpc.EventEnvelope) error {
	f.received <- env
	return nil
}
func (f *fakeSubscribeStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeSubscribeStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeSubscribeStream) SetTrailer(metadata.MD)       {}
func (f *fakeSubscribeStream) Context() context.Context     { return f.ctx }
func (f *fakeSubscribeStream) SendMsg(m any) error           { return nil }
func (f *fakeSubscribeStream) RecvMsg(m any) error           { return nil }

func TestServer_SubscribeStreamsPublishedEnvelopes(t *testing.T) {
	broker := newTestBroker(t)
	srv := NewServer(broker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fs := &fakeSubscribeStream{ctx: ctx, received: make(chan *rpc.EventEnvelope, 1)}
	done := make(chan error, 1)
	go func() {
		done <- srv.Subscribe(&rpc.SubscribeRequest{TopicFilter: "inventory:update"}, fs)
	}()

	time.Sleep(50 * time.Millisecond)
	_, err := broker.Publish(context.Background(), "inventory:update", []byte("alert"))
	require.NoError(t, err)

	select {
	case env := <-fs.received:
		require.Equal(t, "inventory:update", env.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for streamed envelope")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after context cancellation")
	}
}
