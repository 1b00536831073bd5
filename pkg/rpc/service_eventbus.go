package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// EventBusServer is the service interface an Event Bus fronting implements.
// Publish is unary; Subscribe is server-streaming.
type EventBusServer interface {
	Publish(ctx context.Context, req *PublishRequest) (*PublishResponse, error)
	Subscribe(req *SubscribeRequest, stream EventBus_SubscribeServer) error
}

// EventBus_SubscribeServer is the server-side handle for a Subscribe
// stream, mirroring protoc-gen-go-grpc's generated stream interfaces.
type EventBus_SubscribeServer interface {
	Send(*EventEnvelope) error
	grpc.ServerStream
}

type eventBusSubscribeServer struct {
	grpc.ServerStream
}

func (s *eventBusSubscribeServer) Send(m *EventEnvelope) error {
	return s.ServerStream.SendMsg(m)
}

func eventBusPublishHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(PublishRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EventBusServer).Publish(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/capfabric.EventBus/Publish"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EventBusServer).Publish(ctx, req.(*PublishRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func eventBusSubscribeHandler(srv any, stream grpc.ServerStream) error {
	req := new(SubscribeRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(EventBusServer).Subscribe(req, &eventBusSubscribeServer{ServerStream: stream})
}

// EventBusServiceDesc mirrors the shape protoc-gen-go-grpc would emit for
// an Event Bus service with one unary and one server-streaming method.
var EventBusServiceDesc = grpc.ServiceDesc{
	ServiceName: "capfabric.EventBus",
	HandlerType: (*EventBusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Publish", Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			return eventBusPublishHandler(srv, ctx, dec, interceptor)
		}},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       eventBusSubscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "capfabric/eventbus.proto",
}

func RegisterEventBusServer(s grpc.ServiceRegistrar, srv EventBusServer) {
	s.RegisterService(&EventBusServiceDesc, srv)
}

type EventBusClient struct {
	cc *grpc.ClientConn
}

func NewEventBusClient(cc *grpc.ClientConn) *EventBusClient {
	return &EventBusClient{cc: cc}
}

func (c *EventBusClient) Publish(ctx context.Context, req *PublishRequest, opts ...grpc.CallOption) (*PublishResponse, error) {
	out := new(PublishResponse)
	if err := c.cc.Invoke(ctx, "/capfabric.EventBus/Publish", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// EventBus_SubscribeClient is the client-side handle for a Subscribe stream.
type EventBus_SubscribeClient interface {
	Recv() (*EventEnvelope, error)
	grpc.ClientStream
}

type eventBusSubscribeClient struct {
	grpc.ClientStream
}

func (c *eventBusSubscribeClient) Recv() (*EventEnvelope, error) {
	m := new(EventEnvelope)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *EventBusClient) Subscribe(ctx context.Context, req *SubscribeRequest, opts ...grpc.CallOption) (EventBus_SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &EventBusServiceDesc.Streams[0], "/capfabric.EventBus/Subscribe", opts...)
	if err != nil {
		return nil, err
	}
	x := &eventBusSubscribeClient{stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
