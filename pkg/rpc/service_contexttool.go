package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ContextToolServer is the service interface a Context/Tool fronting
// implements: two unary methods, one server-streaming, one bidi-streaming.
type ContextToolServer interface {
	RequestContext(ctx context.Context, req *RequestContextRequest) (*RequestContextResponse, error)
	SubscribeTelemetry(req *SubscribeTelemetryRequest, stream ContextTool_SubscribeTelemetryServer) error
	InvokeTool(ctx context.Context, req *InvokeToolRequest) (*InvokeToolResponse, error)
	MultiModalExchange(stream ContextTool_MultiModalExchangeServer) error
}

// ContextTool_SubscribeTelemetryServer is the server-side handle for a
// SubscribeTelemetry stream.
type ContextTool_SubscribeTelemetryServer interface {
	Send(*TelemetryFrame) error
	grpc.ServerStream
}

type contextToolSubscribeTelemetryServer struct {
	grpc.ServerStream
}

func (s *contextToolSubscribeTelemetryServer) Send(m *TelemetryFrame) error {
	return s.ServerStream.SendMsg(m)
}

// ContextTool_MultiModalExchangeServer is the server-side handle for the
// bidirectional MultiModalExchange stream.
type ContextTool_MultiModalExchangeServer interface {
	Send(*MultiModalFrame) error
	Recv() (*MultiModalFrame, error)
	grpc.ServerStream
}

type contextToolMultiModalExchangeServer struct {
	grpc.ServerStream
}

func (s *contextToolMultiModalExchangeServer) Send(m *MultiModalFrame) error {
	return s.ServerStream.SendMsg(m)
}

func (s *contextToolMultiModalExchangeServer) Recv() (*MultiModalFrame, error) {
	m := new(MultiModalFrame)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func contextToolRequestContextHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(RequestContextRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContextToolServer).RequestContext(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/capfabric.ContextTool/RequestContext"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ContextToolServer).RequestContext(ctx, req.(*RequestContextRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func contextToolInvokeToolHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(InvokeToolRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ContextToolServer).InvokeTool(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/capfabric.ContextTool/InvokeTool"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ContextToolServer).InvokeTool(ctx, req.(*InvokeToolRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func contextToolSubscribeTelemetryHandler(srv any, stream grpc.ServerStream) error {
	req := new(SubscribeTelemetryRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(ContextToolServer).SubscribeTelemetry(req, &contextToolSubscribeTelemetryServer{ServerStream: stream})
}

func contextToolMultiModalExchangeHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ContextToolServer).MultiModalExchange(&contextToolMultiModalExchangeServer{ServerStream: stream})
}

// ContextToolServiceDesc mirrors the shape protoc-gen-go-grpc would emit
// for a Context/Tool service mixing unary, server-streaming, and
// bidi-streaming methods.
var ContextToolServiceDesc = grpc.ServiceDesc{
	ServiceName: "capfabric.ContextTool",
	HandlerType: (*ContextToolServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RequestContext", Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			return contextToolRequestContextHandler(srv, ctx, dec, interceptor)
		}},
		{MethodName: "InvokeTool", Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			return contextToolInvokeToolHandler(srv, ctx, dec, interceptor)
		}},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubscribeTelemetry",
			Handler:       contextToolSubscribeTelemetryHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "MultiModalExchange",
			Handler:       contextToolMultiModalExchangeHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "capfabric/contexttool.proto",
}

func RegisterContextToolServer(s grpc.ServiceRegistrar, srv ContextToolServer) {
	s.RegisterService(&ContextToolServiceDesc, srv)
}

type ContextToolClient struct {
	cc *grpc.ClientConn
}

func NewContextToolClient(cc *grpc.ClientConn) *ContextToolClient {
	return &ContextToolClient{cc: cc}
}

func (c *ContextToolClient) RequestContext(ctx context.Context, req *RequestContextRequest, opts ...grpc.CallOption) (*RequestContextResponse, error) {
	out := new(RequestContextResponse)
	if err := c.cc.Invoke(ctx, "/capfabric.ContextTool/RequestContext", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ContextToolClient) InvokeTool(ctx context.Context, req *InvokeToolRequest, opts ...grpc.CallOption) (*InvokeToolResponse, error) {
	out := new(InvokeToolResponse)
	if err := c.cc.Invoke(ctx, "/capfabric.ContextTool/InvokeTool", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ContextTool_SubscribeTelemetryClient is the client-side handle for a
// SubscribeTelemetry stream.
type ContextTool_SubscribeTelemetryClient interface {
	Recv() (*TelemetryFrame, error)
	grpc.ClientStream
}

type contextToolSubscribeTelemetryClient struct {
	grpc.ClientStream
}

func (c *contextToolSubscribeTelemetryClient) Recv() (*TelemetryFrame, error) {
	m := new(TelemetryFrame)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *ContextToolClient) SubscribeTelemetry(ctx context.Context, req *SubscribeTelemetryRequest, opts ...grpc.CallOption) (ContextTool_SubscribeTelemetryClient, error) {
	stream, err := c.cc.NewStream(ctx, &ContextToolServiceDesc.Streams[0], "/capfabric.ContextTool/SubscribeTelemetry", opts...)
	if err != nil {
		return nil, err
	}
	x := &contextToolSubscribeTelemetryClient{stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// ContextTool_MultiModalExchangeClient is the client-side handle for the
// bidirectional MultiModalExchange stream.
type ContextTool_MultiModalExchangeClient interface {
	Send(*MultiModalFrame) error
	Recv() (*MultiModalFrame, error)
	grpc.ClientStream
}

type contextToolMultiModalExchangeClient struct {
	grpc.ClientStream
}

func (c *contextToolMultiModalExchangeClient) Send(m *MultiModalFrame) error {
	return c.ClientStream.SendMsg(m)
}

func (c *contextToolMultiModalExchangeClient) Recv() (*MultiModalFrame, error) {
	m := new(MultiModalFrame)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *ContextToolClient) MultiModalExchange(ctx context.Context, opts ...grpc.CallOption) (ContextTool_MultiModalExchangeClient, error) {
	stream, err := c.cc.NewStream(ctx, &ContextToolServiceDesc.Streams[1], "/capfabric.ContextTool/MultiModalExchange", opts...)
	if err != nil {
		return nil, err
	}
	return &contextToolMultiModalExchangeClient{stream}, nil
}
