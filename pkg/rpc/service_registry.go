package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// RegistryServer is the service interface a Discovery Registry fronting
// implements. Both methods are unary.
type RegistryServer interface {
	Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error)
	Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error)
}

func registryRegisterHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(RegisterRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Register(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/capfabric.Registry/Register"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).Register(ctx, req.(*RegisterRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func registryLookupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	req := new(LookupRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServer).Lookup(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/capfabric.Registry/Lookup"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RegistryServer).Lookup(ctx, req.(*LookupRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// RegistryServiceDesc mirrors the shape protoc-gen-go-grpc would emit for
// a Registry service with Register and Lookup unary methods.
var RegistryServiceDesc = grpc.ServiceDesc{
	ServiceName: "capfabric.Registry",
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			return registryRegisterHandler(srv, ctx, dec, interceptor)
		}},
		{MethodName: "Lookup", Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			return registryLookupHandler(srv, ctx, dec, interceptor)
		}},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "capfabric/registry.proto",
}

// RegisterRegistryServer registers srv against s, installing our codec-backed
// ServiceDesc.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&RegistryServiceDesc, srv)
}

// RegistryClient is a thin hand-written client, standing in for what
// protoc-gen-go-grpc would generate.
type RegistryClient struct {
	cc *grpc.ClientConn
}

func NewRegistryClient(cc *grpc.ClientConn) *RegistryClient {
	return &RegistryClient{cc: cc}
}

func (c *RegistryClient) Register(ctx context.Context, req *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	out := new(RegisterResponse)
	if err := c.cc.Invoke(ctx, "/capfabric.Registry/Register", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RegistryClient) Lookup(ctx context.Context, req *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	out := new(LookupResponse)
	if err := c.cc.Invoke(ctx, "/capfabric.Registry/Lookup", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
