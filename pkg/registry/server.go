package registry

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/marmos91/capfabric/internal/logger"
	"github.com/marmos91/capfabric/pkg/admission"
	"github.com/marmos91/capfabric/pkg/capability"
	"github.com/marmos91/capfabric/pkg/rpc"
)

// Server is the Discovery Registry's gRPC fronting. By the time a call
// reaches it, the admission pipeline has already authenticated the caller
// and authorized the operation's required capability — this handler is
// thin glue to the backing store, as spec describes.
type Server struct {
	rpc.RegistryServer
	store *Store
}

// NewServer builds a registry Server over store.
func NewServer(store *Store) *Server {
	return &Server{store: store}
}

// Register writes the caller's endpoint into the store. grpc-url travels
// in call metadata alongside the registration token.
func (s *Server) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	grpcURL := firstMetadataValue(md, rpc.MetadataGRPCURL)
	if grpcURL == "" {
		return nil, admission.Fail(admission.KindInvalidArgument, "missing 'grpc-url'", nil)
	}

	if err := s.store.Register(ctx, req.ServerName, grpcURL, req.Capabilities); err != nil {
		logger.ErrorCtx(ctx, "registry: register failed", "server_name", req.ServerName, "error", err)
		return nil, admission.Fail(admission.KindInternal, "registration failed", err)
	}

	return &rpc.RegisterResponse{Success: true, Message: "Registered successfully"}, nil
}

// Lookup scans the store for endpoints matching any of the caller's
// capability filters, then drops any endpoint whose server_name the
// caller's own audience claim does not name.
func (s *Server) Lookup(ctx context.Context, req *rpc.LookupRequest) (*rpc.LookupResponse, error) {
	matches, err := s.store.Lookup(ctx, req.CapabilityFilter)
	if err != nil {
		logger.ErrorCtx(ctx, "registry: lookup failed", "error", err)
		return nil, admission.Fail(admission.KindInternal, "lookup failed", err)
	}

	claims := admission.ClaimsFromContext(ctx)
	endpoints := make([]rpc.Endpoint, 0, len(matches))
	for _, ep := range matches {
		if claims != nil {
			entry, ok := capability.MatchAudienceEntry(claims.Audience, ep.ServerName)
			if !ok {
				continue
			}
			if capability.IsWildcard(entry) {
				logger.WarnCtx(ctx, "registry: bare wildcard audience matched endpoint", "subject", claims.Subject, "server_name", ep.ServerName)
			}
		}
		endpoints = append(endpoints, ep)
	}

	return &rpc.LookupResponse{Endpoints: endpoints}, nil
}

func firstMetadataValue(md metadata.MD, key string) string {
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
