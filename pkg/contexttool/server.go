package contexttool

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/marmos91/capfabric/internal/logger"
	"github.com/marmos91/capfabric/pkg/admission"
	"github.com/marmos91/capfabric/pkg/rpc"
)

// Server is the Context/Tool service's gRPC fronting. Admission (auth,
// breaker, cache) has already run by the time a call reaches here; this
// handler talks to the context store, the telemetry bridge, and the
// tool registry.
type Server struct {
	rpc.ContextToolServer
	store     *Store
	telemetry *TelemetryBridge
}

// NewServer builds a Context/Tool Server over store and telemetry.
func NewServer(store *Store, telemetry *TelemetryBridge) *Server {
	return &Server{store: store, telemetry: telemetry}
}

// RequestContext reads a row by context_key. A missing row returns an
// empty response, not an error.
func (s *Server) RequestContext(ctx context.Context, req *rpc.RequestContextRequest) (*rpc.RequestContextResponse, error) {
	entry, ok, err := s.store.Get(ctx, req.ContextKey)
	if err != nil {
		logger.ErrorCtx(ctx, "contexttool: request context failed", "context_key", req.ContextKey, "error", err)
		return nil, admission.Fail(admission.KindInternal, "context lookup failed", err)
	}
	if !ok {
		return &rpc.RequestContextResponse{SerializedValue: []byte{}, Metadata: map[string]string{}}, nil
	}

	meta := map[string]string{}
	if entry.MetadataJSON != "" {
		if err := json.Unmarshal([]byte(entry.MetadataJSON), &meta); err != nil {
			logger.WarnCtx(ctx, "contexttool: malformed metadata_json, ignoring", "context_key", req.ContextKey)
			meta = map[string]string{}
		}
	}

	return &rpc.RequestContextResponse{SerializedValue: entry.SerializedValue, Metadata: meta}, nil
}

// InvokeTool dispatches to the tool registry. Unrecognized tool names
// are returned as a warning with Success still true.
func (s *Server) InvokeTool(ctx context.Context, req *rpc.InvokeToolRequest) (*rpc.InvokeToolResponse, error) {
	outputs, warnings := invokeTool(req.ToolName, req.Arguments)

	claims := admission.ClaimsFromContext(ctx)
	subject := ""
	if claims != nil {
		subject = claims.Subject
	}
	logger.InfoCtx(ctx, "contexttool: tool invoked", "tool", req.ToolName, "subject", subject, "warnings", len(warnings))

	return &rpc.InvokeToolResponse{Success: true, Outputs: outputs, Warnings: warnings}, nil
}

// SubscribeTelemetry bridges a Redis channel to the gRPC stream until the
// caller disconnects.
func (s *Server) SubscribeTelemetry(req *rpc.SubscribeTelemetryRequest, stream rpc.ContextTool_SubscribeTelemetryServer) error {
	ctx := stream.Context()

	payloads, closeSub, err := s.telemetry.Subscribe(ctx, req.StreamID)
	if err != nil {
		logger.ErrorCtx(ctx, "contexttool: subscribe telemetry failed", "stream_id", req.StreamID, "error", err)
		return admission.Fail(admission.KindInternal, "subscribe failed", err)
	}
	defer closeSub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-payloads:
			if !ok {
				return nil
			}
			frame := &rpc.TelemetryFrame{TimestampMs: time.Now().UnixMilli(), Payload: payload}
			if err := stream.Send(frame); err != nil {
				return err
			}
		}
	}
}

// MultiModalExchange echoes each received frame back to the caller. The
// admission pipeline has already verified the first frame's call
// metadata before this handler runs.
func (s *Server) MultiModalExchange(stream rpc.ContextTool_MultiModalExchangeServer) error {
	for {
		frame, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := stream.Send(frame); err != nil {
			return err
		}
	}
}
