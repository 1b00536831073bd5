package eventbus

import (
	"context"

	"github.com/marmos91/capfabric/internal/logger"
	"github.com/marmos91/capfabric/pkg/admission"
	"github.com/marmos91/capfabric/pkg/rpc"
)

// Server is the Event Bus's gRPC fronting. Capability checks for both
// operations have already run in the admission pipeline by the time a
// call reaches here (Publish against "event:publish:<topic>" and its
// prefix-wildcard fallback, Subscribe likewise against
// "event:subscribe:<topic_filter>") — this handler only talks to the
// broker.
type Server struct {
	rpc.EventBusServer
	broker *Broker
}

// NewServer builds an Event Bus Server over broker.
func NewServer(broker *Broker) *Server {
	return &Server{broker: broker}
}

func (s *Server) Publish(ctx context.Context, req *rpc.PublishRequest) (*rpc.PublishResponse, error) {
	seq, err := s.broker.Publish(ctx, req.Topic, req.Payload)
	if err != nil {
		logger.ErrorCtx(ctx, "eventbus: publish failed", "topic", req.Topic, "error", err)
		return nil, admission.Fail(admission.KindInternal, "publish failed", err)
	}

	claims := admission.ClaimsFromContext(ctx)
	subject := ""
	if claims != nil {
		subject = claims.Subject
	}
	logger.InfoCtx(ctx, "eventbus: published", "topic", req.Topic, "sequence_id", seq, "subject", subject)

	return &rpc.PublishResponse{Success: true, Message: "Published"}, nil
}

func (s *Server) Subscribe(req *rpc.SubscribeRequest, stream rpc.EventBus_SubscribeServer) error {
	ctx := stream.Context()

	envelopes, closeSub, err := s.broker.Subscribe(ctx, req.TopicFilter)
	if err != nil {
		logger.ErrorCtx(ctx, "eventbus: subscribe failed", "topic_filter", req.TopicFilter, "error", err)
		return admission.Fail(admission.KindInternal, "subscribe failed", err)
	}
	defer closeSub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-envelopes:
			if !ok {
				return nil
			}
			if err := stream.Send(env); err != nil {
				return err
			}
		}
	}
}
