package admission

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/marmos91/capfabric/internal/logger"
	"github.com/marmos91/capfabric/pkg/token"
)

// wrappedStream performs admission on first use: if the method's token
// carrier is metadata, admission already ran before handler was invoked
// at all (the interceptor has the stream's headers up front); if the
// carrier is payload, admission is deferred to the first RecvMsg call,
// since the token travels in the client's first stream message. Once
// admitted, Context() serves a context carrying the caller's claims so
// handlers can reach them via ClaimsFromContext.
type wrappedStream struct {
	grpc.ServerStream
	pipeline   *Pipeline
	descriptor *descriptor
	fullMethod string

	admittedOnce bool
	admissionErr error
	ctx          context.Context
}

func (w *wrappedStream) Context() context.Context {
	if w.ctx != nil {
		return w.ctx
	}
	return w.ServerStream.Context()
}

func (w *wrappedStream) RecvMsg(m any) error {
	if err := w.ServerStream.RecvMsg(m); err != nil {
		return err
	}
	if w.admittedOnce || w.descriptor.carrier != carrierPayload {
		return nil
	}
	w.admittedOnce = true
	claims, err := w.pipeline.admitStream(w.ServerStream.Context(), w.descriptor, m, nil, w.fullMethod)
	if err != nil {
		w.admissionErr = err
		return Status(err)
	}
	w.ctx = withClaims(w.ServerStream.Context(), claims)
	return nil
}

// admitStream runs Extract/Authenticate/Authorize/Guard for a streaming
// RPC, returning the caller's verified claims on success. Dispatch has no
// cache step for streams; the handler itself drives the stream to
// completion once admitted.
func (p *Pipeline) admitStream(ctx context.Context, d *descriptor, req any, md metadata.MD, fullMethod string) (*token.Claims, error) {
	tok, err := p.extract(d, req, md)
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.RecordDenial(fullMethod, "missing_token")
		}
		return nil, err
	}

	claims, err := p.authenticate(ctx, tok)
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.RecordDenial(fullMethod, "unauthenticated")
		}
		return nil, err
	}

	exactCap, wildcardCap := d.capability(req)
	if err := p.authorize(ctx, claims, exactCap, wildcardCap, delegationProofFrom(req)); err != nil {
		if p.Metrics != nil {
			p.Metrics.RecordDenial(fullMethod, "permission_denied")
		}
		return nil, err
	}

	if err := p.guard(); err != nil {
		if p.Metrics != nil {
			p.Metrics.RecordDenial(fullMethod, "circuit_open")
		}
		return nil, err
	}
	return claims, nil
}

// StreamInterceptor returns the grpc.StreamServerInterceptor implementing
// admission for streaming RPCs registered against this pipeline's service.
func (p *Pipeline) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		d := lookupDescriptor(info.FullMethod)
		if d == nil {
			return handler(srv, ss)
		}

		lc := logger.NewLogContext("").WithMethod(p.SelfName, info.FullMethod)
		start := time.Now()

		ws := &wrappedStream{ServerStream: ss, pipeline: p, descriptor: d, fullMethod: info.FullMethod}

		if d.carrier == carrierMetadata {
			md, _ := metadata.FromIncomingContext(ss.Context())
			claims, err := p.admitStream(ss.Context(), d, nil, md, info.FullMethod)
			if err != nil {
				p.logStreamOutcome(lc, start, err)
				return Status(err)
			}
			ws.ctx = withClaims(ss.Context(), claims)
			ws.admittedOnce = true
		}

		err := handler(srv, ws)

		// A payload-carrier stream's admission denial surfaces as the
		// handler's own return error (it happened inside RecvMsg), not as
		// a post-admission failure: never count it against the breaker,
		// the same way the metadata-carrier branch above never reaches
		// recordOutcome on denial.
		if ws.admissionErr == nil {
			p.recordOutcome(normalizeStreamErr(err))
		}
		p.logStreamOutcome(lc, start, err)
		return err
	}
}

func (p *Pipeline) logStreamOutcome(lc *logger.LogContext, start time.Time, err error) {
	status := "ok"
	detail := ""
	if err != nil {
		status = "error"
		detail = err.Error()
	}
	logger.Info("stream admission", "service", lc.Service, "method", lc.Method,
		"status", status, "detail", detail, "duration_ms", time.Since(start).Milliseconds())
}

// normalizeStreamErr treats an already-open breaker rejection as not
// worth recording again against the breaker; any other post-admission
// error from the handler (backend/broker failure) still counts.
func normalizeStreamErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindUnavailable {
		return nil
	}
	return err
}
