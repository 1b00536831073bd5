package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single admitted RPC.
type LogContext struct {
	TraceID           string    // OpenTelemetry trace ID
	SpanID            string    // OpenTelemetry span ID
	Service           string    // gRPC service name (Registry, ContextTool, EventBus)
	Method            string    // gRPC method name (Register, Lookup, RequestContext, ...)
	ClientIP          string    // Client IP address (without port)
	Principal         string    // Authenticated subject (JWT sub claim)
	Issuer            string    // Authenticated token issuer (JWT iss claim)
	CapabilityChecked string    // Capability string matched for this call
	StartTime         time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:           lc.TraceID,
		SpanID:            lc.SpanID,
		Service:           lc.Service,
		Method:            lc.Method,
		ClientIP:          lc.ClientIP,
		Principal:         lc.Principal,
		Issuer:            lc.Issuer,
		CapabilityChecked: lc.CapabilityChecked,
		StartTime:         lc.StartTime,
	}
}

// WithMethod returns a copy with the service/method set
func (lc *LogContext) WithMethod(service, method string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Service = service
		clone.Method = method
	}
	return clone
}

// WithPrincipal returns a copy with authentication info set
func (lc *LogContext) WithPrincipal(principal, issuer string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Principal = principal
		clone.Issuer = issuer
	}
	return clone
}

// WithCapability returns a copy with the checked capability set
func (lc *LogContext) WithCapability(capability string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.CapabilityChecked = capability
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
