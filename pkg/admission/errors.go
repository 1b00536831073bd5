package admission

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind names the error categories an admission-pipeline stage can raise,
// each mapping to one RPC status category per spec.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindPermissionDenied
	KindCapabilityEscalation
	KindUnavailable
	KindInvalidArgument
	KindKeyFetchError
)

func (k Kind) code() codes.Code {
	switch k {
	case KindUnauthenticated:
		return codes.Unauthenticated
	case KindPermissionDenied, KindCapabilityEscalation:
		return codes.PermissionDenied
	case KindUnavailable:
		return codes.Unavailable
	case KindInvalidArgument:
		return codes.InvalidArgument
	case KindKeyFetchError:
		return codes.Internal
	default:
		return codes.Internal
	}
}

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindCapabilityEscalation:
		return "capability_escalation"
	case KindUnavailable:
		return "unavailable"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindKeyFetchError:
		return "key_fetch_error"
	default:
		return "internal"
	}
}

// Error pairs a Kind with a redacted message safe to send to the caller
// and an internal cause that is logged but never placed in status.Error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Cause }

// Fail builds an *Error. Cause may be nil.
func Fail(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Status converts err to a gRPC status error. Non-admission errors are
// reported as codes.Internal with a redacted message; the original error
// is never echoed to the caller.
func Status(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return status.Error(ae.Kind.code(), ae.Message)
	}
	return status.Error(codes.Internal, "internal error")
}
