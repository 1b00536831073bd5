// Package token implements the capability token verifier: signature and
// claim validation for RS256 JWTs carrying a capability grant.
package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the typed shape of a capability token's payload. Registered
// claims (iss, sub, aud, iat, exp) follow jwt.RegisteredClaims; the
// capability-fabric-specific fields are typed explicitly. Claims beyond
// those are not kept: Extra is excluded from JSON decoding, so it stays nil
// on every parsed token.
type Claims struct {
	jwt.RegisteredClaims

	// Capabilities is the ordered list of granted capability strings, each
	// either an exact capability or a wildcard ending in "*".
	Capabilities []string `json:"capabilities,omitempty"`

	// Delegatee, when present, names the service this token was minted to
	// be presented to as a delegation proof.
	Delegatee string `json:"delegatee,omitempty"`

	// Extra is a slot for additional custom fields that the core verifier
	// does not consult. It is tagged json:"-", so parsing a token never
	// fills it.
	Extra map[string]any `json:"-"`
}

// IsDelegation reports whether this token carries a delegatee, i.e. it is
// a delegation proof rather than a primary capability token.
func (c *Claims) IsDelegation() bool {
	return c.Delegatee != ""
}

// Failure reasons surfaced by Verify, matching the sub-reasons named in
// the admission pipeline's Authenticate stage.
var (
	ErrMissingKid     = errors.New("token: missing kid in header")
	ErrUnknownKid     = errors.New("token: no key found for kid")
	ErrBadSignature   = errors.New("token: signature verification failed")
	ErrExpired        = errors.New("token: expired")
	ErrBadIssuedAt    = errors.New("token: issued-at too far in the future")
	ErrBadIssuer      = errors.New("token: issuer mismatch")
	ErrBadAudience    = errors.New("token: audience mismatch")
	ErrUnsupportedAlg = errors.New("token: unsupported signing algorithm")
)

// InvalidTokenError wraps one of the sentinel reasons above with the
// underlying parse error, if any, for logging.
type InvalidTokenError struct {
	Reason error
	Cause  error
}

func (e *InvalidTokenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %v", e.Reason, e.Cause)
	}
	return e.Reason.Error()
}

func (e *InvalidTokenError) Unwrap() error {
	return e.Reason
}
