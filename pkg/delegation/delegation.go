// Package delegation implements the Delegation Verifier: it composes the
// Token Verifier and Capability Matcher to accept a delegation proof minted
// by a principal on behalf of a downstream service call.
package delegation

import (
	"context"
	"errors"

	"github.com/marmos91/capfabric/pkg/capability"
	"github.com/marmos91/capfabric/pkg/token"
)

// Errors surfaced by Verify, matching spec's named failure modes.
var (
	ErrMismatch             = errors.New("delegation: issuer or subject does not match parent token")
	ErrWrongDelegatee       = errors.New("delegation: delegatee does not name this service")
	ErrCapabilityEscalation = errors.New("delegation: delegated capabilities exceed parent token's capabilities")
)

// Verifier verifies delegation proofs presented alongside a parent
// capability token.
type Verifier struct {
	tv *token.Verifier
}

// NewVerifier builds a delegation Verifier over the given Token Verifier.
func NewVerifier(tv *token.Verifier) *Verifier {
	return &Verifier{tv: tv}
}

// Verify checks delegationToken against selfName (the service's own
// identity, used as the expected audience) and parentClaims (the
// already-verified principal token this delegation is meant to extend).
//
// Steps, per spec:
//  1. Token-verify the delegation proof with expected_audience = selfName.
//  2. Require delegation.iss == parent.iss and delegation.sub == parent.sub.
//  3. Require delegation.delegatee == selfName.
//  4. Require every delegated capability is covered by the parent's
//     capability list (exact or wildcard-prefix match, per the Capability
//     Matcher rule).
func (v *Verifier) Verify(ctx context.Context, delegationToken, selfName string, parentClaims *token.Claims) (*token.Claims, error) {
	delegationClaims, err := v.tv.Verify(ctx, delegationToken, selfName)
	if err != nil {
		return nil, err
	}

	if delegationClaims.Issuer != parentClaims.Issuer || delegationClaims.Subject != parentClaims.Subject {
		return nil, ErrMismatch
	}

	if delegationClaims.Delegatee != selfName {
		return nil, ErrWrongDelegatee
	}

	for _, delegatedCap := range delegationClaims.Capabilities {
		if !capability.MatchCapability(parentClaims.Capabilities, delegatedCap) {
			return nil, ErrCapabilityEscalation
		}
	}

	return delegationClaims, nil
}
