package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeySet is the subset of pkg/keyset.Cache the verifier depends on,
// declared here so this package has no import-time dependency on the
// concrete JWKS client.
type KeySet interface {
	Keyfunc(token *jwt.Token) (any, error)
	ForceRefresh(ctx context.Context) error
}

// Verifier is the Token Verifier: it parses and validates RS256 capability
// tokens against a configured issuer, audience, and clock skew tolerance.
type Verifier struct {
	keys      KeySet
	issuer    string
	clockSkew time.Duration
}

// Config configures a Verifier.
type Config struct {
	Issuer    string
	ClockSkew time.Duration
}

// NewVerifier builds a Verifier bound to the given key set and issuer.
// ClockSkew of zero uses a 60s default.
func NewVerifier(keys KeySet, cfg Config) *Verifier {
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 60 * time.Second
	}
	return &Verifier{keys: keys, issuer: cfg.Issuer, clockSkew: skew}
}

// Verify parses tokenString, verifies its signature and registered claims,
// and checks that expectedAudience appears in the aud claim (exact match
// only — wildcard audience matching belongs to the Audience Matcher, used
// one layer up by the Registry's Lookup, not here).
//
// On an unknown kid the key set is force-refreshed exactly once and the
// parse retried before failing.
func (v *Verifier) Verify(ctx context.Context, tokenString, expectedAudience string) (*Claims, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		if errors.Is(err, ErrUnknownKid) {
			if refreshErr := v.keys.ForceRefresh(ctx); refreshErr == nil {
				claims, err = v.parse(tokenString)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if err := v.checkRegisteredClaims(claims, expectedAudience); err != nil {
		return nil, err
	}

	return claims, nil
}

func (v *Verifier) parse(tokenString string) (*Claims, error) {
	// Step 1: inspect the header before spending a key lookup, so a token
	// with no kid at all fails MissingKid rather than UnknownKid.
	unverified := jwt.NewParser()
	var headerClaims Claims
	headerToken, _, err := unverified.ParseUnverified(tokenString, &headerClaims)
	if err != nil {
		return nil, &InvalidTokenError{Reason: ErrUnsupportedAlg, Cause: err}
	}
	kid, _ := headerToken.Header["kid"].(string)
	if kid == "" {
		return nil, &InvalidTokenError{Reason: ErrMissingKid}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keys.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, &InvalidTokenError{Reason: ErrExpired, Cause: err}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, &InvalidTokenError{Reason: ErrBadSignature, Cause: err}
		case errors.Is(err, jwt.ErrTokenUnverifiable):
			// The keyfunc callback could not resolve a key for this kid —
			// treat as UnknownKid so the caller gets exactly one retry
			// after a forced key set refresh.
			return nil, &InvalidTokenError{Reason: ErrUnknownKid, Cause: err}
		default:
			return nil, &InvalidTokenError{Reason: ErrBadSignature, Cause: err}
		}
	}

	if !token.Valid {
		return nil, &InvalidTokenError{Reason: ErrBadSignature}
	}

	return claims, nil
}

func (v *Verifier) checkRegisteredClaims(claims *Claims, expectedAudience string) error {
	if claims.Issuer != v.issuer {
		return &InvalidTokenError{Reason: ErrBadIssuer}
	}

	now := time.Now()
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
		return &InvalidTokenError{Reason: ErrExpired}
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(now.Add(v.clockSkew)) {
		return &InvalidTokenError{Reason: ErrBadIssuedAt}
	}

	if !audienceContains(claims.Audience, expectedAudience) {
		return &InvalidTokenError{Reason: ErrBadAudience}
	}

	return nil
}

func audienceContains(aud jwt.ClaimStrings, target string) bool {
	for _, a := range aud {
		if a == target {
			return true
		}
	}
	return false
}

