package delegation

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/capfabric/pkg/token"
)

type fakeKeySet struct {
	key *rsa.PrivateKey
	kid string
}

func (f *fakeKeySet) Keyfunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid != f.kid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return &f.key.PublicKey, nil
}

func (f *fakeKeySet) ForceRefresh(ctx context.Context) error { return nil }

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims *token.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func baseClaims(issuer, subject, audience string, caps []string) *token.Claims {
	now := time.Now()
	return &token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Capabilities: caps,
	}
}

func setup(t *testing.T) (*Verifier, *rsa.PrivateKey, *token.Claims) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := &fakeKeySet{key: key, kid: "kid-1"}
	tv := token.NewVerifier(ks, token.Config{Issuer: "https://issuer.example.com"})
	v := NewVerifier(tv)

	parentClaims := baseClaims("https://issuer.example.com", "agent-1", "registry",
		[]string{"db:inventory:*", "registry:lookup"})

	return v, key, parentClaims
}

func TestVerify_ValidDelegation(t *testing.T) {
	v, key, parent := setup(t)

	delClaims := baseClaims("https://issuer.example.com", "agent-1", "contexttool",
		[]string{"db:inventory:read"})
	delClaims.Delegatee = "contexttool"
	delToken := sign(t, key, "kid-1", delClaims)

	claims, err := v.Verify(context.Background(), delToken, "contexttool", parent)
	require.NoError(t, err)
	require.Equal(t, "agent-1", claims.Subject)
}

func TestVerify_SubjectMismatch(t *testing.T) {
	v, key, parent := setup(t)

	delClaims := baseClaims("https://issuer.example.com", "someone-else", "contexttool",
		[]string{"db:inventory:read"})
	delClaims.Delegatee = "contexttool"
	delToken := sign(t, key, "kid-1", delClaims)

	_, err := v.Verify(context.Background(), delToken, "contexttool", parent)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMismatch))
}

func TestVerify_WrongDelegatee(t *testing.T) {
	v, key, parent := setup(t)

	delClaims := baseClaims("https://issuer.example.com", "agent-1", "contexttool",
		[]string{"db:inventory:read"})
	delClaims.Delegatee = "eventbus" // doesn't match selfName below
	delToken := sign(t, key, "kid-1", delClaims)

	_, err := v.Verify(context.Background(), delToken, "contexttool", parent)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrWrongDelegatee))
}

func TestVerify_CapabilityEscalation(t *testing.T) {
	v, key, parent := setup(t)

	delClaims := baseClaims("https://issuer.example.com", "agent-1", "contexttool",
		[]string{"db:orders:read"}) // not covered by parent's db:inventory:*
	delClaims.Delegatee = "contexttool"
	delToken := sign(t, key, "kid-1", delClaims)

	_, err := v.Verify(context.Background(), delToken, "contexttool", parent)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCapabilityEscalation))
}
