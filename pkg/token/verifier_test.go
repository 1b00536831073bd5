package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// fakeKeySet is a minimal KeySet that serves a single RSA public key under
// a fixed kid, with ForceRefresh counted so tests can assert it happens
// at most once per Verify call.
type fakeKeySet struct {
	key           *rsa.PrivateKey
	kid           string
	refreshCount  int
	refreshRotate bool // if true, ForceRefresh rotates in the correct key
	hasKey        bool
}

func newFakeKeySet(key *rsa.PrivateKey, kid string) *fakeKeySet {
	return &fakeKeySet{key: key, kid: kid, hasKey: true}
}

func (f *fakeKeySet) Keyfunc(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if !f.hasKey || kid != f.kid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return &f.key.PublicKey, nil
}

func (f *fakeKeySet) ForceRefresh(ctx context.Context) error {
	f.refreshCount++
	if f.refreshRotate {
		f.hasKey = true
	}
	return nil
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims *Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims(issuer, audience string) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "agent-1",
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Capabilities: []string{"registry:lookup"},
	}
}

func TestVerify_ValidToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := newFakeKeySet(key, "kid-1")
	v := NewVerifier(ks, Config{Issuer: "https://issuer.example.com"})

	tokenString := signToken(t, key, "kid-1", validClaims("https://issuer.example.com", "registry"))

	claims, err := v.Verify(context.Background(), tokenString, "registry")
	require.NoError(t, err)
	require.Equal(t, "agent-1", claims.Subject)
	require.Equal(t, 0, ks.refreshCount)
}

func TestVerify_MissingKid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := newFakeKeySet(key, "kid-1")
	v := NewVerifier(ks, Config{Issuer: "https://issuer.example.com"})

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("https://issuer.example.com", "registry"))
	signed, err := tok.SignedString(key) // no kid set
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), signed, "registry")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingKid))
}

func TestVerify_UnknownKidForcesRefreshOnce(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := newFakeKeySet(key, "kid-1")
	ks.hasKey = false // simulate rotated-out key, not yet known
	ks.refreshRotate = true
	v := NewVerifier(ks, Config{Issuer: "https://issuer.example.com"})

	tokenString := signToken(t, key, "kid-1", validClaims("https://issuer.example.com", "registry"))

	claims, err := v.Verify(context.Background(), tokenString, "registry")
	require.NoError(t, err)
	require.NotNil(t, claims)
	require.Equal(t, 1, ks.refreshCount)
}

func TestVerify_StillUnknownAfterRefreshFails(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := newFakeKeySet(key, "kid-1")
	ks.hasKey = false // never rotates in

	v := NewVerifier(ks, Config{Issuer: "https://issuer.example.com"})
	tokenString := signToken(t, key, "kid-1", validClaims("https://issuer.example.com", "registry"))

	_, err = v.Verify(context.Background(), tokenString, "registry")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownKid))
	require.Equal(t, 1, ks.refreshCount)
}

func TestVerify_ExpiredToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := newFakeKeySet(key, "kid-1")
	v := NewVerifier(ks, Config{Issuer: "https://issuer.example.com"})

	claims := validClaims("https://issuer.example.com", "registry")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	tokenString := signToken(t, key, "kid-1", claims)

	_, err = v.Verify(context.Background(), tokenString, "registry")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrExpired))
}

func TestVerify_BadIssuer(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := newFakeKeySet(key, "kid-1")
	v := NewVerifier(ks, Config{Issuer: "https://issuer.example.com"})

	tokenString := signToken(t, key, "kid-1", validClaims("https://someone-else.example.com", "registry"))

	_, err = v.Verify(context.Background(), tokenString, "registry")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBadIssuer))
}

func TestVerify_BadAudience(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := newFakeKeySet(key, "kid-1")
	v := NewVerifier(ks, Config{Issuer: "https://issuer.example.com"})

	tokenString := signToken(t, key, "kid-1", validClaims("https://issuer.example.com", "contexttool"))

	_, err = v.Verify(context.Background(), tokenString, "registry")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBadAudience))
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	ks := &fakeKeySet{}
	v := NewVerifier(ks, Config{Issuer: "https://issuer.example.com"})

	claims := validClaims("https://issuer.example.com", "registry")
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tok.Header["kid"] = "kid-1"
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), signed, "registry")
	require.Error(t, err)
}
