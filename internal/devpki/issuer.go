package devpki

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marmos91/capfabric/pkg/token"
)

// Issuer is a minimal RS256 token issuer and JWKS publisher: the in-process
// stand-in for the OIDC identity provider auth.py's OIDC_ISSUER points at
// and create_capability_token mints against, neither of which the original
// system ships.
type Issuer struct {
	key *rsa.PrivateKey
	kid string
	iss string
}

// NewIssuer generates a fresh RSA keypair for issuer identity iss.
func NewIssuer(iss string) (*Issuer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("devpki: generate issuer key: %w", err)
	}
	return &Issuer{key: key, kid: "demo-key-1", iss: iss}, nil
}

// Serve starts an HTTP server on addr publishing the issuer's public key
// at /.well-known/jwks.json, the endpoint pkg/keyset.Cache fetches from.
// It returns once the listener is bound; shutdown stops the server.
func (i *Issuer) Serve(addr string) (url string, shutdown func(context.Context) error, err error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("devpki: listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", i.serveJWKS)
	srv := &http.Server{Handler: mux}

	go func() {
		_ = srv.Serve(lis)
	}()

	return "http://" + lis.Addr().String(), srv.Shutdown, nil
}

func (i *Issuer) serveJWKS(w http.ResponseWriter, r *http.Request) {
	pub := i.key.PublicKey
	jwk := map[string]string{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": i.kid,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(bigEndianBytes(pub.E)),
	}
	body, _ := json.Marshal(map[string]any{"keys": []map[string]string{jwk}})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func bigEndianBytes(e int) []byte {
	b := []byte{byte(e >> 16), byte(e >> 8), byte(e)}
	i := 0
	for i < len(b)-1 && b[i] == 0 {
		i++
	}
	return b[i:]
}

// MintOptions describes a single capability token to mint.
type MintOptions struct {
	Subject      string
	Audience     string
	Capabilities []string
	Delegatee    string
	TTL          time.Duration
}

// Mint signs a capability token under the issuer's key, matching the shape
// pkg/token.Verifier.Verify expects.
func (i *Issuer) Mint(opts MintOptions) (string, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()

	claims := &token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.iss,
			Subject:   opts.Subject,
			Audience:  jwt.ClaimStrings{opts.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Capabilities: opts.Capabilities,
		Delegatee:    opts.Delegatee,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = i.kid
	return tok.SignedString(i.key)
}
