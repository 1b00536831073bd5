// Package keyset implements the Key Set Cache: a coalesced, TTL-refreshed
// view of an issuer's JWKS endpoint used to verify capability tokens.
package keyset

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the default key set lifetime before a background refresh,
// per spec: re-fetch every hour.
const DefaultTTL = 3600 * time.Second

// DefaultFetchTimeout bounds a single JWKS fetch.
const DefaultFetchTimeout = 5 * time.Second

// ErrFetchFailed wraps a non-success JWKS fetch as a transient error.
var ErrFetchFailed = errors.New("keyset: failed to fetch key set from discovery endpoint")

// Cache is a Key Set Cache for a single issuer's JWKS endpoint. It wraps
// github.com/MicahParks/keyfunc/v3 for JWK parsing and jwt.Keyfunc
// adaptation, adding single-flight-coalesced, explicit force-refresh
// semantics on top so a verifier can retry exactly once on an unknown kid
// without duplicating in-flight network calls.
type Cache struct {
	jwksURL      string
	ttl          time.Duration
	fetchTimeout time.Duration

	mu      sync.RWMutex
	kf      keyfunc.Keyfunc
	lastErr error

	group singleflight.Group
}

// New builds a Cache for the given JWKS URL and performs the initial
// fetch. ttl of zero uses DefaultTTL.
func New(ctx context.Context, jwksURL string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		jwksURL:      jwksURL,
		ttl:          ttl,
		fetchTimeout: DefaultFetchTimeout,
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	go c.refreshLoop(ctx)

	return c, nil
}

// refreshLoop periodically refreshes the key set every TTL until ctx is
// canceled, giving the cache a background lifecycle independent of any
// unknown-kid-triggered force refresh.
func (c *Cache) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.refresh(ctx)
		}
	}
}

// refresh fetches a fresh key set and swaps it in atomically. Concurrent
// callers coalesce onto a single in-flight fetch via singleflight; losers
// observe the winner's result without holding any lock across the network
// call.
func (c *Cache) refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()

		kf, err := keyfunc.NewDefaultCtx(fetchCtx, []string{c.jwksURL})
		if err != nil {
			c.mu.Lock()
			c.lastErr = err
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}

		c.mu.Lock()
		c.kf = kf
		c.lastErr = nil
		c.mu.Unlock()

		return nil, nil
	})
	return err
}

// ForceRefresh performs a single coalesced refetch of the key set, used by
// the Token Verifier exactly once when a kid is not found in the current
// key set.
func (c *Cache) ForceRefresh(ctx context.Context) error {
	return c.refresh(ctx)
}

// Keyfunc returns a jwt.Keyfunc suitable for jwt.ParseWithClaims. It does
// not itself retry on unknown kid — callers needing the
// force-refresh-once-on-unknown-kid behavior call ForceRefresh and parse
// again, as pkg/token's Verifier does.
func (c *Cache) Keyfunc(token *jwt.Token) (any, error) {
	c.mu.RLock()
	kf := c.kf
	c.mu.RUnlock()

	if kf == nil {
		return nil, errors.New("keyset: no key set loaded")
	}
	return kf.Keyfunc(token)
}
