package oidckit

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PaulFidika/projectkit/observability"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
)

// maxKeySetBytes caps the key set document read from the provider.
const maxKeySetBytes = 1 << 20

// KeySet is one fetched copy of the provider's signing keys. It is never
// modified after construction; a refresh replaces the whole value.
type KeySet struct {
	Keys      jwk.Set
	FetchedAt time.Time
}

// Lookup returns the RSA public key published under kid.
func (ks *KeySet) Lookup(kid string) (*rsa.PublicKey, bool) {
	if ks == nil || ks.Keys == nil || kid == "" {
		return nil, false
	}
	key, ok := ks.Keys.LookupKeyID(kid)
	if !ok {
		return nil, false
	}
	var raw interface{}
	if err := key.Raw(&raw); err != nil {
		return nil, false
	}
	pub, ok := raw.(*rsa.PublicKey)
	return pub, ok
}

// FetchFunc retrieves the provider's current key set.
type FetchFunc func(ctx context.Context) (jwk.Set, error)

// NewHTTPFetcher fetches and parses the JWKS document at url.
func NewHTTPFetcher(client *http.Client, url string) FetchFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) (jwk.Set, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("oidc: key set fetch failed: %s", resp.Status)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
		if err != nil {
			return nil, fmt.Errorf("oidc: read key set: %w", err)
		}
		set, err := jwk.Parse(body)
		if err != nil {
			return nil, fmt.Errorf("oidc: parse key set: %w", err)
		}
		if set.Len() == 0 {
			return nil, errors.New("oidc: key set is empty")
		}
		return set, nil
	}
}

// KeySetCache holds the current key set and refreshes it lazily. A single
// mutex spans check, fetch and replace, so concurrent callers that find the
// cache empty or expired wait for one fetch and share its result.
type KeySetCache struct {
	fetch      FetchFunc
	timeout    time.Duration
	ttl        time.Duration
	minRefresh time.Duration
	now        func() time.Time
	log        logrus.FieldLogger

	// attempts counts finished fetches. It is read before taking mu so a
	// caller can tell whether a fetch completed while it waited.
	attempts atomic.Uint64

	mu          sync.Mutex
	current     *KeySet
	expiresAt   time.Time
	lastAttempt time.Time
	lastErr     error
}

// CacheOpt configures a KeySetCache.
type CacheOpt func(*KeySetCache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOpt {
	return func(c *KeySetCache) { c.now = now }
}

// WithCacheTTL sets how long a fetched key set is served before refresh.
func WithCacheTTL(ttl time.Duration) CacheOpt {
	return func(c *KeySetCache) { c.ttl = ttl }
}

// WithFetchTimeout bounds a single key set fetch.
func WithFetchTimeout(d time.Duration) CacheOpt {
	return func(c *KeySetCache) { c.timeout = d }
}

// WithMinRefreshInterval bounds how often an unknown kid can force a fetch.
func WithMinRefreshInterval(d time.Duration) CacheOpt {
	return func(c *KeySetCache) { c.minRefresh = d }
}

// WithCacheLogger sets the logger.
func WithCacheLogger(log logrus.FieldLogger) CacheOpt {
	return func(c *KeySetCache) { c.log = log }
}

// NewKeySetCache builds an empty cache around fetch.
func NewKeySetCache(fetch FetchFunc, opts ...CacheOpt) *KeySetCache {
	c := &KeySetCache{
		fetch:      fetch,
		timeout:    DefaultFetchTimeout,
		ttl:        DefaultCacheTTL,
		minRefresh: DefaultMinRefreshInterval,
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL is how long a fetched key set is served before refresh.
func (c *KeySetCache) TTL() time.Duration { return c.ttl }

// KeySet returns the cached key set, fetching it first when the cache is
// empty or expired. When a fetch fails and an older set exists, the older set
// is served. With nothing cached the error is KeyFetchUnavailable.
func (c *KeySetCache) KeySet(ctx context.Context) (*KeySet, error) {
	return c.load(ctx, nil)
}

// SigningKey resolves kid. A kid missing from a set that was fetched more
// than the minimum refresh interval ago triggers one refetch, which picks up
// keys the provider rotated in since the last refresh.
func (c *KeySetCache) SigningKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	ks, err := c.KeySet(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok := ks.Lookup(kid); ok {
		return key, nil
	}
	ks, err = c.load(ctx, ks)
	if err != nil {
		return nil, err
	}
	if key, ok := ks.Lookup(kid); ok {
		return key, nil
	}
	return nil, newError(KindUnknownSigningKey, fmt.Errorf("kid %q not in key set", kid))
}

// load returns the current set, fetching when needed. seen is the set a
// caller already searched without success; it forces a refetch unless
// another caller replaced it meanwhile or the last attempt is too recent.
// A caller that waited on mu while a fetch ran returns that fetch's result,
// so a failing provider sees one request per wave of callers.
func (c *KeySetCache) load(ctx context.Context, seen *KeySet) (*KeySet, error) {
	gen := c.attempts.Load()
	c.mu.Lock()
	defer c.mu.Unlock()

	// Callers queued behind a fetch take its outcome instead of fetching again.
	if c.attempts.Load() != gen {
		if c.current != nil {
			return c.current, nil
		}
		return nil, c.lastErr
	}

	now := c.now()
	if c.current != nil {
		if seen == nil && !now.After(c.expiresAt) {
			return c.current, nil
		}
		if seen != nil && (c.current != seen || now.Sub(c.lastAttempt) < c.minRefresh) {
			return c.current, nil
		}
	}

	c.lastAttempt = now
	// The fetch outlives the caller's cancellation: other waiters depend on it.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()
	set, err := c.fetch(fetchCtx)
	c.attempts.Add(1)
	if err != nil {
		c.lastErr = newError(KindKeyFetchUnavailable, err)
		if c.current != nil {
			observability.KeySetFetchesTotal.WithLabelValues("stale").Inc()
			c.log.WithError(err).WithField("fetched_at", c.current.FetchedAt).Warn("key set refresh failed, serving cached keys")
			return c.current, nil
		}
		observability.KeySetFetchesTotal.WithLabelValues("error").Inc()
		return nil, c.lastErr
	}
	c.lastErr = nil

	observability.KeySetFetchesTotal.WithLabelValues("ok").Inc()
	c.current = &KeySet{Keys: set, FetchedAt: now}
	c.expiresAt = now.Add(c.ttl)
	c.log.WithField("keys", set.Len()).Debug("key set refreshed")
	return c.current, nil
}
