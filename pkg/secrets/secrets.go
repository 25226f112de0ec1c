// Package secrets fetches credentials from a secret store and caches them
// for a bounded time.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched secret is reused before it is re-read.
const DefaultTTL = 24 * time.Hour

var (
	// ErrSecretNotFound is returned when the secret store has no such secret.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrKeyNotFound is returned when a secret lacks the requested key.
	ErrKeyNotFound = errors.New("secret key not found")
)

// Provider reads a secret as a set of key/value pairs.
type Provider interface {
	GetSecret(ctx context.Context, name string) (map[string]string, error)
}

type entry struct {
	values  map[string]string
	expires time.Time
}

// Cache wraps a Provider and serves each secret from memory until its expiry
// timestamp passes. Concurrent misses for the same secret share one fetch.
type Cache struct {
	provider Provider
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a cache over provider. A non-positive ttl uses DefaultTTL.
func NewCache(provider Provider, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the key/value pairs of the named secret.
func (c *Cache) Get(ctx context.Context, name string) (map[string]string, error) {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expires) {
		return maps.Clone(e.values), nil
	}

	// The fetch is shared by every waiter, so one caller's cancellation
	// must not fail the others.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(name, func() (any, error) {
		values, err := c.provider.GetSecret(fetchCtx, name)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[name] = entry{values: values, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return values, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching secret %s: %w", name, err)
	}
	return maps.Clone(v.(map[string]string)), nil
}

// Value returns a single key of the named secret.
func (c *Cache) Value(ctx context.Context, name, key string) (string, error) {
	values, err := c.Get(ctx, name)
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrKeyNotFound, key, name)
	}
	return v, nil
}

// Invalidate drops the cached copy of the named secret.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}
