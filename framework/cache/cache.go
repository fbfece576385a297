// Package cache is the application's shared cache (Laravel: Cache::).
// Values are stored JSON-encoded so the memory and redis stores behave the
// same.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrMiss is returned by Get when the key is absent or expired.
	ErrMiss = errors.New("cache: miss")

	ErrMarshal   = errors.New("cache: marshal failed")
	ErrUnmarshal = errors.New("cache: unmarshal failed")
)

// Store is a raw byte store. TTL semantics for Put: positive expires after
// ttl, zero or negative never expires.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
	Flush(ctx context.Context) error
	Close() error
}

// Repository adds a key prefix, a default TTL and JSON encoding to a Store.
// It is bound as the "cache" singleton.
type Repository struct {
	store      Store
	prefix     string
	defaultTTL time.Duration
	group      singleflight.Group
}

// New wraps store. prefix may be empty; ttl is used when Put gets zero.
func New(store Store, prefix string, ttl time.Duration) *Repository {
	return &Repository{store: store, prefix: prefix, defaultTTL: ttl}
}

// Store returns the underlying store.
func (r *Repository) Store() Store { return r.store }

func (r *Repository) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get decodes the value under key into dest, or returns ErrMiss.
func (r *Repository) Get(ctx context.Context, key string, dest any) error {
	data, err := r.store.Get(ctx, r.key(key))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Join(ErrUnmarshal, err)
	}
	return nil
}

// Put stores value. A zero ttl uses the default; a negative one never expires.
func (r *Repository) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Join(ErrMarshal, err)
	}
	if ttl == 0 {
		ttl = r.defaultTTL
	}
	return r.store.Put(ctx, r.key(key), data, max(ttl, 0))
}

// Forever stores value without expiry.
func (r *Repository) Forever(ctx context.Context, key string, value any) error {
	return r.Put(ctx, key, value, -1)
}

// Has reports whether key is present.
func (r *Repository) Has(ctx context.Context, key string) (bool, error) {
	return r.store.Has(ctx, r.key(key))
}

// Forget removes key.
func (r *Repository) Forget(ctx context.Context, key string) error {
	return r.store.Forget(ctx, r.key(key))
}

// Flush removes every entry.
func (r *Repository) Flush(ctx context.Context) error {
	return r.store.Flush(ctx)
}

// Close releases the store.
func (r *Repository) Close() error { return r.store.Close() }

// Remember returns the cached value for key, or computes it with fn and
// stores it for ttl. Concurrent misses on the same key call fn once.
//
//	users, err := cache.Remember(ctx, c, "users.active", time.Minute, loadActiveUsers)
func Remember[V any](ctx context.Context, r *Repository, key string, ttl time.Duration, fn func(ctx context.Context) (V, error)) (V, error) {
	var v V
	if err := r.Get(ctx, key, &v); err == nil {
		return v, nil
	} else if !errors.Is(err, ErrMiss) {
		return v, err
	}

	res, err, _ := r.group.Do(r.key(key), func() (any, error) {
		val, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if err := r.Put(ctx, key, val, ttl); err != nil {
			return nil, fmt.Errorf("cache: store %s: %w", key, err)
		}
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}
