// Package storage provides the key-value and set store the bots share for
// cross-process bookkeeping such as heartbeat port reservations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested key does not exist in the store.
var ErrNotFound = errors.New("key not found")

// ErrUnsupportedScheme is returned by Connect for unknown URL schemes.
var ErrUnsupportedScheme = errors.New("unsupported store url scheme")

// Store exposes the store operations the bots rely on.
type Store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A zero ttl keeps the key forever.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SAdd adds member to the set at key and reports whether it was new.
	SAdd(ctx context.Context, key, member string) (bool, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SRem(ctx context.Context, key, member string) error
	Close() error
}

// ConnectionError reports that the store could not be reached.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store connection to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Connect opens the store addressed by rawURL and verifies it answers.
// memory:// yields a process-local MemoryStore; redis:// and rediss://
// yield a RedisStore.
func Connect(ctx context.Context, rawURL string) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid store url: %w", err)
	}

	var store Store
	switch strings.ToLower(u.Scheme) {
	case "memory":
		store = NewMemoryStore()
	case "redis", "rediss":
		store, err = NewRedisStore(rawURL)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
