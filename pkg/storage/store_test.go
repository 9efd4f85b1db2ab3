package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreSets(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	added, err := s.SAdd(ctx, "ports", "8000")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.SAdd(ctx, "ports", "8000")
	require.NoError(t, err)
	assert.False(t, added)

	ok, err := s.SIsMember(ctx, "ports", "8000")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.SRem(ctx, "ports", "8000"))
	ok, err = s.SIsMember(ctx, "ports", "8000")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, s.SRem(ctx, "never", "x"))
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	s, err := Connect(ctx, "memory://")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.NoError(t, s.Close())

	_, err = Connect(ctx, "ftp://example.com")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = Connect(ctx, "redis://:badport")
	assert.Error(t, err)
}

func TestConnectUnreachableRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, "redis://127.0.0.1:1/0?dial_timeout=200ms&max_retries=-1")
	require.Error(t, err)

	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, "127.0.0.1:1", connErr.Addr)
	assert.NotNil(t, errors.Unwrap(connErr))
}
