package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreWindow(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	limiter := NewLimiter(store, nil)
	ctx := context.Background()

	window := 15 * time.Minute
	for i := 0; i < 5; i++ {
		require.True(t, limiter.Allow(ctx, "login:user@example.com", 5, window), "attempt %d", i+1)
	}
	require.False(t, limiter.Allow(ctx, "login:user@example.com", 5, window))

	// Independent keys do not interfere.
	require.True(t, limiter.Allow(ctx, "login:other@example.com", 5, window))

	// After the window elapses the counter resets.
	now = now.Add(window + time.Second)
	for i := 0; i < 5; i++ {
		require.True(t, limiter.Allow(ctx, "login:user@example.com", 5, window))
	}
	require.False(t, limiter.Allow(ctx, "login:user@example.com", 5, window))
}

func TestMemoryStoreEvictsExpired(t *testing.T) {
	now := time.Now()
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Take(ctx, "a", 5, time.Minute)
		require.NoError(t, err)
	}
	require.Len(t, store.entries, 1)

	now = now.Add(2 * time.Minute)
	_, err := store.Take(ctx, "b", 5, time.Minute)
	require.NoError(t, err)
	require.Len(t, store.entries, 1)
	_, ok := store.entries["a"]
	require.False(t, ok)
}

func TestRedisStoreWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewLimiter(NewRedisStore(client, "test"), nil)
	ctx := context.Background()

	window := time.Minute
	for i := 0; i < 5; i++ {
		require.True(t, limiter.Allow(ctx, "delete:42", 5, window))
	}
	require.False(t, limiter.Allow(ctx, "delete:42", 5, window))

	mr.FastForward(window + time.Second)
	require.True(t, limiter.Allow(ctx, "delete:42", 5, window))
}

func TestLimiterFailsOpenOnStoreError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewLimiter(NewRedisStore(client, "test"), nil)
	mr.Close()

	require.True(t, limiter.Allow(context.Background(), "k", 1, time.Minute))
}
