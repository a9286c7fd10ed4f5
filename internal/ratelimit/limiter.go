// Package ratelimit implements a sliding-window attempt counter keyed by an
// arbitrary string. The same limiter instance backs login throttling and
// sensitive-mutation throttling with different keys and thresholds.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store persists attempt counts. Implementations own the windowing so a
// shared backing store can replace the in-memory map without touching
// call sites.
type Store interface {
	// Take records one attempt for key and reports whether the attempt is
	// within limit for the current window.
	Take(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Limiter answers allow/deny decisions against a Store.
type Limiter struct {
	store  Store
	logger *slog.Logger
}

// NewLimiter constructs a Limiter.
func NewLimiter(store Store, logger *slog.Logger) *Limiter {
	return &Limiter{store: store, logger: logger}
}

// Allow records an attempt and reports whether it is permitted. The limiter
// is an advisory throttle, so store failures fail open rather than blocking
// the operation.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	ok, err := l.store.Take(ctx, key, limit, window)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("rate limit store", slog.String("key", key), slog.Any("error", err))
		}
		return true
	}
	return ok
}

type entry struct {
	count       int
	windowStart time.Time
}

// MemoryStore is the default process-local Store. It only protects a single
// process; use RedisStore when the decision must hold across instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry), now: time.Now}
}

// Take implements Store. Expired entries are evicted on each call to bound
// memory.
func (s *MemoryStore) Take(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.Sub(e.windowStart) >= window {
			delete(s.entries, k)
		}
	}

	e, ok := s.entries[key]
	if !ok || now.Sub(e.windowStart) >= window {
		s.entries[key] = entry{count: 1, windowStart: now}
		return true, nil
	}
	if e.count >= limit {
		return false, nil
	}
	e.count++
	s.entries[key] = e
	return true, nil
}
