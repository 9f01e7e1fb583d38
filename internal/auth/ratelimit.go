package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Login limits: 5 attempts per client per minute.
const (
	DefaultLoginAttempts = 5
	DefaultLoginWindow   = time.Minute
)

// Store holds fixed-window attempt counters. Hit must count and decide in
// one atomic step per key so concurrent attempts cannot undercount.
//
// A window starts at the first attempt and is replaced by a fresh one on the
// first attempt at or after start+window. Denied attempts leave the window
// untouched.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (allowed bool, err error)
}

// Limiter applies the login attempt limit per client identifier.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithLimiterClock overrides the limiter's time source.
func WithLimiterClock(now func() time.Time) LimiterOption {
	return func(l *Limiter) { l.now = now }
}

// NewLimiter returns a limiter allowing limit attempts per window.
func NewLimiter(store Store, limit int, window time.Duration, opts ...LimiterOption) *Limiter {
	l := &Limiter{store: store, limit: limit, window: window, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow records an attempt by clientID and reports whether it may proceed.
func (l *Limiter) Allow(ctx context.Context, clientID string) (bool, error) {
	ok, err := l.store.Hit(ctx, "login_"+clientID, l.limit, l.window, l.now())
	if err != nil {
		return false, fmt.Errorf("rate limit store: %w", err)
	}
	return ok, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*counter
}

type counter struct {
	count int
	start time.Time
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*counter)}
}

func (s *MemoryStore) Hit(_ context.Context, key string, limit int, window time.Duration, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.windows[key]
	if !ok || now.Sub(c.start) >= window {
		s.windows[key] = &counter{count: 1, start: now}
		return true, nil
	}
	if c.count >= limit {
		return false, nil
	}
	c.count++
	return true, nil
}

// Sweep drops windows that have expired as of now. Expired entries are
// harmless but would otherwise accumulate one per client forever.
func (s *MemoryStore) Sweep(window time.Duration, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, c := range s.windows {
		if now.Sub(c.start) >= window {
			delete(s.windows, k)
			n++
		}
	}
	return n
}
