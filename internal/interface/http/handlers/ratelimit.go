package handlers

import (
	"context"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITERS
// Fixed per-key budgets over a rolling window. The portal runs the Redis
// limiter when Redis is configured so that every replica shares one budget,
// and the in-memory limiter otherwise.
// ══════════════════════════════════════════════════════════════════════════════

// Limiter decides whether one more request from key fits the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// In-memory
// ──────────────────────────────────────────────────────────────────────────────

// MemoryLimiter is a sliding-window limiter local to the process.
type MemoryLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemoryLimiter creates a limiter and starts its cleanup loop. Call Stop
// to end it.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	rl := &MemoryLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow records a request from key if it fits the window.
func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.prune(rl.requests[key], now)
	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false, nil
	}
	rl.requests[key] = append(valid, now)
	return true, nil
}

// Stop ends the cleanup loop.
func (rl *MemoryLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *MemoryLimiter) prune(requests []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-rl.window)
	valid := requests[:0]
	for _, t := range requests {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}

func (rl *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, requests := range rl.requests {
				if valid := rl.prune(requests, now); len(valid) == 0 {
					delete(rl.requests, key)
				} else {
					rl.requests[key] = valid
				}
			}
			rl.mu.Unlock()
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Shared counter
// ──────────────────────────────────────────────────────────────────────────────

// WindowCounter increments a counter that expires window after its first
// hit. redis.Cache implements it.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// CounterLimiter is a fixed-window limiter backed by a shared counter.
type CounterLimiter struct {
	counter WindowCounter
	keyFn   func(string) string
	limit   int
	window  time.Duration
}

// NewCounterLimiter creates a limiter. keyFn maps the caller key to the
// counter key; nil uses it unchanged.
func NewCounterLimiter(counter WindowCounter, keyFn func(string) string, limit int, window time.Duration) *CounterLimiter {
	if keyFn == nil {
		keyFn = func(k string) string { return k }
	}
	return &CounterLimiter{counter: counter, keyFn: keyFn, limit: limit, window: window}
}

// Allow counts the request and reports whether it is within the limit.
func (l *CounterLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.counter.IncrWindow(ctx, l.keyFn(key), l.window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.limit), nil
}
