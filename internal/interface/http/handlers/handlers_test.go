package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Health
// ──────────────────────────────────────────────────────────────────────────────

func TestCompositeHealthChecker_NoChecks(t *testing.T) {
	status := NewCompositeHealthChecker("v1").Check(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "v1", status.Version)
}

func TestCompositeHealthChecker_CriticalFailure(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.AddCheck("database", func(context.Context) error { return errors.New("connection refused") })
	c.AddCheck("store", func(context.Context) error { return nil })

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, "connection refused", status.Checks["database"].Message)
	assert.True(t, status.Checks["store"].Healthy)
	assert.Contains(t, status.Message, "database")
}

func TestCompositeHealthChecker_OptionalFailureKeepsReady(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.AddCheck("database", func(context.Context) error { return nil })
	c.AddOptionalCheck("cache", func(context.Context) error { return errors.New("redis down") })

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.False(t, status.Checks["cache"].Critical)
}

func TestCompositeHealthChecker_Stats(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	assert.Nil(t, c.Check(context.Background()).Stats)

	published := 0
	c.AddStats("events", func() interface{} { return map[string]int{"published": published} })
	published = 3

	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, map[string]int{"published": 3}, status.Stats["events"])
}

func TestCompositeHealthChecker_TimeoutApplies(t *testing.T) {
	c := NewCompositeHealthChecker("v1")
	c.SetTimeout(20 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	status := c.Check(context.Background())
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, status.Ready)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestNewPingCheck(t *testing.T) {
	called := false
	check := NewPingCheck(pingFunc(func(context.Context) error { called = true; return nil }))
	require.NoError(t, check(context.Background()))
	assert.True(t, called)
}

// ──────────────────────────────────────────────────────────────────────────────
// Rate limiting
// ──────────────────────────────────────────────────────────────────────────────

func TestMemoryLimiter_EnforcesWindow(t *testing.T) {
	rl := NewMemoryLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	ok, _ = rl.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "other keys have their own budget")

	now = now.Add(61 * time.Second)
	ok, _ = rl.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "budget refills after the window")
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestCounterLimiter(t *testing.T) {
	counter := &fakeCounter{}
	l := NewCounterLimiter(counter, func(k string) string { return "ratelimit:" + k }, 1, time.Minute)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "ip")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Allow(ctx, "ip")
	assert.False(t, ok)
	assert.Equal(t, int64(2), counter.counts["ratelimit:ip"])
}

func TestCounterLimiter_PropagatesErrors(t *testing.T) {
	l := NewCounterLimiter(&fakeCounter{err: errors.New("redis down")}, nil, 10, time.Minute)
	_, err := l.Allow(context.Background(), "ip")
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Middleware
// ──────────────────────────────────────────────────────────────────────────────

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeadersMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestRequestSizeLimit(t *testing.T) {
	h := RequestSizeLimitMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
