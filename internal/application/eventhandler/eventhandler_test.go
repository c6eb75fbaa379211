package eventhandler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/internal/domain/sos"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/persistence/memory"
	"github.com/aegis-hub/aegis-portal/pkg/circuitbreaker"
	"github.com/aegis-hub/aegis-portal/pkg/retry"
)

type fakeChannel struct {
	mu       sync.Mutex
	failures int // fail this many sends before succeeding
	err      error
	sent     []string
	calls    int
	onSend   func() // runs before the send resolves
}

func (c *fakeChannel) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.onSend != nil {
		c.onSend()
	}
	if c.failures > 0 {
		c.failures--
		if c.err != nil {
			return c.err
		}
		return errors.New("telegram: 502 bad gateway")
	}
	c.sent = append(c.sent, text)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

type gate map[string]bool

func (g gate) IsEnabled(name, _ string) bool { return g[name] }

func fastRetrier(attempts int) *retry.Retrier {
	return retry.New(retry.WithMaxAttempts(attempts), retry.WithInitialDelay(time.Millisecond), retry.WithJitter(0))
}

func raise(t *testing.T, repo sos.Repository) *sos.Alert {
	t.Helper()
	a, err := sos.NewAlert("u1", "Arjun Mehta", 31.78, 76.99, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), a))
	return a
}

func raisedEvent(a *sos.Alert) shared.Event {
	return shared.NewSOSEvent(shared.EventSOSRaised, a.ID, a.UserID, a.UserName, a.Lat, a.Lng)
}

func TestSOSDispatcher_DeliversAfterTransientFailures(t *testing.T) {
	store := memory.NewStore()
	ch := &fakeChannel{failures: 2}
	pub := &recorder{}
	d := NewSOSDispatcher(SOSDispatcherDeps{
		Alerts: store.Alerts(), Channel: ch, Retrier: fastRetrier(4), Publisher: pub,
	}, DefaultSOSDispatchConfig())

	a := raise(t, store.Alerts())
	require.NoError(t, d.Handle(raisedEvent(a)))

	got, err := store.Alerts().GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, sos.StatusDispatched, got.Status)
	assert.Equal(t, 3, ch.calls)
	require.Len(t, ch.sent, 1)
	assert.Contains(t, ch.sent[0], "https://maps.google.com/?q=31.780000,76.990000")
	require.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventSOSDispatched, pub.events[0].EventType())
}

func TestSOSDispatcher_MarksFailedWhenExhausted(t *testing.T) {
	store := memory.NewStore()
	ch := &fakeChannel{failures: 10}
	pub := &recorder{}
	d := NewSOSDispatcher(SOSDispatcherDeps{
		Alerts: store.Alerts(), Channel: ch, Retrier: fastRetrier(3), Publisher: pub,
		Breaker: circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(100)),
	}, DefaultSOSDispatchConfig())

	a := raise(t, store.Alerts())
	err := d.Handle(raisedEvent(a))
	require.Error(t, err)
	assert.True(t, shared.IsExternalService(err))

	got, err := store.Alerts().GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, sos.StatusFailed, got.Status)
	assert.Equal(t, 3, ch.calls)
	require.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventSOSFailed, pub.events[0].EventType())
}

func TestSOSDispatcher_OpenBreakerStopsRetrying(t *testing.T) {
	store := memory.NewStore()
	ch := &fakeChannel{failures: 10}
	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithTimeout(time.Hour))
	d := NewSOSDispatcher(SOSDispatcherDeps{
		Alerts: store.Alerts(), Channel: ch, Retrier: fastRetrier(5), Breaker: breaker,
	}, DefaultSOSDispatchConfig())

	require.Error(t, d.Handle(raisedEvent(raise(t, store.Alerts()))))
	assert.Equal(t, 2, ch.calls, "third attempt hits the open breaker")
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	require.Error(t, d.Handle(raisedEvent(raise(t, store.Alerts()))))
	assert.Equal(t, 2, ch.calls)
}

func TestSOSDispatcher_PermanentErrorIsNotRetried(t *testing.T) {
	store := memory.NewStore()
	ch := &fakeChannel{failures: 1, err: retry.Permanent(errors.New("telegram: 403 bot was kicked"))}
	d := NewSOSDispatcher(SOSDispatcherDeps{Alerts: store.Alerts(), Channel: ch, Retrier: fastRetrier(4)}, DefaultSOSDispatchConfig())

	require.Error(t, d.Handle(raisedEvent(raise(t, store.Alerts()))))
	assert.Equal(t, 1, ch.calls)
}

func TestSOSDispatcher_SkipsCancelledAndHonoursFlag(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ch := &fakeChannel{}
	d := NewSOSDispatcher(SOSDispatcherDeps{
		Alerts: store.Alerts(), Channel: ch, Retrier: fastRetrier(2), Gate: gate{"sos.dispatch": false},
	}, DefaultSOSDispatchConfig())

	cancelled := raise(t, store.Alerts())
	require.NoError(t, store.Alerts().TransitionStatus(ctx, cancelled.ID, sos.StatusCancelled, time.Now()))
	require.NoError(t, d.Handle(raisedEvent(cancelled)))
	assert.Zero(t, ch.calls)

	gated := raise(t, store.Alerts())
	require.Error(t, d.Handle(raisedEvent(gated)))
	got, err := store.Alerts().GetByID(ctx, gated.ID)
	require.NoError(t, err)
	assert.Equal(t, sos.StatusFailed, got.Status)
	assert.Zero(t, ch.calls)
}

func TestSOSDispatcher_CancelDuringSendWins(t *testing.T) {
	for _, failures := range []int{0, 10} {
		ctx := context.Background()
		store := memory.NewStore()
		pub := &recorder{}
		a := raise(t, store.Alerts())
		ch := &fakeChannel{failures: failures, onSend: func() {
			_ = store.Alerts().TransitionStatus(ctx, a.ID, sos.StatusCancelled, time.Now())
		}}
		d := NewSOSDispatcher(SOSDispatcherDeps{
			Alerts: store.Alerts(), Channel: ch, Retrier: fastRetrier(2), Publisher: pub,
		}, DefaultSOSDispatchConfig())

		require.NoError(t, d.Handle(raisedEvent(a)))

		got, err := store.Alerts().GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, sos.StatusCancelled, got.Status, "failures=%d", failures)
		assert.Empty(t, pub.events)
	}
}

func TestSOSDispatcher_StandDown(t *testing.T) {
	store := memory.NewStore()
	ch := &fakeChannel{}
	d := NewSOSDispatcher(SOSDispatcherDeps{Alerts: store.Alerts(), Channel: ch, Retrier: fastRetrier(2)}, DefaultSOSDispatchConfig())

	a := raise(t, store.Alerts())
	require.NoError(t, d.Handle(shared.NewSOSEvent(shared.EventSOSCancelled, a.ID, a.UserID, a.UserName, a.Lat, a.Lng)))
	require.Len(t, ch.sent, 1)
	assert.Contains(t, ch.sent[0], "cancelled")
}

type countingRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) Refresh(context.Context) (*dashboard.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &dashboard.Snapshot{}, nil
}

func TestDashboardRefresher_Coalesces(t *testing.T) {
	ref := &countingRefresher{}
	h := NewDashboardRefresher(ref, nil, DashboardRefreshConfig{MinInterval: time.Minute})
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	ev := shared.NewGrievanceSubmittedEvent("g1", "Hostel", "High", false)
	require.NoError(t, h.Handle(ev))
	require.NoError(t, h.Handle(ev))
	assert.Equal(t, 1, ref.calls)

	now = now.Add(2 * time.Minute)
	require.NoError(t, h.Handle(ev))
	assert.Equal(t, 2, ref.calls)
}

func TestDashboardRefresher_ReturnsErrors(t *testing.T) {
	ref := &countingRefresher{err: errors.New("redis down")}
	h := NewDashboardRefresher(ref, nil, DefaultDashboardRefreshConfig())
	assert.Error(t, h.Handle(shared.NewGrievanceStatusChangedEvent("g1", "Submitted", "Resolved", "u1")))
}
