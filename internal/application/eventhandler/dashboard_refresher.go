package eventhandler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// SnapshotRefresher recomputes and stores the dashboard snapshot.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (*dashboard.Snapshot, error)
}

// ═══════════════════════════════════════════════════════════════════════════
// DASHBOARD REFRESHER
// Grievance submissions and status changes move the dashboard counters, so
// the cached snapshot is rebuilt as soon as one arrives instead of waiting
// for the next scheduled refresh. Bursts inside MinInterval collapse into
// the refresh already done; the scheduled job picks up the remainder.
// ═══════════════════════════════════════════════════════════════════════════

// DashboardRefresher handles grievance events.
type DashboardRefresher struct {
	refresher SnapshotRefresher
	logger    *slog.Logger
	config    DashboardRefreshConfig

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// DashboardRefreshConfig configures DashboardRefresher.
type DashboardRefreshConfig struct {
	MinInterval time.Duration
	Timeout     time.Duration
}

// DefaultDashboardRefreshConfig returns the default configuration.
func DefaultDashboardRefreshConfig() DashboardRefreshConfig {
	return DashboardRefreshConfig{
		MinInterval: 2 * time.Second,
		Timeout:     10 * time.Second,
	}
}

// NewDashboardRefresher creates a new DashboardRefresher.
func NewDashboardRefresher(refresher SnapshotRefresher, logger *slog.Logger, config DashboardRefreshConfig) *DashboardRefresher {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultDashboardRefreshConfig().Timeout
	}
	return &DashboardRefresher{
		refresher: refresher,
		logger:    logger.With("handler", "dashboard_refresher"),
		config:    config,
		now:       time.Now,
	}
}

// Register subscribes to the grievance events that change the dashboard.
func (h *DashboardRefresher) Register(sub shared.EventSubscriber) error {
	if err := sub.Subscribe(shared.EventGrievanceSubmitted, h.Handle); err != nil {
		return err
	}
	return sub.Subscribe(shared.EventGrievanceStatusChanged, h.Handle)
}

// Handle implements shared.EventHandler.
func (h *DashboardRefresher) Handle(event shared.Event) error {
	h.mu.Lock()
	now := h.now()
	if !h.last.IsZero() && now.Sub(h.last) < h.config.MinInterval {
		h.mu.Unlock()
		h.logger.Debug("refresh coalesced", "event_type", event.EventType())
		return nil
	}
	h.last = now
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	snap, err := h.refresher.Refresh(ctx)
	if err != nil {
		h.logger.Error("dashboard refresh failed",
			"event_type", event.EventType(),
			"aggregate_id", event.AggregateID(),
			"error", err,
		)
		return err
	}
	h.logger.Debug("dashboard refreshed",
		"event_type", event.EventType(),
		"active", snap.Stats.ActiveGrievances,
		"resolved", snap.Stats.ResolvedGrievances,
	)
	return nil
}
