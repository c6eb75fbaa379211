// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
	"github.com/aegis-hub/aegis-portal/internal/domain/grievance"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery asks for the campus overview.
type GetDashboardQuery struct {
	// SkipCache forces a live computation.
	SkipCache bool
}

// GetDashboardResult wraps the snapshot with where it came from.
type GetDashboardResult struct {
	*dashboard.Snapshot
	FromCache bool `json:"from_cache"`
}

// GetDashboardHandler handles GetDashboardQuery.
type GetDashboardHandler struct {
	grievances grievance.Repository
	profiles   profile.Repository
	status     dashboard.StatusRepository
	cache      dashboard.SnapshotCache
	logger     *slog.Logger
	now        func() time.Time
}

// NewGetDashboardHandler creates a new GetDashboardHandler. cache may be nil.
func NewGetDashboardHandler(
	grievances grievance.Repository,
	profiles profile.Repository,
	status dashboard.StatusRepository,
	cache dashboard.SnapshotCache,
	logger *slog.Logger,
) *GetDashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetDashboardHandler{
		grievances: grievances,
		profiles:   profiles,
		status:     status,
		cache:      cache,
		logger:     logger,
		now:        time.Now,
	}
}

// Handle serves the cached snapshot when there is one and computes it live
// otherwise.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*GetDashboardResult, error) {
	if !q.SkipCache && h.cache != nil {
		snap, err := h.cache.GetSnapshot(ctx)
		if err != nil {
			h.logger.Warn("dashboard cache read failed", "error", err)
		} else if snap != nil {
			return &GetDashboardResult{Snapshot: snap, FromCache: true}, nil
		}
	}

	snap, err := h.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return &GetDashboardResult{Snapshot: snap}, nil
}

// Compute queries counters, status rows and the chart window concurrently.
func (h *GetDashboardHandler) Compute(ctx context.Context) (*dashboard.Snapshot, error) {
	now := h.now()

	var (
		counts   map[grievance.Status]int
		students int
		systems  []dashboard.SystemComponent
		recent   []*grievance.Grievance
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = h.grievances.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		students, err = h.profiles.CountByRole(gctx, profile.RoleStudent)
		return err
	})
	g.Go(func() error {
		var err error
		systems, err = h.status.ListComponents(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = h.grievances.ListCreatedSince(gctx, dashboard.WindowStart(now))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, shared.WrapError("query", "GetDashboard", shared.ErrServiceUnavailable, "failed to compute dashboard", err)
	}

	if systems == nil {
		systems = []dashboard.SystemComponent{}
	}
	return &dashboard.Snapshot{
		Stats:       dashboard.StatsFromCounts(counts, students),
		Systems:     systems,
		Activity:    dashboard.BuildActivityChart(recent, now),
		GeneratedAt: now.UTC(),
	}, nil
}

// Refresh recomputes the snapshot and stores it in the cache.
func (h *GetDashboardHandler) Refresh(ctx context.Context) (*dashboard.Snapshot, error) {
	snap, err := h.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		if err := h.cache.SetSnapshot(ctx, snap); err != nil {
			return snap, shared.WrapError("query", "RefreshDashboard", shared.ErrServiceUnavailable, "failed to cache snapshot", err)
		}
	}
	return snap, nil
}
