// Package jobs contains the worker's scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
)

// SnapshotRefresher recomputes and stores the dashboard snapshot.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (*dashboard.Snapshot, error)
}

// RefreshDashboardJob keeps the cached dashboard warm so API reads rarely
// fall back to live queries.
type RefreshDashboardJob struct {
	refresher SnapshotRefresher
	logger    *slog.Logger
}

// NewRefreshDashboardJob creates the job.
func NewRefreshDashboardJob(refresher SnapshotRefresher, logger *slog.Logger) *RefreshDashboardJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshDashboardJob{refresher: refresher, logger: logger.With("job", "refresh_dashboard")}
}

func (j *RefreshDashboardJob) Name() string { return "refresh_dashboard" }

func (j *RefreshDashboardJob) Description() string {
	return "recompute the dashboard snapshot and store it in the cache"
}

// Run refreshes the snapshot once.
func (j *RefreshDashboardJob) Run(ctx context.Context) error {
	snap, err := j.refresher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh dashboard: %w", err)
	}
	j.logger.Debug("dashboard refreshed",
		"active", snap.Stats.ActiveGrievances,
		"resolved", snap.Stats.ResolvedGrievances,
		"students", snap.Stats.Students,
	)
	return nil
}
