package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
)

// Probe checks one dependency. Check returning nil means reachable.
type Probe struct {
	ID    string
	Name  string
	Check func(ctx context.Context) error
}

// ProbeStatusConfig contains configuration for ProbeStatusJob.
type ProbeStatusConfig struct {
	// Timeout bounds each probe.
	Timeout time.Duration

	// LatencyBudget is the latency above which health starts to degrade.
	LatencyBudget time.Duration
}

// DefaultProbeStatusConfig returns sensible defaults.
func DefaultProbeStatusConfig() ProbeStatusConfig {
	return ProbeStatusConfig{
		Timeout:       5 * time.Second,
		LatencyBudget: 300 * time.Millisecond,
	}
}

// ProbeStatusJob pings every dependency concurrently and records a status
// row for each in the system status table.
type ProbeStatusJob struct {
	probes []Probe
	repo   dashboard.StatusRepository
	logger *slog.Logger
	config ProbeStatusConfig
	now    func() time.Time
}

// NewProbeStatusJob creates the job.
func NewProbeStatusJob(repo dashboard.StatusRepository, probes []Probe, logger *slog.Logger, config ProbeStatusConfig) *ProbeStatusJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultProbeStatusConfig().Timeout
	}
	return &ProbeStatusJob{
		probes: probes,
		repo:   repo,
		logger: logger.With("job", "probe_system_status"),
		config: config,
		now:    time.Now,
	}
}

func (j *ProbeStatusJob) Name() string { return "probe_system_status" }

func (j *ProbeStatusJob) Description() string {
	return "ping Postgres, Redis and the security channel and record their health"
}

// Run probes everything. A failed probe is recorded as Down, not returned;
// only failures to store the rows are errors.
func (j *ProbeStatusJob) Run(ctx context.Context) error {
	rows := make([]dashboard.SystemComponent, len(j.probes))

	var g errgroup.Group
	for i, p := range j.probes {
		g.Go(func() error {
			rows[i] = j.probe(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, row := range rows {
		if err := j.repo.UpsertComponent(ctx, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *ProbeStatusJob) probe(ctx context.Context, p Probe) dashboard.SystemComponent {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	start := j.now()
	err := p.Check(ctx)
	latency := j.now().Sub(start)

	status, health := dashboard.HealthFromLatency(err, latency, j.config.LatencyBudget)
	if err != nil {
		j.logger.Warn("probe failed", "component", p.ID, "error", err)
	}
	return dashboard.SystemComponent{
		ID:        p.ID,
		Name:      p.Name,
		Status:    status,
		Health:    health,
		CheckedAt: j.now().UTC(),
	}
}
