// Package main is the entry point of the Aegis background worker.
//
// The worker takes the work that must not run once per portal instance:
//   - dispatching SOS alerts to the security channel
//   - recomputing the dashboard snapshot when grievances change
//   - probing system components for the status table
//   - refreshing the dashboard snapshot on a timer
//
// It receives events from the portals over Redis and shares their database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aegis-hub/aegis-portal/config"
	"github.com/aegis-hub/aegis-portal/internal/application/query"
	"github.com/aegis-hub/aegis-portal/internal/bootstrap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("the worker needs DATABASE_DRIVER=postgres; with the memory driver the portal runs background work itself")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := bootstrap.SetupLogger(cfg).With("component", "worker")
	log.Info("starting Aegis worker",
		"env", string(cfg.App.Environment),
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE, CACHE AND EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	infra, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	repos := infra.Repos
	dashboardHandler := query.NewGetDashboardHandler(repos.Grievances, repos.Profiles, repos.Status, infra.SnapshotCache(), log)
	securityChannel := bootstrap.SecurityChannel(cfg, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	if infra.Distributed() {
		if err := infra.RegisterEventHandlers(dashboardHandler, securityChannel); err != nil {
			return err
		}
	} else {
		log.Warn("redis unavailable, no events will arrive; the portal dispatches SOS alerts itself")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched, err := infra.NewScheduler(dashboardHandler, securityChannel)
	if err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		log.Info("scheduler disabled")
	}

	log.Info("Aegis worker is running", "jobs", len(sched.ListJobs()))

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	if sched.IsRunning() {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
			return err
		}
	}

	log.Info("shutdown completed successfully",
		"events", infra.EventStats(),
		"jobs", sched.Metrics().Snapshot(),
	)
	return nil
}
