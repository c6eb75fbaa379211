// Package main is the entry point of the Aegis campus portal API.
//
// The portal serves the REST API for students, faculty and campus
// authorities: the dashboard, grievances, academics with the target-grade
// projector, opportunities, the campus map, the community board and SOS.
//
// With Redis configured, SOS dispatch and scheduled jobs run in the worker
// process. Without it the portal runs them itself.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegis-hub/aegis-portal/config"
	"github.com/aegis-hub/aegis-portal/internal/application/command"
	"github.com/aegis-hub/aegis-portal/internal/application/query"
	"github.com/aegis-hub/aegis-portal/internal/bootstrap"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/persistence/redis"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/scheduler"
	httpserver "github.com/aegis-hub/aegis-portal/internal/interface/http"
	"github.com/aegis-hub/aegis-portal/internal/interface/http/handlers"
	"github.com/aegis-hub/aegis-portal/pkg/logger"
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

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := bootstrap.SetupLogger(cfg)
	log.Info("starting Aegis portal",
		"env", string(cfg.App.Environment),
		"debug", cfg.App.Debug,
		"database_driver", cfg.Database.Driver,
	)

	if err := bootstrap.EnsureSecrets(cfg, log); err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE, CACHE AND EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	infra, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	repos := infra.Repos
	bus := infra.Bus
	anonymityKey := []byte(cfg.Auth.AnonymityKey)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION LAYER (CQRS)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	// Commands
	loginHandler := command.NewLoginHandler(repos.Profiles)
	submitGrievanceHandler := command.NewSubmitGrievanceHandler(repos.Grievances, bus, anonymityKey)
	updateGrievanceStatusHandler := command.NewUpdateGrievanceStatusHandler(repos.Grievances, bus)
	upvoteGrievanceHandler := command.NewUpvoteGrievanceHandler(repos.Grievances)
	uploadResourceHandler := command.NewUploadResourceHandler(repos.Academics)
	publishOpportunityHandler := command.NewPublishOpportunityHandler(repos.Opportunities, infra.OpportunityCache(), bus, log)
	applyOpportunityHandler := command.NewApplyOpportunityHandler(repos.Opportunities)
	addLocationHandler := command.NewAddLocationHandler(repos.Locations, infra.CampusCache(), bus, log)
	communityHandler := command.NewCommunityHandler(command.CommunityDeps{
		Posts:     repos.Posts,
		Bans:      repos.Bans,
		BanCache:  infra.BanCache(),
		Profiles:  repos.Profiles,
		Publisher: bus,
		Logger:    log,
	})
	sosHandler := command.NewSOSHandler(repos.Alerts, bus, cfg.SOS.CancelWindow)

	// Queries
	dashboardHandler := query.NewGetDashboardHandler(repos.Grievances, repos.Profiles, repos.Status, infra.SnapshotCache(), log)
	grievancesHandler := query.NewGrievancesHandler(repos.Grievances, anonymityKey)
	academicsHandler := query.NewAcademicsHandler(repos.Academics, repos.Profiles, academicsDefaults(cfg), log)
	opportunitiesHandler := query.NewOpportunitiesHandler(repos.Opportunities, infra.OpportunityCache(), log)
	campusMapHandler := query.NewCampusMapHandler(repos.Locations, infra.CampusCache(), log)
	communityQueryHandler := query.NewCommunityHandler(repos.Posts, repos.Bans, infra.BanCache())

	log.Info("application layer initialized")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. BACKGROUND PROCESSING (single-process mode)
	// ─────────────────────────────────────────────────────────────────────────
	securityChannel := bootstrap.SecurityChannel(cfg, log)

	var sched *scheduler.Scheduler
	if infra.Distributed() {
		log.Info("events are shared over Redis, SOS dispatch and jobs run in the worker")
	} else {
		if err := infra.RegisterEventHandlers(dashboardHandler, securityChannel); err != nil {
			return err
		}
		if cfg.Scheduler.Enabled {
			sched, err = infra.NewScheduler(dashboardHandler, securityChannel)
			if err != nil {
				return fmt.Errorf("failed to register jobs: %w", err)
			}
			if err := sched.Start(ctx); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	tokens, err := httpserver.NewTokenIssuer(httpserver.TokenConfig{
		Secret: []byte(cfg.Auth.JWTSecret),
		TTL:    cfg.Auth.TokenTTL,
		Issuer: cfg.Auth.Issuer,
	})
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.NewPingCheck(infra.Database))
	if infra.Cache != nil {
		health.AddOptionalCheck("cache", handlers.NewPingCheck(infra.Cache))
	}
	health.AddStats("events", func() interface{} { return infra.EventStats() })
	if sched != nil {
		health.AddStats("scheduler", func() interface{} { return sched.Metrics().Snapshot() })
	}

	httpCfg := httpserver.DefaultConfig()
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.Version = cfg.App.Version

	deps := httpserver.Dependencies{
		Login:                 loginHandler,
		SubmitGrievance:       submitGrievanceHandler,
		UpdateGrievanceStatus: updateGrievanceStatusHandler,
		UpvoteGrievance:       upvoteGrievanceHandler,
		UploadResource:        uploadResourceHandler,
		PublishOpportunity:    publishOpportunityHandler,
		ApplyOpportunity:      applyOpportunityHandler,
		AddLocation:           addLocationHandler,
		Community:             communityHandler,
		SOS:                   sosHandler,

		Dashboard:      dashboardHandler,
		Grievances:     grievancesHandler,
		Academics:      academicsHandler,
		Opportunities:  opportunitiesHandler,
		CampusMap:      campusMapHandler,
		CommunityQuery: communityQueryHandler,

		Profiles:      repos.Profiles,
		Tokens:        tokens,
		Limiter:       newLimiter(cfg, infra),
		HealthChecker: health,
		Logger:        newHTTPLogger(cfg),
	}
	if cfg.Features != nil {
		deps.Features = cfg.Features
	}

	httpServer := httpserver.NewServer(httpCfg, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. START
	// ─────────────────────────────────────────────────────────────────────────
	errCh := httpServer.StartAsync()
	log.Info("Aegis portal is running", "http_addr", httpCfg.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", "error", err)
		}
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	var shutdownErr error

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown http server", "error", err)
		shutdownErr = err
	}

	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
			shutdownErr = err
		}
	}

	if shutdownErr != nil {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}
	return shutdownErr
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func academicsDefaults(cfg *config.Config) query.AcademicsDefaults {
	return query.AcademicsDefaults{
		CreditsCompleted: cfg.Academics.DefaultCreditsCompleted,
		CreditsPlanned:   cfg.Academics.DefaultCreditsPlanned,
		CurrentAverage:   cfg.Academics.DefaultCurrentAverage,
		TargetAverage:    cfg.Academics.DefaultTargetAverage,
		TargetStep:       cfg.Academics.TargetStep,
		Upcoming:         cfg.Academics.UpcomingAssignments,
	}
}

// newLimiter counts requests in Redis so that every portal instance shares
// one budget per client, and falls back to an in-process window.
func newLimiter(cfg *config.Config, infra *bootstrap.Infra) handlers.Limiter {
	if cfg.HTTP.RateLimitPerMin <= 0 {
		return nil
	}
	if infra.Cache != nil {
		return handlers.NewCounterLimiter(infra.Cache, redis.RateLimitKey, cfg.HTTP.RateLimitPerMin, time.Minute)
	}
	return handlers.NewMemoryLimiter(cfg.HTTP.RateLimitPerMin, time.Minute)
}

// newHTTPLogger builds the request logger of the HTTP layer.
func newHTTPLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = logger.LevelDebug
	}
	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     level,
		AddCaller: cfg.App.Debug,
	}).With(logger.Component("http"))
}
