// Package bootstrap assembles the infrastructure shared by the portal and the
// worker: storage, the optional Redis cache, the event bus, the security
// channel, event handlers and scheduled jobs.
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aegis-hub/aegis-portal/config"
	"github.com/aegis-hub/aegis-portal/internal/application/eventhandler"
	"github.com/aegis-hub/aegis-portal/internal/application/query"
	"github.com/aegis-hub/aegis-portal/internal/domain/academics"
	"github.com/aegis-hub/aegis-portal/internal/domain/campus"
	"github.com/aegis-hub/aegis-portal/internal/domain/community"
	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
	"github.com/aegis-hub/aegis-portal/internal/domain/grievance"
	"github.com/aegis-hub/aegis-portal/internal/domain/opportunity"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
	"github.com/aegis-hub/aegis-portal/internal/domain/sos"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/external/telegram"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/messaging"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/persistence/memory"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/persistence/postgres"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/persistence/redis"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/scheduler"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/scheduler/jobs"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/seed"
	"github.com/aegis-hub/aegis-portal/pkg/circuitbreaker"
	"github.com/aegis-hub/aegis-portal/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

// Repositories bundles the domain ports for one storage driver.
type Repositories struct {
	Profiles      profile.Repository
	Grievances    grievance.Repository
	Academics     academics.Repository
	Assignments   seed.AssignmentWriter
	Opportunities opportunity.Repository
	Locations     campus.Repository
	Posts         community.PostRepository
	Bans          community.BanRepository
	Alerts        sos.Repository
	Status        dashboard.StatusRepository
}

// SeedTargets returns the repositories the fixture loader writes to.
func (r Repositories) SeedTargets() seed.Targets {
	return seed.Targets{
		Locations:   r.Locations,
		Status:      r.Status,
		Academics:   r.Academics,
		Assignments: r.Assignments,
	}
}

func memoryRepositories(s *memory.Store) Repositories {
	return Repositories{
		Profiles:      s.Profiles(),
		Grievances:    s.Grievances(),
		Academics:     s.Academics(),
		Assignments:   s,
		Opportunities: s.Opportunities(),
		Locations:     s.Locations(),
		Posts:         s.Posts(),
		Bans:          s.Bans(),
		Alerts:        s.Alerts(),
		Status:        s.Status(),
	}
}

func postgresRepositories(conn *postgres.Connection) Repositories {
	academicsRepo := postgres.NewAcademicsRepository(conn)
	communityRepo := postgres.NewCommunityRepository(conn)
	return Repositories{
		Profiles:      postgres.NewProfileRepository(conn),
		Grievances:    postgres.NewGrievanceRepository(conn),
		Academics:     academicsRepo,
		Assignments:   academicsRepo,
		Opportunities: postgres.NewOpportunityRepository(conn),
		Locations:     postgres.NewLocationRepository(conn),
		Posts:         communityRepo,
		Bans:          communityRepo,
		Alerts:        postgres.NewAlertRepository(conn),
		Status:        postgres.NewStatusRepository(conn),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INFRASTRUCTURE
// ══════════════════════════════════════════════════════════════════════════════

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// portalCache is every cache port the application layer accepts.
type portalCache interface {
	dashboard.SnapshotCache
	opportunity.ListCache
	campus.Cache
	community.BanCache
}

// Infra is the opened infrastructure of one process.
type Infra struct {
	Config *config.Config
	Logger *slog.Logger

	Repos    Repositories
	Database Pinger

	// Cache is nil when Redis is disabled or unreachable.
	Cache  *redis.Cache
	caches portalCache

	// Bus spans processes when Cache is set and is in-process otherwise.
	Bus shared.EventBus

	closers []func()
}

// Open connects storage, cache and event bus according to cfg. The memory
// driver is seeded with the bundled fixtures.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Infra, error) {
	in := &Infra{Config: cfg, Logger: log}

	if err := in.openStorage(ctx); err != nil {
		in.Close()
		return nil, err
	}
	in.openCache()
	if err := in.openBus(); err != nil {
		in.Close()
		return nil, err
	}
	return in, nil
}

func (in *Infra) openStorage(ctx context.Context) error {
	cfg, log := in.Config, in.Logger

	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		in.Repos = memoryRepositories(store)
		in.Database = store

		fixtures, err := seed.Default()
		if err != nil {
			return fmt.Errorf("load default fixtures: %w", err)
		}
		if _, err := seed.NewLoader(in.Repos.SeedTargets(), log).Apply(ctx, fixtures); err != nil {
			return fmt.Errorf("seed memory store: %w", err)
		}
		return nil
	}

	log.Info("connecting to database...")
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgCfg.QueryTimeout = cfg.Database.QueryTimeout

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	in.closers = append(in.closers, func() {
		log.Info("closing database connection...")
		conn.Close()
	})
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		log.Info("running database migrations...")
		n, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed", "applied", n)
	}

	in.Repos = postgresRepositories(conn)
	in.Database = conn
	return nil
}

func (in *Infra) openCache() {
	cfg, log := in.Config, in.Logger
	if cfg.Redis.Disabled {
		log.Info("redis disabled, cross-process events are off")
		in.useLocalCache()
		return
	}

	log.Info("connecting to Redis...", "addr", cfg.RedisAddr())
	rc := redis.DefaultConfig()
	rc.Host = cfg.Redis.Host
	rc.Port = cfg.Redis.Port
	rc.Password = cfg.Redis.Password
	rc.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		rc.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.MinIdleConns > 0 {
		rc.MinIdleConns = cfg.Redis.MinIdleConns
	}
	if cfg.Redis.DialTimeout > 0 {
		rc.DialTimeout = cfg.Redis.DialTimeout
	}
	if cfg.Redis.ReadTimeout > 0 {
		rc.ReadTimeout = cfg.Redis.ReadTimeout
	}
	if cfg.Redis.WriteTimeout > 0 {
		rc.WriteTimeout = cfg.Redis.WriteTimeout
	}

	cache, err := redis.NewCache(rc)
	if err != nil {
		log.Warn("failed to connect to Redis, caching disabled", "error", err)
		in.useLocalCache()
		return
	}
	in.Cache = cache
	in.caches = redis.NewPortalCache(cache)
	in.closers = append(in.closers, func() { _ = cache.Close() })
	log.Info("Redis connection established")
}

// useLocalCache caches in process memory, which is only safe when no other
// process writes the same data. That holds for the memory driver alone.
func (in *Infra) useLocalCache() {
	if in.Config.Database.Driver == config.DriverMemory {
		in.caches = memory.NewCache()
	}
}

func (in *Infra) openBus() error {
	log := in.Logger
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = log

	if in.Cache == nil {
		bus := messaging.NewInMemoryEventBus(local)
		in.Bus = bus
		in.closers = append(in.closers, func() {
			log.Info("closing event bus...")
			_ = bus.Close()
		})
		return nil
	}

	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         messaging.NewGoRedisClient(in.Cache.Client()),
		InstanceID:     instanceID(),
		LocalBusConfig: local,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	in.Bus = bus
	in.closers = append(in.closers, func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	})
	return nil
}

// Distributed reports whether events reach other processes. Without it the
// portal has to run the event handlers and jobs itself.
func (in *Infra) Distributed() bool {
	return in.Cache != nil
}

// Close releases everything Open acquired, in reverse order.
func (in *Infra) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		in.closers[i]()
	}
	in.closers = nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Cache ports
// Each returns a nil interface when there is no cache so that the handlers
// see "no cache" rather than a nil pointer.
// ──────────────────────────────────────────────────────────────────────────────

// SnapshotCache returns the dashboard cache or nil.
func (in *Infra) SnapshotCache() dashboard.SnapshotCache {
	if in.caches == nil {
		return nil
	}
	return in.caches
}

// OpportunityCache returns the opportunity list cache or nil.
func (in *Infra) OpportunityCache() opportunity.ListCache {
	if in.caches == nil {
		return nil
	}
	return in.caches
}

// CampusCache returns the campus map cache or nil.
func (in *Infra) CampusCache() campus.Cache {
	if in.caches == nil {
		return nil
	}
	return in.caches
}

// BanCache returns the ban status cache or nil.
func (in *Infra) BanCache() community.BanCache {
	if in.caches == nil {
		return nil
	}
	return in.caches
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY CHANNEL
// ══════════════════════════════════════════════════════════════════════════════

// SecurityChannel builds the Telegram client that receives SOS alerts. It is
// returned unconfigured when no token is set; sends then fail permanently.
func SecurityChannel(cfg *config.Config, log *slog.Logger) *telegram.Client {
	chatID := ""
	if cfg.SOS.SecurityChatID != 0 {
		chatID = strconv.FormatInt(cfg.SOS.SecurityChatID, 10)
	}
	client := telegram.NewClient(telegram.ClientConfig{
		Token:   cfg.SOS.TelegramToken,
		ChatID:  chatID,
		BaseURL: cfg.SOS.TelegramBaseURL,
		Timeout: cfg.SOS.RequestTimeout,
		Logger:  log,
	})
	if !client.Configured() {
		log.Warn("security channel not configured, SOS alerts will be marked failed")
	}
	return client
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// RegisterEventHandlers subscribes the SOS dispatcher and the dashboard
// refresher to the bus, wrapped in recovery and logging middleware.
func (in *Infra) RegisterEventHandlers(dashboardQuery *query.GetDashboardHandler, channel sos.Channel) error {
	cfg, log := in.Config, in.Logger
	sub := messaging.NewSubscriber(in.Bus,
		messaging.RecoveryMiddleware(log),
		messaging.LoggingMiddleware(log),
	)

	breaker := circuitbreaker.New("security-channel",
		circuitbreaker.WithFailureThreshold(cfg.SOS.CircuitBreakerThreshold),
		circuitbreaker.WithTimeout(cfg.SOS.CircuitBreakerTimeout),
		circuitbreaker.WithMaxHalfOpenRequests(cfg.SOS.CircuitBreakerHalfOpenMax),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		}),
	)

	dispatchCfg := eventhandler.DefaultSOSDispatchConfig()
	dispatchCfg.Feature = config.FeatureSOSDispatch
	deps := eventhandler.SOSDispatcherDeps{
		Alerts:    in.Repos.Alerts,
		Channel:   channel,
		Breaker:   breaker,
		Retrier:   retry.SecurityChannelRetrier(cfg.SOS.MaxAttempts),
		Publisher: in.Bus,
		Logger:    log,
	}
	if cfg.Features != nil {
		deps.Gate = cfg.Features
	}
	dispatcher := eventhandler.NewSOSDispatcher(deps, dispatchCfg)
	if err := dispatcher.Register(sub); err != nil {
		return fmt.Errorf("register sos dispatcher: %w", err)
	}

	refresher := eventhandler.NewDashboardRefresher(dashboardQuery, log, eventhandler.DefaultDashboardRefreshConfig())
	if err := refresher.Register(sub); err != nil {
		return fmt.Errorf("register dashboard refresher: %w", err)
	}

	log.Info("event handlers registered")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULED JOBS
// ══════════════════════════════════════════════════════════════════════════════

// errCacheDisabled marks the cache component down when Redis is off.
var errCacheDisabled = errors.New("redis disabled")

// Probes returns the health probes recorded in the system status table.
// Their ids match the components in the bundled fixtures.
func (in *Infra) Probes(channel Pinger) []jobs.Probe {
	return []jobs.Probe{
		{ID: "database", Name: "Portal Database", Check: in.Database.Ping},
		{ID: "cache", Name: "Cache and Event Bus", Check: func(ctx context.Context) error {
			if in.Cache == nil {
				return errCacheDisabled
			}
			return in.Cache.Ping(ctx)
		}},
		{ID: "security-channel", Name: "Security Alert Channel", Check: channel.Ping},
	}
}

// NewScheduler registers the dashboard refresh and the status probe.
// EventStats returns the event bus counters, zero when the bus keeps none.
func (in *Infra) EventStats() messaging.EventBusMetricsSnapshot {
	if m, ok := in.Bus.(interface{ Metrics() *messaging.EventBusMetrics }); ok {
		return m.Metrics().Snapshot()
	}
	return messaging.EventBusMetricsSnapshot{}
}

func (in *Infra) NewScheduler(dashboardQuery *query.GetDashboardHandler, channel Pinger) (*scheduler.Scheduler, error) {
	cfg, log := in.Config, in.Logger

	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	if cfg.Scheduler.JobTimeout > 0 {
		schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
	}
	s := scheduler.NewScheduler(schedCfg)

	probe := jobs.NewProbeStatusJob(in.Repos.Status, in.Probes(channel), log, jobs.DefaultProbeStatusConfig())
	if err := s.Register(probe, scheduler.Every(cfg.Scheduler.StatusProbeInterval), true); err != nil {
		return nil, err
	}

	refresh := jobs.NewRefreshDashboardJob(dashboardQuery, log)
	if err := s.Register(refresh, scheduler.Every(cfg.Scheduler.DashboardRefreshInterval), true); err != nil {
		return nil, err
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// SetupLogger configures structured logging from the observability settings.
func SetupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Observability.LogLevel)}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("service", cfg.App.Name, "version", cfg.App.Version)
	slog.SetDefault(log)
	return log
}

// EnsureSecrets fills in a random JWT secret and anonymity key when they are
// unset. Validation already rejects that in production, so this only affects
// local runs; tokens and grievance ownership do not survive a restart.
func EnsureSecrets(cfg *config.Config, log *slog.Logger) error {
	if cfg.IsProduction() && (cfg.Auth.JWTSecret == "" || cfg.Auth.AnonymityKey == "") {
		return errors.New("JWT_SECRET and ANONYMITY_KEY are required in production")
	}
	if cfg.Auth.JWTSecret == "" {
		secret, err := randomHex(32)
		if err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWTSecret = secret
		log.Warn("JWT_SECRET not set, using a random secret for this process")
	}
	if cfg.Auth.AnonymityKey == "" {
		key, err := randomHex(32)
		if err != nil {
			return fmt.Errorf("generate anonymity key: %w", err)
		}
		cfg.Auth.AnonymityKey = key
		log.Warn("ANONYMITY_KEY not set, using a random key for this process")
	}
	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return ""
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().Unix())
}
