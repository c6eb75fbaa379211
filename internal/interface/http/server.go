// Package http implements the REST API of the Aegis campus portal: the
// role-selection login, every view's reads and writes, and health probes.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aegis-hub/aegis-portal/config"
	"github.com/aegis-hub/aegis-portal/internal/application/command"
	"github.com/aegis-hub/aegis-portal/internal/application/query"
	"github.com/aegis-hub/aegis-portal/internal/domain/profile"
	"github.com/aegis-hub/aegis-portal/internal/interface/http/handlers"
	"github.com/aegis-hub/aegis-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host - address to bind (default: "0.0.0.0").
	Host string

	// Port - port to listen on (default: 8080).
	Port int

	// ReadTimeout - maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout - maximum duration for writing the response.
	WriteTimeout time.Duration

	// IdleTimeout - maximum duration for idle connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes - maximum size of request headers.
	MaxHeaderBytes int

	// MaxBodyBytes - maximum size of request bodies.
	MaxBodyBytes int64

	// AllowedOrigins - allowed origins for CORS.
	AllowedOrigins []string

	// TrustProxy - take the client IP from X-Forwarded-For.
	TrustProxy bool

	// Version - reported by the root and health endpoints.
	Version string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
		Version:        "dev",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// FeatureGate decides whether a flagged feature is on for a user.
type FeatureGate interface {
	IsEnabled(name, userID string) bool
}

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	Login                 *command.LoginHandler
	SubmitGrievance       *command.SubmitGrievanceHandler
	UpdateGrievanceStatus *command.UpdateGrievanceStatusHandler
	UpvoteGrievance       *command.UpvoteGrievanceHandler
	UploadResource        *command.UploadResourceHandler
	PublishOpportunity    *command.PublishOpportunityHandler
	ApplyOpportunity      *command.ApplyOpportunityHandler
	AddLocation           *command.AddLocationHandler
	Community             *command.CommunityHandler
	SOS                   *command.SOSHandler

	// Query Handlers (CQRS Read Side)
	Dashboard      *query.GetDashboardHandler
	Grievances     *query.GrievancesHandler
	Academics      *query.AcademicsHandler
	Opportunities  *query.OpportunitiesHandler
	CampusMap      *query.CampusMapHandler
	CommunityQuery *query.CommunityHandler

	// Profiles backs GET /api/v1/me.
	Profiles profile.Repository

	// Tokens signs and verifies session tokens.
	Tokens *TokenIssuer

	// Features gates flagged endpoints. Nil enables everything.
	Features FeatureGate

	// Limiter throttles /api requests per client IP. Nil disables it.
	Limiter handlers.Limiter

	// Health Check Dependencies
	HealthChecker handlers.HealthChecker

	// Logger
	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	logger     *logger.Logger
	limiter    handlers.Limiter

	// Server state
	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(cfg Config, deps Dependencies) *Server {
	s := &Server{
		config:  cfg,
		deps:    deps,
		router:  http.NewServeMux(),
		logger:  deps.Logger,
		limiter: deps.Limiter,
	}

	if s.logger == nil {
		s.logger = logger.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
		s.config.MaxBodyBytes = cfg.MaxBodyBytes
	}
	if s.deps.HealthChecker == nil {
		s.deps.HealthChecker = handlers.NewCompositeHealthChecker(cfg.Version)
	}

	// Setup routes
	s.setupRoutes()

	s.handler = handlers.Chain(
		handlers.SecurityHeadersMiddleware,
		handlers.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)(s.buildMiddlewareChain(s.router))

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:           cfg.Address(),
		Handler:        s.handler,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.router
	api := handlers.NoCacheMiddleware

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.HandleFunc("GET /health", s.handleHealth)
	r.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	r.HandleFunc("GET /ready", s.handleReady)
	r.HandleFunc("GET /live", s.handleLive)
	r.HandleFunc("GET /{$}", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// Session
	// ─────────────────────────────────────────────────────────────────────────
	r.Handle("POST /api/v1/auth/login", api(http.HandlerFunc(s.handleLogin)))
	r.Handle("GET /api/v1/me", api(s.protect("", s.handleMe)))

	// ─────────────────────────────────────────────────────────────────────────
	// Dashboard
	// ─────────────────────────────────────────────────────────────────────────
	r.Handle("GET /api/v1/dashboard", api(s.protect(profile.ViewDashboard, s.handleDashboard)))

	// ─────────────────────────────────────────────────────────────────────────
	// Grievances
	// ─────────────────────────────────────────────────────────────────────────
	r.Handle("GET /api/v1/grievances", api(s.protect(profile.ViewGrievances, s.handleListGrievances)))
	r.Handle("POST /api/v1/grievances", api(s.protect(profile.ViewGrievances, s.handleSubmitGrievance)))
	r.Handle("GET /api/v1/grievances/mine", api(s.protect(profile.ViewGrievances, s.handleMyGrievances)))
	r.Handle("PATCH /api/v1/grievances/{id}/status", api(s.protect(profile.ViewGrievances, s.handleUpdateGrievanceStatus)))
	r.Handle("POST /api/v1/grievances/{id}/votes", api(s.protect(profile.ViewGrievances,
		s.requireFeature(config.FeatureGrievanceUpvotes, s.handleUpvoteGrievance))))

	// ─────────────────────────────────────────────────────────────────────────
	// Academics
	// ─────────────────────────────────────────────────────────────────────────
	r.Handle("GET /api/v1/academics", api(s.protect(profile.ViewAcademics, s.handleAcademics)))
	r.Handle("GET /api/v1/academics/projection", api(s.protect(profile.ViewAcademics, s.handleProjection)))
	r.Handle("POST /api/v1/academics/resources", api(s.protect(profile.ViewAcademics, s.handleUploadResource)))

	// ─────────────────────────────────────────────────────────────────────────
	// Opportunities
	// ─────────────────────────────────────────────────────────────────────────
	r.Handle("GET /api/v1/opportunities", api(s.protect(profile.ViewOpportunities, s.handleListOpportunities)))
	r.Handle("POST /api/v1/opportunities", api(s.protect(profile.ViewOpportunities, s.handlePublishOpportunity)))
	r.Handle("POST /api/v1/opportunities/{id}/applications", api(s.protect(profile.ViewOpportunities,
		s.requireFeature(config.FeatureOpportunityApply, s.handleApplyOpportunity))))

	// ─────────────────────────────────────────────────────────────────────────
	// Campus map
	// ─────────────────────────────────────────────────────────────────────────
	r.Handle("GET /api/v1/locations", api(s.protect(profile.ViewMap, s.handleCampusMap)))
	r.Handle("POST /api/v1/locations", api(s.protect(profile.ViewMap, s.handleAddLocation)))

	// ─────────────────────────────────────────────────────────────────────────
	// Community
	// ─────────────────────────────────────────────────────────────────────────
	r.Handle("GET /api/v1/posts", api(s.protect(profile.ViewCommunity, s.handleListPosts)))
	r.Handle("POST /api/v1/posts", api(s.protect(profile.ViewCommunity, s.handleCreatePost)))
	r.Handle("DELETE /api/v1/posts/{id}", api(s.protect(profile.ViewCommunity, s.handleDeletePost)))
	r.Handle("POST /api/v1/posts/{id}/flag", api(s.protect(profile.ViewCommunity, s.handleFlagPost)))
	r.Handle("POST /api/v1/posts/{id}/like", api(s.protect(profile.ViewCommunity,
		s.requireFeature(config.FeatureCommunityLikes, s.handleLikePost))))
	r.Handle("POST /api/v1/posts/{id}/ban-author", api(s.protect(profile.ViewCommunity, s.handleBanAuthor)))
	r.Handle("GET /api/v1/posts/{id}/comments", api(s.protect(profile.ViewCommunity, s.handleListComments)))
	r.Handle("POST /api/v1/posts/{id}/comments", api(s.protect(profile.ViewCommunity, s.handleAddComment)))
	r.Handle("DELETE /api/v1/comments/{id}", api(s.protect(profile.ViewCommunity, s.handleDeleteComment)))
	r.Handle("GET /api/v1/community/ban-status", api(s.protect(profile.ViewCommunity, s.handleBanStatus)))

	// ─────────────────────────────────────────────────────────────────────────
	// SOS (available from every view)
	// ─────────────────────────────────────────────────────────────────────────
	r.Handle("POST /api/v1/sos", api(s.protect("", s.handleRaiseSOS)))
	r.Handle("POST /api/v1/sos/{id}/cancel", api(s.protect("", s.handleCancelSOS)))
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}
