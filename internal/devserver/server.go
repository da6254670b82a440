// Package devserver is an in-memory stand-in for the console backend. It
// reproduces the backend's inconsistent list envelopes, issues JWTs and
// enforces bearer authentication so the console can be exercised end to end.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/songzhibin97/adminconsole/pkg/console"
	"github.com/songzhibin97/adminconsole/pkg/log"
)

// Config configures the fake backend
type Config struct {
	Address     string        `yaml:"address"`
	Prefix      string        `yaml:"prefix"`
	Secret      string        `yaml:"secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	MetricsPath string        `yaml:"metrics_path"`
	// BcryptCost of 0 selects bcrypt.DefaultCost.
	BcryptCost int `yaml:"bcrypt_cost"`
	// LoginAttempts per client and LoginWindow before login answers 429.
	// Zero attempts disables the throttle.
	LoginAttempts int           `yaml:"login_attempts"`
	LoginWindow   time.Duration `yaml:"login_window"`
}

// DefaultConfig returns the default fake backend configuration
func DefaultConfig() Config {
	return Config{
		Address:       ":5000",
		Prefix:        "/api/v1",
		Secret:        "console-devserver-secret",
		TokenTTL:      time.Hour,
		MetricsPath:   "/metrics",
		LoginAttempts: 10,
		LoginWindow:   time.Minute,
	}
}

// Server is the fake backend
type Server struct {
	config   Config
	engine   *gin.Engine
	repo     *Repository
	tokens   *TokenIssuer
	throttle *loginThrottle
	logger   log.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec

	mu         sync.Mutex
	httpServer *http.Server
	running    bool
}

// New creates a fake backend. A nil logger discards logs.
func New(cfg Config, logger log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}

	tokens, err := NewTokenIssuer(cfg.Secret, cfg.TokenTTL, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "devserver",
		Name:      "requests_total",
		Help:      "Requests served by the fake console backend.",
	}, []string{"method", "route", "status"})
	if err := registry.Register(requests); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		config:   cfg,
		engine:   engine,
		repo:     NewRepository(NewPasswordHasher(cfg.BcryptCost)),
		tokens:   tokens,
		throttle: newLoginThrottle(cfg.LoginAttempts, cfg.LoginWindow),
		logger:   logger.With(log.Component("devserver")),
		registry: registry,
		requests: requests,
	}

	engine.Use(gin.Recovery(), s.observe())
	s.setupRoutes()
	return s, nil
}

// Handler returns the HTTP handler of the backend.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Repository exposes the backend's data for seeding and assertions.
func (s *Server) Repository() *Repository {
	return s.repo
}

// Tokens exposes the token issuer.
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

// Registry returns the backend's metrics registry.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("devserver is already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.running = true

	go func() {
		s.logger.Info("devserver listening", log.String("address", listener.Addr().String()))
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("devserver error", log.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the backend down
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("devserver shutdown: %w", err)
	}
	s.logger.Info("devserver stopped")
	return nil
}

func (s *Server) setupRoutes() {
	s.engine.GET(s.config.MetricsPath, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.engine.Group(s.config.Prefix)
	api.GET("/health", s.handleHealth)

	auth := api.Group("/auth")
	{
		auth.POST("/login", s.handleLogin)
		auth.POST("/register", s.handleRegister)
		auth.POST("/logout", s.requireAuth(), s.handleLogout)
	}

	api.GET("/users/profile", s.requireAuth(), s.handleProfile)

	admin := api.Group("", s.requireAuth(), s.requireRole(console.RoleAdmin))

	users := resourceRoutes[console.User]{
		table:     s.repo.Users,
		entityKey: "user",
		notFound:  "User not found",
		envelope:  usersEnvelope,
		update:    s.repo.UpdateUser,
		remove:    s.repo.DeleteUser,
	}
	users.register(admin.Group("/users"))

	missions := resourceRoutes[console.Mission]{
		table:     s.repo.Missions,
		entityKey: "mission",
		notFound:  "Mission template not found",
		envelope:  missionsEnvelope,
		creatable: true,
	}
	missions.register(admin.Group("/missions/templates"))

	protocols := resourceRoutes[console.Protocol]{
		table:     s.repo.Protocols,
		entityKey: "data",
		notFound:  "Protocol template not found",
		envelope:  protocolsEnvelope,
		creatable: true,
	}
	protocols.register(admin.Group("/protocols/templates"))

	mentors := resourceRoutes[console.Mentor]{
		table:     s.repo.Mentors,
		entityKey: "mentorData",
		notFound:  "Mentor not found",
		envelope:  mentorsEnvelope,
		creatable: true,
	}
	mentors.register(admin.Group("/mentors"))

	careerFields := resourceRoutes[console.CareerField]{
		table:     s.repo.CareerFields,
		entityKey: "careerField",
		notFound:  "Career field not found",
		creatable: true,
	}
	careerFields.register(admin.Group("/career-fields"))
}
