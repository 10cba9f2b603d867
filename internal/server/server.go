// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects handlers, middleware and
// routes, and decides
// - which URL patterns map to which handler functions
// - what middleware runs on which routes
// - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → sqlstore.DB (repository.Store)
//	             → auth.TokenService / PasswordService / Origins / GoogleProvider
//	             → service.*Service
//	             → handler.*Handler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hopon/hopon-api/internal/auth"
	"github.com/hopon/hopon-api/internal/config"
	"github.com/hopon/hopon-api/internal/handler"
	"github.com/hopon/hopon-api/internal/metrics"
	"github.com/hopon/hopon-api/internal/middleware"
	"github.com/hopon/hopon-api/internal/repository/sqlstore"
	"github.com/hopon/hopon-api/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database pool. Start closes it after the HTTP server
// has drained, so in-flight transactions finish first.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqlstore.DB
	registry *prometheus.Registry
}

// New creates a Server from cfg: it opens the database (applying
// migrations), optionally seeds demo data and registers every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := sqlstore.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	if cfg.SeedDemoData {
		if _, err := service.SeedDemoData(context.Background(), db, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("server: seeding demo data: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: registry,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}

	return s, nil
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: unique ID per request, picked up by the logger
//  2. RealIP: client IP from proxy headers, used by the rate limiter
//
// DEPLOYMENT NOTE:
// RealIP trusts True-Client-IP, X-Real-IP and X-Forwarded-For as sent.
// The server must sit behind a reverse proxy that overwrites those
// headers; exposed directly, a client can pick its own "IP" and step
// around the per-IP rate limit.
//  3. Recoverer: a panic becomes a 500 instead of killing the process
//  4. Logger, Metrics: one log line and one observation per request
//  5. CORS: answers preflights before anything touches the database
//  6. Identify: attaches the bearer user, if any, to the context
func (s *Server) setupRoutes() error {
	cfg := s.config

	// === AUTH PRIMITIVES ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret,
		auth.WithTTL(auth.KindAccess, cfg.AccessTTL),
		auth.WithTTL(auth.KindRefresh, cfg.RefreshTTL),
	)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	// OAuth state is signed with its own key so a leaked state token can
	// never be replayed as a session token.
	stateTokens, err := auth.NewTokenService(cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("creating state token service: %w", err)
	}

	origins := auth.NewOrigins(cfg.FrontendOrigins)

	var provider auth.OAuthProvider
	if cfg.GoogleConfigured() {
		provider = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	} else {
		s.logger.Warn("Google OAuth not configured; /auth/google/login is unavailable",
			slog.Bool("devGoogleLogin", cfg.DevGoogleLogin),
		)
	}

	rec := metrics.NewCollector(s.registry)

	// === SERVICES ===
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), rec,
		service.AuthOptions{Production: cfg.IsProduction(), DevGoogleLogin: cfg.DevGoogleLogin},
		s.logger,
	)
	userService := service.NewUserService(s.db, s.logger)
	eventService := service.NewEventService(s.db, rec, s.logger)
	socialService := service.NewSocialService(s.db, rec)
	adminService := service.NewAdminService(s.db, cfg.AdminSecret, s.logger)

	// === HANDLERS ===
	cookies := handler.CookieOptions{
		SameSite: cfg.CookieSameSite,
		Secure:   cfg.CookieSecure,
		MaxAge:   int(tokens.TTL(auth.KindRefresh).Seconds()),
	}
	authHandler := handler.NewAuthHandler(authService, userService, cookies, s.logger)
	oauthHandler := handler.NewOAuthHandler(provider, stateTokens, origins, authService, cookies, cfg.DevGoogleLogin, s.logger)
	eventHandler := handler.NewEventHandler(eventService, s.logger)
	userHandler := handler.NewUserHandler(userService, socialService, s.logger)
	adminHandler := handler.NewAdminHandler(adminService)

	limiter := middleware.NewRateLimiter(cfg.AuthRateLimit, rec)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics(rec))
	s.router.Use(middleware.CORS(origins))
	s.router.Use(auth.Identify(tokens, s.db))

	// === Operational ===
	s.router.Get("/health", handler.HandleHealth)
	s.router.Get("/ready", handler.HandleReady(s.db, s.logger))
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	// === Auth ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", oauthHandler.HandleLogin)
		r.Get("/google/callback", oauthHandler.HandleCallback)
		r.Get("/google/dev", oauthHandler.HandleDevLogin)

		r.With(limiter.Middleware).Post("/signup", authHandler.HandleSignup)
		r.With(limiter.Middleware).Post("/login", authHandler.HandleLogin)
		r.With(limiter.Middleware).Post("/demo-login", authHandler.HandleDemoLogin)

		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/session", authHandler.HandleSession)
		r.Get("/username-available", authHandler.HandleUsernameAvailable)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser)
			r.Delete("/delete-account", authHandler.HandleDeleteAccount)
			r.Patch("/profile", authHandler.HandleUpdateProfile)
			r.Post("/setup-account", authHandler.HandleSetupAccount)
		})
	})

	// === Events ===
	// /events/nearby is registered before /events/{id} for readability;
	// chi matches static segments first either way.
	s.router.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.HandleCreate)
		r.Get("/", eventHandler.HandleList)
		r.Get("/nearby", eventHandler.HandleNearby)
		r.Get("/{id}", eventHandler.HandleGet)
		r.Post("/{id}/join", eventHandler.HandleJoin)
		r.Post("/{id}/leave", eventHandler.HandleLeave)
		r.Get("/{id}/participants", eventHandler.HandleParticipants)
	})
	s.router.Get("/me/events", eventHandler.HandleMyEvents)

	// === Users ===
	s.router.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.HandleCreate)
		r.Get("/nearby", userHandler.HandleDiscover)
		r.Get("/{id}", userHandler.HandleGet)
		r.Post("/{id}/follow", userHandler.HandleFollow)
		r.Delete("/{id}/follow", userHandler.HandleUnfollow)
	})

	// === Admin ===
	s.router.Post("/admin/delete-user-by-username/{username}", adminHandler.HandleDeleteUserByUsername)

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database pool
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", string(s.db.Dialect())),
			slog.Any("origins", s.config.FrontendOrigins),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
