// Package server is the composition root: it opens the database, builds the
// services and handlers, mounts routes and middleware, and runs the HTTP
// server until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/accessai/internal/auth"
	"github.com/sakif/accessai/internal/cache"
	"github.com/sakif/accessai/internal/config"
	"github.com/sakif/accessai/internal/events"
	"github.com/sakif/accessai/internal/handler"
	"github.com/sakif/accessai/internal/llm"
	"github.com/sakif/accessai/internal/metrics"
	"github.com/sakif/accessai/internal/middleware"
	"github.com/sakif/accessai/internal/ratelimit"
	sqliteRepo "github.com/sakif/accessai/internal/repository/sqlite"
	"github.com/sakif/accessai/internal/service"
	"github.com/sakif/accessai/internal/tts"
)

// Deps are the external collaborators built by main. Optional ones fall back
// to no-op or in-process implementations when nil.
type Deps struct {
	Completer   llm.Completer
	Synthesizer tts.Synthesizer
	Publisher   events.Publisher     // nil: events.Nop
	Leaderboard cache.Leaderboard    // nil: cache.Nop
	Limiter     ratelimit.Store      // nil: in-memory fixed window
	GitHub      *auth.GitHubProvider // nil: GitHub sign-in routes are not mounted
}

// Server owns the router and the database. The database is closed when
// Start returns.
type Server struct {
	router *chi.Mux
	config config.Config
	deps   Deps
	logger *slog.Logger
	db     *sqliteRepo.DB
	memory *ratelimit.Memory // set when the server created its own limiter
}

func New(cfg config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Completer == nil {
		return nil, errors.New("server: a completer is required")
	}
	if deps.Synthesizer == nil {
		return nil, errors.New("server: a synthesizer is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}
	if deps.Leaderboard == nil {
		deps.Leaderboard = cache.Nop{}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
		db:     db,
	}
	if s.deps.Limiter == nil {
		s.memory = ratelimit.NewMemory(cfg.RateLimitRequests, cfg.RateLimitWindow)
		s.deps.Limiter = s.memory
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases what the server created itself.
func (s *Server) Close() error {
	if s.memory != nil {
		s.memory.Close()
	}
	return s.db.Close()
}

// setupRoutes mounts middleware and routes.
//
// Middleware order: RequestID, RealIP, Logger, Recoverer, Metrics and CORS
// wrap everything; the rate limiter wraps only the API group so health
// checks and scrapes are never throttled.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.JWTTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	production := s.config.IsProduction()

	accounts := service.NewAuthService(s.db, tokens, passwords, s.deps.Publisher, s.logger)
	gamification := service.NewGamificationService(s.db, s.deps.Leaderboard, s.deps.Publisher, s.logger)
	chat := service.NewChatService(s.deps.Completer, gamification, s.deps.Publisher, s.config.GuestCredits, s.logger)
	lessons := service.NewLessonService(s.deps.Completer, s.db, gamification, s.deps.Publisher, s.logger)

	authHandler := handler.NewAuthHandler(accounts, s.deps.GitHub, s.config.FrontendURL, production, s.logger)
	chatHandler := handler.NewChatHandler(chat, production, s.logger)
	ttsHandler := handler.NewTTSHandler(s.deps.Synthesizer, production, s.logger)
	pointsHandler := handler.NewPointsHandler(gamification, production, s.logger)
	learningHandler := handler.NewLearningHandler(lessons, production, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.config.Environment, s.logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.MustRegister(reg)

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", healthHandler.HandleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.deps.Limiter, s.logger))

		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/tts", ttsHandler.HandleSpeak)
		r.Get("/leaderboard", pointsHandler.HandleLeaderboard)
		r.Get("/learning-paths", learningHandler.HandleListPaths)
		r.Get("/learning-paths/{language}", learningHandler.HandleGetPath)
		r.Get("/badges", learningHandler.HandleBadges)

		r.With(auth.OptionalAuth(tokens, s.logger)).Post("/chat", chatHandler.HandleChat)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens, s.logger))
			r.Get("/profile", authHandler.HandleProfile)
			r.Post("/update-points", pointsHandler.HandleUpdatePoints)
			r.Post("/learning-paths/{language}/lessons/{id}/start", learningHandler.HandleStartLesson)
			r.Post("/learning-paths/{language}/lessons/{id}/challenge", learningHandler.HandleSubmitChallenge)
		})

		if s.deps.GitHub != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	return nil
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// chat and lesson generation wait on the provider
		WriteTimeout: s.config.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("environment", s.config.Environment),
			slog.String("database", s.config.DBPath),
			slog.Bool("githubLogin", s.deps.GitHub != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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
