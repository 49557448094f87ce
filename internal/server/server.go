// Package server sets up the HTTP server, router, and all route definitions.
//
// It is the composition root: New opens the database, builds the services
// on top of it and hands them to the handlers. Nothing else in the codebase
// constructs a service.
//
//	sqlite.DB → AuthService / LessonService / QuizService / ProgressService / AdminService
//	         → Account / Lesson / Admin handlers → chi routes under /api/v1
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/codewizard/internal/auth"
	"github.com/sakif/codewizard/internal/handler"
	"github.com/sakif/codewizard/internal/middleware"
	sqliteRepo "github.com/sakif/codewizard/internal/repository/sqlite"
	"github.com/sakif/codewizard/internal/service"
)

const serviceName = "codewizard"

// Config holds what the server needs at construction. The CLI fills it
// from config.Config.
type Config struct {
	Port            int
	DBPath          string
	Version         string
	ShutdownTimeout time.Duration

	TokenLength   int
	TokenLifetime time.Duration
	BcryptCost    int
	HashWorkers   int
	SweepInterval time.Duration

	// Redis backs the login/register rate limiter. nil disables limiting.
	// The caller owns the client and closes it.
	Redis      redis.Cmdable
	RateLimit  int
	RateWindow time.Duration
}

// Server owns the database connection and the router. Close releases the
// database; Run does so on return.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	sweeper *service.SessionSweeper
}

// New opens the database, applies migrations and wires every route.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures middleware and routes.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID first, so every later log line can carry the id
//  2. RealIP before Logger and the rate limiter, which both read RemoteAddr
//  3. Logger outside Recoverer, so a recovered panic is still logged as 500
//
// Inside /api/v1 the guards nest the same way: RequireAuth binds the user,
// RecordIdentity copies it to the log line, RequireAdmin reads it.
func (s *Server) setupRoutes() {
	hasher := auth.NewHasher(auth.NewPasswordService(s.config.BcryptCost), s.config.HashWorkers)
	tokens := auth.NewTokenIssuer(s.config.TokenLength, s.config.TokenLifetime)

	accounts := service.NewAuthService(s.db, hasher, tokens, s.logger)
	lessons := service.NewLessonService(s.db, s.db, s.logger)
	quizzes := service.NewQuizService(s.db, s.db, s.db, s.logger)
	progress := service.NewProgressService(s.db, s.db, s.logger)
	admin := service.NewAdminService(s.db, s.db, s.logger)
	s.sweeper = service.NewSessionSweeper(admin, s.logger)

	indexHandler := handler.NewIndexHandler(serviceName, s.config.Version, s.db, s.logger)
	accountHandler := handler.NewAccountHandler(accounts, s.logger)
	lessonHandler := handler.NewLessonHandler(lessons, quizzes, progress, s.logger)
	adminHandler := handler.NewAdminHandler(admin, accounts, lessons, quizzes, s.logger)

	var limiter *middleware.RateLimiter
	if s.config.Redis != nil {
		limiter = middleware.NewRateLimiter(s.config.Redis, s.config.RateLimit, s.config.RateWindow, s.logger)
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/", indexHandler.HandleIndex)

		r.With(limiter.Limit("register")).Post("/register", accountHandler.HandleRegister)
		r.With(limiter.Limit("login")).Post("/login", accountHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(accounts, s.logger))
			r.Use(middleware.RecordIdentity)

			r.Get("/profile", accountHandler.HandleProfile)
			r.Put("/profile", accountHandler.HandleUpdateProfile)
			r.Put("/profile/password", accountHandler.HandleChangePassword)
			r.Post("/logout", accountHandler.HandleLogout)

			r.Get("/lessons", lessonHandler.HandleList)
			r.Route("/lessons/{id}", func(r chi.Router) {
				r.Get("/", lessonHandler.HandleGet)
				r.Get("/quiz", lessonHandler.HandleQuiz)
				r.Post("/quiz/submit", lessonHandler.HandleSubmitQuiz)
				r.Post("/progress", lessonHandler.HandleSaveProgress)
				r.Get("/progress", lessonHandler.HandleLessonProgress)
				r.Get("/hints", lessonHandler.HandleHints)
			})
			r.Get("/progress", lessonHandler.HandleProgress)
			r.Get("/quiz-submissions", lessonHandler.HandleSubmissions)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Get("/", adminHandler.HandleDashboard)
				r.Get("/stats", adminHandler.HandleDashboard)

				r.Get("/users", adminHandler.HandleListUsers)
				r.Delete("/users/{id}", adminHandler.HandleDeleteUser)
				r.Post("/users/{id}/admin", adminHandler.HandlePromote)
				r.Delete("/users/{id}/admin", adminHandler.HandleDemote)
				r.Post("/users/{id}/verify", adminHandler.HandleVerify)
				r.Post("/users/{id}/ban", adminHandler.HandleBan)

				r.Post("/lessons", adminHandler.HandleCreateLesson)
				r.Put("/lessons/{id}", adminHandler.HandleUpdateLesson)
				r.Delete("/lessons/{id}", adminHandler.HandleDeleteLesson)
				r.Post("/lessons/{id}/quiz", adminHandler.HandleCreateQuiz)
				r.Post("/lessons/{id}/hints", adminHandler.HandleCreateHint)
				r.Put("/quizzes/{id}", adminHandler.HandleUpdateQuiz)
			})
		})
	})
}

// Handler returns the router wrapped in OpenTelemetry instrumentation.
// With no tracer provider registered the wrapper is a no-op.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, serviceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Run serves HTTP and sweeps expired sessions until ctx is cancelled, then
// shuts down gracefully:
//  1. stop accepting connections and drain in-flight requests
//  2. stop the sweeper
//  3. close the database
func (s *Server) Run(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api/v1/", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("rate_limited", s.config.Redis != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return s.sweeper.Run(gctx, s.config.SweepInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}

// Close releases the database. Only needed when Run was never called.
func (s *Server) Close() error {
	return s.db.Close()
}
