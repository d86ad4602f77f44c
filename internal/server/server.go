package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/ammarkhassawneh/mlops-accidents/internal/audit"
	"github.com/ammarkhassawneh/mlops-accidents/internal/auth"
	"github.com/ammarkhassawneh/mlops-accidents/internal/config"
	"github.com/ammarkhassawneh/mlops-accidents/internal/db"
	"github.com/ammarkhassawneh/mlops-accidents/internal/limiter"
	"github.com/ammarkhassawneh/mlops-accidents/internal/metrics"
	"github.com/ammarkhassawneh/mlops-accidents/internal/middleware"
	"github.com/ammarkhassawneh/mlops-accidents/internal/repository"
	sqliterepo "github.com/ammarkhassawneh/mlops-accidents/internal/repository/sqlite"
	"github.com/ammarkhassawneh/mlops-accidents/internal/scoring"
	"github.com/ammarkhassawneh/mlops-accidents/internal/service"
)

// Dependencies carries everything the HTTP layer needs. Production wiring
// comes from New; tests inject memory repositories and scoring stubs.
type Dependencies struct {
	Users       repository.UserRepository
	Predictions repository.PredictionRepository
	RequestLogs repository.RequestLogRepository
	Activity    repository.ActivityRepository
	TestResults repository.TestResultRepository
	Scorer      service.Scorer
	Limiter     middleware.RateLimiter // nil disables auth rate limiting
}

type Server struct {
	cfg         *config.Config
	users       *service.UserService
	predictions *service.PredictionService
	guard       *middleware.Guard
	observer    *middleware.Observer
	collector   *metrics.Collector
	rateLimit   middleware.Middleware
	logs        repository.RequestLogRepository
	testResults repository.TestResultRepository
	handler     http.Handler

	database    *db.DB
	redisClient *redis.Client
}

// New wires the production server: SQLite storage, Redis-backed auth rate
// limiting, and the real scoring client.
func New(cfg *config.Config) (*Server, error) {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	deps := Dependencies{
		Users:       sqliterepo.NewUserRepository(database),
		Predictions: sqliterepo.NewPredictionRepository(database),
		RequestLogs: sqliterepo.NewRequestLogRepository(database),
		Activity:    sqliterepo.NewActivityRepository(database),
		TestResults: sqliterepo.NewTestResultRepository(database),
		Scorer:      scoring.NewClient(cfg.ScoringURL, cfg.ScoringTimeout()),
		Limiter:     limiter.NewTokenBucketLimiter(rdb, cfg.AuthRateLimit, cfg.AuthRateWindow()),
	}

	s := NewWithDependencies(cfg, deps)
	s.database = database
	s.redisClient = rdb
	return s, nil
}

// NewWithDependencies assembles the server around injected dependencies.
func NewWithDependencies(cfg *config.Config, deps Dependencies) *Server {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL())
	recorder := audit.NewStoreRecorder(deps.Activity)
	collector := metrics.NewCollector()

	s := &Server{
		cfg:         cfg,
		users:       service.NewUserService(deps.Users, jwtManager, recorder),
		predictions: service.NewPredictionService(deps.Predictions, deps.Scorer, recorder),
		guard:       middleware.NewGuard(jwtManager, deps.Users),
		observer:    middleware.NewObserver(collector, deps.RequestLogs),
		collector:   collector,
		logs:        deps.RequestLogs,
		testResults: deps.TestResults,
	}
	if deps.Limiter != nil {
		s.rateLimit = middleware.RateLimit(deps.Limiter)
	}

	// Observer wraps the whole router so rejected and rate-limited
	// requests are counted and logged too; RealIP runs first so logs see
	// the client address, not the proxy's.
	s.handler = middleware.Chain(s.buildRouter(), chimw.RealIP, s.observer.Handle)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/ready", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints, per-client rate limited.
		r.Group(func(r chi.Router) {
			if s.rateLimit != nil {
				r.Use(s.rateLimit)
			}
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/token", s.handleLogin)
		})

		// Everything below requires a resolved principal.
		r.Group(func(r chi.Router) {
			r.Use(s.guard.Authenticate)

			r.With(s.guard.RequireSelfOrAdmin("id")).Get("/users/{id}", s.handleGetUser)

			r.Post("/predictions", s.handleCreatePrediction)
			r.Get("/predictions/{ownerID}", s.handleListPredictions)

			r.Post("/test_results", s.handleCreateTestResult)

			r.Group(func(r chi.Router) {
				r.Use(s.guard.RequireAdmin)

				r.Get("/admin/users", s.handleListUsers)
				r.Put("/admin/users/{id}", s.handleUpdateProfile)
				r.Put("/admin/users/{id}/rights", s.handleUpdateRights)
				r.Delete("/admin/users/{id}", s.handleDeleteUser)

				r.Get("/request_logs", s.handleRequestLogs)
				r.Get("/test_results", s.handleListTestResults)
			})
		})
	})

	return r
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, "Redis Unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	if s.database != nil {
		if err := s.database.PingContext(ctx); err != nil {
			http.Error(w, "Database Unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.collector.WriteExposition(w)
}

// Start runs the listener until a signal or a server error arrives, then
// shuts down gracefully.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.handler,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", s.cfg.ListenAddr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Printf("%v received, starting shutdown", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	s.Close()
	return nil
}

// Close releases the storage and limiter connections.
func (s *Server) Close() {
	if s.database != nil {
		s.database.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
}
