package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kpi/internal/domain/auth"
	"kpi/internal/domain/criteria"
	"kpi/internal/domain/employees"
	"kpi/internal/domain/reports"
	"kpi/internal/domain/scoring"
	"kpi/internal/platform/config"
	"kpi/internal/platform/db"
	"kpi/internal/platform/jobs"
	"kpi/internal/platform/metrics"
	authhandler "kpi/internal/transport/http/handlers/auth"
	criteriahandler "kpi/internal/transport/http/handlers/criteria"
	employeeshandler "kpi/internal/transport/http/handlers/employees"
	jobshandler "kpi/internal/transport/http/handlers/jobs"
	reportshandler "kpi/internal/transport/http/handlers/reports"
	scoringhandler "kpi/internal/transport/http/handlers/scoring"
	"kpi/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Metrics *metrics.Collector
	Scoring *scoring.Service
	Jobs    *jobs.Service
	Router  http.Handler
	Logger  *slog.Logger
}

func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// New connects to the database, applies migrations and seed data when
// configured, and assembles the HTTP router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	app, err := NewWithPool(cfg, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return app, nil
}

// NewWithPool builds the services and router on an already prepared pool.
func NewWithPool(cfg config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	collector := metrics.New()

	celEval, err := scoring.NewCELEvaluator()
	if err != nil {
		return nil, fmt.Errorf("cel evaluator: %w", err)
	}
	engine := scoring.DialectEvaluator{
		SQL: scoring.NewSQLEvaluator(pool, cfg.EvalTimeout),
		CEL: celEval,
	}
	scoringSvc := scoring.NewService(scoring.NewStore(pool), engine, scoring.Options{
		EvalTimeout:     cfg.EvalTimeout,
		EvalConcurrency: cfg.EvalConcurrency,
		Metrics:         collector,
		Logger:          logger,
	})

	authSvc, err := auth.NewService(cfg.JWTSecret, cfg.AdminPasswordHash, cfg.AdminPassword, cfg.AdminSessionTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	directory := employees.NewService(employees.NewStore(pool))
	jobsSvc := jobs.New(jobs.NewStore(pool), cfg.JobQueueSize, logger)
	periodScoring := &jobs.PeriodScoring{Jobs: jobsSvc, Employees: directory, Scoring: scoringSvc}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(authSvc))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc).RegisterRoutes(r)
		employeeshandler.NewHandler(directory).RegisterRoutes(r)
		criteriahandler.NewHandler(criteria.NewService(criteria.NewStore(pool))).RegisterRoutes(r)
		scoringhandler.NewHandler(scoringSvc).RegisterRoutes(r)
		reportshandler.NewHandler(reports.NewService(scoringSvc)).RegisterRoutes(r)
		jobshandler.NewHandler(periodScoring).RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Metrics: collector,
		Scoring: scoringSvc,
		Jobs:    jobsSvc,
		Router:  router,
		Logger:  logger,
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()
	app.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("KPI server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			app.Logger.Error("server failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("shutdown failed", "err", err)
	}
}
