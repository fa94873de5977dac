package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"workforce/attendance"
	"workforce/config"
	"workforce/database"
	"workforce/handlers"
	"workforce/logger"
	"workforce/metrics"
	"workforce/middleware"
	"workforce/payroll"
	"workforce/schedule"
)

// Run wires the service and serves until ctx is cancelled.
func Run(ctx context.Context) error {
	// Load configuration
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	// Initialize database
	db, err := database.Open(cfg, log)
	if err != nil {
		log.Error("failed to initialize database", zap.Error(err))
		return err
	}
	store := database.NewStore(db, cfg.StoreTimeout)

	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	rdb, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, using in-memory rate limiting", zap.Error(err))
	} else if rdb != nil {
		defer func() { _ = rdb.Close() }()
		limiter = middleware.NewRedisLimiter(rdb)
		log.Info("redis connection established for rate limiting")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	validate := validator.New()
	policy := payroll.Policy{
		HourlyRate:         cfg.HourlyRate,
		HoursPerEvent:      cfg.HoursPerEvent,
		WeeklyThreshold:    cfg.WeeklyThreshold,
		OvertimeMultiplier: cfg.OvertimeMultiplier,
	}
	if err := policy.Validate(); err != nil {
		log.Error("invalid payroll policy", zap.Error(err))
		return err
	}

	// Initialize services and handlers
	recorder := attendance.NewService(store, log,
		attendance.WithMetrics(m),
		attendance.WithValidator(validate),
	)
	aggregator := payroll.NewAggregator(store, log,
		payroll.WithMetrics(m),
		payroll.WithWorkers(cfg.PayrollWorkers),
		payroll.WithRecordStore(store),
	)
	scheduler := schedule.NewService(store, log, schedule.WithValidator(validate))
	auth := middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTExpiration, store, log)

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:      auth,
		Limiter:   limiter,
		Metrics:   m,
		Gatherer:  prometheus.DefaultGatherer,
		Log:       log,
		DB:        store,
		Login:     handlers.NewAuthHandler(store, auth, validate, log),
		CheckIns:  handlers.NewCheckInHandler(recorder, log),
		Locations: handlers.NewLocationHandler(store, log),
		Payroll:   handlers.NewPayrollHandler(aggregator, policy, log),
		Shifts:    handlers.NewShiftHandler(scheduler, log),

		CheckInRateLimit:  cfg.CheckInRateLimit,
		CheckInRatePeriod: cfg.CheckInRatePeriod,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctxShutdown)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx); err != nil {
		os.Exit(1)
	}
}
