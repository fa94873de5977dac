package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"workforce/metrics"
	"workforce/middleware"
	"workforce/models"
)

// RouterDeps are the collaborators the HTTP surface is built from.
type RouterDeps struct {
	Auth      *middleware.Authenticator
	Limiter   middleware.Limiter
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Log       *zap.Logger
	DB        Pinger
	Login     *AuthHandler
	CheckIns  *CheckInHandler
	Locations *LocationHandler
	Payroll   *PayrollHandler
	Shifts    *ShiftHandler

	CheckInRateLimit  int
	CheckInRatePeriod time.Duration
}

func NewRouter(d RouterDeps) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	// Public routes
	router.Get("/healthz", Healthz(d.DB))
	if d.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	router.Post("/auth/login", d.Login.Login)

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(d.Auth.Middleware)

		r.With(middleware.RateLimit(d.Limiter, d.CheckInRateLimit, d.CheckInRatePeriod, d.Metrics, d.Log)).
			Post("/checkins", d.CheckIns.Create)
		r.Get("/checkins", d.CheckIns.Recent)
		r.Get("/locations", d.Locations.List)
		r.Get("/dashboard/earnings", d.Payroll.Earnings)
		r.Get("/dashboard/schedule/{year}/{month}", d.Shifts.Schedule)
		r.Get("/shifts", d.Shifts.List)

		// Admin only routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Get("/payroll", d.Payroll.Generate)
			r.Get("/payroll/export", d.Payroll.Export)
			r.Post("/payroll/records", d.Payroll.CreateRecords)
			r.Get("/payroll/records", d.Payroll.ListRecords)
			r.Post("/shifts", d.Shifts.Create)
			r.Put("/shifts/{id}", d.Shifts.Update)
			r.Delete("/shifts/{id}", d.Shifts.Delete)
		})
	})

	return router
}
