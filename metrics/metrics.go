package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for attendance and payroll.
type Metrics struct {
	CheckIns        *prometheus.CounterVec
	CheckInDistance prometheus.Histogram
	PayrollRuns     *prometheus.CounterVec
	PayrollDuration prometheus.Histogram
	RateLimited     prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "workforce_checkins_total",
			Help: "Recorded check-in submissions by direction and verification outcome",
		}, []string{"direction", "verified"}),
		CheckInDistance: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "workforce_checkin_distance_km",
			Help:    "Distance between reported position and location center",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 5, 25, 100, 1000},
		}),
		PayrollRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "workforce_payroll_runs_total",
			Help: "Payroll aggregation runs by outcome",
		}, []string{"outcome"}),
		PayrollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "workforce_payroll_duration_seconds",
			Help:    "Latency of payroll aggregation runs",
			Buckets: prometheus.DefBuckets,
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "workforce_rate_limited_total",
			Help: "Requests rejected by the check-in rate limiter",
		}),
	}
}

func (m *Metrics) ObserveCheckIn(direction string, verified bool, distanceKm float64) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(direction, strconv.FormatBool(verified)).Inc()
	m.CheckInDistance.Observe(distanceKm)
}

func (m *Metrics) ObservePayrollRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PayrollRuns.WithLabelValues(outcome).Inc()
	m.PayrollDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
