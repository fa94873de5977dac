// Package payroll aggregates verified attendance into hours and pay.
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"workforce/apperror"
	"workforce/metrics"
	"workforce/models"
)

const defaultWorkers = 4

// Source is the read side of persistence used by the aggregator. Users
// returns users ordered by id; an empty ids slice means every user.
type Source interface {
	Users(ctx context.Context, ids []uint) ([]models.User, error)
	VerifiedCheckIns(ctx context.Context, filter models.CheckInFilter) ([]models.CheckIn, error)
}

// RecordStore persists payroll history. CreatePayrollRecords writes all
// records in one transaction.
type RecordStore interface {
	CreatePayrollRecords(ctx context.Context, records []models.PayrollRecord) error
	PayrollRecords(ctx context.Context, userID uint) ([]models.PayrollRecord, error)
}

// Request selects users and a window. Empty UserIDs means all users.
type Request struct {
	UserIDs []uint
	Period  Period
	Policy  Policy
}

type Entry struct {
	UserID      uint   `json:"user_id"`
	DisplayName string `json:"name"`
	Figures
	HourlyRate  float64   `json:"hourly_rate"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

type Totals struct {
	Users         int     `json:"users"`
	HoursWorked   float64 `json:"hours_worked"`
	OvertimeHours float64 `json:"overtime_hours"`
	RegularPay    float64 `json:"regular_pay"`
	OvertimePay   float64 `json:"overtime_pay"`
	TotalPay      float64 `json:"total_pay"`
}

type Report struct {
	Period  Period  `json:"period"`
	Policy  Policy  `json:"policy"`
	Entries []Entry `json:"entries"`
	Totals  Totals  `json:"totals"`
}

// Earnings is the single-user dashboard view for the month containing now.
type Earnings struct {
	Current     Entry     `json:"current"`
	YTDEarnings float64   `json:"ytd_earnings"`
	NextPayday  time.Time `json:"next_payday"`
}

type Aggregator struct {
	source  Source
	records RecordStore
	log     *zap.Logger
	metrics *metrics.Metrics
	workers int
}

type Option func(*Aggregator)

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithWorkers bounds how many users are read concurrently.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

func WithRecordStore(rs RecordStore) Option {
	return func(a *Aggregator) { a.records = rs }
}

func NewAggregator(source Source, log *zap.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{source: source, log: log, workers: defaultWorkers}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Compute builds one entry per selected user, in the order users were
// fetched. A failure reading any user discards the whole batch.
func (a *Aggregator) Compute(ctx context.Context, req Request) (Report, error) {
	started := time.Now()
	report, err := a.compute(ctx, req)
	outcome := "success"
	if err != nil {
		outcome = "error"
		a.log.Error("payroll aggregation failed",
			zap.Int("requested_users", len(req.UserIDs)),
			zap.String("kind", string(apperror.KindOf(err))),
			zap.Error(err))
	} else {
		a.log.Info("payroll aggregated",
			zap.Int("users", report.Totals.Users),
			zap.Float64("total_pay", report.Totals.TotalPay),
			zap.Duration("duration", time.Since(started)))
	}
	a.metrics.ObservePayrollRun(outcome, time.Since(started))
	return report, err
}

func (a *Aggregator) compute(ctx context.Context, req Request) (Report, error) {
	if err := req.Policy.Validate(); err != nil {
		return Report{}, err
	}
	if err := req.Period.Validate(); err != nil {
		return Report{}, err
	}

	ids := dedupe(req.UserIDs)
	users, err := a.source.Users(ctx, ids)
	if err != nil {
		return Report{}, apperror.Wrap(err, apperror.KindAggregation, "failed to load users")
	}
	if missing := missingIDs(ids, users); len(missing) > 0 {
		return Report{}, apperror.New(apperror.KindUserNotFound, fmt.Sprintf("users not found: %v", missing))
	}

	entries := make([]Entry, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range users {
		i := i // per-iteration copy (go 1.21 loop semantics)
		user := users[i]
		g.Go(func() error {
			events, err := a.source.VerifiedCheckIns(gctx, req.Period.filter(user.ID))
			if err != nil {
				return fmt.Errorf("user %d: %w", user.ID, err)
			}
			entries[i] = newEntry(user, countVerified(events, req.Period), req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, apperror.Wrap(err, apperror.KindAggregation, "failed to aggregate payroll")
	}

	return Report{
		Period:  req.Period,
		Policy:  req.Policy,
		Entries: entries,
		Totals:  sum(entries),
	}, nil
}

// Earnings reports the month-to-date entry, year-to-date earnings and the
// next payday for one user, relative to now.
func (a *Aggregator) Earnings(ctx context.Context, userID uint, now time.Time, policy Policy) (Earnings, error) {
	report, err := a.Compute(ctx, Request{UserIDs: []uint{userID}, Period: MonthToDate(now), Policy: policy})
	if err != nil {
		return Earnings{}, err
	}

	ytd := YearToDate(now)
	events, err := a.source.VerifiedCheckIns(ctx, ytd.filter(userID))
	if err != nil {
		return Earnings{}, apperror.Wrap(err, apperror.KindAggregation, "failed to load year-to-date check-ins")
	}
	ytdHours := float64(countVerified(events, ytd)) * policy.HoursPerEvent

	return Earnings{
		Current:     report.Entries[0],
		YTDEarnings: roundCents(ytdHours * policy.HourlyRate),
		NextPayday:  NextPayday(now),
	}, nil
}

// Persist appends report's entries as payroll history under a new run id.
func (a *Aggregator) Persist(ctx context.Context, report Report) (uuid.UUID, []models.PayrollRecord, error) {
	if a.records == nil {
		return uuid.Nil, nil, apperror.New(apperror.KindInternal, "payroll history is not configured")
	}
	runID := uuid.New()
	records := make([]models.PayrollRecord, 0, len(report.Entries))
	for _, e := range report.Entries {
		records = append(records, models.PayrollRecord{
			RunID:         runID,
			UserID:        e.UserID,
			PeriodStart:   bound(e.PeriodStart),
			PeriodEnd:     bound(e.PeriodEnd),
			HoursWorked:   e.HoursWorked,
			RegularHours:  e.RegularHours,
			OvertimeHours: e.OvertimeHours,
			HourlyRate:    e.HourlyRate,
			RegularPay:    e.RegularPay,
			OvertimePay:   e.OvertimePay,
			TotalPay:      e.TotalPay,
		})
	}
	if len(records) == 0 {
		return runID, records, nil
	}
	if err := a.records.CreatePayrollRecords(ctx, records); err != nil {
		return uuid.Nil, nil, apperror.Wrap(err, apperror.KindPersistence, "failed to store payroll records")
	}
	a.log.Info("payroll records stored", zap.String("run_id", runID.String()), zap.Int("records", len(records)))
	return runID, records, nil
}

// Records lists stored payroll history, newest first. userID 0 lists all.
func (a *Aggregator) Records(ctx context.Context, userID uint) ([]models.PayrollRecord, error) {
	if a.records == nil {
		return nil, apperror.New(apperror.KindInternal, "payroll history is not configured")
	}
	records, err := a.records.PayrollRecords(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindPersistence, "failed to load payroll records")
	}
	return records, nil
}

func newEntry(user models.User, events int, req Request) Entry {
	return Entry{
		UserID:      user.ID,
		DisplayName: user.DisplayName(),
		Figures:     Calculate(events, req.Policy),
		HourlyRate:  req.Policy.HourlyRate,
		PeriodStart: req.Period.Start,
		PeriodEnd:   req.Period.End,
	}
}

func bound(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// countVerified counts events that are verified and inside p, whatever the
// source returned.
func countVerified(events []models.CheckIn, p Period) int {
	n := 0
	for _, e := range events {
		if e.IsVerified && p.Contains(e.CreatedAt) {
			n++
		}
	}
	return n
}

func sum(entries []Entry) Totals {
	t := Totals{Users: len(entries)}
	for _, e := range entries {
		t.HoursWorked += e.HoursWorked
		t.OvertimeHours += e.OvertimeHours
		t.RegularPay += e.RegularPay
		t.OvertimePay += e.OvertimePay
		t.TotalPay += e.TotalPay
	}
	t.RegularPay = roundCents(t.RegularPay)
	t.OvertimePay = roundCents(t.OvertimePay)
	t.TotalPay = roundCents(t.TotalPay)
	return t
}

func dedupe(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(ids []uint, users []models.User) []uint {
	if len(ids) == 0 {
		return nil
	}
	found := make(map[uint]struct{}, len(users))
	for _, u := range users {
		found[u.ID] = struct{}{}
	}
	var missing []uint
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
