package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"workforce/apperror"
	"workforce/attendance"
	"workforce/metrics"
	"workforce/middleware"
	"workforce/models"
	"workforce/payroll"
	"workforce/schedule"
	"workforce/sentinel"
)

type fakeUsers struct {
	byID map[uint]models.User
}

func (f *fakeUsers) FindUserByID(_ context.Context, id uint) (models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return models.User{}, sentinel.ErrNotFound
}

func (f *fakeUsers) FindUserByUsername(_ context.Context, username string) (models.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, sentinel.ErrNotFound
}

type fakeRecorder struct {
	got    attendance.Submission
	out    attendance.Outcome
	err    error
	recent []models.CheckIn
	limit  int
}

func (f *fakeRecorder) Record(_ context.Context, sub attendance.Submission) (attendance.Outcome, error) {
	f.got = sub
	return f.out, f.err
}

func (f *fakeRecorder) Recent(_ context.Context, _ uint, limit int) ([]models.CheckIn, error) {
	f.limit = limit
	return f.recent, f.err
}

type fakePayroll struct {
	req      payroll.Request
	report   payroll.Report
	err      error
	runID    uuid.UUID
	records  []models.PayrollRecord
	earnings payroll.Earnings
	earnUser uint
}

func (f *fakePayroll) Compute(_ context.Context, req payroll.Request) (payroll.Report, error) {
	f.req = req
	return f.report, f.err
}

func (f *fakePayroll) Earnings(_ context.Context, userID uint, _ time.Time, _ payroll.Policy) (payroll.Earnings, error) {
	f.earnUser = userID
	return f.earnings, f.err
}

func (f *fakePayroll) Persist(_ context.Context, _ payroll.Report) (uuid.UUID, []models.PayrollRecord, error) {
	return f.runID, f.records, f.err
}

func (f *fakePayroll) Records(_ context.Context, _ uint) ([]models.PayrollRecord, error) {
	return f.records, f.err
}

type fakeLocations struct {
	locations []models.Location
}

func (f fakeLocations) Locations(context.Context) ([]models.Location, error) {
	return f.locations, nil
}

type fakeShifts struct {
	filter    models.ShiftFilter
	created   schedule.NewShift
	createdBy uint
	updatedID uint
	update    schedule.ShiftUpdate
	deleted   uint
	monthUser uint
	year      int
	month     int
	err       error
}

func (f *fakeShifts) List(_ context.Context, filter models.ShiftFilter) ([]models.Shift, error) {
	f.filter = filter
	return []models.Shift{{ID: 3, UserID: filter.UserID}}, f.err
}

func (f *fakeShifts) Create(_ context.Context, in schedule.NewShift, createdBy uint) (models.Shift, error) {
	f.created, f.createdBy = in, createdBy
	return models.Shift{ID: 3, UserID: in.UserID, Status: models.ShiftScheduled}, f.err
}

func (f *fakeShifts) Update(_ context.Context, id uint, upd schedule.ShiftUpdate) (models.Shift, error) {
	f.updatedID, f.update = id, upd
	return models.Shift{ID: id}, f.err
}

func (f *fakeShifts) Delete(_ context.Context, id uint) error {
	f.deleted = id
	return f.err
}

func (f *fakeShifts) Month(_ context.Context, userID uint, year, month int) ([]schedule.Day, error) {
	f.monthUser, f.year, f.month = userID, year, month
	return []schedule.Day{{Date: "2026-02-01", Off: true, Shifts: []models.Shift{}}}, f.err
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type RouterSuite struct {
	suite.Suite
	auth     *middleware.Authenticator
	recorder *fakeRecorder
	payroll  *fakePayroll
	shifts   *fakeShifts
	router   http.Handler
	employee models.User
	admin    models.User
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := zaptest.NewLogger(s.T())
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	s.Require().NoError(err)

	s.employee = models.User{ID: 5, Username: "alice", FullName: "Alice", PasswordHash: string(hash), Role: models.RoleEmployee}
	s.admin = models.User{ID: 1, Username: "admin", PasswordHash: string(hash), Role: models.RoleAdmin}
	users := &fakeUsers{byID: map[uint]models.User{5: s.employee, 1: s.admin}}

	s.auth = middleware.NewAuthenticator("test-secret", time.Hour, users, log)
	s.recorder = &fakeRecorder{}
	s.payroll = &fakePayroll{}
	s.shifts = &fakeShifts{}
	reg := prometheus.NewRegistry()

	s.router = NewRouter(RouterDeps{
		Auth:      s.auth,
		Limiter:   middleware.NewMemoryLimiter(),
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
		Log:       log,
		DB:        pinger{},
		Login:     NewAuthHandler(users, s.auth, validator.New(), log),
		CheckIns:  NewCheckInHandler(s.recorder, log),
		Locations: NewLocationHandler(fakeLocations{locations: []models.Location{{ID: 7, Name: "HQ", RadiusKm: 0.1}}}, log),
		Payroll:   NewPayrollHandler(s.payroll, payroll.DefaultPolicy(15), log),
		Shifts:    NewShiftHandler(s.shifts, log),

		CheckInRateLimit:  3,
		CheckInRatePeriod: time.Minute,
	})
}

func (s *RouterSuite) do(method, target string, body any, user *models.User) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := s.auth.GenerateToken(user)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *RouterSuite) TestLogin() {
	rec := s.do(http.MethodPost, "/auth/login", map[string]string{"username": "alice", "password": "s3cret"}, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	body := decode(s.T(), rec)
	s.Equal(true, body["success"])

	claims, err := s.auth.ValidateToken(body["token"].(string))
	s.Require().NoError(err)
	s.Equal(uint(5), claims.UserID)
	s.NotContains(rec.Body.String(), "password")
}

func (s *RouterSuite) TestLoginRejected() {
	tests := []struct {
		name string
		body map[string]string
		code int
	}{
		{"wrong password", map[string]string{"username": "alice", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"username": "mallory", "password": "s3cret"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"username": "alice"}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			rec := s.do(http.MethodPost, "/auth/login", tc.body, nil)
			s.Equal(tc.code, rec.Code)
			s.Equal(false, decode(s.T(), rec)["success"])
		})
	}
}

func (s *RouterSuite) TestCheckInRequiresAuth() {
	rec := s.do(http.MethodPost, "/checkins", map[string]any{"location_id": 7}, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestCheckInVerified() {
	s.recorder.out = attendance.Outcome{
		Success: true,
		Event:   models.CheckIn{ID: 41, UserID: 5, LocationID: 7, Direction: models.DirectionIn, IsVerified: true},
	}

	rec := s.do(http.MethodPost, "/checkins", map[string]any{"location_id": 7, "latitude": 40.7128, "longitude": -74.0060}, &s.employee)

	s.Require().Equal(http.StatusCreated, rec.Code)
	body := decode(s.T(), rec)
	s.Equal(true, body["success"])
	s.Equal("Check-in successful", body["message"])
	data := body["data"].(map[string]any)
	s.Equal(41.0, data["id"])
	s.Equal(true, data["is_verified"])

	s.Equal(uint(5), s.recorder.got.UserID, "user comes from the token")
	s.Require().NotNil(s.recorder.got.Latitude)
	s.Equal(40.7128, *s.recorder.got.Latitude)
}

func (s *RouterSuite) TestCheckInOutOfRadiusIsStillCreated() {
	s.recorder.out = attendance.Outcome{
		Success: false,
		Event:   models.CheckIn{ID: 42, IsVerified: false, DistanceKm: 3935.75},
	}

	rec := s.do(http.MethodPost, "/checkins", map[string]any{"location_id": 7, "latitude": 34.05, "longitude": -118.24}, &s.employee)

	s.Require().Equal(http.StatusCreated, rec.Code)
	body := decode(s.T(), rec)
	s.Equal(false, body["success"])
	s.Contains(body["message"], "not within the allowed radius")
	s.Equal(3935.75, body["data"].(map[string]any)["distance_km"])
}

func (s *RouterSuite) TestCheckInErrors() {
	tests := []struct {
		name       string
		err        error
		code       int
		kind       string
		retryAfter bool
	}{
		{"validation", apperror.New(apperror.KindValidation, "invalid check-in submission"), http.StatusBadRequest, "validation", false},
		{"bad coordinate", apperror.New(apperror.KindInvalidCoordinate, "latitude out of range"), http.StatusBadRequest, "invalid_coordinate", false},
		{"unknown location", apperror.New(apperror.KindLocationNotFound, "location not found"), http.StatusNotFound, "location_not_found", false},
		{"store down", apperror.Wrap(errors.New("conn reset"), apperror.KindPersistence, "failed to store check-in"), http.StatusServiceUnavailable, "persistence", true},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal", false},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.recorder.err = tc.err

			rec := s.do(http.MethodPost, "/checkins", map[string]any{"location_id": 7, "latitude": 1, "longitude": 1}, &s.employee)

			s.Equal(tc.code, rec.Code)
			body := decode(s.T(), rec)
			s.Equal(false, body["success"])
			s.Equal(tc.kind, body["kind"])
			s.Equal(tc.retryAfter, rec.Header().Get("Retry-After") != "")
			s.NotContains(body["error"], "conn reset")
			s.NotContains(body["error"], "boom")
		})
	}
}

func (s *RouterSuite) TestCheckInMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/checkins", strings.NewReader("{not json"))
	token, err := s.auth.GenerateToken(&s.employee)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestCheckInRateLimited() {
	s.recorder.out = attendance.Outcome{Success: true}
	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := s.do(http.MethodPost, "/checkins", map[string]any{"location_id": 7, "latitude": 1, "longitude": 1}, &s.employee)
		codes = append(codes, rec.Code)
	}
	s.Equal([]int{201, 201, 201, 429}, codes)
}

func (s *RouterSuite) TestRecentCheckIns() {
	s.recorder.recent = []models.CheckIn{{ID: 2}, {ID: 1}}

	rec := s.do(http.MethodGet, "/checkins?limit=2", nil, &s.employee)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(decode(s.T(), rec)["data"], 2)
	s.Equal(2, s.recorder.limit)

	rec = s.do(http.MethodGet, "/checkins?limit=abc", nil, &s.employee)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestLocations() {
	rec := s.do(http.MethodGet, "/locations", nil, &s.employee)
	s.Require().Equal(http.StatusOK, rec.Code)
	data := decode(s.T(), rec)["data"].([]any)
	s.Require().Len(data, 1)
	s.Equal(0.1, data[0].(map[string]any)["radius"])
}

func (s *RouterSuite) TestPayrollRequiresAdmin() {
	rec := s.do(http.MethodGet, "/payroll", nil, &s.employee)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *RouterSuite) TestPayrollGenerate() {
	s.payroll.report = payroll.Report{
		Entries: []payroll.Entry{{UserID: 5, DisplayName: "Alice", Figures: payroll.Calculate(3, payroll.DefaultPolicy(15))}},
		Totals:  payroll.Totals{Users: 1, HoursWorked: 24, TotalPay: 360},
	}

	rec := s.do(http.MethodGet, "/payroll?start_date=2026-03-01&end_date=2026-03-31&user_id=5", nil, &s.admin)

	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal([]uint{5}, s.payroll.req.UserIDs)
	s.Equal(15.0, s.payroll.req.Policy.HourlyRate)
	s.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), s.payroll.req.Period.Start)
	data := decode(s.T(), rec)["data"].(map[string]any)
	s.Equal(360.0, data["totals"].(map[string]any)["total_pay"])
	entry := data["entries"].([]any)[0].(map[string]any)
	s.Equal(360.0, entry["total_pay"])
	s.Equal(24.0, entry["hours_worked"])
}

func (s *RouterSuite) TestPayrollBadInput() {
	tests := []string{
		"/payroll?start_date=2026-03-01",
		"/payroll?end_date=2026-03-31",
		"/payroll?start_date=2026-04-01&end_date=2026-03-01",
		"/payroll?start_date=yesterday&end_date=2026-03-01",
		"/payroll?user_id=abc",
	}
	for _, target := range tests {
		s.Run(target, func() {
			rec := s.do(http.MethodGet, target, nil, &s.admin)
			s.Equal(http.StatusBadRequest, rec.Code)
			s.Equal("validation", decode(s.T(), rec)["kind"])
		})
	}
}

func (s *RouterSuite) TestPayrollAggregationFailure() {
	s.payroll.err = apperror.Wrap(errors.New("user 3: timeout"), apperror.KindAggregation, "failed to aggregate payroll")

	rec := s.do(http.MethodGet, "/payroll", nil, &s.admin)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Equal("aggregation", decode(s.T(), rec)["kind"])
}

func (s *RouterSuite) TestPayrollExportCSV() {
	s.payroll.report = payroll.Report{
		Entries: []payroll.Entry{{UserID: 5, DisplayName: "Alice", Figures: payroll.Calculate(6, payroll.DefaultPolicy(15)), HourlyRate: 15}},
		Totals:  payroll.Totals{Users: 1, HoursWorked: 48, OvertimeHours: 8, RegularPay: 600, OvertimePay: 180, TotalPay: 780},
	}

	rec := s.do(http.MethodGet, "/payroll/export?format=csv", nil, &s.admin)

	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("text/csv", rec.Header().Get("Content-Type"))
	s.Contains(rec.Header().Get("Content-Disposition"), "payroll_all.csv")
	s.Contains(rec.Body.String(), "Alice,5")
	s.Contains(rec.Body.String(), "TOTAL")
}

func (s *RouterSuite) TestPayrollExportUnknownFormat() {
	rec := s.do(http.MethodGet, "/payroll/export?format=pdf", nil, &s.admin)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestPayrollRecords() {
	s.payroll.runID = uuid.New()
	s.payroll.records = []models.PayrollRecord{{RunID: s.payroll.runID, UserID: 5, TotalPay: 360}}

	rec := s.do(http.MethodPost, "/payroll/records?start_date=2026-03-01&end_date=2026-03-07", nil, &s.admin)
	s.Require().Equal(http.StatusCreated, rec.Code)
	body := decode(s.T(), rec)
	s.Equal(s.payroll.runID.String(), body["run_id"])

	rec = s.do(http.MethodGet, "/payroll/records?user_id=5", nil, &s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Len(decode(s.T(), rec)["data"], 1)
}

func (s *RouterSuite) TestEarnings() {
	s.payroll.earnings = payroll.Earnings{YTDEarnings: 360, NextPayday: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)}

	rec := s.do(http.MethodGet, "/dashboard/earnings", nil, &s.employee)

	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(uint(5), s.payroll.earnUser)
	data := decode(s.T(), rec)["data"].(map[string]any)
	s.Equal(360.0, data["ytd_earnings"])
}

func (s *RouterSuite) TestEarningsOfAnotherUser() {
	rec := s.do(http.MethodGet, "/dashboard/earnings?user_id=1", nil, &s.employee)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("forbidden", decode(s.T(), rec)["kind"])

	rec = s.do(http.MethodGet, "/dashboard/earnings?user_id=5", nil, &s.admin)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(uint(5), s.payroll.earnUser)
}

func (s *RouterSuite) TestShiftsListScopedToCaller() {
	rec := s.do(http.MethodGet, "/shifts?start_date=2026-02-01&end_date=2026-02-28", nil, &s.employee)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(uint(5), s.shifts.filter.UserID)
	s.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), s.shifts.filter.Start)
	s.Equal(time.Date(2026, 2, 28, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC), s.shifts.filter.End)
	s.Len(decode(s.T(), rec)["data"], 1)

	rec = s.do(http.MethodGet, "/shifts", nil, &s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Zero(s.shifts.filter.UserID, "admins see every user by default")

	rec = s.do(http.MethodGet, "/shifts?user_id=5", nil, &s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(uint(5), s.shifts.filter.UserID)
}

func (s *RouterSuite) TestShiftsListRejects() {
	rec := s.do(http.MethodGet, "/shifts?user_id=1", nil, &s.employee)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("forbidden", decode(s.T(), rec)["kind"])

	rec = s.do(http.MethodGet, "/shifts?start_date=2026-02-01", nil, &s.employee)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestShiftWritesRequireAdmin() {
	for _, tc := range []struct{ method, target string }{
		{http.MethodPost, "/shifts"},
		{http.MethodPut, "/shifts/3"},
		{http.MethodDelete, "/shifts/3"},
	} {
		rec := s.do(tc.method, tc.target, map[string]any{}, &s.employee)
		s.Equal(http.StatusForbidden, rec.Code, tc.method)
	}
}

func (s *RouterSuite) TestShiftCreate() {
	start := time.Date(2026, 2, 9, 8, 30, 0, 0, time.UTC)
	rec := s.do(http.MethodPost, "/shifts", map[string]any{
		"user_id":     5,
		"location_id": 7,
		"start_time":  start.Format(time.RFC3339),
		"end_time":    start.Add(8 * time.Hour).Format(time.RFC3339),
	}, &s.admin)

	s.Require().Equal(http.StatusCreated, rec.Code)
	s.Equal(uint(1), s.shifts.createdBy, "creator comes from the token")
	s.Equal(uint(5), s.shifts.created.UserID)
	s.True(start.Equal(s.shifts.created.StartTime))
	s.Equal("SCHEDULED", decode(s.T(), rec)["data"].(map[string]any)["status"])
}

func (s *RouterSuite) TestShiftUpdateAndDelete() {
	rec := s.do(http.MethodPut, "/shifts/3", map[string]any{"status": "MISSED"}, &s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(uint(3), s.shifts.updatedID)
	s.Require().NotNil(s.shifts.update.Status)
	s.Equal(models.ShiftMissed, *s.shifts.update.Status)
	s.Nil(s.shifts.update.StartTime)

	rec = s.do(http.MethodDelete, "/shifts/3", nil, &s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(uint(3), s.shifts.deleted)

	rec = s.do(http.MethodDelete, "/shifts/abc", nil, &s.admin)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestShiftNotFound() {
	s.shifts.err = apperror.New(apperror.KindShiftNotFound, "shift 9 not found")

	rec := s.do(http.MethodDelete, "/shifts/9", nil, &s.admin)

	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("shift_not_found", decode(s.T(), rec)["kind"])
}

func (s *RouterSuite) TestSchedule() {
	rec := s.do(http.MethodGet, "/dashboard/schedule/2026/2", nil, &s.employee)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(uint(5), s.shifts.monthUser)
	s.Equal(2026, s.shifts.year)
	s.Equal(2, s.shifts.month)
	day := decode(s.T(), rec)["data"].([]any)[0].(map[string]any)
	s.Equal(true, day["off"])

	rec = s.do(http.MethodGet, "/dashboard/schedule/2026/2", nil, &s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(uint(1), s.shifts.monthUser, "admins default to their own schedule")

	rec = s.do(http.MethodGet, "/dashboard/schedule/2026/2?user_id=5", nil, &s.admin)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(uint(5), s.shifts.monthUser)
}

func (s *RouterSuite) TestScheduleRejects() {
	rec := s.do(http.MethodGet, "/dashboard/schedule/2026/2?user_id=1", nil, &s.employee)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/dashboard/schedule/twenty/2", nil, &s.employee)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestHealthzAndMetrics() {
	rec := s.do(http.MethodGet, "/healthz", nil, nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", nil, nil)
	s.Equal(http.StatusOK, rec.Code)
}

func TestHealthzUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(pinger{err: sentinel.ErrUnavailable})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
