// Package schedule manages planned shifts and the monthly schedule view.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"workforce/apperror"
	"workforce/models"
	"workforce/sentinel"
)

const (
	dateLayout = "2006-01-02"
	minYear    = 2000
)

// NewShift is an admin's request to plan a shift.
type NewShift struct {
	UserID     uint               `json:"user_id" validate:"required"`
	LocationID uint               `json:"location_id" validate:"required"`
	StartTime  time.Time          `json:"start_time"`
	EndTime    time.Time          `json:"end_time"`
	Status     models.ShiftStatus `json:"status" validate:"omitempty,oneof=SCHEDULED COMPLETED MISSED"`
	Notes      string             `json:"notes" validate:"max=500"`
}

// ShiftUpdate changes only the fields that are set.
type ShiftUpdate struct {
	UserID     *uint               `json:"user_id" validate:"omitempty,min=1"`
	LocationID *uint               `json:"location_id" validate:"omitempty,min=1"`
	StartTime  *time.Time          `json:"start_time"`
	EndTime    *time.Time          `json:"end_time"`
	Status     *models.ShiftStatus `json:"status" validate:"omitempty,oneof=SCHEDULED COMPLETED MISSED"`
	Notes      *string             `json:"notes" validate:"omitempty,max=500"`
}

// Day is one calendar day of a monthly schedule. Off is set when no shift
// starts that day.
type Day struct {
	Date   string         `json:"date"`
	Off    bool           `json:"off"`
	Shifts []models.Shift `json:"shifts"`
}

type Service struct {
	store    Store
	log      *zap.Logger
	validate *validator.Validate
	loc      *time.Location
}

type Option func(*Service)

func WithValidator(v *validator.Validate) Option {
	return func(s *Service) { s.validate = v }
}

// WithLocation sets the time zone calendar days are cut in. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(store Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log, validate: validator.New(), loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, error) {
	shifts, err := s.store.Shifts(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindPersistence, "failed to load shifts")
	}
	return shifts, nil
}

// Create plans a shift on behalf of createdBy. The user and location must
// exist and the shift must end after it starts.
func (s *Service) Create(ctx context.Context, in NewShift, createdBy uint) (models.Shift, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.Shift{}, apperror.Validation(err, "invalid shift")
	}
	if err := checkWindow(in.StartTime, in.EndTime); err != nil {
		return models.Shift{}, err
	}
	if err := s.checkUser(ctx, in.UserID); err != nil {
		return models.Shift{}, err
	}
	location, err := s.location(ctx, in.LocationID)
	if err != nil {
		return models.Shift{}, err
	}

	status := in.Status
	if status == "" {
		status = models.ShiftScheduled
	}
	shift := models.Shift{
		UserID:     in.UserID,
		LocationID: in.LocationID,
		StartTime:  in.StartTime.UTC(),
		EndTime:    in.EndTime.UTC(),
		Status:     status,
		Notes:      in.Notes,
		CreatedBy:  createdBy,
	}
	if err := s.store.CreateShift(ctx, &shift); err != nil {
		return models.Shift{}, apperror.Wrap(err, apperror.KindPersistence, "failed to create shift")
	}
	shift.Location = &location

	s.log.Info("shift created",
		zap.Uint("id", shift.ID),
		zap.Uint("user_id", shift.UserID),
		zap.Uint("created_by", createdBy))
	return shift, nil
}

func (s *Service) Update(ctx context.Context, id uint, upd ShiftUpdate) (models.Shift, error) {
	if err := s.validate.Struct(upd); err != nil {
		return models.Shift{}, apperror.Validation(err, "invalid shift")
	}
	shift, err := s.shift(ctx, id)
	if err != nil {
		return models.Shift{}, err
	}

	if upd.UserID != nil {
		if err := s.checkUser(ctx, *upd.UserID); err != nil {
			return models.Shift{}, err
		}
		shift.UserID = *upd.UserID
	}
	if upd.LocationID != nil {
		location, err := s.location(ctx, *upd.LocationID)
		if err != nil {
			return models.Shift{}, err
		}
		shift.LocationID = location.ID
		shift.Location = &location
	}
	if upd.StartTime != nil {
		shift.StartTime = upd.StartTime.UTC()
	}
	if upd.EndTime != nil {
		shift.EndTime = upd.EndTime.UTC()
	}
	if err := checkWindow(shift.StartTime, shift.EndTime); err != nil {
		return models.Shift{}, err
	}
	if upd.Status != nil {
		shift.Status = *upd.Status
	}
	if upd.Notes != nil {
		shift.Notes = *upd.Notes
	}

	if err := s.store.SaveShift(ctx, &shift); err != nil {
		return models.Shift{}, apperror.Wrap(err, apperror.KindPersistence, "failed to update shift")
	}
	s.log.Info("shift updated", zap.Uint("id", shift.ID))
	return shift, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.store.DeleteShift(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return apperror.New(apperror.KindShiftNotFound, fmt.Sprintf("shift %d not found", id))
	}
	if err != nil {
		return apperror.Wrap(err, apperror.KindPersistence, "failed to delete shift")
	}
	s.log.Info("shift deleted", zap.Uint("id", id))
	return nil
}

// Month lists every day of year/month with the shifts userID starts on it.
func (s *Service) Month(ctx context.Context, userID uint, year, month int) ([]Day, error) {
	if month < 1 || month > 12 || year < minYear {
		return nil, apperror.New(apperror.KindValidation, "invalid year or month")
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	next := start.AddDate(0, 1, 0)
	shifts, err := s.store.Shifts(ctx, models.ShiftFilter{
		UserID: userID,
		Start:  start,
		End:    next.Add(-time.Nanosecond),
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindPersistence, "failed to load schedule")
	}

	byDate := make(map[string][]models.Shift, len(shifts))
	for _, sh := range shifts {
		key := sh.StartTime.In(s.loc).Format(dateLayout)
		byDate[key] = append(byDate[key], sh)
	}

	var days []Day
	for d := start; d.Before(next); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		day := Day{Date: key, Shifts: byDate[key]}
		if day.Shifts == nil {
			day.Shifts = []models.Shift{}
		}
		day.Off = len(day.Shifts) == 0
		days = append(days, day)
	}
	return days, nil
}

func checkWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperror.New(apperror.KindValidation, "start_time and end_time are required")
	}
	if !end.After(start) {
		return apperror.New(apperror.KindValidation, "end_time must be after start_time")
	}
	return nil
}

func (s *Service) shift(ctx context.Context, id uint) (models.Shift, error) {
	shift, err := s.store.ShiftByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Shift{}, apperror.New(apperror.KindShiftNotFound, fmt.Sprintf("shift %d not found", id))
	}
	if err != nil {
		return models.Shift{}, apperror.Wrap(err, apperror.KindPersistence, "failed to load shift")
	}
	return shift, nil
}

func (s *Service) checkUser(ctx context.Context, id uint) error {
	_, err := s.store.FindUserByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return apperror.New(apperror.KindUserNotFound, fmt.Sprintf("user %d not found", id))
	}
	if err != nil {
		return apperror.Wrap(err, apperror.KindPersistence, "failed to load user")
	}
	return nil
}

func (s *Service) location(ctx context.Context, id uint) (models.Location, error) {
	loc, err := s.store.LocationByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Location{}, apperror.New(apperror.KindLocationNotFound, fmt.Sprintf("location %d not found", id))
	}
	if err != nil {
		return models.Location{}, apperror.Wrap(err, apperror.KindPersistence, "failed to load location")
	}
	return loc, nil
}
