// Package attendance records check-in and check-out submissions as immutable,
// geofence-verified events.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"workforce/apperror"
	"workforce/geofence"
	"workforce/metrics"
	"workforce/models"
	"workforce/sentinel"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

// Submission is one check-in or check-out request from an authenticated user.
// Coordinates are pointers so a missing field is distinguishable from 0.
type Submission struct {
	UserID     uint             `validate:"required"`
	LocationID uint             `validate:"required"`
	Latitude   *float64         `validate:"required"`
	Longitude  *float64         `validate:"required"`
	Direction  models.Direction `validate:"omitempty,oneof=in out"`
}

// Outcome is the stored event. Success mirrors Event.IsVerified.
type Outcome struct {
	Event   models.CheckIn
	Success bool
}

type Service struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
	metrics  *metrics.Metrics
	clock    func() time.Time
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithValidator(v *validator.Validate) Option {
	return func(s *Service) { s.validate = v }
}

func NewService(repo Repository, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		log:      log,
		validate: validator.New(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record verifies sub against its location's geofence and stores the result.
// Out-of-radius submissions are stored unverified and reported with
// Success=false; they are not errors. Validation, lookup and coordinate
// errors abort before anything is written.
func (s *Service) Record(ctx context.Context, sub Submission) (Outcome, error) {
	if err := s.validate.Struct(sub); err != nil {
		return Outcome{}, apperror.Validation(err, "invalid check-in submission")
	}

	reported := geofence.Point{Latitude: *sub.Latitude, Longitude: *sub.Longitude}
	if err := geofence.Validate(reported); err != nil {
		return Outcome{}, apperror.Wrap(err, apperror.KindInvalidCoordinate, "reported coordinates are out of range")
	}

	direction := sub.Direction
	if direction == "" {
		direction = models.DirectionIn
	}

	var event models.CheckIn
	err := s.repo.RunInTx(ctx, func(tx Tx) error {
		location, err := tx.LocationByID(ctx, sub.LocationID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return apperror.New(apperror.KindLocationNotFound, fmt.Sprintf("location %d not found", sub.LocationID))
		}
		if err != nil {
			return apperror.Wrap(err, apperror.KindPersistence, "failed to load location")
		}

		result, err := geofence.Verify(reported, location.Fence())
		if err != nil {
			return apperror.Wrap(err, apperror.KindInvalidCoordinate, "location geofence is invalid")
		}

		event = models.CheckIn{
			CreatedAt:  s.clock().UTC(),
			UserID:     sub.UserID,
			LocationID: location.ID,
			Latitude:   reported.Latitude,
			Longitude:  reported.Longitude,
			Direction:  direction,
			IsVerified: result.Verified,
			DistanceKm: result.DistanceKm,
		}
		err = tx.CreateCheckIn(ctx, &event)
		if errors.Is(err, sentinel.ErrNotFound) {
			return apperror.New(apperror.KindUserNotFound, fmt.Sprintf("user %d not found", sub.UserID))
		}
		if err != nil {
			return apperror.Wrap(err, apperror.KindPersistence, "failed to record check-in")
		}
		return nil
	})
	if err != nil {
		// Begin/commit failures and cancellation surface without a kind.
		if apperror.KindOf(err) == apperror.KindInternal {
			err = apperror.Wrap(err, apperror.KindPersistence, "check-in transaction failed")
		}
		s.log.Warn("check-in rejected",
			zap.Uint("user_id", sub.UserID),
			zap.Uint("location_id", sub.LocationID),
			zap.String("kind", string(apperror.KindOf(err))),
			zap.Error(err))
		return Outcome{}, err
	}

	s.metrics.ObserveCheckIn(string(event.Direction), event.IsVerified, event.DistanceKm)
	s.log.Info("check-in recorded",
		zap.Uint("id", event.ID),
		zap.Uint("user_id", event.UserID),
		zap.Uint("location_id", event.LocationID),
		zap.Bool("verified", event.IsVerified),
		zap.Float64("distance_km", event.DistanceKm))

	return Outcome{Event: event, Success: event.IsVerified}, nil
}

// Recent returns the user's latest events, newest first, with their locations.
func (s *Service) Recent(ctx context.Context, userID uint, limit int) ([]models.CheckIn, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	events, err := s.repo.RecentCheckIns(ctx, userID, limit)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindPersistence, "failed to load recent check-ins")
	}
	return events, nil
}
