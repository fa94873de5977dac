package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workforce/attendance"
	"workforce/models"
	"workforce/sentinel"
)

const defaultStoreTimeout = 5 * time.Second

// Store is the gorm-backed persistence for attendance and payroll.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewStore(db *gorm.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &Store{db: db, timeout: timeout}
}

// withTimeout bounds ctx by the store timeout unless the caller already set
// a deadline.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) RunInTx(ctx context.Context, fn func(tx attendance.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&checkInTx{db: tx})
	})
}

type checkInTx struct {
	db *gorm.DB
}

// LocationByID takes a shared lock so the fence cannot change before the
// check-in referencing it commits.
func (t *checkInTx) LocationByID(ctx context.Context, id uint) (models.Location, error) {
	var loc models.Location
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		First(&loc, id).Error
	if err != nil {
		return models.Location{}, translate(err)
	}
	return loc, nil
}

// CreateCheckIn locks the user's row so a user's inserts commit one at a
// time, and never stamps an event earlier than that user's newest one.
func (t *checkInTx) CreateCheckIn(ctx context.Context, checkIn *models.CheckIn) error {
	db := t.db.WithContext(ctx)

	var user models.User
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&user, checkIn.UserID).Error
	if err != nil {
		return translate(err)
	}

	var latest models.CheckIn
	err = db.Select("created_at").
		Where("user_id = ?", checkIn.UserID).
		Order("created_at DESC").
		Take(&latest).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return err
	case checkIn.CreatedAt.Before(latest.CreatedAt):
		checkIn.CreatedAt = latest.CreatedAt
	}

	return db.Omit(clause.Associations).Create(checkIn).Error
}

func (s *Store) RecentCheckIns(ctx context.Context, userID uint, limit int) ([]models.CheckIn, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var checkIns []models.CheckIn
	err := s.db.WithContext(ctx).
		Preload("Location").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&checkIns).Error
	return checkIns, err
}

// Users returns users ordered by id. An empty ids slice selects everyone.
func (s *Store) Users(ctx context.Context, ids []uint) ([]models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.db.WithContext(ctx).Order("id ASC")
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	var users []models.User
	err := query.Find(&users).Error
	return users, err
}

func (s *Store) VerifiedCheckIns(ctx context.Context, filter models.CheckInFilter) ([]models.CheckIn, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.db.WithContext(ctx).
		Where("user_id = ? AND is_verified = ?", filter.UserID, true)
	if filter.Bounded() {
		query = query.Where("created_at BETWEEN ? AND ?", filter.Start, filter.End)
	}
	var checkIns []models.CheckIn
	err := query.Order("created_at ASC").Find(&checkIns).Error
	return checkIns, err
}

func (s *Store) CreatePayrollRecords(ctx context.Context, records []models.PayrollRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).CreateInBatches(records, 100).Error
	})
}

func (s *Store) PayrollRecords(ctx context.Context, userID uint) ([]models.PayrollRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.db.WithContext(ctx).Preload("User").Order("created_at DESC").Order("id DESC")
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	var records []models.PayrollRecord
	err := query.Find(&records).Error
	return records, err
}

func (s *Store) Locations(ctx context.Context) ([]models.Location, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var locations []models.Location
	err := s.db.WithContext(ctx).Order("name ASC").Find(&locations).Error
	return locations, err
}

func (s *Store) LocationByID(ctx context.Context, id uint) (models.Location, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var loc models.Location
	if err := s.db.WithContext(ctx).First(&loc, id).Error; err != nil {
		return models.Location{}, translate(err)
	}
	return loc, nil
}

// Shifts returns shifts ordered by start time with their locations.
func (s *Store) Shifts(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.db.WithContext(ctx).Preload("Location").Order("start_time ASC").Order("id ASC")
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Bounded() {
		query = query.Where("start_time BETWEEN ? AND ?", filter.Start, filter.End)
	}
	var shifts []models.Shift
	err := query.Find(&shifts).Error
	return shifts, err
}

func (s *Store) ShiftByID(ctx context.Context, id uint) (models.Shift, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var shift models.Shift
	if err := s.db.WithContext(ctx).Preload("Location").First(&shift, id).Error; err != nil {
		return models.Shift{}, translate(err)
	}
	return shift, nil
}

func (s *Store) CreateShift(ctx context.Context, shift *models.Shift) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.db.WithContext(ctx).Omit(clause.Associations).Create(shift).Error
}

func (s *Store) SaveShift(ctx context.Context, shift *models.Shift) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.db.WithContext(ctx).Omit(clause.Associations).Save(shift).Error
}

// DeleteShift soft-deletes a shift. Unknown ids give sentinel.ErrNotFound.
func (s *Store) DeleteShift(ctx context.Context, id uint) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res := s.db.WithContext(ctx).Delete(&models.Shift{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: shift %d", sentinel.ErrNotFound, id)
	}
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id uint) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", sentinel.ErrNotFound, err)
	}
	return err
}
