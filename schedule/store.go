package schedule

import (
	"context"

	"workforce/models"
)

// Store is the persistence the scheduler needs. Lookups return
// sentinel.ErrNotFound for unknown ids.
type Store interface {
	Shifts(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, error)
	ShiftByID(ctx context.Context, id uint) (models.Shift, error)
	CreateShift(ctx context.Context, shift *models.Shift) error
	SaveShift(ctx context.Context, shift *models.Shift) error
	DeleteShift(ctx context.Context, id uint) error
	FindUserByID(ctx context.Context, id uint) (models.User, error)
	LocationByID(ctx context.Context, id uint) (models.Location, error)
}
