package attendance

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Repository,Tx

import (
	"context"

	"workforce/models"
)

// Tx is the view of persistence available inside a single submission's
// transaction. LocationByID returns sentinel.ErrNotFound for unknown ids,
// and CreateCheckIn does the same for an unknown user. CreateCheckIn may
// move CreatedAt forward so a user's events stay ordered by insertion.
type Tx interface {
	LocationByID(ctx context.Context, id uint) (models.Location, error)
	CreateCheckIn(ctx context.Context, checkIn *models.CheckIn) error
}

// Repository runs fn in one transaction: if fn returns an error, or the
// context ends before commit, nothing fn wrote is visible.
type Repository interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	RecentCheckIns(ctx context.Context, userID uint, limit int) ([]models.CheckIn, error)
}
