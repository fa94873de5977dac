package models

import (
	"time"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// CheckIn is one attendance submission. Rows are append-only: every column is
// create-only, so gorm never updates them after insertion.
type CheckIn struct {
	ID         uint      `gorm:"primaryKey;<-:create" json:"id"`
	CreatedAt  time.Time `gorm:"not null;index:idx_checkins_user_verified_time,priority:3;<-:create" json:"timestamp"`
	UserID     uint      `gorm:"not null;index:idx_checkins_user_verified_time,priority:1;<-:create" json:"user_id"`
	LocationID uint      `gorm:"not null;index;<-:create" json:"location_id"`
	Latitude   float64   `gorm:"not null;<-:create" json:"latitude"`
	Longitude  float64   `gorm:"not null;<-:create" json:"longitude"`
	Direction  Direction `gorm:"not null;size:3;default:in;<-:create" json:"direction"`
	IsVerified bool      `gorm:"not null;default:false;index:idx_checkins_user_verified_time,priority:2;<-:create" json:"is_verified"`
	DistanceKm float64   `gorm:"not null;<-:create" json:"distance_km"`
	Location   *Location `gorm:"foreignKey:LocationID" json:"location,omitempty"`
}

type CheckInFilter struct {
	UserID uint
	Start  time.Time
	End    time.Time
}

// Bounded reports whether the filter restricts the time range.
func (f CheckInFilter) Bounded() bool {
	return !f.Start.IsZero() && !f.End.IsZero()
}
