package models

import (
	"time"

	"gorm.io/gorm"
)

type ShiftStatus string

const (
	ShiftScheduled ShiftStatus = "SCHEDULED"
	ShiftCompleted ShiftStatus = "COMPLETED"
	ShiftMissed    ShiftStatus = "MISSED"
)

// Shift is a planned working window for one user at one location.
type Shift struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	UserID     uint           `gorm:"not null;index:idx_shifts_user_start,priority:1" json:"user_id"`
	User       *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	LocationID uint           `gorm:"not null;index" json:"location_id"`
	Location   *Location      `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE" json:"location,omitempty"`
	StartTime  time.Time      `gorm:"not null;index:idx_shifts_user_start,priority:2" json:"start_time"`
	EndTime    time.Time      `gorm:"not null" json:"end_time"`
	Status     ShiftStatus    `gorm:"not null;size:20;default:SCHEDULED" json:"status"`
	Notes      string         `gorm:"size:500" json:"notes"`
	CreatedBy  uint           `gorm:"not null" json:"created_by"`
}

// ShiftFilter selects shifts by owner and start time. A zero UserID selects
// every user.
type ShiftFilter struct {
	UserID uint
	Start  time.Time
	End    time.Time
}

func (f ShiftFilter) Bounded() bool {
	return !f.Start.IsZero() && !f.End.IsZero()
}

// CanViewScheduleFor reports whether u may see shifts assigned to userID.
func (u *User) CanViewScheduleFor(userID uint) bool {
	return u.CanViewPayrollFor(userID)
}
