package models

import (
	"time"

	"github.com/google/uuid"
)

// PayrollRecord is a persisted payroll row. Records are history: they are
// appended per run and never rewritten. Nil period bounds mean the run
// covered all time.
type PayrollRecord struct {
	ID            uint       `gorm:"primaryKey;<-:create" json:"id"`
	CreatedAt     time.Time  `gorm:"<-:create" json:"created_at"`
	RunID         uuid.UUID  `gorm:"type:varchar(36);not null;index;<-:create" json:"run_id"`
	UserID        uint       `gorm:"not null;index;<-:create" json:"user_id"`
	User          *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PeriodStart   *time.Time `gorm:"<-:create" json:"period_start"`
	PeriodEnd     *time.Time `gorm:"<-:create" json:"period_end"`
	HoursWorked   float64    `gorm:"not null;<-:create" json:"hours_worked"`
	RegularHours  float64    `gorm:"not null;<-:create" json:"regular_hours"`
	OvertimeHours float64    `gorm:"not null;<-:create" json:"overtime_hours"`
	HourlyRate    float64    `gorm:"not null;<-:create" json:"hourly_rate"`
	RegularPay    float64    `gorm:"not null;<-:create" json:"regular_pay"`
	OvertimePay   float64    `gorm:"not null;<-:create" json:"overtime_pay"`
	TotalPay      float64    `gorm:"not null;<-:create" json:"total_pay"`
}
