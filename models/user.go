package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Username     string         `gorm:"uniqueIndex;not null;size:100" json:"username"`
	FullName     string         `gorm:"not null;size:200" json:"full_name"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         Role           `gorm:"not null;size:20" json:"role"`
	CheckIns     []CheckIn      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanViewPayrollFor reports whether u may see payroll figures for userID.
func (u *User) CanViewPayrollFor(userID uint) bool {
	if u.IsAdmin() {
		return true
	}
	return u.ID == userID
}
