package models

import (
	"time"

	"workforce/geofence"
)

// Location is a geofenced site. RadiusKm is in kilometers.
type Location struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"not null;size:100" json:"name"`
	Latitude  float64   `gorm:"not null" json:"latitude"`
	Longitude float64   `gorm:"not null" json:"longitude"`
	RadiusKm  float64   `gorm:"column:radius;not null" json:"radius"`
	CheckIns  []CheckIn `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (l *Location) Fence() geofence.Fence {
	return geofence.Fence{
		Center:   geofence.Point{Latitude: l.Latitude, Longitude: l.Longitude},
		RadiusKm: l.RadiusKm,
	}
}
