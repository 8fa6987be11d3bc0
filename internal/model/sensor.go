package model

import "time"

// StatusActive is the registry status of a sensor that is reporting.
const StatusActive = "active"

// Sensor is a fixed-location device registered in the sensor registry.
type Sensor struct {
	ID                  int64     `gorm:"primaryKey" json:"id"`
	Name                string    `gorm:"size:100;not null" json:"name"`
	Latitude            float64   `gorm:"not null" json:"latitude"`
	Longitude           float64   `gorm:"not null" json:"longitude"`
	LocationDescription *string   `gorm:"size:255" json:"location_description"`
	Status              string    `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt           time.Time `gorm:"not null" json:"-"`
}
