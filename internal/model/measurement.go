package model

import (
	"time"

	"gorm.io/gorm"
)

// Measurement is one immutable reading from a sensor. Every metric is
// optional since a sample may not carry all of them.
type Measurement struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	SensorID    int64     `gorm:"not null;index:idx_measurements_sensor_ts,priority:1" json:"sensor_id"`
	PM25        *float64  `gorm:"column:pm25" json:"pm25"` // µg/m³
	PM10        *float64  `gorm:"column:pm10" json:"pm10"` // µg/m³
	CO          *float64  `gorm:"column:co" json:"co"`     // ppm
	NO2         *float64  `gorm:"column:no2" json:"no2"`   // ppb
	O3          *float64  `gorm:"column:o3" json:"o3"`     // ppb
	Temperature *float64  `json:"temperature"`             // °C
	Humidity    *float64  `json:"humidity"`                // %
	Timestamp   time.Time `gorm:"not null;index;index:idx_measurements_sensor_ts,priority:2" json:"timestamp"`

	// Associations
	Sensor Sensor `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// BeforeCreate stamps readings that arrive without a timestamp.
func (m *Measurement) BeforeCreate(tx *gorm.DB) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	m.Timestamp = m.Timestamp.UTC()
	return nil
}

// Float returns a pointer to v, for building readings in code.
func Float(v float64) *float64 {
	return &v
}
