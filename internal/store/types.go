package store

// WindowAverages is the raw aggregate over a time window. A nil mean means no
// measurement in the window carried that metric.
type WindowAverages struct {
	PM25              *float64 `gorm:"column:avg_pm25"`
	PM10              *float64 `gorm:"column:avg_pm10"`
	CO                *float64 `gorm:"column:avg_co"`
	NO2               *float64 `gorm:"column:avg_no2"`
	Temperature       *float64 `gorm:"column:avg_temperature"`
	Humidity          *float64 `gorm:"column:avg_humidity"`
	TotalMeasurements int64    `gorm:"column:total_measurements"`
}
