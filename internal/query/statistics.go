package query

import (
	"context"
	"fmt"
	"strconv"

	"airquality-backend/internal/model"
)

// Decimal places kept in Statistics.
const (
	concentrationPlaces = 2
	climatePlaces       = 1
)

// Statistics summarises the last hour of readings across every sensor.
type Statistics struct {
	AvgPM25           float64 `json:"avg_pm25"`
	AvgPM10           float64 `json:"avg_pm10"`
	AvgCO             float64 `json:"avg_co"`
	AvgNO2            float64 `json:"avg_no2"`
	AvgTemperature    float64 `json:"avg_temperature"`
	AvgHumidity       float64 `json:"avg_humidity"`
	TotalMeasurements int64   `json:"total_measurements"`
	ActiveSensors     int64   `json:"active_sensors"`
}

// Statistics averages each metric over the readings of the last hour,
// ignoring readings that lack the metric. A metric nobody reported averages
// to 0. ActiveSensors counts the registry as it is now, regardless of the
// window.
func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	since := s.now().UTC().Add(-StatisticsWindow)

	avg, err := s.measurements.WindowAverages(ctx, since)
	if err != nil {
		return Statistics{}, fmt.Errorf("aggregate last hour: %w", err)
	}
	active, err := s.registry.CountSensorsByStatus(ctx, model.StatusActive)
	if err != nil {
		return Statistics{}, fmt.Errorf("count active sensors: %w", err)
	}

	return Statistics{
		AvgPM25:           Round(orZero(avg.PM25), concentrationPlaces),
		AvgPM10:           Round(orZero(avg.PM10), concentrationPlaces),
		AvgCO:             Round(orZero(avg.CO), concentrationPlaces),
		AvgNO2:            Round(orZero(avg.NO2), concentrationPlaces),
		AvgTemperature:    Round(orZero(avg.Temperature), climatePlaces),
		AvgHumidity:       Round(orZero(avg.Humidity), climatePlaces),
		TotalMeasurements: avg.TotalMeasurements,
		ActiveSensors:     active,
	}, nil
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Round returns the decimal with the given number of places nearest to the
// exact binary value of v. Exact ties go to the even digit, so 0.125 becomes
// 0.12 while 2.675 (stored just below) becomes 2.67.
func Round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
