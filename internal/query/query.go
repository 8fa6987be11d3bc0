// Package query turns raw sensor readings into the views served by the API:
// the latest state of every sensor, trailing-window series for one sensor,
// and windowed averages across all sensors.
package query

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"airquality-backend/internal/model"
	"airquality-backend/internal/store"
)

const (
	// DefaultSeriesWindow is used when the caller does not pick a window.
	DefaultSeriesWindow = 24 * time.Hour
	// StatisticsWindow bounds the readings that feed Statistics.
	StatisticsWindow = time.Hour
)

var (
	ErrInvalidSensorID = errors.New("sensor id must be a positive integer")
	ErrInvalidWindow   = errors.New("window must be a non-negative number of hours")
	ErrWindowTooLarge  = errors.New("window exceeds the maximum range")
)

// Registry is the read handle on the sensor registry.
type Registry interface {
	ListSensors(ctx context.Context) ([]model.Sensor, error)
	CountSensorsByStatus(ctx context.Context, status string) (int64, error)
}

// Measurements is the read handle on the measurement store.
type Measurements interface {
	LatestMeasurements(ctx context.Context) ([]model.Measurement, error)
	LatestMeasurement(ctx context.Context, sensorID int64) (*model.Measurement, error)
	MeasurementsSince(ctx context.Context, sensorID int64, since time.Time) ([]model.Measurement, error)
	WindowAverages(ctx context.Context, since time.Time) (store.WindowAverages, error)
}

// LatestStrategy selects how Sensors resolves each sensor's latest reading.
type LatestStrategy string

const (
	// StrategyGrouped fetches the latest reading of every sensor at once.
	StrategyGrouped LatestStrategy = "grouped"
	// StrategyPerSensor issues one lookup per registered sensor.
	StrategyPerSensor LatestStrategy = "per_sensor"
)

// Service runs the read queries. It keeps no state between calls and is safe
// for concurrent use.
type Service struct {
	registry      Registry
	measurements  Measurements
	now           func() time.Time
	strategy      LatestStrategy
	maxRangeHours int
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLatestStrategy picks the latest-reading resolution strategy.
func WithLatestStrategy(strategy LatestStrategy) Option {
	return func(s *Service) { s.strategy = strategy }
}

// WithMaxRangeHours caps the window accepted by Range. Zero or negative
// leaves it unbounded.
func WithMaxRangeHours(hours int) Option {
	return func(s *Service) {
		s.maxRangeHours = max(hours, 0)
	}
}

// NewService builds a Service over the given read handles.
func NewService(registry Registry, measurements Measurements, opts ...Option) *Service {
	s := &Service{
		registry:     registry,
		measurements: measurements,
		now:          time.Now,
		strategy:     StrategyGrouped,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SensorState is a registry entry together with its most recent reading.
type SensorState struct {
	ID                  int64              `json:"id"`
	Name                string             `json:"name"`
	Latitude            float64            `json:"latitude"`
	Longitude           float64            `json:"longitude"`
	LocationDescription *string            `json:"location_description"`
	Status              string             `json:"status"`
	LatestMeasurement   *model.Measurement `json:"latest_measurement,omitempty"`
}

// Sensors returns every registered sensor in id order with its latest
// measurement, or none if it never reported.
func (s *Service) Sensors(ctx context.Context) ([]SensorState, error) {
	sensors, err := s.registry.ListSensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sensor registry: %w", err)
	}

	var latest map[int64]model.Measurement
	switch s.strategy {
	case StrategyPerSensor:
		latest, err = s.latestPerSensor(ctx, sensors)
	default:
		latest, err = s.latestGrouped(ctx)
	}
	if err != nil {
		return nil, err
	}

	states := make([]SensorState, 0, len(sensors))
	for _, sensor := range sensors {
		state := SensorState{
			ID:                  sensor.ID,
			Name:                sensor.Name,
			Latitude:            sensor.Latitude,
			Longitude:           sensor.Longitude,
			LocationDescription: sensor.LocationDescription,
			Status:              sensor.Status,
		}
		if m, ok := latest[sensor.ID]; ok {
			state.LatestMeasurement = &m
		}
		states = append(states, state)
	}
	return states, nil
}

func (s *Service) latestGrouped(ctx context.Context) (map[int64]model.Measurement, error) {
	candidates, err := s.measurements.LatestMeasurements(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve latest measurements: %w", err)
	}
	return pickLatest(candidates), nil
}

func (s *Service) latestPerSensor(ctx context.Context, sensors []model.Sensor) (map[int64]model.Measurement, error) {
	latest := make(map[int64]model.Measurement, len(sensors))
	for _, sensor := range sensors {
		m, err := s.measurements.LatestMeasurement(ctx, sensor.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve latest measurement of sensor %d: %w", sensor.ID, err)
		}
		if m != nil {
			latest[sensor.ID] = *m
		}
	}
	return latest, nil
}

// pickLatest keeps one measurement per sensor: the newest, with equal
// timestamps going to the higher id.
func pickLatest(candidates []model.Measurement) map[int64]model.Measurement {
	latest := make(map[int64]model.Measurement, len(candidates))
	for _, m := range candidates {
		current, ok := latest[m.SensorID]
		if !ok || newer(m, current) {
			latest[m.SensorID] = m
		}
	}
	return latest
}

func newer(a, b model.Measurement) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

// Recent returns the sensor's readings from the trailing 24 hours.
func (s *Service) Recent(ctx context.Context, sensorID int64) ([]model.Measurement, error) {
	return s.Series(ctx, sensorID, DefaultSeriesWindow)
}

// Range returns the sensor's readings from the trailing number of hours.
func (s *Service) Range(ctx context.Context, sensorID int64, hours int) ([]model.Measurement, error) {
	if hours < 0 {
		return nil, ErrInvalidWindow
	}
	if s.maxRangeHours > 0 && hours > s.maxRangeHours {
		return nil, fmt.Errorf("%w: at most %d hours", ErrWindowTooLarge, s.maxRangeHours)
	}
	return s.Series(ctx, sensorID, hoursWindow(hours))
}

// hoursWindow converts hours to a Duration, saturating at the largest
// representable window instead of wrapping.
func hoursWindow(hours int) time.Duration {
	if int64(hours) > math.MaxInt64/int64(time.Hour) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(hours) * time.Hour
}

// Series returns the sensor's readings with timestamp >= now-window in
// ascending timestamp order. An unknown sensor yields an empty series.
func (s *Service) Series(ctx context.Context, sensorID int64, window time.Duration) ([]model.Measurement, error) {
	if sensorID <= 0 {
		return nil, ErrInvalidSensorID
	}
	if window < 0 {
		return nil, ErrInvalidWindow
	}

	since := s.now().UTC().Add(-window)
	series, err := s.measurements.MeasurementsSince(ctx, sensorID, since)
	if err != nil {
		return nil, fmt.Errorf("load series for sensor %d: %w", sensorID, err)
	}
	if series == nil {
		return []model.Measurement{}, nil
	}
	slices.SortStableFunc(series, func(a, b model.Measurement) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return series, nil
}
