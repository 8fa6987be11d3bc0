package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"airquality-backend/internal/model"
)

// Store defines the database operations used by the query layer and the
// seeder. Every call is scoped to its context and holds no connection after
// it returns.
type Store interface {
	ListSensors(ctx context.Context) ([]model.Sensor, error)
	CountSensors(ctx context.Context) (int64, error)
	CountSensorsByStatus(ctx context.Context, status string) (int64, error)

	LatestMeasurements(ctx context.Context) ([]model.Measurement, error)
	LatestMeasurement(ctx context.Context, sensorID int64) (*model.Measurement, error)
	MeasurementsSince(ctx context.Context, sensorID int64, since time.Time) ([]model.Measurement, error)
	WindowAverages(ctx context.Context, since time.Time) (WindowAverages, error)

	InsertSeed(ctx context.Context, sensors []model.Sensor, readings func(model.Sensor) []model.Measurement) error
	Ping(ctx context.Context) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// latestPerSensorSQL ranks each sensor's readings newest first, equal
// timestamps broken by the higher id, and keeps rank 1.
const latestPerSensorSQL = `SELECT m.* FROM measurements AS m
JOIN (
	SELECT measurements.id AS id,
		ROW_NUMBER() OVER (
			PARTITION BY measurements.sensor_id
			ORDER BY measurements.timestamp DESC, measurements.id DESC
		) AS rn
	FROM measurements
) AS ranked ON ranked.id = m.id
WHERE ranked.rn = 1
ORDER BY m.sensor_id`

func (s *gormStore) ListSensors(ctx context.Context) ([]model.Sensor, error) {
	var sensors []model.Sensor
	if err := s.db.WithContext(ctx).Order("id").Find(&sensors).Error; err != nil {
		return nil, fmt.Errorf("list sensors: %w", err)
	}
	return sensors, nil
}

func (s *gormStore) CountSensors(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Sensor{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count sensors: %w", err)
	}
	return n, nil
}

func (s *gormStore) CountSensorsByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Sensor{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s sensors: %w", status, err)
	}
	return n, nil
}

// LatestMeasurements returns at most one measurement per sensor in a single
// grouped query.
func (s *gormStore) LatestMeasurements(ctx context.Context) ([]model.Measurement, error) {
	var latest []model.Measurement
	if err := s.db.WithContext(ctx).Raw(latestPerSensorSQL).Scan(&latest).Error; err != nil {
		return nil, fmt.Errorf("latest measurements: %w", err)
	}
	return normalize(latest), nil
}

// LatestMeasurement returns nil when the sensor has no measurements.
func (s *gormStore) LatestMeasurement(ctx context.Context, sensorID int64) (*model.Measurement, error) {
	var found []model.Measurement
	err := s.db.WithContext(ctx).
		Where("sensor_id = ?", sensorID).
		Order("measurements.timestamp DESC").
		Order("measurements.id DESC").
		Limit(1).
		Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("latest measurement for sensor %d: %w", sensorID, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	m := normalize(found)[0]
	return &m, nil
}

// MeasurementsSince returns the sensor's readings with timestamp >= since in
// ascending order.
func (s *gormStore) MeasurementsSince(ctx context.Context, sensorID int64, since time.Time) ([]model.Measurement, error) {
	measurements := make([]model.Measurement, 0)
	err := s.db.WithContext(ctx).
		Where("sensor_id = ? AND measurements.timestamp >= ?", sensorID, since.UTC()).
		Order("measurements.timestamp ASC").
		Order("measurements.id ASC").
		Find(&measurements).Error
	if err != nil {
		return nil, fmt.Errorf("measurements for sensor %d since %s: %w", sensorID, since.Format(time.RFC3339), err)
	}
	return normalize(measurements), nil
}

// WindowAverages averages every metric except o3 over readings with
// timestamp >= since. AVG skips NULLs, so absent readings do not count as 0.
func (s *gormStore) WindowAverages(ctx context.Context, since time.Time) (WindowAverages, error) {
	var avg WindowAverages
	err := s.db.WithContext(ctx).
		Model(&model.Measurement{}).
		Select("AVG(pm25) AS avg_pm25, "+
			"AVG(pm10) AS avg_pm10, "+
			"AVG(co) AS avg_co, "+
			"AVG(no2) AS avg_no2, "+
			"AVG(temperature) AS avg_temperature, "+
			"AVG(humidity) AS avg_humidity, "+
			"COUNT(measurements.id) AS total_measurements").
		Where("measurements.timestamp >= ?", since.UTC()).
		Scan(&avg).Error
	if err != nil {
		return WindowAverages{}, fmt.Errorf("window averages since %s: %w", since.Format(time.RFC3339), err)
	}
	return avg, nil
}

// InsertSeed writes the sensors and, once their ids are known, the readings
// produced for each of them, all in one transaction.
func (s *gormStore) InsertSeed(ctx context.Context, sensors []model.Sensor, readings func(model.Sensor) []model.Measurement) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(sensors) == 0 {
			return nil
		}
		if err := tx.Create(&sensors).Error; err != nil {
			return fmt.Errorf("insert sensors: %w", err)
		}
		for _, sensor := range sensors {
			batch := readings(sensor)
			if len(batch) == 0 {
				continue
			}
			slog.Debug("inserting seed measurements", "sensor_id", sensor.ID, "count", len(batch))
			if err := tx.Omit(clause.Associations).CreateInBatches(&batch, 500).Error; err != nil {
				return fmt.Errorf("insert measurements for sensor %d: %w", sensor.ID, err)
			}
		}
		return nil
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// normalize reports every timestamp in UTC regardless of how the driver
// decoded it.
func normalize(ms []model.Measurement) []model.Measurement {
	for i := range ms {
		ms[i].Timestamp = ms[i].Timestamp.UTC()
	}
	return ms
}
