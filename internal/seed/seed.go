// Package seed fills an empty database with a fixed set of sensors around
// Hanoi and synthetic readings for each of them.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"airquality-backend/internal/model"
)

// Store is the subset of the store the seeder writes through.
type Store interface {
	CountSensors(ctx context.Context) (int64, error)
	InsertSeed(ctx context.Context, sensors []model.Sensor, readings func(model.Sensor) []model.Measurement) error
}

// Options controls how much data is generated.
type Options struct {
	Days     int
	Interval time.Duration
	// Now and Rand default to the wall clock and a randomly seeded source.
	Now  func() time.Time
	Rand *rand.Rand
}

type location struct {
	name        string
	lat, lng    float64
	description string
}

var hanoi = []location{
	{"Cảm biến Hồ Gươm", 21.0285, 105.8542, "Khu vực trung tâm Hà Nội"},
	{"Cảm biến Đại học Bách Khoa", 21.0063, 105.8430, "Khu vực Hai Bà Trưng"},
	{"Cảm biến Cầu Giấy", 21.0334, 105.7829, "Quận Cầu Giấy"},
	{"Cảm biến Long Biên", 21.0367, 105.8987, "Quận Long Biên"},
	{"Cảm biến Thanh Xuân", 20.9883, 105.8065, "Quận Thanh Xuân"},
	{"Cảm biến Tây Hồ", 21.0583, 105.8186, "Quận Tây Hồ"},
}

// bounds is the closed interval a generated reading is drawn from.
type bounds struct{ lo, hi float64 }

var (
	pm25Range        = bounds{10, 150}
	pm10Range        = bounds{20, 200}
	coRange          = bounds{0.5, 15}
	no2Range         = bounds{10, 100}
	o3Range          = bounds{20, 150}
	temperatureRange = bounds{15, 35}
	humidityRange    = bounds{40, 90}
)

func (b bounds) draw(r *rand.Rand) *float64 {
	return model.Float(b.lo + r.Float64()*(b.hi-b.lo))
}

// Sensors returns the fixed registry, all active, ids left for the database.
func Sensors() []model.Sensor {
	sensors := make([]model.Sensor, 0, len(hanoi))
	for _, loc := range hanoi {
		desc := loc.description
		sensors = append(sensors, model.Sensor{
			Name:                loc.name,
			Latitude:            loc.lat,
			Longitude:           loc.lng,
			LocationDescription: &desc,
			Status:              model.StatusActive,
		})
	}
	return sensors
}

// Readings generates one reading every interval from start through end
// inclusive.
func Readings(sensorID int64, start, end time.Time, interval time.Duration, r *rand.Rand) []model.Measurement {
	if interval <= 0 || end.Before(start) {
		return nil
	}
	out := make([]model.Measurement, 0, int(end.Sub(start)/interval)+1)
	for ts := start; !ts.After(end); ts = ts.Add(interval) {
		out = append(out, model.Measurement{
			SensorID:    sensorID,
			PM25:        pm25Range.draw(r),
			PM10:        pm10Range.draw(r),
			CO:          coRange.draw(r),
			NO2:         no2Range.draw(r),
			O3:          o3Range.draw(r),
			Temperature: temperatureRange.draw(r),
			Humidity:    humidityRange.draw(r),
			Timestamp:   ts.UTC(),
		})
	}
	return out
}

// Run seeds s unless it already holds sensors. It reports whether anything
// was written.
func Run(ctx context.Context, s Store, opts Options) (bool, error) {
	count, err := s.CountSensors(ctx)
	if err != nil {
		return false, fmt.Errorf("count sensors: %w", err)
	}
	if count > 0 {
		slog.Info("database already seeded, skipping", "sensors", count)
		return false, nil
	}

	if opts.Days <= 0 {
		opts.Days = 7
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	end := opts.Now().UTC()
	start := end.AddDate(0, 0, -opts.Days)

	sensors := Sensors()
	err = s.InsertSeed(ctx, sensors, func(sensor model.Sensor) []model.Measurement {
		return Readings(sensor.ID, start, end, opts.Interval, opts.Rand)
	})
	if err != nil {
		return false, fmt.Errorf("seed database: %w", err)
	}

	slog.Info("database seeded with sample data",
		"sensors", len(sensors),
		"from", start.Format(time.RFC3339),
		"to", end.Format(time.RFC3339),
		"interval", opts.Interval.String(),
	)
	return true, nil
}
