//go:build e2e

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"airquality-backend/config"
	"airquality-backend/internal/db"
	"airquality-backend/internal/model"
)

func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "airq",
			"POSTGRES_PASSWORD": "airq",
			"POSTGRES_DB":       "air_quality",
		},
		// The entrypoint restarts the server once after init.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(60 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver: db.DriverPostgres,
		DSN: fmt.Sprintf("host=%s port=%s user=airq password=airq dbname=air_quality sslmode=disable TimeZone=UTC",
			host, port.Port()),
		MaxOpenConns: 4,
	}, logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gormDB) })
	return gormDB
}

func TestPostgres_LatestAndSeries(t *testing.T) {
	gormDB := startPostgres(t)
	s := NewGormStore(gormDB)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	sensors := []model.Sensor{
		{Name: "A", Latitude: 21.0285, Longitude: 105.8542, Status: model.StatusActive},
		{Name: "B", Latitude: 21.0063, Longitude: 105.8430, Status: "offline"},
		{Name: "C", Latitude: 21.0334, Longitude: 105.7829, Status: model.StatusActive},
	}
	err := s.InsertSeed(ctx, sensors, func(sensor model.Sensor) []model.Measurement {
		if sensor.Name == "C" {
			return nil
		}
		return []model.Measurement{
			{SensorID: sensor.ID, PM25: model.Float(10), Timestamp: base.Add(-2 * time.Hour)},
			{SensorID: sensor.ID, PM25: model.Float(20), Timestamp: base},
			{SensorID: sensor.ID, PM25: model.Float(30), Timestamp: base},
		}
	})
	require.NoError(t, err)

	registered, err := s.ListSensors(ctx)
	require.NoError(t, err)
	require.Len(t, registered, 3)

	active, err := s.CountSensorsByStatus(ctx, model.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	latest, err := s.LatestMeasurements(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	for _, m := range latest {
		assert.Equal(t, 30.0, *m.PM25, "highest id wins a timestamp tie")
		assert.True(t, m.Timestamp.Equal(base))
		assert.Equal(t, time.UTC, m.Timestamp.Location())

		one, err := s.LatestMeasurement(ctx, m.SensorID)
		require.NoError(t, err)
		require.NotNil(t, one)
		assert.Equal(t, m.ID, one.ID)
	}

	none, err := s.LatestMeasurement(ctx, registered[2].ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	series, err := s.MeasurementsSince(ctx, registered[0].ID, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, series, 2)

	avg, err := s.WindowAverages(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4), avg.TotalMeasurements)
	require.NotNil(t, avg.PM25)
	assert.InDelta(t, 25.0, *avg.PM25, 1e-9)
	assert.Nil(t, avg.Temperature)
}
