package internal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"airquality-backend/config"
	"airquality-backend/internal/api"
	"airquality-backend/internal/db"
	"airquality-backend/internal/model"
	"airquality-backend/internal/query"
	"airquality-backend/internal/seed"
	"airquality-backend/internal/store"
)

// TestDashboardLifecycle seeds a fresh database the way `airqd serve` does on
// first start, then walks the dashboard's requests against it under both
// latest-reading strategies.
func TestDashboardLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Test Setup ---

	// 1. In-memory SQLite database with the production schema.
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file::memory:",
		MaxOpenConns: 1,
	}, logger.Silent)
	require.NoError(t, err)
	defer db.Close(gormDB)

	appStore := store.NewGormStore(gormDB)
	ctx := context.Background()

	// 2. Seed two days of readings every 30 minutes, ending a minute ago so
	// every window below is anchored on data that really exists.
	seededAt := time.Now().UTC().Add(-time.Minute)
	seeded, err := seed.Run(ctx, appStore, seed.Options{
		Days:     2,
		Interval: 30 * time.Minute,
		Now:      func() time.Time { return seededAt },
		Rand:     rand.New(rand.NewPCG(42, 7)),
	})
	require.NoError(t, err)
	require.True(t, seeded)

	// A reading that shares the latest timestamp of the first sensor; the
	// higher id must win.
	sensors, err := appStore.ListSensors(ctx)
	require.NoError(t, err)
	require.Len(t, sensors, 6)
	tie := model.Measurement{SensorID: sensors[0].ID, PM25: model.Float(999), Timestamp: seededAt}
	require.NoError(t, gormDB.Omit("Sensor").Create(&tie).Error)

	newRouter := func(strategy string) http.Handler {
		cfg := &config.Config{
			Server: config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000},
			Query:  config.QueryConfig{LatestStrategy: strategy, MaxRangeHours: 720},
		}
		r, err := api.NewRouter(cfg, appStore, slog.New(slog.NewTextHandler(io.Discard, nil)))
		require.NoError(t, err)
		return r
	}
	get := func(h http.Handler, path string) []byte {
		t.Helper()
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, "GET %s: %s", path, w.Body.String())
		body, err := io.ReadAll(w.Body)
		require.NoError(t, err)
		return body
	}

	grouped := newRouter(string(query.StrategyGrouped))
	perSensor := newRouter(string(query.StrategyPerSensor))

	// --- Step 1: Sensor overview ---
	t.Log("Step 1: listing sensors with their latest reading")
	overview := get(grouped, "/api/sensors")

	var states []query.SensorState
	require.NoError(t, json.Unmarshal(overview, &states))
	require.Len(t, states, 6)
	for _, s := range states {
		require.NotNil(t, s.LatestMeasurement, "sensor %d", s.ID)
		assert.Equal(t, s.ID, s.LatestMeasurement.SensorID)
		assert.WithinDuration(t, seededAt, s.LatestMeasurement.Timestamp, time.Millisecond)
	}
	assert.Equal(t, tie.ID, states[0].LatestMeasurement.ID)
	assert.Equal(t, 999.0, *states[0].LatestMeasurement.PM25)

	// Both strategies must render the same document.
	assert.JSONEq(t, string(overview), string(get(perSensor, "/api/sensors")))

	// --- Step 2: Time series ---
	t.Log("Step 2: fetching recent and ranged series")
	var day []model.Measurement
	require.NoError(t, json.Unmarshal(get(grouped, "/api/measurements/2"), &day))
	// 24 hours at 30 minute spacing; the oldest boundary point has slid out.
	assert.Len(t, day, 48)
	for i := 1; i < len(day); i++ {
		assert.False(t, day[i].Timestamp.Before(day[i-1].Timestamp), "series out of order at %d", i)
	}

	var lastTwo []model.Measurement
	require.NoError(t, json.Unmarshal(get(grouped, "/api/measurements/range/2/2"), &lastTwo))
	assert.Len(t, lastTwo, 4)
	assert.Equal(t, day[len(day)-4:], lastTwo)

	// --- Step 3: Statistics ---
	t.Log("Step 3: computing last-hour statistics")
	var stats query.Statistics
	require.NoError(t, json.Unmarshal(get(grouped, "/api/statistics"), &stats))
	// Two readings per sensor in the last hour, plus the tie.
	assert.Equal(t, int64(13), stats.TotalMeasurements)
	assert.Equal(t, int64(6), stats.ActiveSensors)
	assert.Greater(t, stats.AvgPM25, 10.0)
	assert.InDelta(t, 25, stats.AvgTemperature, 10)
	assert.InDelta(t, 65, stats.AvgHumidity, 25)
	assert.Equal(t, query.Round(stats.AvgCO, 2), stats.AvgCO)
	assert.Equal(t, query.Round(stats.AvgHumidity, 1), stats.AvgHumidity)

	// --- Step 4: Restart ---
	t.Log("Step 4: seeding again is a no-op")
	again, err := seed.Run(ctx, appStore, seed.Options{Days: 1, Now: func() time.Time { return seededAt }})
	require.NoError(t, err)
	assert.False(t, again)
	count, err := appStore.CountSensors(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}
