package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"airquality-backend/config"
	"airquality-backend/internal/mw"
	"airquality-backend/internal/query"
	"airquality-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, logger *slog.Logger) (*gin.Engine, error) {
	r := gin.New()
	// CORS sits on the engine so preflight requests get answered even
	// though no OPTIONS routes exist.
	r.Use(gin.Recovery(), mw.RequestLogger(logger), corsMiddleware(cfg.Server.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted_proxies: %w", err)
	}

	queries := query.NewService(s, s,
		query.WithLatestStrategy(query.LatestStrategy(cfg.Query.LatestStrategy)),
		query.WithMaxRangeHours(cfg.Query.MaxRangeHours),
	)
	handler := NewHandler(queries, s, cfg.Database.QueryTimeout)

	r.GET("/healthz", handler.Healthz)

	// API group
	api := r.Group("/api")
	api.Use(mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst))
	{
		// GET /api/sensors
		api.GET("/sensors", handler.GetSensors)

		// GET /api/measurements/{sensor_id}
		api.GET("/measurements/:sensor_id", handler.GetMeasurements)

		// GET /api/measurements/range/{sensor_id}/{hours}
		api.GET("/measurements/range/:sensor_id/:hours", handler.GetMeasurementsRange)

		// GET /api/statistics
		api.GET("/statistics", handler.GetStatistics)
	}

	return r, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	return cors.New(corsCfg)
}
