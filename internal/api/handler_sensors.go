package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSensors handles the GET /api/sensors request.
func (h *Handler) GetSensors(c *gin.Context) {
	ctx, cancel := h.queryContext(c)
	defer cancel()

	states, err := h.queries.Sensors(ctx)
	if err != nil {
		abortWithQueryError(c, ctx, err, "Failed to retrieve sensors")
		return
	}
	c.JSON(http.StatusOK, states)
}

// GetStatistics handles the GET /api/statistics request.
func (h *Handler) GetStatistics(c *gin.Context) {
	ctx, cancel := h.queryContext(c)
	defer cancel()

	stats, err := h.queries.Statistics(ctx)
	if err != nil {
		abortWithQueryError(c, ctx, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Healthz reports whether the database answers.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := h.queryContext(c)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
