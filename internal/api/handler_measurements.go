package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type sensorURI struct {
	SensorID int64 `uri:"sensor_id" binding:"required,min=1"`
}

type hoursURI struct {
	Hours *int `uri:"hours" binding:"required,min=0"`
}

// GetMeasurements handles the GET /api/measurements/{sensor_id} request:
// the trailing 24 hours of one sensor.
func (h *Handler) GetMeasurements(c *gin.Context) {
	var uri sensorURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid sensor ID"})
		return
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()

	series, err := h.queries.Recent(ctx, uri.SensorID)
	if err != nil {
		abortWithQueryError(c, ctx, err, "Failed to retrieve measurements")
		return
	}
	c.JSON(http.StatusOK, series)
}

// GetMeasurementsRange handles the GET
// /api/measurements/range/{sensor_id}/{hours} request.
func (h *Handler) GetMeasurementsRange(c *gin.Context) {
	var sensor sensorURI
	if err := c.ShouldBindUri(&sensor); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid sensor ID"})
		return
	}
	var window hoursURI
	if err := c.ShouldBindUri(&window); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid hours"})
		return
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()

	series, err := h.queries.Range(ctx, sensor.SensorID, *window.Hours)
	if err != nil {
		abortWithQueryError(c, ctx, err, "Failed to retrieve measurements")
		return
	}
	c.JSON(http.StatusOK, series)
}
