package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"airquality-backend/internal/query"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	queries      *query.Service
	health       Pinger
	queryTimeout time.Duration
}

// NewHandler creates a new API handler. A zero queryTimeout leaves request
// contexts untouched.
func NewHandler(queries *query.Service, health Pinger, queryTimeout time.Duration) *Handler {
	return &Handler{
		queries:      queries,
		health:       health,
		queryTimeout: queryTimeout,
	}
}

func (h *Handler) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.queryTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.queryTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

// abortWithQueryError maps a query layer failure onto a response. Drivers do
// not always surface the deadline in the error itself, so ctx is checked too.
func abortWithQueryError(c *gin.Context, ctx context.Context, err error, message string) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, query.ErrInvalidSensorID), errors.Is(err, query.ErrInvalidWindow),
		errors.Is(err, query.ErrWindowTooLarge):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": "Query timed out"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
