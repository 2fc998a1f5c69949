package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker verifies connectivity to the backing store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthHandler reports liveness and store connectivity.
func healthHandler(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})

			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
