package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n8dizzle/Christmas-automations/models"
)

// Version is reported by the health endpoint.
var Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports session utilisation and degrades status when > 80% of browser
// sessions are active.
func Health(src StatsSource, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := src.Stats()

		status := "healthy"
		if stats.MaxSessions > 0 && stats.ActiveSessions > int(float64(stats.MaxSessions)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			SessionStats: stats,
			Version:      Version,
		})
	}
}
