package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/linelink/linelink-go/internal/database"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func SetupRoutes(router *gin.Engine, db *database.PostgresDB, redis *database.RedisClient, h *Handler) {
	// Health check endpoint
	router.GET("/health", healthCheck(db, redis))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Ambient conditions and what-if scenarios
		conditions := v1.Group("/conditions")
		{
			conditions.GET("/current", h.getCurrentConditions)
			conditions.POST("/scenario", h.postScenario)
		}

		// 24-hour forecast with derived insights
		v1.GET("/forecast", h.getForecast)

		// Per-line detail
		lines := v1.Group("/lines")
		{
			lines.GET("/:name", h.getLine)
			lines.GET("/:name/history", h.getLineHistory)
		}

		// Alerts management
		alerts := v1.Group("/alerts")
		{
			alerts.GET("/recent", h.getRecentAlerts)
			alerts.POST("/dispatch", h.postDispatch)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		// Check database health
		if db == nil || db.HealthCheck(c.Request.Context()) != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}

		// Check Redis health
		if redis == nil || redis.HealthCheck(c.Request.Context()) != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
