package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mpr131/whiskey-inventory-app-sub000/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(handler.logger))
	router.Use(LoggerMiddleware(handler.logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.PerIP > 0 {
		v1.Use(RateLimitMiddleware(NewIPRateLimiter(cfg.RateLimit.PerIP)))
	}
	{
		catalog := v1.Group("/catalog")
		{
			catalog.POST("/resolve", handler.Resolve)
			catalog.POST("/suggestions", handler.Suggestions)
			catalog.POST("/import", handler.Import)
			catalog.POST("/sync", handler.Sync)
			catalog.POST("/sync/feed", handler.SyncFeed)
			catalog.GET("/entries/:id", handler.GetEntry)
		}
	}

	return router
}
