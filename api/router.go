package api

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/vigil-ai/vigil-backend/api/handlers"
	"github.com/vigil-ai/vigil-backend/api/middleware"
	"github.com/vigil-ai/vigil-backend/config"
	"github.com/vigil-ai/vigil-backend/internal/bus"
	"github.com/vigil-ai/vigil-backend/internal/vision"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(metaDB *sql.DB, cfg *config.Config, mediaStore handlers.ImageStore, visionClient *vision.Client, logBus bus.Bus) *gin.Engine {
	router := gin.Default() // Includes Logger and Recovery

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.APIKeyHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Devices post a capture pair every few seconds plus log lines, so the
	// budget is sized for machine traffic rather than human clicks.
	ratelimiter := middleware.NewRateLimiter(120, time.Minute)
	router.Use(middleware.RateLimitMiddleware(ratelimiter))
	router.Use(middleware.ErrorHandler())

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(metaDB, cfg)
	apiKeyHandler := handlers.NewAPIKeyHandler(metaDB, cfg)
	configHandler := handlers.NewConfigHandler(metaDB, cfg)
	analysisHandler := handlers.NewAnalysisHandler(metaDB, cfg, mediaStore, visionClient)
	deviceLogHandler := handlers.NewDeviceLogHandler(logBus)
	wsHandler := handlers.NewWSHandler(cfg, logBus)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
	}

	// --- Dashboard Routes (bearer token only) ---
	userRoutes := router.Group("/api/v1")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	{
		userRoutes.POST("/api-keys", apiKeyHandler.Create)
		userRoutes.GET("/api-keys", apiKeyHandler.List)
		userRoutes.DELETE("/api-keys/:prefix", apiKeyHandler.Revoke)

		userRoutes.GET("/vision/models", analysisHandler.ListModels)
	}

	// --- Combined Routes (bearer token or X-Api-Key) ---
	visionRoutes := router.Group("/api/v1/vision")
	visionRoutes.Use(middleware.Authenticate(metaDB, cfg))
	{
		visionRoutes.GET("/config", configHandler.Get)
		visionRoutes.PUT("/config", configHandler.Update)

		visionRoutes.GET("/logs", analysisHandler.List)
		visionRoutes.GET("/logs/:id", analysisHandler.Get)
		visionRoutes.GET("/logs/:id/:image", analysisHandler.ServeImage)

		// Device-only: submission must come from an API key principal
		deviceRoutes := visionRoutes.Group("")
		deviceRoutes.Use(middleware.RequireDeviceKey())
		{
			deviceRoutes.POST("/logs", analysisHandler.Create)
			deviceRoutes.POST("/log", deviceLogHandler.Submit)
		}
	}

	// --- WebSocket log stream (token authenticated in the handler) ---
	router.GET("/ws/logs", wsHandler.Stream)

	return router
}
