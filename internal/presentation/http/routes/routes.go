// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hintermann/visitforge/internal/application/container"
	"github.com/hintermann/visitforge/internal/presentation/http/handlers"
	"github.com/hintermann/visitforge/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	fingerprintHandlers := handlers.NewFingerprintHandlers(container.IdentityService, container.Logger)
	eventHandlers := handlers.NewEventHandlers(container.EventService, container.Logger)
	achievementHandlers := handlers.NewAchievementHandlers(container.IdentityService, container.AchievementService, container.Logger)
	contactHandlers := handlers.NewContactHandlers(container.ContactService, container.Logger)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger)
	adminHandlers := handlers.NewAdminHandlers(container.Fingerprints, container.EventLog, container.Broadcaster, container.Logger)
	dbHandlers := handlers.NewDBHandlers(container.DB, container.Logger)

	r.GET("/metrics", gin.WrapH(container.Metrics.Handler()))

	api := r.Group("/api/v1")
	{
		// Visitor-facing endpoints
		api.POST("/fingerprint", fingerprintHandlers.PostFingerprint)
		api.GET("/fingerprint", fingerprintHandlers.GetFingerprint)
		api.POST("/events", eventHandlers.PostEvents)
		api.GET("/achievements", achievementHandlers.GetAchievements)
		api.POST("/contact", contactHandlers.PostContact)

		// System routes
		api.POST("/auth/login", authHandlers.PostLogin)
		api.GET("/db/status", dbHandlers.GetDatabaseStatus)

		// Operator endpoints
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware(container.AuthService))
		{
			admin.GET("/visitors", adminHandlers.GetVisitors)
			admin.GET("/events", adminHandlers.GetEvents)
			admin.GET("/activity/ws", adminHandlers.GetActivityWS)
		}
	}

	return r
}
