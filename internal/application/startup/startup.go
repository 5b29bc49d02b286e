// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hintermann/visitforge/internal/application/container"
	"github.com/hintermann/visitforge/internal/infrastructure/email"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/persistence/database"
	"github.com/hintermann/visitforge/internal/presentation/http/server"
	"github.com/hintermann/visitforge/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until the
// process receives a shutdown signal.
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	// Step 1: Load configuration
	log.Println("Loading configuration...")
	config.Initialize()

	// Step 2: Create channeled logger
	logConfig := logging.DefaultLoggerConfig()
	logConfig.OutputToFile = config.LogToFile
	logConfig.LogDirectory = config.LogDirectory
	logger, err := logging.NewChanneledLogger(logConfig)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Startup().Info("Configuration loaded - switching to channeled logging")

	// Step 3: Connect to the database and ensure the schema
	logger.Startup().Info("Connecting to database...")
	db, err := database.NewConnection(logger)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()
	logger.Startup().Info("Database connected", "connection", db.ConnectionInfo())

	if err := database.EnsureSchema(db); err != nil {
		return fmt.Errorf("schema setup failed: %w", err)
	}
	logger.Startup().Info("Schema verified")

	// Step 4: Mail sender (optional)
	var sender email.Sender
	if config.EmailEnabled && config.ResendAPIKey != "" {
		client, err := email.NewClient()
		if err != nil {
			logger.Startup().Error("Mail client unavailable, contact delivery disabled", "error", err.Error())
		} else {
			sender = client
			logger.Startup().Info("Mail client initialized")
		}
	} else {
		logger.Startup().Info("Mail delivery disabled")
	}

	// Step 5: Dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer := container.NewContainer(db, logger, sender)

	// Step 6: Seed the achievement catalog
	if err := appContainer.AchievementService.SeedCatalog(); err != nil {
		return fmt.Errorf("achievement catalog seed failed: %w", err)
	}
	logger.Startup().Info("Achievement catalog seeded")

	// Step 7: Start the activity broadcaster
	go appContainer.Broadcaster.Run()
	logger.Startup().Info("Activity broadcaster started", "tick", config.ActivityTickInterval)

	// Step 8: HTTP server
	httpServer := server.New(config.Port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+config.Port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", config.Port)

	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
