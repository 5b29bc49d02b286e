package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
	"github.com/hintermann/visitforge/internal/infrastructure/persistence/database"
)

// DatabaseHandlers contains database status HTTP handlers.
type DatabaseHandlers struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewDBHandlers creates database handlers with injected dependencies
func NewDBHandlers(db *database.DB, logger *logging.ChanneledLogger) *DatabaseHandlers {
	return &DatabaseHandlers{
		db:     db,
		logger: logger,
	}
}

// GetDatabaseStatus handles GET /api/v1/db/status - reports connection health.
func (h *DatabaseHandlers) GetDatabaseStatus(c *gin.Context) {
	start := time.Now()
	healthy := h.db.Healthy()

	if !healthy {
		h.logger.Database().Error("Database status check failed", "duration", time.Since(start))
	}

	c.JSON(http.StatusOK, gin.H{
		"healthy":      healthy,
		"driver":       h.db.ConnectionInfo(),
		"responseTime": time.Since(start).String(),
	})
}
