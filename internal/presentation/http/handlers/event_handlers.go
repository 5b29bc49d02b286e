package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hintermann/visitforge/internal/application/services"
	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
)

// EventHandlers contains the event ingestion HTTP handlers.
type EventHandlers struct {
	eventService *services.EventService
	logger       *logging.ChanneledLogger
}

// NewEventHandlers creates event handlers with injected dependencies
func NewEventHandlers(eventService *services.EventService, logger *logging.ChanneledLogger) *EventHandlers {
	return &EventHandlers{
		eventService: eventService,
		logger:       logger,
	}
}

type eventBatchRequest struct {
	ServerToken string          `json:"serverToken,omitempty"`
	Hash        string          `json:"hash,omitempty"`
	Events      []visitor.Event `json:"events"`
}

// PostEvents handles POST /api/v1/events - ingests one ordered event batch
// for a previously resolved identity.
func (h *EventHandlers) PostEvents(c *gin.Context) {
	var req eventBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	result, err := h.eventService.Ingest(req.Hash, req.ServerToken, req.Events)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"newlyUnlocked": unlockedOrEmpty(result.NewlyUnlocked),
	})
}

// unlockedOrEmpty keeps the response field a JSON array even when nothing
// unlocked.
func unlockedOrEmpty(unlocked []string) []string {
	if unlocked == nil {
		return []string{}
	}
	return unlocked
}
