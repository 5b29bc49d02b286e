package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hintermann/visitforge/internal/application/services"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
)

// ContactHandlers contains the contact-form HTTP handlers.
type ContactHandlers struct {
	contactService *services.ContactService
	logger         *logging.ChanneledLogger
}

// NewContactHandlers creates contact handlers with injected dependencies
func NewContactHandlers(contactService *services.ContactService, logger *logging.ChanneledLogger) *ContactHandlers {
	return &ContactHandlers{
		contactService: contactService,
		logger:         logger,
	}
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// PostContact handles POST /api/v1/contact - validates and forwards a
// contact-form submission.
func (h *ContactHandlers) PostContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	if err := h.contactService.Submit(req.Name, req.Email, req.Message); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
