package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hintermann/visitforge/internal/domain/visitor"
	"github.com/hintermann/visitforge/internal/infrastructure/messaging"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
)

const defaultAdminListLimit = 50

// AdminHandlers contains the operator-surface HTTP handlers.
type AdminHandlers struct {
	fingerprints visitor.FingerprintRepository
	eventLog     visitor.EventLogRepository
	broadcaster  *messaging.ActivityBroadcaster
	logger       *logging.ChanneledLogger
	upgrader     websocket.Upgrader
}

// NewAdminHandlers creates admin handlers with injected dependencies
func NewAdminHandlers(
	fingerprints visitor.FingerprintRepository,
	eventLog visitor.EventLogRepository,
	broadcaster *messaging.ActivityBroadcaster,
	logger *logging.ChanneledLogger,
) *AdminHandlers {
	return &AdminHandlers{
		fingerprints: fingerprints,
		eventLog:     eventLog,
		broadcaster:  broadcaster,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the admin token, not by this check.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GetVisitors handles GET /api/v1/admin/visitors - recent visitor identities.
func (h *AdminHandlers) GetVisitors(c *gin.Context) {
	limit := queryLimit(c, defaultAdminListLimit)

	visitors, err := h.fingerprints.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
		return
	}
	total, err := h.fingerprints.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"visitors": visitors,
		"total":    total,
	})
}

// GetEvents handles GET /api/v1/admin/events - the tail of the raw event log.
func (h *AdminHandlers) GetEvents(c *gin.Context) {
	limit := queryLimit(c, defaultAdminListLimit)

	events, err := h.eventLog.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
		return
	}
	total, err := h.eventLog.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
	})
}

// GetActivityWS handles GET /api/v1/admin/activity/ws - upgrades the
// connection and subscribes it to the activity broadcaster.
func (h *AdminHandlers) GetActivityWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Activity().Error("Websocket upgrade failed", "error", err.Error())
		return
	}

	client := &messaging.ActivityClient{
		Conn: conn,
		Send: make(chan []byte, 8),
	}
	h.broadcaster.Register(client)

	go h.broadcaster.WritePump(client)
	go h.broadcaster.ReadPump(client)
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 500 {
		return fallback
	}
	return n
}
