package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hintermann/visitforge/internal/application/services"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
)

// FingerprintHandlers contains the visitor identity HTTP handlers.
type FingerprintHandlers struct {
	identityService *services.IdentityService
	logger          *logging.ChanneledLogger
}

// NewFingerprintHandlers creates fingerprint handlers with injected dependencies
func NewFingerprintHandlers(identityService *services.IdentityService, logger *logging.ChanneledLogger) *FingerprintHandlers {
	return &FingerprintHandlers{
		identityService: identityService,
		logger:          logger,
	}
}

type fingerprintRequest struct {
	Hash string `json:"hash"`
	Raw  any    `json:"raw,omitempty"`
}

// PostFingerprint handles POST /api/v1/fingerprint - resolves a client hash
// into a visitor identity, creating or updating the record.
func (h *FingerprintHandlers) PostFingerprint(c *gin.Context) {
	var req fingerprintRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Hash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hash is required"})
		return
	}

	ua := headerPtr(c, "User-Agent")
	ip := clientIPPtr(c)

	identity, err := h.identityService.Resolve(req.Hash, ua, ip, req.Raw)
	if err != nil {
		h.logger.Identity().Error("Fingerprint resolution failed", "error", err.Error())
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"id":          identity.ID,
		"hash":        identity.Hash,
		"serverToken": identity.ServerToken,
		"visits":      identity.Visits,
		"firstSeen":   identity.FirstSeen,
		"lastSeen":    identity.LastSeen,
	})
}

// GetFingerprint handles GET /api/v1/fingerprint - looks up an identity by
// hash or server token. A miss is not an error; it responds {found: false}.
func (h *FingerprintHandlers) GetFingerprint(c *gin.Context) {
	hash := c.Query("hash")
	serverToken := c.Query("serverToken")

	identity, err := h.identityService.Lookup(hash, serverToken)
	if err != nil {
		respondError(c, err)
		return
	}
	if identity == nil {
		c.JSON(http.StatusOK, gin.H{"found": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"found":       true,
		"id":          identity.ID,
		"hash":        identity.Hash,
		"serverToken": identity.ServerToken,
		"visits":      identity.Visits,
		"firstSeen":   identity.FirstSeen,
		"lastSeen":    identity.LastSeen,
	})
}

func headerPtr(c *gin.Context, name string) *string {
	if v := c.GetHeader(name); v != "" {
		return &v
	}
	return nil
}

func clientIPPtr(c *gin.Context) *string {
	if ip := c.ClientIP(); ip != "" {
		return &ip
	}
	return nil
}
