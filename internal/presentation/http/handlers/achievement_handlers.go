package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hintermann/visitforge/internal/application/services"
	"github.com/hintermann/visitforge/internal/infrastructure/observability/logging"
)

// AchievementHandlers contains the achievement read-side HTTP handlers.
type AchievementHandlers struct {
	identityService    *services.IdentityService
	achievementService *services.AchievementService
	logger             *logging.ChanneledLogger
}

// NewAchievementHandlers creates achievement handlers with injected dependencies
func NewAchievementHandlers(
	identityService *services.IdentityService,
	achievementService *services.AchievementService,
	logger *logging.ChanneledLogger,
) *AchievementHandlers {
	return &AchievementHandlers{
		identityService:    identityService,
		achievementService: achievementService,
		logger:             logger,
	}
}

// GetAchievements handles GET /api/v1/achievements - returns the catalog
// joined with the visitor's progress and their roll-up stats. An unresolved
// identity is not an error; the response carries empty arrays.
func (h *AchievementHandlers) GetAchievements(c *gin.Context) {
	hash := c.Query("hash")
	serverToken := c.Query("serverToken")

	identity, err := h.identityService.Lookup(hash, serverToken)
	if err != nil {
		respondError(c, err)
		return
	}
	if identity == nil {
		c.JSON(http.StatusOK, gin.H{
			"achievements": []services.AchievementView{},
			"stats":        nil,
		})
		return
	}

	views, stats, err := h.achievementService.Overview(identity.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"achievements": views,
		"stats":        stats,
	})
}
