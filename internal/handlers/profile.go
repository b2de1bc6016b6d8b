package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-service/internal/models"
	"relay-service/internal/relay"
)

// ProfileHandler serves profile mutation for authenticated users.
type ProfileHandler struct {
	engine *relay.Engine
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(engine *relay.Engine) *ProfileHandler {
	return &ProfileHandler{engine: engine}
}

// Update handles POST /api/profile/update. Absent fields are left
// unchanged; the updated public profile is broadcast to every bound
// connection by the engine.
func (h *ProfileHandler) Update(c *gin.Context) {
	uid := c.GetString("userID")

	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.engine.UpdateProfile(uid, req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": user.Profile()})
}
