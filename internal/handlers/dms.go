package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-service/internal/relay"
)

// DMHandler serves direct-thread opening.
type DMHandler struct {
	engine *relay.Engine
}

// NewDMHandler builds a DMHandler.
func NewDMHandler(engine *relay.Engine) *DMHandler {
	return &DMHandler{engine: engine}
}

// Open handles POST /api/dms/open: it returns the thread between the caller
// and the addressed user, creating it on first contact. Opening the same
// pair from either side yields the same thread.
func (h *DMHandler) Open(c *gin.Context) {
	uid := c.GetString("userID")

	var req struct {
		OtherEmail string `json:"otherEmail" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	thread, err := h.engine.OpenThread(uid, req.OtherEmail)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "thread": thread})
}
