package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-service/internal/relay"
	"relay-service/internal/telemetry"
)

// RoomHandler serves room creation and invites.
type RoomHandler struct {
	engine *relay.Engine
	audit  *telemetry.AuditEmitter
}

// NewRoomHandler builds a RoomHandler.
func NewRoomHandler(engine *relay.Engine, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{engine: engine, audit: audit}
}

// Create handles POST /api/rooms/create. The caller becomes the owner;
// private rooms start with the owner as sole member.
func (h *RoomHandler) Create(c *gin.Context) {
	uid := c.GetString("userID")

	var req struct {
		Name      string `json:"name" binding:"required"`
		IsPrivate bool   `json:"isPrivate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.engine.CreateRoom(uid, req.Name, req.IsPrivate)
	if err != nil {
		auditError(c, h.audit, "internal error")
		respondStoreError(c, err)
		return
	}

	auditInfo(c, h.audit, "room created")
	c.JSON(http.StatusOK, gin.H{"ok": true, "room": room})
}

// Invite handles POST /api/rooms/invite. Only the owner or an existing
// member of a private room may invite; inviting an existing member is a
// no-op.
func (h *RoomHandler) Invite(c *gin.Context) {
	uid := c.GetString("userID")

	var req struct {
		RoomID string `json:"roomId" binding:"required"`
		Email  string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.Invite(req.RoomID, uid, req.Email); err != nil {
		auditError(c, h.audit, "invite rejected")
		respondStoreError(c, err)
		return
	}

	auditInfo(c, h.audit, "user invited to room")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
