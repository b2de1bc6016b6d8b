package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-service/internal/relay"
	"relay-service/internal/store"
)

// StateHandler serves the full-state fetch used by clients on load.
type StateHandler struct {
	engine   *relay.Engine
	identity *store.Identity
}

// NewStateHandler builds a StateHandler.
func NewStateHandler(engine *relay.Engine, identity *store.Identity) *StateHandler {
	return &StateHandler{engine: engine, identity: identity}
}

// Fetch handles POST /api/state. Rooms and threads are scoped to the
// caller; the user list carries every public profile so member lists and
// DM pickers can render.
func (h *StateHandler) Fetch(c *gin.Context) {
	uid := c.GetString("userID")

	user, err := h.identity.Get(uid)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	rooms, dms := h.engine.StateFor(uid)
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"profile": user.Profile(),
		"rooms":   rooms,
		"dms":     dms,
		"users":   h.identity.AllProfiles(),
	})
}
