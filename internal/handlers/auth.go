package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-service/internal/relay"
	"relay-service/internal/telemetry"
)

// AuthHandler serves the signup/login/token-restore side channel.
type AuthHandler struct {
	engine *relay.Engine
	audit  *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(engine *relay.Engine, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{engine: engine, audit: audit}
}

// Signup handles POST /api/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		DisplayName string `json:"displayName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email/password required"})
		return
	}

	user, err := h.engine.SignUp(req.Email, req.Password, req.DisplayName)
	if err != nil {
		auditError(c, h.audit, "signup rejected")
		respondStoreError(c, err)
		return
	}

	auditInfo(c, h.audit, "user signed up")
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": user.Token, "profile": user.Profile()})
}

// Login handles POST /api/login. A successful login rotates the session
// token, invalidating the prior one.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email/password required"})
		return
	}

	user, err := h.engine.Login(req.Email, req.Password)
	if err != nil {
		auditError(c, h.audit, "login rejected")
		respondStoreError(c, err)
		return
	}

	auditInfo(c, h.audit, "user logged in")
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": user.Token, "profile": user.Profile()})
}

// Restore handles POST /api/restore: it validates a stored token without
// rotating it, so a returning client can resume its session.
func (h *AuthHandler) Restore(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}

	user, err := h.engine.Restore(req.Token)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "profile": user.Profile()})
}
