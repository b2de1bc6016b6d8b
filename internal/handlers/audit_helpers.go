package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"relay-service/internal/telemetry"
)

const requestIDContextKey = "request_id"

func auditInfo(c *gin.Context, audit *telemetry.AuditEmitter, text string) {
	if audit == nil {
		return
	}
	audit.Info(c.Request.Context(), text, requestIDFromContext(c), userIDFromContext(c))
}

func auditError(c *gin.Context, audit *telemetry.AuditEmitter, text string) {
	if audit == nil {
		return
	}
	audit.Error(c.Request.Context(), text, requestIDFromContext(c), userIDFromContext(c))
}

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if val, ok := c.Get("userID"); ok {
		if uid, ok := val.(string); ok && uid != "" {
			return &uid
		}
	}

	if header := c.GetHeader("X-User-ID"); header != "" {
		return &header
	}
	return nil
}
