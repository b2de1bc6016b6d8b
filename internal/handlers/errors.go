package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-service/internal/store"
)

// respondStoreError maps a store failure to its HTTP status and writes the
// error body. Unknown errors become 500 without leaking internals.
func respondStoreError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, store.ErrEmailTaken),
		errors.Is(err, store.ErrInvalidCredentials),
		errors.Is(err, store.ErrEmptyContent):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, store.ErrInvalidToken):
		status = http.StatusUnauthorized
		msg = err.Error()
	case errors.Is(err, store.ErrNotAuthorized):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrRoomNotFound),
		errors.Is(err, store.ErrThreadNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	}

	c.JSON(status, gin.H{"error": msg})
}
