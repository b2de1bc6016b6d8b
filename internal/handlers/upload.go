package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// UploadHandler accepts base64 image uploads and serves back their URLs.
// Storage is plain files under a configured directory; this is transport
// glue for the relay, not part of the channel engine.
type UploadHandler struct {
	dir string
}

// NewUploadHandler ensures the upload directory exists.
func NewUploadHandler(dir string) (*UploadHandler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadHandler{dir: dir}, nil
}

// Upload handles POST /api/upload with {filename, dataBase64}.
func (h *UploadHandler) Upload(c *gin.Context) {
	var req struct {
		Filename   string `json:"filename" binding:"required"`
		DataBase64 string `json:"dataBase64" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing"})
		return
	}

	// Accept both raw base64 and data URLs ("data:image/png;base64,....").
	raw := req.DataBase64
	if idx := strings.LastIndex(raw, ","); idx >= 0 {
		raw = raw[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 payload"})
		return
	}

	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString(), unsafeFilenameChars.ReplaceAllString(req.Filename, ""))
	if err := os.WriteFile(filepath.Join(h.dir, name), data, 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": "/uploads/" + name})
}
