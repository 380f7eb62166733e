package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxBytes = 5 << 20
	formField       = "image"
)

// Uploads are served from the API origin, so only raster formats are
// accepted. SVG can carry script.
var rasterTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/avif"}

func isRasterImage(mt *mimetype.MIME) bool {
	for _, t := range rasterTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

type Handler struct {
	Storage  Storage
	Enabled  bool
	MaxBytes int64
	Log      *zap.Logger
}

func NewHandler(storage Storage, enabled bool, maxBytes int64, log *zap.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{Storage: storage, Enabled: enabled, MaxBytes: maxBytes, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guard gin.HandlerFunc) {
	rg.POST("/upload", guard, h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	if !h.Enabled {
		c.JSON(http.StatusGone, gin.H{"error": "local uploads are disabled; use managed image storage"})
		return
	}

	tooLarge := fmt.Sprintf("File size too large (max %dMB)", h.MaxBytes>>20)

	// leave room for the multipart envelope
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxBytes+1<<20)

	fh, err := c.FormFile(formField)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			c.JSON(http.StatusBadRequest, gin.H{"error": tooLarge})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fh.Size > h.MaxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": tooLarge})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.MaxBytes+1))
	if err != nil {
		h.Log.Error("read upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	if int64(len(data)) > h.MaxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": tooLarge})
		return
	}

	mt := mimetype.Detect(data)
	if !isRasterImage(mt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files are allowed"})
		return
	}

	name := "image-" + uuid.NewString() + mt.Extension()
	url, err := h.Storage.Save(c.Request.Context(), name, data)
	if err != nil {
		h.Log.Error("save upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	h.Log.Info("image uploaded", zap.String("url", url), zap.String("type", mt.String()))
	c.JSON(http.StatusOK, gin.H{"imageUrl": url})
}
