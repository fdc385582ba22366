package file

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/popolling/server/internal/pkg/response"
	"go.uber.org/zap"
)

// Handler accepts portfolio image uploads.
type Handler struct {
	storage Storage
	logger  *zap.Logger
}

func NewHandler(storage Storage, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{storage: storage, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.POST("/portfolios/upload", authMW, h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxFiles*MaxFileSize+(1<<20))
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "multipart form with images is required")
		return
	}
	images, err := readImages(form.File[FieldName])
	if err != nil {
		if errors.Is(err, ErrNoFiles) || errors.Is(err, ErrTooManyFiles) ||
			errors.Is(err, ErrFileTooLarge) || errors.Is(err, ErrUnsupportedMIME) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	urls := make([]string, 0, len(images))
	for _, img := range images {
		url, err := h.storage.Put(ctx, img.Key, img.Body, img.ContentType)
		if err != nil {
			for _, done := range images[:len(urls)] {
				if derr := h.storage.Delete(ctx, done.Key); derr != nil {
					h.logger.Warn("cleanup partial upload", zap.String("key", done.Key), zap.Error(derr))
				}
			}
			response.Error(c, err)
			return
		}
		urls = append(urls, url)
	}
	h.logger.Debug("images uploaded", zap.Int("count", len(urls)))
	response.OK(c, gin.H{"imageUrls": urls})
}
