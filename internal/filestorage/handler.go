// File: internal/filestorage/handler.go
package filestorage

import (
	"errors"
	"io"
	"net/http"

	"launchpad_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartOverhead is the room allowed for boundaries and part headers
// around a file of the maximum size.
const multipartOverhead = 64 << 10

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts POST /uploads behind the given middleware.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, middleware ...gin.HandlerFunc) {
	handlers := append(middleware, h.stage)
	router.POST("/uploads", handlers...)
}

func (h *Handler) stage(c *gin.Context) {
	tooLarge := invalidFile("The file exceeds the maximum size of " + humanBytes(h.service.MaxBytes()) + ".")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.MaxBytes()+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			common.RespondWithError(c, tooLarge)
			return
		}
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("A multipart field named file is required."))
		return
	}
	if fileHeader.Size > h.service.MaxBytes() {
		common.RespondWithError(c, tooLarge)
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("The uploaded file could not be read."))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.service.MaxBytes()+1))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("The uploaded file could not be read."))
		return
	}

	resp, err := h.service.Stage(c.Request.Context(), common.ActorFromContext(c), fileHeader.Filename, data)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, http.StatusCreated, "File uploaded. Reference it by upload_id within the expiry window.", resp)
}
