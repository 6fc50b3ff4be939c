// File: internal/moderation/handler.go
package moderation

import (
	"launchpad_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the moderation endpoints on an admin-only group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/moderation")
	{
		group.GET("/queue", h.queue)
		group.GET("/stats", h.stats)
	}
}

func (h *Handler) queue(c *gin.Context) {
	items, pagination, err := h.service.Queue(c.Request.Context(), common.ActorFromContext(c), c.Query("status"), common.GetPaginationParams(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Moderation queue retrieved successfully.", items, pagination)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), common.ActorFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Moderation stats retrieved successfully.", stats)
}
