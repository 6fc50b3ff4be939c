// File: internal/badge/handler.go
package badge

import (
	"net/http"

	"launchpad_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const cacheControl = "public, max-age=86400"

type Handler struct {
	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/badges", h.getBadge)
}

func (h *Handler) getBadge(c *gin.Context) {
	var params Params
	if err := c.ShouldBindQuery(&params); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	svg, err := Render(params)
	if err != nil {
		if _, ok := common.IsAPIError(err); !ok {
			h.logger.Error("Failed to render badge", zap.Error(err))
		}
		common.RespondWithError(c, err)
		return
	}
	c.Header("Cache-Control", cacheControl)
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", svg)
}
