// File: internal/search/handler.go
package search

import (
	"launchpad_backend/internal/clock"
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/product"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	clock   clock.Clock
	logger  *zap.Logger
}

func NewHandler(service Service, clk clock.Clock, logger *zap.Logger) *Handler {
	return &Handler{service: service, clock: clk, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/products/search", h.search)
}

func (h *Handler) search(c *gin.Context) {
	var query Query
	if err := c.ShouldBindQuery(&query); err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails(err.Error()))
		return
	}
	products, pagination, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Search results retrieved successfully.", product.ToProductResponses(products, h.clock.Now(), false), pagination)
}
