// File: internal/product/handler.go
package product

import (
	"net/http"

	"launchpad_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler serves product content, listings, moderation actions and upvotes.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new product handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Middlewares groups the gin middleware the product routes depend on.
type Middlewares struct {
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	Admin        gin.HandlerFunc
	WriteLimit   gin.HandlerFunc
}

// RegisterRoutes sets up the product routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, mw Middlewares) {
	products := router.Group("/products")
	{
		products.GET("", h.listProducts)
		products.GET("/featured", h.featuredProducts)
		products.GET("/:id", mw.OptionalAuth, h.getProduct)
		products.GET("/:id/upvoters", h.listUpvoters)

		products.POST("", mw.Auth, h.createProduct)
		products.PATCH("/:id", mw.Auth, h.updateProduct)
		products.DELETE("/:id", mw.Auth, h.deleteProduct)
		products.POST("/:id/submit", mw.Auth, h.submitProduct)
		products.POST("/:id/upvote", mw.Auth, mw.WriteLimit, h.toggleUpvote)
	}

	router.GET("/users/me/products", mw.Auth, h.listMyProducts)
	router.GET("/users/:username/products", h.listUserProducts)

	admin := router.Group("/admin/products", mw.Auth, mw.Admin)
	{
		admin.POST("/:id/approve", h.approveProduct)
		admin.POST("/:id/reject", h.rejectProduct)
		admin.POST("/:id/suspend", h.suspendProduct)
		admin.POST("/:id/reinstate", h.reinstateProduct)
		admin.POST("/:id/feature", h.featureProduct)
		admin.POST("/:id/unfeature", h.unfeatureProduct)
		admin.POST("/:id/premium", h.premiumProduct)
	}
}

// respondProduct writes a product with its version as ETag.
func (h *Handler) respondProduct(c *gin.Context, status int, message string, p *Product) {
	actor := common.ActorFromContext(c)
	includeReview := actor.Owns(p.UserID) || actor.IsAdmin()
	common.SetVersion(c, p.Version)
	common.RespondSuccess(c, status, message, ToProductResponse(p, h.service.Now(), includeReview))
}

func (h *Handler) listProducts(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	pq := common.GetPaginationParams(c)
	query.Page, query.PageSize = pq.Page, pq.PageSize

	products, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Products retrieved successfully.", ToProductResponses(products, h.service.Now(), false), pagination)
}

func (h *Handler) featuredProducts(c *gin.Context) {
	products, err := h.service.Featured(c.Request.Context())
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Featured products retrieved successfully.", ToProductResponses(products, h.service.Now(), false))
}

func (h *Handler) getProduct(c *gin.Context) {
	actor := common.ActorFromContext(c)
	p, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	upvoted, err := h.service.HasUpvoted(c.Request.Context(), actor, p.ID)
	if err != nil {
		h.logger.Warn("Failed to read upvote state", zap.Error(err), zap.String("productID", p.ID.String()))
	}
	includeReview := actor.Owns(p.UserID) || actor.IsAdmin()
	common.SetVersion(c, p.Version)
	common.RespondOK(c, "Product retrieved successfully.", gin.H{
		"product":  ToProductResponse(p, h.service.Now(), includeReview),
		"upvoted":  upvoted,
		"page_url": h.service.URL(p),
	})
}

func (h *Handler) listUpvoters(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	upvoters, pagination, err := h.service.ListUpvoters(c.Request.Context(), id, common.GetPaginationParams(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Upvoters retrieved successfully.", upvoters, pagination)
}

func (h *Handler) createProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Create product: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Create(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusCreated, "Product created successfully.", p)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, version, ok := h.targetAndVersion(c)
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Update(c.Request.Context(), common.ActorFromContext(c), id, version, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, "Product updated successfully.", p)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), common.ActorFromContext(c), id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) listMyProducts(c *gin.Context) {
	products, pagination, err := h.service.ListMine(c.Request.Context(), common.ActorFromContext(c), common.GetPaginationParams(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Products retrieved successfully.", ToProductResponses(products, h.service.Now(), true), pagination)
}

func (h *Handler) listUserProducts(c *gin.Context) {
	products, pagination, err := h.service.ListByUsername(c.Request.Context(), c.Param("username"), common.GetPaginationParams(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Products retrieved successfully.", ToProductResponses(products, h.service.Now(), false), pagination)
}

func (h *Handler) toggleUpvote(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	result, err := h.service.ToggleUpvote(c.Request.Context(), common.ActorFromContext(c), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Upvote toggled.", result)
}

// --- Transitions ---

// targetAndVersion reads the :id path parameter and the optional If-Match version.
func (h *Handler) targetAndVersion(c *gin.Context) (id uuid.UUID, version int64, ok bool) {
	parsed, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return id, 0, false
	}
	version, err = common.ExpectedVersion(c)
	if err != nil {
		common.RespondWithError(c, err)
		return id, 0, false
	}
	return parsed, version, true
}

func (h *Handler) submitProduct(c *gin.Context) {
	id, version, ok := h.targetAndVersion(c)
	if !ok {
		return
	}
	p, err := h.service.Submit(c.Request.Context(), common.ActorFromContext(c), id, version)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, "Product submitted for review.", p)
}

func (h *Handler) approveProduct(c *gin.Context) {
	id, version, ok := h.targetAndVersion(c)
	if !ok {
		return
	}
	p, err := h.service.Approve(c.Request.Context(), common.ActorFromContext(c), id, version)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, "Product approved.", p)
}

func (h *Handler) rejectProduct(c *gin.Context) {
	id, version, ok := h.targetAndVersion(c)
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Reject(c.Request.Context(), common.ActorFromContext(c), id, version, req.Reason)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, "Product rejected.", p)
}

func (h *Handler) suspendProduct(c *gin.Context) {
	id, version, ok := h.targetAndVersion(c)
	if !ok {
		return
	}
	var req SuspendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.RespondWithError(c, common.BindingError(err))
			return
		}
	}
	p, err := h.service.Suspend(c.Request.Context(), common.ActorFromContext(c), id, version, req.Reason)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, "Product suspended.", p)
}

func (h *Handler) reinstateProduct(c *gin.Context) {
	id, version, ok := h.targetAndVersion(c)
	if !ok {
		return
	}
	p, err := h.service.Reinstate(c.Request.Context(), common.ActorFromContext(c), id, version)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, "Product reinstated.", p)
}

func (h *Handler) featureProduct(c *gin.Context) {
	id, version, ok := h.targetAndVersion(c)
	if !ok {
		return
	}
	var req DurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Feature(c.Request.Context(), common.ActorFromContext(c), id, version, req.Days)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, "Product featured.", p)
}

func (h *Handler) unfeatureProduct(c *gin.Context) {
	id, version, ok := h.targetAndVersion(c)
	if !ok {
		return
	}
	p, err := h.service.Unfeature(c.Request.Context(), common.ActorFromContext(c), id, version)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, "Product unfeatured.", p)
}

func (h *Handler) premiumProduct(c *gin.Context) {
	id, version, ok := h.targetAndVersion(c)
	if !ok {
		return
	}
	var req DurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.SetPremium(c.Request.Context(), common.ActorFromContext(c), id, version, req.Days)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, "Product premium badge set.", p)
}
