// File: internal/user/handler.go
package user

import (
	"launchpad_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for user handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for user operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, adminMW gin.HandlerFunc) {
	userGroup := router.Group("/users")
	{
		userGroup.GET("/me", authMW, h.getMe)
		userGroup.PATCH("/me", authMW, h.updateMe)
		userGroup.DELETE("/me", authMW, h.deleteMe)
		userGroup.GET("/:username", h.getPublicProfile)
	}

	adminGroup := router.Group("/admin/users", authMW, adminMW)
	{
		adminGroup.PATCH("/:id/role", h.changeRole)
		adminGroup.DELETE("/:id", h.deleteUser)
	}
}

func (h *Handler) getMe(c *gin.Context) {
	usr, err := h.service.GetByID(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", ToUserResponse(usr))
}

func (h *Handler) updateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Update profile: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	usr, err := h.service.UpdateProfile(c.Request.Context(), common.GetUserIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", ToUserResponse(usr))
}

func (h *Handler) deleteMe(c *gin.Context) {
	actor := common.ActorFromContext(c)
	if err := h.service.Delete(c.Request.Context(), actor, actor.UserID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) getPublicProfile(c *gin.Context) {
	usr, err := h.service.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User profile retrieved successfully.", ToPublicProfile(usr))
}

func (h *Handler) changeRole(c *gin.Context) {
	targetID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	usr, err := h.service.ChangeRole(c.Request.Context(), common.ActorFromContext(c), targetID, req.Role)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User role updated.", ToUserResponse(usr))
}

func (h *Handler) deleteUser(c *gin.Context) {
	targetID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), common.ActorFromContext(c), targetID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
