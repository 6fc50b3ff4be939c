// File: internal/auth/handler.go
package auth

import (
	"launchpad_backend/internal/common"
	"launchpad_backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	service Service
	users   user.Service
	logger  *zap.Logger
}

func NewHandler(service Service, users user.Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, users: users, logger: logger}
}

// RegisterRoutes sets up the routes for authentication operations. limit
// guards the credential endpoints; authMW guards the session ones.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc, limit gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", limit, h.signUp)
		authGroup.POST("/login", limit, h.login)
		authGroup.POST("/logout", authMW, h.logout)
		authGroup.GET("/me", authMW, h.me)
	}
}

func (h *Handler) signUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Signup: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, session, err := h.service.SignUp(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Account created successfully.", AuthResponse{User: user.ToUserResponse(u), Session: session})
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("Login: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	u, session, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Login successful.", AuthResponse{User: user.ToUserResponse(u), Session: session})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context(), c.GetString(common.FirebaseUIDKey)); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.users.GetByID(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Current user retrieved successfully.", user.ToUserResponse(u))
}
