// File: internal/payment/handler.go
package payment

import (
	"io"
	"net/http"

	"launchpad_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxWebhookBytes bounds webhook payloads read into memory.
const maxWebhookBytes = 64 << 10

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts checkout and history behind auth; the webhook is public
// and authenticated by its signature.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	payments := router.Group("/payments")
	{
		payments.GET("/plans", h.listPlans)
		payments.POST("/checkout", auth, h.checkout)
		payments.GET("", auth, h.listMine)
		payments.POST("/webhook", h.webhook)
	}
}

func (h *Handler) listPlans(c *gin.Context) {
	common.RespondOK(c, "Plans retrieved successfully.", Plans())
}

func (h *Handler) checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	resp, err := h.service.Checkout(c.Request.Context(), common.ActorFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Checkout session created.", resp)
}

func (h *Handler) listMine(c *gin.Context) {
	payments, pagination, err := h.service.ListMine(c.Request.Context(), common.ActorFromContext(c), common.GetPaginationParams(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	common.RespondPaginated(c, "Payments retrieved successfully.", out, pagination)
}

func (h *Handler) webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Could not read webhook body."))
		return
	}
	if err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		common.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
