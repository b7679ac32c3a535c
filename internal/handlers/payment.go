// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type PaymentHandler struct {
	orderService *services.OrderService
	config       config.PaymentConfig
}

func NewPaymentHandler(orderService *services.OrderService, cfg config.PaymentConfig) *PaymentHandler {
	return &PaymentHandler{
		orderService: orderService,
		config:       cfg,
	}
}

// GET /payments/config
func (h *PaymentHandler) GetConfig(c *gin.Context) {
	utils.SuccessResponse(c, gin.H{
		"enabled":         h.config.StripeSecretKey != "",
		"publishable_key": h.config.StripePublishableKey,
		"currency":        h.config.Currency,
	})
}

// POST /payments/intent
//
// Prices the caller's cart and opens a card payment for the total. The
// client confirms it with the payment sheet and then checks out with the
// returned intent id.
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	intent, err := h.orderService.CreatePaymentIntent(c.Request.Context(), identity)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, intent)
}
