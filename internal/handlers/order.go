// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// POST /orders
func (h *OrderHandler) Checkout(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req services.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.Checkout(c.Request.Context(), identity, &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyOrderPlaced),
		"order":   order,
	})
}

// GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	params := services.OrderListParams{
		PaginationParams: utils.GetPaginationParams(c),
		Status:           models.OrderStatus(c.Query("status")),
	}

	orders, total, err := h.orderService.GetUserOrders(c.Request.Context(), userID, params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params.PaginationParams))
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, order)
}

// POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CancelOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), userID, c.Param("id"), req.Reason)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyOrderCancelled, order)
}

// POST /orders/:id/reorder
func (h *OrderHandler) Reorder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.orderService.Reorder(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyOrderReordered, result)
}
