// internal/handlers/admin.go
package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	adminService *services.AdminService
	orderService *services.OrderService
}

func NewAdminHandler(adminService *services.AdminService, orderService *services.OrderService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		orderService: orderService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context())
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/users
func (h *AdminHandler) GetUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AdminUserFilter{
		PaginationParams: params,
	}

	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}

	if createdAfter := c.Query("created_after"); createdAfter != "" {
		if t, err := time.Parse("2006-01-02", createdAfter); err == nil {
			filter.CreatedAfter = &t
		}
	}

	if createdBefore := c.Query("created_before"); createdBefore != "" {
		if t, err := time.Parse("2006-01-02", createdBefore); err == nil {
			filter.CreatedBefore = &t
		}
	}

	users, total, err := h.adminService.GetUsers(c.Request.Context(), filter)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}

// GET /admin/orders
func (h *AdminHandler) GetOrders(c *gin.Context) {
	params := services.OrderListParams{
		PaginationParams: utils.GetPaginationParams(c),
		Status:           models.OrderStatus(c.Query("status")),
	}

	orders, total, err := h.orderService.ListAllOrders(c.Request.Context(), params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params.PaginationParams))
}

// GET /admin/orders/:id
func (h *AdminHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.AdminGetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, order)
}

// POST /admin/orders/:id/advance
func (h *AdminHandler) AdvanceOrder(c *gin.Context) {
	order, err := h.orderService.AdvanceOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, order)
}

// POST /admin/orders/:id/cancel
func (h *AdminHandler) CancelOrder(c *gin.Context) {
	adminID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CancelOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.AdminCancelOrder(c.Request.Context(), adminID, c.Param("id"), req.Reason)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}
	utils.MessageResponse(c, i18n.KeyOrderCancelled, order)
}

// GET /admin/orders/export
func (h *AdminHandler) ExportOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		utils.BadRequestResponse(c, "", gin.H{"status": status})
		return
	}

	// Buffer the workbook so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.orderService.ExportOrders(c.Request.Context(), &buf, status); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.AuditLogFilter{
		PaginationParams: params,
		UserID:           c.Query("user_id"),
		ResourceType:     c.Query("resource_type"),
	}

	logs, total, err := h.adminService.GetAuditLogs(c.Request.Context(), filter)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, params))
}
