// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

type AdminService struct {
	db       *gorm.DB
	products *ProductService
	orders   *OrderService
}

type AdminDashboardStats struct {
	TotalUsers         int64       `json:"total_users"`
	NewUsersThisMonth  int64       `json:"new_users_this_month"`
	TotalProducts      int64       `json:"total_products"`
	OutOfStockProducts int64       `json:"out_of_stock_products"`
	Orders             *OrderStats `json:"orders"`
	UserGrowth         float64     `json:"user_growth"`
}

type AdminUserFilter struct {
	utils.PaginationParams
	Role          *models.UserRole `json:"role,omitempty"`
	CreatedAfter  *time.Time       `json:"created_after,omitempty"`
	CreatedBefore *time.Time       `json:"created_before,omitempty"`
}

type AuditLogFilter struct {
	utils.PaginationParams
	UserID       string `json:"user_id,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
}

func NewAdminService(db *gorm.DB, products *ProductService, orders *OrderService) *AdminService {
	return &AdminService{
		db:       db,
		products: products,
		orders:   orders,
	}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	db := s.db.WithContext(ctx)

	// User statistics
	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, models.WrapCollaborator(collaboratorIdentity, "count users", err)
	}
	if err := db.Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&stats.NewUsersThisMonth).Error; err != nil {
		return nil, models.WrapCollaborator(collaboratorIdentity, "count users", err)
	}

	var lastMonthUsers int64
	if err := db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", lastMonthStart, monthStart).
		Count(&lastMonthUsers).Error; err != nil {
		return nil, models.WrapCollaborator(collaboratorIdentity, "count users", err)
	}
	if lastMonthUsers > 0 {
		stats.UserGrowth = float64(stats.NewUsersThisMonth-lastMonthUsers) / float64(lastMonthUsers) * 100
	}

	// Catalog statistics
	total, outOfStock, err := s.products.CountProducts(ctx)
	if err != nil {
		return nil, err
	}
	stats.TotalProducts = total
	stats.OutOfStockProducts = outOfStock

	// Order statistics
	if stats.Orders, err = s.orders.Stats(ctx); err != nil {
		return nil, err
	}

	return stats, nil
}

// User Management
func (s *AdminService) GetUsers(ctx context.Context, filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})

	// Apply filters
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Search != "" {
		searchTerm := "%" + filter.Search + "%"
		query = query.Where("display_name ILIKE ? OR email ILIKE ?", searchTerm, searchTerm)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "updated_at", "display_name", "email", "role"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	// Execute query
	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

// RecordAudit stores one audit entry. It is called from the request
// middleware after the response is written.
func (s *AdminService) RecordAudit(ctx context.Context, entry *models.AuditLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (s *AdminService) GetAuditLogs(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	allowedSortFields := []string{"created_at", "action", "resource_type", "status"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}
