// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/database"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
	"github.com/javajoker/storefront/internal/review"
	"github.com/javajoker/storefront/internal/utils"
	"github.com/javajoker/storefront/internal/validation"
)

const collaboratorCatalog = "catalog"

// ProductCatalog is the read side of the catalog the shopping services
// depend on, plus the stock and rating bookkeeping they trigger.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ReserveStock(ctx context.Context, items []models.OrderLineItem) error
	ReleaseStock(ctx context.Context, items []models.OrderLineItem) error
	ApplyReviewStats(ctx context.Context, productID string, stats review.Stats) error
}

type ProductService struct {
	db *gorm.DB
}

type CreateProductRequest struct {
	Name           string                 `json:"name" validate:"required,min=2,max=255"`
	Description    string                 `json:"description"`
	Brand          string                 `json:"brand" validate:"max=100"`
	Category       string                 `json:"category" validate:"required,max=100"`
	Price          money.Money            `json:"price" validate:"positive_money"`
	OriginalPrice  money.Money            `json:"original_price"`
	Images         []string               `json:"images,omitempty" validate:"omitempty,dive,url"`
	Stock          int                    `json:"stock" validate:"min=0"`
	Specifications map[string]interface{} `json:"specifications,omitempty"`
	Featured       bool                   `json:"featured"`
}

type UpdateProductRequest struct {
	Name           *string                `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Description    *string                `json:"description,omitempty"`
	Brand          *string                `json:"brand,omitempty" validate:"omitempty,max=100"`
	Category       *string                `json:"category,omitempty" validate:"omitempty,max=100"`
	Price          *money.Money           `json:"price,omitempty"`
	OriginalPrice  *money.Money           `json:"original_price,omitempty"`
	Images         []string               `json:"images,omitempty" validate:"omitempty,dive,url"`
	Stock          *int                   `json:"stock,omitempty" validate:"omitempty,min=0"`
	Specifications map[string]interface{} `json:"specifications,omitempty"`
	Featured       *bool                  `json:"featured,omitempty"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	Brand    string       `json:"brand,omitempty"`
	PriceMin *money.Money `json:"price_min,omitempty"`
	PriceMax *money.Money `json:"price_max,omitempty"`
	Featured *bool        `json:"featured,omitempty"`
	InStock  *bool        `json:"in_stock,omitempty"`
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, models.NewNotFound("product", id)
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFound("product", id)
		}
		return nil, models.WrapCollaborator(collaboratorCatalog, "get product", err)
	}
	return &product, nil
}

func (s *ProductService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	if params.Brand != "" {
		query = query.Where("brand = ?", params.Brand)
	}

	if params.Search != "" {
		searchTerm := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(brand) LIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	if params.PriceMin != nil {
		query = query.Where("price >= ?", *params.PriceMin)
	}

	if params.PriceMax != nil {
		query = query.Where("price <= ?", *params.PriceMax)
	}

	if params.Featured != nil {
		query = query.Where("featured = ?", *params.Featured)
	}

	if params.InStock != nil && *params.InStock {
		query = query.Where("stock > 0")
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.WrapCollaborator(collaboratorCatalog, "count products", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "name", "price", "rating", "review_count"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, models.WrapCollaborator(collaboratorCatalog, "search products", err)
	}

	return products, total, nil
}

func (s *ProductService) GetFeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("featured = ?", true).
		Order("rating DESC, created_at DESC").
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, models.WrapCollaborator(collaboratorCatalog, "featured products", err)
	}
	return products, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if err := validation.Check(req, i18n.KeyValidationFailed); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Brand:          req.Brand,
		Category:       req.Category,
		Price:          req.Price,
		OriginalPrice:  req.OriginalPrice,
		Images:         pq.StringArray(req.Images),
		Stock:          req.Stock,
		Specifications: models.JSONB(req.Specifications),
		Featured:       req.Featured,
	}
	if product.OriginalPrice.IsZero() {
		product.OriginalPrice = product.Price
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, models.WrapCollaborator(collaboratorCatalog, "create product", err)
	}
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, req *UpdateProductRequest) (*models.Product, error) {
	if err := validation.Check(req, i18n.KeyValidationFailed); err != nil {
		return nil, err
	}
	if req.Price != nil && !req.Price.IsPositive() {
		return nil, models.NewValidationError(i18n.KeyValidationFailed, "%s", "price must be greater than zero")
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Brand != nil {
		updates["brand"] = *req.Brand
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.OriginalPrice != nil {
		updates["original_price"] = *req.OriginalPrice
	}
	if req.Images != nil {
		updates["images"] = pq.StringArray(req.Images)
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.Specifications != nil {
		updates["specifications"] = models.JSONB(req.Specifications)
	}
	if req.Featured != nil {
		updates["featured"] = *req.Featured
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(product).Updates(updates).Error; err != nil {
			return nil, models.WrapCollaborator(collaboratorCatalog, "update product", err)
		}
	}

	return s.GetProduct(ctx, id)
}

// DeleteProduct soft-deletes the product. Line items and orders keep their
// own copies of its fields.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(product).Error; err != nil {
		return models.WrapCollaborator(collaboratorCatalog, "delete product", err)
	}
	return nil
}

// ReserveStock takes every item's quantity out of stock in one transaction.
// If any product is short the whole reservation is rolled back.
func (s *ProductService) ReserveStock(ctx context.Context, items []models.OrderLineItem) error {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		for _, item := range items {
			result := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
			if result.Error != nil {
				return fmt.Errorf("failed to reserve %s: %w", item.ProductID, result.Error)
			}
			if result.RowsAffected == 0 {
				var product models.Product
				if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
					return models.NewNotFound("product", item.ProductID)
				}
				return insufficientStock(product.Name, product.Stock)
			}
		}
		return nil
	})
	return models.WrapCollaborator(collaboratorCatalog, "reserve stock", err)
}

// ReleaseStock puts reserved quantities back, e.g. after a declined payment
// or a cancellation.
func (s *ProductService) ReleaseStock(ctx context.Context, items []models.OrderLineItem) error {
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		for _, item := range items {
			if err := tx.Unscoped().Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
				return fmt.Errorf("failed to release %s: %w", item.ProductID, err)
			}
		}
		return nil
	})
	return models.WrapCollaborator(collaboratorCatalog, "release stock", err)
}

func (s *ProductService) ApplyReviewStats(ctx context.Context, productID string, stats review.Stats) error {
	err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]interface{}{
			"rating":       stats.Average,
			"review_count": stats.Count,
		}).Error
	return models.WrapCollaborator(collaboratorCatalog, "apply review stats", err)
}

func (s *ProductService) CountProducts(ctx context.Context) (total, outOfStock int64, err error) {
	db := s.db.WithContext(ctx).Model(&models.Product{})
	if err = db.Count(&total).Error; err != nil {
		return 0, 0, models.WrapCollaborator(collaboratorCatalog, "count products", err)
	}
	if err = s.db.WithContext(ctx).Model(&models.Product{}).Where("stock <= 0").Count(&outOfStock).Error; err != nil {
		return 0, 0, models.WrapCollaborator(collaboratorCatalog, "count products", err)
	}
	return total, outOfStock, nil
}

func insufficientStock(name string, stock int) error {
	if stock < 0 {
		stock = 0
	}
	return models.NewValidationError(i18n.KeyCartInsufficientStock, "only %[2]d of %[1]s left in stock", name, stock)
}
