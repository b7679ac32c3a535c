// internal/handlers/product.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/money"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
	reviewService  *services.ReviewService
	storage        services.ObjectStorage
	imageOptions   services.UploadOptions
}

func NewProductHandler(productService *services.ProductService, reviewService *services.ReviewService, storage services.ObjectStorage, imageOptions services.UploadOptions) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		reviewService:  reviewService,
		storage:        storage,
		imageOptions:   imageOptions,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ProductSearchParams{
		PaginationParams: params,
		Brand:            c.Query("brand"),
	}

	if priceMinStr := c.Query("price_min"); priceMinStr != "" {
		if priceMin, err := money.Parse(priceMinStr); err == nil {
			searchParams.PriceMin = &priceMin
		}
	}

	if priceMaxStr := c.Query("price_max"); priceMaxStr != "" {
		if priceMax, err := money.Parse(priceMaxStr); err == nil {
			searchParams.PriceMax = &priceMax
		}
	}

	if featuredStr := c.Query("featured"); featuredStr != "" {
		if featured, err := strconv.ParseBool(featuredStr); err == nil {
			searchParams.Featured = &featured
		}
	}

	if inStockStr := c.Query("in_stock"); inStockStr != "" {
		if inStock, err := strconv.ParseBool(inStockStr); err == nil {
			searchParams.InStock = &inStock
		}
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), searchParams)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params))
}

// GET /products/featured
func (h *ProductHandler) GetFeaturedProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "8"))
	if limit < 1 || limit > 50 {
		limit = 8
	}

	products, err := h.productService.GetFeaturedProducts(c.Request.Context(), limit)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, products)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /products/:id/reviews
func (h *ProductHandler) GetProductReviews(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	reviews, total, stats, err := h.reviewService.GetProductReviews(c.Request.Context(), c.Param("id"), params)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	result := utils.CreatePaginationResult(reviews, total, params)
	utils.SetPaginationHeaders(c, result)
	utils.SuccessResponseWithMeta(c, reviews, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
		"rating": stats,
	})
}

// POST /admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(utils.GetLangFromContext(c), i18n.KeyProductCreated),
		"product": product,
	})
}

// PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req services.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyProductUpdated, product)
}

// DELETE /admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.MessageResponse(c, i18n.KeyProductDeleted, nil)
}

// POST /admin/products/images
func (h *ProductHandler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}
	defer file.Close()

	result, err := h.storage.UploadFile(c.Request.Context(), file, header, h.imageOptions)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}
