// internal/tests/fixture_test.go
package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront/internal/handlers"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/middleware"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
	"github.com/javajoker/storefront/internal/pricing"
	"github.com/javajoker/storefront/internal/review"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/store"
	"github.com/javajoker/storefront/internal/utils"
)

const testJWTSecret = "storefront-test-secret"

// catalog is a product catalog held in memory.
type catalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func newCatalog() *catalog {
	return &catalog{products: make(map[string]*models.Product)}
}

func (c *catalog) add(name, price string, stock int) *models.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &models.Product{
		Name:     name,
		Brand:    "Acme",
		Category: "home",
		Price:    money.MustParse(price),
		Stock:    stock,
	}
	p.ID = uuid.New()
	c.products[p.ID.String()] = p
	return p
}

func (c *catalog) setStock(id string, stock int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[id].Stock = stock
}

func (c *catalog) stock(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[id].Stock
}

func (c *catalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, models.NewNotFound("product", id)
	}
	copied := *p
	return &copied, nil
}

func (c *catalog) ReserveStock(ctx context.Context, items []models.OrderLineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		p, ok := c.products[item.ProductID]
		if !ok {
			return models.NewNotFound("product", item.ProductID)
		}
		if p.Stock < item.Quantity {
			return models.NewValidationError(i18n.KeyCartInsufficientStock, "only %[2]d of %[1]s left in stock", p.Name, p.Stock)
		}
	}
	for _, item := range items {
		c.products[item.ProductID].Stock -= item.Quantity
	}
	return nil
}

func (c *catalog) ReleaseStock(ctx context.Context, items []models.OrderLineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		if p, ok := c.products[item.ProductID]; ok {
			p.Stock += item.Quantity
		}
	}
	return nil
}

func (c *catalog) ApplyReviewStats(ctx context.Context, productID string, stats review.Stats) error {
	return nil
}

// storefront is the customer API over an in-memory document store. Card
// payments are not configured.
type storefront struct {
	router  *gin.Engine
	catalog *catalog
	docs    *store.MemoryStore
}

func newStorefront() *storefront {
	gin.SetMode(gin.TestMode)
	i18n.Initialize("en")
	utils.SetJWTSecret(testJWTSecret)

	docs := store.NewMemoryStore()
	products := newCatalog()
	engine := pricing.NewEngine(pricing.DefaultConfig())
	collections := services.NewCollections(docs)

	cartService := services.NewCartService(collections, products, engine)
	wishlistService := services.NewWishlistService(collections, products)
	compareService := services.NewCompareService(collections, products)
	addressService := services.NewAddressService(collections)
	orderService := services.NewOrderService(collections, products, engine, nil, nil)

	cartHandler := handlers.NewCartHandler(cartService, wishlistService, compareService)
	addressHandler := handlers.NewAddressHandler(addressService)
	orderHandler := handlers.NewOrderHandler(orderService)
	adminHandler := handlers.NewAdminHandler(nil, orderService)

	r := gin.New()
	r.Use(middleware.I18nMiddleware())

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthRequired())
	{
		v1.GET("/cart", cartHandler.GetCart)
		v1.DELETE("/cart", cartHandler.ClearCart)
		v1.POST("/cart/items", cartHandler.AddToCart)
		v1.PUT("/cart/items/:productId", cartHandler.UpdateQuantity)
		v1.DELETE("/cart/items/:productId", cartHandler.RemoveFromCart)

		v1.GET("/wishlist", cartHandler.GetWishlist)
		v1.POST("/wishlist/:productId", cartHandler.AddToWishlist)
		v1.POST("/wishlist/:productId/move-to-cart", cartHandler.MoveWishlistItemToCart)

		v1.GET("/compare", cartHandler.GetCompare)
		v1.POST("/compare/move-to-cart", cartHandler.MoveCompareToCart)
		v1.POST("/compare/:productId", cartHandler.AddToCompare)

		v1.GET("/addresses", addressHandler.ListAddresses)
		v1.POST("/addresses", addressHandler.CreateAddress)
		v1.GET("/addresses/default", addressHandler.GetDefaultAddress)
		v1.PUT("/addresses/:id/default", addressHandler.SetDefaultAddress)
		v1.DELETE("/addresses/:id", addressHandler.DeleteAddress)

		v1.POST("/orders", orderHandler.Checkout)
		v1.GET("/orders", orderHandler.GetOrders)
		v1.GET("/orders/:id", orderHandler.GetOrder)
		v1.POST("/orders/:id/cancel", orderHandler.CancelOrder)
		v1.POST("/orders/:id/reorder", orderHandler.Reorder)

		admin := v1.Group("/admin", middleware.AdminRequired())
		admin.GET("/orders", adminHandler.GetOrders)
		admin.GET("/orders/export", adminHandler.ExportOrders)
		admin.POST("/orders/:id/advance", adminHandler.AdvanceOrder)
		admin.POST("/orders/:id/cancel", adminHandler.CancelOrder)
	}

	return &storefront{router: r, catalog: products, docs: docs}
}

func tokenFor(userID string, role models.UserRole) string {
	token, err := utils.GenerateJWT(userID, userID+"@example.com", "Test "+userID, string(role), 1)
	if err != nil {
		panic(err)
	}
	return token
}

// apiResponse mirrors utils.APIResponse with raw payloads.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   *utils.APIError `json:"error"`
}

func (s *storefront) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w, resp
}

func decode[T any](raw json.RawMessage) T {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		panic(fmt.Sprintf("decode %s: %v", raw, err))
	}
	return v
}

func shippingPayload() map[string]interface{} {
	return map[string]interface{}{
		"full_name": "Jamie Doe",
		"phone":     "+1 555 0100",
		"address":   "1 Main St",
		"city":      "Springfield",
		"zip_code":  "12345",
		"country":   "US",
	}
}
