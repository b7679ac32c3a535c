// internal/router/router.go
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/handlers"
	"github.com/javajoker/storefront/internal/middleware"
	"github.com/javajoker/storefront/internal/pricing"
	"github.com/javajoker/storefront/internal/realtime"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/store"
)

// Initialize wires services and handlers and returns the HTTP engine.
// Background work (rate limiter cleanup) stops when ctx ends.
func Initialize(ctx context.Context, db *gorm.DB, docs store.DocumentStore, cfg *config.Config) (*gin.Engine, error) {
	rules, err := cfg.PricingRules()
	if err != nil {
		return nil, err
	}
	engine := pricing.NewEngine(rules)

	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// A nil interface, not a typed nil, so checkout reports "not configured".
	var payments services.PaymentProvider
	if cfg.Payment.StripeSecretKey != "" {
		payments = services.NewPaymentService(cfg.Payment)
	} else {
		logrus.Warn("STRIPE_SECRET_KEY not set; card payments are disabled")
	}

	// Initialize services
	collections := services.NewCollections(docs)
	notificationService := services.NewNotificationService(cfg)
	productService := services.NewProductService(db)

	authService := services.NewAuthService(db, cfg, notificationService)
	userService := services.NewUserService(db, storageService, storageService.GetDefaultUploadOptions("avatars"))
	cartService := services.NewCartService(collections, productService, engine)
	wishlistService := services.NewWishlistService(collections, productService)
	compareService := services.NewCompareService(collections, productService)
	addressService := services.NewAddressService(collections)
	orderService := services.NewOrderService(collections, productService, engine, payments, notificationService)
	reviewService := services.NewReviewService(collections, productService)
	adminService := services.NewAdminService(db, productService, orderService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(productService, reviewService, storageService, storageService.GetDefaultUploadOptions("products"))
	cartHandler := handlers.NewCartHandler(cartService, wishlistService, compareService)
	addressHandler := handlers.NewAddressHandler(addressService)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(orderService, cfg.Payment)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	adminHandler := handlers.NewAdminHandler(adminService, orderService)
	realtimeHandler := realtime.NewHandler(docs, engine, cfg.Frontend.AllowedOrigins)

	generalLimiter := middleware.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	authLimiter := middleware.PerMinute(10, 5)
	uploadLimiter := middleware.PerMinute(10, 3)
	for _, l := range []*middleware.RateLimiter{generalLimiter, authLimiter, uploadLimiter} {
		go l.Cleanup(ctx)
	}

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg.Frontend)))
	r.Use(middleware.I18nMiddleware())
	r.Use(generalLimiter.Middleware())
	r.Use(middleware.AuditLogMiddleware(adminService))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
			"store":   cfg.Store.Driver,
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(authLimiter.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", middleware.AuthRequired(), authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetCurrentUser)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
			users.POST("/avatar", uploadLimiter.Middleware(), userHandler.UploadAvatar)
		}

		// Product routes (public)
		products := v1.Group("/products")
		{
			products.GET("", productHandler.GetProducts)
			products.GET("/featured", productHandler.GetFeaturedProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.GET("/:id/reviews", productHandler.GetProductReviews)
		}

		// Cart routes
		cart := v1.Group("/cart")
		cart.Use(middleware.AuthRequired())
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.ClearCart)
			cart.POST("/items", cartHandler.AddToCart)
			cart.PUT("/items/:productId", cartHandler.UpdateQuantity)
			cart.DELETE("/items/:productId", cartHandler.RemoveFromCart)
		}

		// Wishlist routes
		wishlist := v1.Group("/wishlist")
		wishlist.Use(middleware.AuthRequired())
		{
			wishlist.GET("", cartHandler.GetWishlist)
			wishlist.POST("/:productId", cartHandler.AddToWishlist)
			wishlist.DELETE("/:productId", cartHandler.RemoveFromWishlist)
			wishlist.POST("/:productId/move-to-cart", cartHandler.MoveWishlistItemToCart)
		}

		// Compare routes
		compare := v1.Group("/compare")
		compare.Use(middleware.AuthRequired())
		{
			compare.GET("", cartHandler.GetCompare)
			compare.POST("/move-to-cart", cartHandler.MoveCompareToCart)
			compare.POST("/:productId", cartHandler.AddToCompare)
			compare.DELETE("/:productId", cartHandler.RemoveFromCompare)
		}

		// Address book routes
		addresses := v1.Group("/addresses")
		addresses.Use(middleware.AuthRequired())
		{
			addresses.GET("", addressHandler.ListAddresses)
			addresses.POST("", addressHandler.CreateAddress)
			addresses.GET("/default", addressHandler.GetDefaultAddress)
			addresses.GET("/:id", addressHandler.GetAddress)
			addresses.PUT("/:id", addressHandler.UpdateAddress)
			addresses.PUT("/:id/default", addressHandler.SetDefaultAddress)
			addresses.DELETE("/:id", addressHandler.DeleteAddress)
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", orderHandler.Checkout)
			orders.GET("", orderHandler.GetOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.POST("/:id/cancel", orderHandler.CancelOrder)
			orders.POST("/:id/reorder", orderHandler.Reorder)
		}

		// Payment routes
		payments := v1.Group("/payments")
		{
			payments.GET("/config", paymentHandler.GetConfig)
			payments.POST("/intent", middleware.AuthRequired(), paymentHandler.CreatePaymentIntent)
		}

		// Review routes
		reviews := v1.Group("/reviews")
		reviews.Use(middleware.AuthRequired())
		{
			reviews.GET("", reviewHandler.GetMyReviews)
			reviews.POST("", reviewHandler.CreateReview)
			reviews.PUT("/:id", reviewHandler.UpdateReview)
			reviews.DELETE("/:id", reviewHandler.DeleteReview)
		}

		// Live collection feed
		v1.GET("/realtime/:collection", middleware.AuthRequired(), realtimeHandler.Stream)

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			admin.GET("/users", adminHandler.GetUsers)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)

			// Catalog management
			adminProducts := admin.Group("/products")
			{
				adminProducts.POST("", productHandler.CreateProduct)
				adminProducts.PUT("/:id", productHandler.UpdateProduct)
				adminProducts.DELETE("/:id", productHandler.DeleteProduct)
				adminProducts.POST("/images", uploadLimiter.Middleware(), productHandler.UploadImage)
			}

			// Order management
			adminOrders := admin.Group("/orders")
			{
				adminOrders.GET("", adminHandler.GetOrders)
				adminOrders.GET("/export", adminHandler.ExportOrders)
				adminOrders.GET("/:id", adminHandler.GetOrder)
				adminOrders.POST("/:id/advance", adminHandler.AdvanceOrder)
				adminOrders.POST("/:id/cancel", adminHandler.CancelOrder)
			}
		}
	}

	// Static file serving (for development)
	if cfg.Environment == "development" {
		r.Static("/uploads", "./uploads")
	}

	return r, nil
}

func corsConfig(cfg config.FrontendConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Total-Count"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			return c
		}
	}
	c.AllowOrigins = cfg.AllowedOrigins
	return c
}
