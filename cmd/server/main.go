// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/database"
	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/router"
	"github.com/javajoker/storefront/internal/store"
	"github.com/javajoker/storefront/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	setupLogging(cfg)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			logrus.WithError(err).Fatal("Failed to run migrations")
		}
		if err := database.SeedInitialData(db, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logrus.WithError(err).Fatal("Failed to seed initial data")
		}
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	docs, err := openDocumentStore(ctx, cfg, db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open document store")
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r, err := router.Initialize(ctx, db, docs, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize router")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":  cfg.Server.Port,
			"store": cfg.Store.Driver,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	stop()
	if err := docs.Close(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Failed to close document store")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.DebugLevel)
}

// openDocumentStore picks the backend for carts, wishlists, addresses,
// orders and reviews.
func openDocumentStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (store.DocumentStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logrus.Warn("Using in-memory document store; data is lost on restart")
		return store.NewMemoryStore(), nil

	case config.StoreDriverMongo:
		mongoStore, err := store.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := mongoStore.EnsureIndexes(ctx, store.Collections...); err != nil {
			mongoStore.Close(context.Background())
			return nil, err
		}
		return mongoStore, nil

	default:
		gormStore := store.NewGormStore(db)
		if err := gormStore.Listen(ctx, cfg.Database.DSN()); err != nil {
			// Single-instance deployments still get in-process notifications.
			logrus.WithError(err).Warn("Document change feed falls back to in-process delivery")
		}
		return gormStore, nil
	}
}
