// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("Database connection established")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

// RunMigrations creates the catalog, account and document tables.
func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.AuditLog{},
		&models.Document{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_price ON products(category, price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_search ON products USING GIN(to_tsvector('english', name || ' ' || coalesce(description, '')))",

		// Document store indexes
		"CREATE INDEX IF NOT EXISTS idx_documents_user_collection ON documents(user_id, collection)",
		"CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at DESC)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
		}
	}

	return nil
}

// SeedInitialData creates the first admin account and a small demo catalog
// on an empty database.
func SeedInitialData(db *gorm.DB, adminEmail, adminPassword string) error {
	logrus.Info("Seeding initial data...")

	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 && adminEmail != "" && adminPassword != "" {
		admin := &models.User{
			Email:       adminEmail,
			DisplayName: "Store Admin",
			Role:        models.UserRoleAdmin,
		}
		if err := admin.SetPassword(adminPassword); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}
		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		logrus.WithField("email", adminEmail).Info("Default admin user created")
	}

	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)
	if productCount > 0 {
		return nil
	}

	demo := []models.Product{
		{
			Name:          "Wireless Headphones",
			Description:   "Over-ear noise cancelling headphones",
			Brand:         "Sonic",
			Category:      "audio",
			Price:         money.MustParse("129.99"),
			OriginalPrice: money.MustParse("159.99"),
			Images:        []string{"https://cdn.storefront.local/products/headphones.png"},
			Stock:         25,
			Featured:      true,
			Specifications: models.JSONB{
				"battery":           "30h",
				models.SpecFeatures: []string{"ANC", "Bluetooth 5.3", "USB-C"},
			},
		},
		{
			Name:          "Smart Watch",
			Description:   "Fitness tracking smart watch",
			Brand:         "Pulse",
			Category:      "wearables",
			Price:         money.MustParse("199.00"),
			OriginalPrice: money.MustParse("199.00"),
			Images:        []string{"https://cdn.storefront.local/products/watch.png"},
			Stock:         10,
			Specifications: models.JSONB{
				"water_resistance":  "5 ATM",
				models.SpecFeatures: []string{"GPS", "Heart rate"},
			},
		},
	}

	if err := WithTransaction(db, func(tx *gorm.DB) error {
		return tx.Create(&demo).Error
	}); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	logrus.WithField("products", len(demo)).Info("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
