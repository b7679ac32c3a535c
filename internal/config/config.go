// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront/internal/money"
	"github.com/javajoker/storefront/internal/pricing"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Mongo       MongoConfig
	Store       StoreConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	Pricing     PricingConfig
	Email       EmailConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
	RateLimit   RateLimitConfig
	Admin       AdminConfig
}

// AdminConfig seeds the first back-office account on an empty database.
type AdminConfig struct {
	Email    string
	Password string
}

type FrontendConfig struct {
	BaseURL        string
	AllowedOrigins []string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	AutoMigrate  bool
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout int // in seconds
}

// Store drivers for per-user document collections.
const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type StoreConfig struct {
	Driver string
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
	MaxAvatarSize   int64
}

type PaymentConfig struct {
	StripeSecretKey      string
	StripePublishableKey string
	Currency             string
}

type PricingConfig struct {
	ShippingFlatFee string
	TaxRate         string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

type I18nConfig struct {
	DefaultLocale string
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "storefront"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DB", "storefront"),
			ConnectTimeout: getEnvAsInt("MONGO_CONNECT_TIMEOUT", 10),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", defaultJWTSecret),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "storefront-avatars"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
			MaxAvatarSize:   int64(getEnvAsInt("MAX_AVATAR_SIZE_MB", 5)) << 20,
		},
		Payment: PaymentConfig{
			StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			Currency:             strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
		},
		Pricing: PricingConfig{
			ShippingFlatFee: getEnv("SHIPPING_FLAT_FEE", "9.99"),
			TaxRate:         getEnv("TAX_RATE", "0.08"),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "orders@storefront.local"),
			FromName:     getEnv("FROM_NAME", "Storefront"),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Frontend: FrontendConfig{
			BaseURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 30),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == defaultJWTSecret && c.IsProduction() {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.IsProduction() && c.Store.Driver == StoreDriverPostgres {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Store.Driver {
	case StoreDriverMongo, StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if _, err := c.PricingRules(); err != nil {
		return err
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PricingRules parses the pricing settings into engine configuration.
func (c *Config) PricingRules() (pricing.Config, error) {
	fee, err := money.Parse(c.Pricing.ShippingFlatFee)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("invalid SHIPPING_FLAT_FEE: %w", err)
	}
	rate, err := decimal.NewFromString(c.Pricing.TaxRate)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("invalid TAX_RATE: %w", err)
	}

	rules := pricing.Config{ShippingFlatFee: fee, TaxRate: rate}
	if err := rules.Validate(); err != nil {
		return pricing.Config{}, fmt.Errorf("invalid pricing config: %w", err)
	}
	return rules, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
