// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront/internal/money"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	rules, err := cfg.PricingRules()
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("9.99"), rules.ShippingFlatFee)
	assert.Equal(t, "0.08", rules.TaxRate.String())
	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown driver":  {"STORE_DRIVER": "redis"},
		"bad fee":         {"STORE_DRIVER": "memory", "SHIPPING_FLAT_FEE": "free"},
		"rate too high":   {"STORE_DRIVER": "memory", "TAX_RATE": "1.5"},
		"default secret":  {"STORE_DRIVER": "memory", "ENVIRONMENT": "production"},
		"prod without pw": {"STORE_DRIVER": "postgres", "ENVIRONMENT": "production", "JWT_SECRET": "s3cret"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestAllowedOriginsList(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Frontend.AllowedOrigins)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "shop", Password: "s3cret", Database: "storefront"}
	assert.Equal(t, "host=db port=5432 user=shop password=s3cret dbname=storefront sslmode=disable connect_timeout=10", d.DSN())

	d.Password = `it's a pass\word`
	d.SSLMode = "require"
	assert.Equal(t, `host=db port=5432 user=shop password='it\'s a pass\\word' dbname=storefront sslmode=require connect_timeout=10`, d.DSN())

	d.Password = ""
	assert.NotContains(t, d.DSN(), "password=")
}
