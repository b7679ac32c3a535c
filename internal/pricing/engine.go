// internal/pricing/engine.go

// Package pricing derives order totals from a set of line items.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
)

type Config struct {
	ShippingFlatFee money.Money
	TaxRate         decimal.Decimal
}

// DefaultConfig is a $9.99 flat shipping fee and 8% tax.
func DefaultConfig() Config {
	return Config{
		ShippingFlatFee: money.Cents(999),
		TaxRate:         decimal.New(8, -2),
	}
}

func (c Config) Validate() error {
	if c.ShippingFlatFee < 0 {
		return fmt.Errorf("shipping fee must not be negative")
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax rate must be in [0, 1)")
	}
	return nil
}

type Quote struct {
	Subtotal  money.Money `json:"subtotal"`
	Shipping  money.Money `json:"shipping"`
	Tax       money.Money `json:"tax"`
	Total     money.Money `json:"total"`
	ItemCount int         `json:"item_count"`
}

// Engine is stateless; Quote is a pure function of its input.
type Engine struct {
	config Config
}

func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

func (e *Engine) Config() Config {
	return e.config
}

// Quote computes subtotal, shipping, tax and total. Shipping is charged only
// when the subtotal is positive; tax is rounded half-up at the cent.
func (e *Engine) Quote(items []models.LineItem) Quote {
	var q Quote
	for _, item := range items {
		if item.Quantity < 1 {
			continue
		}
		q.Subtotal = q.Subtotal.Add(item.LineTotal())
		q.ItemCount += item.Quantity
	}

	if q.Subtotal.IsPositive() {
		q.Shipping = e.config.ShippingFlatFee
	}
	q.Tax = q.Subtotal.MulRate(e.config.TaxRate)
	q.Total = money.Sum(q.Subtotal, q.Shipping, q.Tax)
	return q
}
