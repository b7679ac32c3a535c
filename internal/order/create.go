// internal/order/create.go
package order

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/pricing"
	"github.com/javajoker/storefront/internal/validation"
)

// Checkout is everything needed to freeze an order.
type Checkout struct {
	UserID           string
	Items            []models.LineItem
	ShippingInfo     models.ShippingInfo
	PaymentMethod    models.PaymentMethod
	PaymentReference string
	Quote            pricing.Quote
}

// NumberFunc produces human-readable order numbers.
type NumberFunc func(now time.Time) string

// Number formats ORD-YYYYMMDD-HHMMSS-NNNN. The random suffix separates
// orders placed within the same second.
func Number(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.UTC().Format("20060102-150405"), rand.Intn(10000))
}

// Create builds a pending order from c. Items and totals are copied, so
// later changes to the cart or catalog never reach the order. Card orders
// are created only after the payment provider confirmed, so they start
// paid; cash on delivery starts pending.
func Create(c Checkout, now time.Time, number NumberFunc) (*models.Order, error) {
	if err := validateCheckout(c); err != nil {
		return nil, err
	}
	if number == nil {
		number = Number
	}

	items := make([]models.OrderLineItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, models.OrderLineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image(),
		})
	}

	paymentStatus := models.PaymentStatusPending
	if c.PaymentMethod == models.PaymentMethodCard {
		paymentStatus = models.PaymentStatusPaid
	}

	return &models.Order{
		ID:               models.NewID(),
		UserID:           c.UserID,
		OrderNumber:      number(now),
		Items:            items,
		Subtotal:         c.Quote.Subtotal,
		Shipping:         c.Quote.Shipping,
		Tax:              c.Quote.Tax,
		Total:            c.Quote.Total,
		ShippingInfo:     c.ShippingInfo,
		PaymentMethod:    c.PaymentMethod,
		PaymentStatus:    paymentStatus,
		PaymentReference: c.PaymentReference,
		Status:           models.OrderStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func validateCheckout(c Checkout) error {
	if strings.TrimSpace(c.UserID) == "" {
		return models.NewValidationError("order.invalid", "order has no owner")
	}
	if len(c.Items) == 0 {
		return models.NewValidationError("order.empty", "cannot create an order without items")
	}
	for _, item := range c.Items {
		if item.ProductID == "" || item.Quantity < 1 {
			return models.NewValidationError("order.invalid_item", "line item %q is invalid", item.ProductID)
		}
	}
	if !c.PaymentMethod.Valid() {
		return models.NewValidationError("order.invalid_payment_method", "unsupported payment method %q", c.PaymentMethod)
	}
	if c.PaymentMethod == models.PaymentMethodCard && c.PaymentReference == "" {
		return models.NewValidationError("order.payment_unconfirmed", "card orders need a confirmed payment")
	}
	if !c.Quote.Total.IsPositive() {
		return models.NewValidationError("order.invalid_total", "order total must be positive")
	}
	return validation.Check(c.ShippingInfo, "order.invalid_shipping")
}
