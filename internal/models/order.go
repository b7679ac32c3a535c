// internal/models/order.go
package models

import (
	"time"

	"github.com/javajoker/storefront/internal/money"
)

// OrderLineItem is frozen at checkout and never re-read from the catalog.
type OrderLineItem struct {
	ProductID string      `json:"product_id"`
	Name      string      `json:"name"`
	Price     money.Money `json:"price"`
	Quantity  int         `json:"quantity"`
	Image     string      `json:"image,omitempty"`
}

func (i OrderLineItem) LineTotal() money.Money {
	return i.Price.Mul(i.Quantity)
}

type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	OrderNumber      string          `json:"order_number"`
	Items            []OrderLineItem `json:"items"`
	Subtotal         money.Money     `json:"subtotal"`
	Shipping         money.Money     `json:"shipping"`
	Tax              money.Money     `json:"tax"`
	Total            money.Money     `json:"total"`
	ShippingInfo     ShippingInfo    `json:"shipping_info"`
	ContactEmail     string          `json:"contact_email,omitempty"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	Status           OrderStatus     `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy      string          `json:"cancelled_by,omitempty"`
}

// ItemCount is the number of units across all lines.
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// Contains reports whether the order has a line for productID.
func (o *Order) Contains(productID string) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
