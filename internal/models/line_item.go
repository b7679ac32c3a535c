// internal/models/line_item.go
package models

import (
	"time"

	"github.com/javajoker/storefront/internal/money"
)

// LineItem is a cart, wishlist or compare entry. Product fields are copied at
// add time so later catalog edits do not change what the user saw.
type LineItem struct {
	ProductID     string      `json:"product_id"`
	Name          string      `json:"name"`
	Price         money.Money `json:"price"`
	OriginalPrice money.Money `json:"original_price"`
	Brand         string      `json:"brand,omitempty"`
	Category      string      `json:"category,omitempty"`
	Images        []string    `json:"images,omitempty"`
	Rating        float64     `json:"rating,omitempty"`
	Stock         int         `json:"stock"`
	Specs         JSONB       `json:"specifications,omitempty"`
	Quantity      int         `json:"quantity"`
	AddedAt       time.Time   `json:"added_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// LineItemFromProduct is the only place a product is shaped into a line
// item; cart, wishlist, compare and reorder all go through it.
func LineItemFromProduct(p *Product, quantity int, now time.Time) LineItem {
	if quantity < 1 {
		quantity = 1
	}

	images := make([]string, len(p.Images))
	copy(images, p.Images)

	var specs JSONB
	if len(p.Specifications) > 0 {
		specs = make(JSONB, len(p.Specifications))
		for k, v := range p.Specifications {
			specs[k] = v
		}
	}

	return LineItem{
		ProductID:     p.ID.String(),
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Brand:         p.Brand,
		Category:      p.Category,
		Images:        images,
		Rating:        p.Rating,
		Stock:         p.Stock,
		Specs:         specs,
		Quantity:      quantity,
		AddedAt:       now,
		UpdatedAt:     now,
	}
}

// LineTotal is price times quantity.
func (li LineItem) LineTotal() money.Money {
	return li.Price.Mul(li.Quantity)
}

func (li LineItem) Image() string {
	if len(li.Images) == 0 {
		return ""
	}
	return li.Images[0]
}

// Clone returns a copy that shares no slices or maps with the receiver.
func (li LineItem) Clone() LineItem {
	out := li
	if li.Images != nil {
		out.Images = append([]string(nil), li.Images...)
	}
	if li.Specs != nil {
		out.Specs = make(JSONB, len(li.Specs))
		for k, v := range li.Specs {
			out.Specs[k] = v
		}
	}
	return out
}
