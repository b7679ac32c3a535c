// internal/models/product.go
package models

import (
	"github.com/lib/pq"

	"github.com/javajoker/storefront/internal/money"
)

// Product is catalog reference data. Line items, compare entries and order
// lines copy the fields they need at the time they are created.
type Product struct {
	BaseModel
	Name           string         `json:"name" gorm:"size:255;not null"`
	Description    string         `json:"description" gorm:"type:text"`
	Brand          string         `json:"brand" gorm:"size:100;index"`
	Category       string         `json:"category" gorm:"size:100;index"`
	Price          money.Money    `json:"price" gorm:"type:decimal(10,2);not null"`
	OriginalPrice  money.Money    `json:"original_price" gorm:"type:decimal(10,2)"`
	Images         pq.StringArray `json:"images" gorm:"type:text[]"`
	Rating         float64        `json:"rating" gorm:"type:decimal(3,2);default:0"`
	ReviewCount    int64          `json:"review_count" gorm:"default:0"`
	Stock          int            `json:"stock" gorm:"default:0"`
	Specifications JSONB          `json:"specifications" gorm:"type:jsonb"`
	Featured       bool           `json:"featured" gorm:"default:false;index"`
}

// SpecFeatures is the optional "features" list convention inside
// Specifications. Anything that is not a list of strings is ignored.
const SpecFeatures = "features"

func (p *Product) Features() []string {
	raw, ok := p.Specifications[SpecFeatures]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		features := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				features = append(features, s)
			}
		}
		return features
	}
	return nil
}

// FirstImage returns the primary image URI, or "" when there is none.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func (p *Product) InStock() bool {
	return p.Stock > 0
}
