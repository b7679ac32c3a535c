// internal/compare/set.go

// Package compare holds the side-by-side product comparison list.
package compare

import (
	"sort"
	"time"

	"github.com/javajoker/storefront/internal/cart"
	"github.com/javajoker/storefront/internal/models"
)

// MaxItems is how many products can be compared at once.
const MaxItems = 2

// Set is an ordered list of at most MaxItems distinct products.
type Set struct {
	userID string
	items  []models.LineItem
	now    func() time.Time
}

func NewSet(userID string) *Set {
	return &Set{userID: userID, now: time.Now}
}

func (s *Set) WithClock(now func() time.Time) *Set {
	s.now = now
	return s
}

func (s *Set) UserID() string {
	return s.userID
}

// Add appends product. A full set fails with LimitReached; a product that is
// already present fails with AlreadyPresent and leaves the set unchanged.
func (s *Set) Add(product *models.Product) (models.LineItem, error) {
	id := product.ID.String()
	if s.Contains(id) {
		return models.LineItem{}, models.NewDomainError(
			models.KindAlreadyPresent, "compare.already_present", product.Name+" is already in the comparison", product.Name)
	}
	if !s.CanAdd() {
		return models.LineItem{}, models.NewDomainError(
			models.KindLimitReached, "compare.limit_reached", "you can only compare 2 products at a time", MaxItems)
	}

	item := models.LineItemFromProduct(product, 1, s.now())
	s.items = append(s.items, item)
	return item.Clone(), nil
}

// Remove is a no-op when productID is absent.
func (s *Set) Remove(productID string) bool {
	for i, item := range s.items {
		if item.ProductID == productID {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Set) CanAdd() bool {
	return len(s.items) < MaxItems
}

func (s *Set) Contains(productID string) bool {
	for _, item := range s.items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

func (s *Set) Len() int {
	return len(s.items)
}

func (s *Set) Items() []models.LineItem {
	out := make([]models.LineItem, len(s.items))
	for i, item := range s.items {
		out[i] = item.Clone()
	}
	return out
}

// Clear empties the set and returns the removed product ids.
func (s *Set) Clear() []string {
	ids := make([]string, 0, len(s.items))
	for _, item := range s.items {
		ids = append(ids, item.ProductID)
	}
	s.items = nil
	return ids
}

// ReplaceAll installs a pushed snapshot ordered by AddedAt. Duplicates are
// dropped and anything past MaxItems is ignored.
func (s *Set) ReplaceAll(items []models.LineItem) {
	sorted := make([]models.LineItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AddedAt.Before(sorted[j].AddedAt)
	})

	replaced := make([]models.LineItem, 0, MaxItems)
	seen := make(map[string]bool, len(sorted))
	for _, item := range sorted {
		if item.ProductID == "" || seen[item.ProductID] {
			continue
		}
		if len(replaced) == MaxItems {
			break
		}
		seen[item.ProductID] = true
		item = item.Clone()
		item.Quantity = 1
		replaced = append(replaced, item)
	}
	s.items = replaced
}

// MoveAllToCart adds every compared product to dst with quantity 1 and then
// empties the set. When the cart rejects the batch the set is left intact.
// It returns the cart lines that were touched.
func (s *Set) MoveAllToCart(dst *cart.Store) ([]models.LineItem, error) {
	if len(s.items) == 0 {
		return nil, nil
	}

	batch := make([]models.LineItem, 0, len(s.items))
	for _, item := range s.items {
		line := item.Clone()
		line.Quantity = 1
		line.AddedAt = time.Time{}
		batch = append(batch, line)
	}

	moved, err := dst.BulkUpsert(batch)
	if err != nil {
		return nil, err
	}
	s.Clear()
	return moved, nil
}
