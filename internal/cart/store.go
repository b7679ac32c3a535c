// internal/cart/store.go

// Package cart holds the in-memory line item set behind a user's cart or
// wishlist. It performs no I/O; callers persist what the mutators return.
package cart

import (
	"sort"
	"time"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
)

type Kind string

const (
	KindCart     Kind = "cart"
	KindWishlist Kind = "wishlist"
)

// Store is a set of line items keyed by product id, owned by one user.
// It is not safe for concurrent use.
type Store struct {
	userID string
	kind   Kind
	items  map[string]models.LineItem
	now    func() time.Time
}

func NewStore(userID string, kind Kind) *Store {
	return &Store{
		userID: userID,
		kind:   kind,
		items:  make(map[string]models.LineItem),
		now:    time.Now,
	}
}

func NewCart(userID string) *Store {
	return NewStore(userID, KindCart)
}

func NewWishlist(userID string) *Store {
	return NewStore(userID, KindWishlist)
}

// WithClock replaces the time source used for AddedAt/UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) UserID() string {
	return s.userID
}

func (s *Store) Kind() Kind {
	return s.kind
}

func (s *Store) quantitative() bool {
	return s.kind != KindWishlist
}

// Upsert merges product into the set. An existing entry has quantityDelta
// added; if that leaves it below 1 the entry is removed and ok is false. A
// new entry is inserted with max(quantityDelta, 1). Wishlists ignore
// quantity: adding a present product is a no-op.
func (s *Store) Upsert(product *models.Product, quantityDelta int) (item models.LineItem, ok bool) {
	return s.upsert(s.items, models.LineItemFromProduct(product, quantityDelta, s.now()), quantityDelta)
}

func (s *Store) upsert(items map[string]models.LineItem, incoming models.LineItem, quantityDelta int) (models.LineItem, bool) {
	now := s.now()
	existing, found := items[incoming.ProductID]

	if !found {
		incoming.Quantity = maxInt(quantityDelta, 1)
		if !s.quantitative() {
			incoming.Quantity = 1
		}
		if incoming.AddedAt.IsZero() {
			incoming.AddedAt = now
		}
		incoming.UpdatedAt = now
		items[incoming.ProductID] = incoming
		return incoming.Clone(), true
	}

	if !s.quantitative() {
		return existing.Clone(), true
	}

	quantity := existing.Quantity + quantityDelta
	if quantity < 1 {
		delete(items, incoming.ProductID)
		return models.LineItem{}, false
	}

	existing.Quantity = quantity
	existing.UpdatedAt = now
	items[incoming.ProductID] = existing
	return existing.Clone(), true
}

// SetQuantity overwrites the quantity of a present item. A quantity below 1
// removes the item and ok is false.
func (s *Store) SetQuantity(productID string, quantity int) (item models.LineItem, ok bool, err error) {
	existing, found := s.items[productID]
	if !found {
		return models.LineItem{}, false, models.NewNotFound(string(s.kind)+"_item", productID)
	}

	if quantity < 1 {
		delete(s.items, productID)
		return models.LineItem{}, false, nil
	}

	if !s.quantitative() {
		quantity = 1
	}
	existing.Quantity = quantity
	existing.UpdatedAt = s.now()
	s.items[productID] = existing
	return existing.Clone(), true, nil
}

// Remove deletes productID. Removing an absent id is not an error; the
// return value only reports whether anything changed.
func (s *Store) Remove(productID string) bool {
	if _, found := s.items[productID]; !found {
		return false
	}
	delete(s.items, productID)
	return true
}

// Clear empties the set and returns the removed product ids in sorted order.
func (s *Store) Clear() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.items = make(map[string]models.LineItem)
	return ids
}

// BulkUpsert applies Upsert semantics for every item, using each item's
// Quantity as the delta. Either every item is applied or none is: an item
// without a product id fails the batch before the set changes.
func (s *Store) BulkUpsert(items []models.LineItem) ([]models.LineItem, error) {
	for _, item := range items {
		if item.ProductID == "" {
			return nil, models.NewValidationError("cart.invalid_item", "line item is missing a product id")
		}
	}

	working := make(map[string]models.LineItem, len(s.items)+len(items))
	for id, item := range s.items {
		working[id] = item
	}

	touched := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s.upsert(working, item.Clone(), item.Quantity)
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			touched = append(touched, item.ProductID)
		}
	}

	s.items = working

	result := make([]models.LineItem, 0, len(touched))
	for _, id := range touched {
		if item, ok := s.items[id]; ok {
			result = append(result, item.Clone())
		}
	}
	return result, nil
}

// ReplaceAll swaps in an externally supplied snapshot, e.g. a real-time
// push from the document store. Duplicate ids keep the last entry and
// entries with quantity below 1 are dropped.
func (s *Store) ReplaceAll(items []models.LineItem) {
	replaced := make(map[string]models.LineItem, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if !s.quantitative() {
			item.Quantity = 1
		}
		if item.Quantity < 1 {
			continue
		}
		replaced[item.ProductID] = item.Clone()
	}
	s.items = replaced
}

func (s *Store) Get(productID string) (models.LineItem, bool) {
	item, ok := s.items[productID]
	if !ok {
		return models.LineItem{}, false
	}
	return item.Clone(), true
}

func (s *Store) Contains(productID string) bool {
	_, ok := s.items[productID]
	return ok
}

// Len is the number of distinct products.
func (s *Store) Len() int {
	return len(s.items)
}

// Count is the number of units across all products.
func (s *Store) Count() int {
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// Total is the sum of price times quantity.
func (s *Store) Total() money.Money {
	var total money.Money
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Items returns a copy of the set ordered by AddedAt, then product id.
func (s *Store) Items() []models.LineItem {
	items := make([]models.LineItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.Before(items[j].AddedAt)
		}
		return items[i].ProductID < items[j].ProductID
	})
	return items
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
