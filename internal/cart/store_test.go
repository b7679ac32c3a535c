// internal/cart/store_test.go
package cart

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
)

func product(name, price string) *models.Product {
	return &models.Product{
		BaseModel: models.BaseModel{ID: uuid.New()},
		Name:      name,
		Price:     money.MustParse(price),
		Brand:     "Acme",
		Images:    []string{"https://cdn.example.com/" + name + ".png"},
		Stock:     10,
	}
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestUpsertMergesByProduct(t *testing.T) {
	s := NewCart("u1").WithClock(fixedClock())
	p := product("A", "10.00")

	s.Upsert(p, 1)
	item, ok := s.Upsert(p, 1)

	require.True(t, ok)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, "Acme", item.Brand)
	assert.True(t, item.UpdatedAt.After(item.AddedAt))
}

func TestUpsertClampsNewItemToOne(t *testing.T) {
	s := NewCart("u1")
	item, ok := s.Upsert(product("A", "1.00"), -3)

	require.True(t, ok)
	assert.Equal(t, 1, item.Quantity)
}

func TestUpsertNegativeDeltaRemoves(t *testing.T) {
	s := NewCart("u1")
	p := product("A", "1.00")
	s.Upsert(p, 2)

	item, ok := s.Upsert(p, -1)
	require.True(t, ok)
	assert.Equal(t, 1, item.Quantity)

	_, ok = s.Upsert(p, -1)
	assert.False(t, ok)
	assert.False(t, s.Contains(p.ID.String()))
}

func TestSetQuantityFloor(t *testing.T) {
	for _, qty := range []int{0, -5} {
		s := NewCart("u1")
		p := product("A", "1.00")
		s.Upsert(p, 3)

		_, ok, err := s.SetQuantity(p.ID.String(), qty)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 0, s.Len(), "quantity %d", qty)
	}
}

func TestSetQuantity(t *testing.T) {
	s := NewCart("u1")
	p := product("A", "1.00")
	s.Upsert(p, 1)

	item, ok, err := s.SetQuantity(p.ID.String(), 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 7, item.Quantity)

	_, _, err = s.SetQuantity("missing", 2)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := NewCart("u1")
	p := product("A", "1.00")
	s.Upsert(p, 1)

	assert.True(t, s.Remove(p.ID.String()))
	assert.False(t, s.Remove(p.ID.String()))
	assert.False(t, s.Remove("never-there"))
}

func TestClearReturnsRemovedIDs(t *testing.T) {
	s := NewCart("u1")
	a, b := product("A", "1.00"), product("B", "2.00")
	s.Upsert(a, 1)
	s.Upsert(b, 1)

	ids := s.Clear()
	assert.ElementsMatch(t, []string{a.ID.String(), b.ID.String()}, ids)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Clear())
}

func TestTotalAndItems(t *testing.T) {
	s := NewCart("u1").WithClock(fixedClock())
	a, b := product("A", "10.00"), product("B", "5.00")
	s.Upsert(a, 2)
	s.Upsert(b, 1)

	assert.Equal(t, money.MustParse("25.00"), s.Total())
	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, a.ID.String(), items[0].ProductID)
	assert.Equal(t, b.ID.String(), items[1].ProductID)

	got, ok := s.Get(a.ID.String())
	require.True(t, ok)
	got.Images[0] = "mutated"
	again, _ := s.Get(a.ID.String())
	assert.NotEqual(t, "mutated", again.Images[0])
}

func TestBulkUpsertIsAllOrNothing(t *testing.T) {
	s := NewCart("u1")
	a, b := product("A", "10.00"), product("B", "5.00")
	s.Upsert(a, 1)

	_, err := s.BulkUpsert([]models.LineItem{
		models.LineItemFromProduct(b, 1, time.Now()),
		{Name: "broken"},
	})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Contains(b.ID.String()))

	result, err := s.BulkUpsert([]models.LineItem{
		models.LineItemFromProduct(a, 2, time.Now()),
		models.LineItemFromProduct(b, 1, time.Now()),
	})
	require.NoError(t, err)
	require.Len(t, result, 2)
	item, _ := s.Get(a.ID.String())
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, 4, s.Count())
}

func TestWishlistHasNoQuantity(t *testing.T) {
	w := NewWishlist("u1")
	p := product("A", "10.00")

	w.Upsert(p, 5)
	item, ok := w.Upsert(p, 3)

	require.True(t, ok)
	assert.Equal(t, 1, item.Quantity)
	assert.Equal(t, 1, w.Count())
}

func TestReplaceAll(t *testing.T) {
	s := NewCart("u1")
	s.Upsert(product("old", "1.00"), 1)

	p := product("A", "3.00")
	first := models.LineItemFromProduct(p, 1, time.Now())
	last := models.LineItemFromProduct(p, 4, time.Now())
	zero := models.LineItemFromProduct(product("Z", "1.00"), 1, time.Now())
	zero.Quantity = 0

	s.ReplaceAll([]models.LineItem{first, last, zero})

	assert.Equal(t, 1, s.Len())
	item, ok := s.Get(p.ID.String())
	require.True(t, ok)
	assert.Equal(t, 4, item.Quantity)
}
