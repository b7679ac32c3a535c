// internal/address/book_test.go
package address

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront/internal/models"
)

func newTestBook() *Book {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return NewBook("u1").
		WithClock(func() time.Time {
			t = t.Add(time.Minute)
			return t
		}).
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("addr-%d", n)
		})
}

func sample(name string, isDefault bool) models.Address {
	return models.Address{
		FullName:  name,
		Phone:     "+1 555 0100",
		Line:      "1 Main St",
		City:      "Springfield",
		State:     "IL",
		ZipCode:   "62701",
		Country:   "US",
		IsDefault: isDefault,
	}
}

func defaults(b *Book) int {
	n := 0
	for _, a := range b.List() {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestFirstAddressIsDefault(t *testing.T) {
	b := newTestBook()

	addr, diff, err := b.Add(sample("Ann", false))
	require.NoError(t, err)
	assert.True(t, addr.IsDefault)
	assert.Equal(t, "u1", addr.UserID)
	require.Len(t, diff.Put, 1)
	assert.Empty(t, diff.Deleted)
}

func TestDefaultHandOverScenario(t *testing.T) {
	b := newTestBook()

	addr1, _, err := b.Add(sample("Ann", false))
	require.NoError(t, err)

	addr2, diff, err := b.Add(sample("Bob", true))
	require.NoError(t, err)
	assert.True(t, addr2.IsDefault)
	require.Len(t, diff.Put, 2)

	first, _ := b.Get(addr1.ID)
	assert.False(t, first.IsDefault)

	diff, err = b.Remove(addr2.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{addr2.ID}, diff.Deleted)
	require.Len(t, diff.Put, 1)
	assert.Equal(t, addr1.ID, diff.Put[0].ID)

	first, _ = b.Get(addr1.ID)
	assert.True(t, first.IsDefault)
}

func TestAddNonDefaultLeavesOthersUntouched(t *testing.T) {
	b := newTestBook()
	b.Add(sample("Ann", false))

	_, diff, err := b.Add(sample("Bob", false))
	require.NoError(t, err)
	assert.Len(t, diff.Put, 1, "only the new address is written")
}

func TestRemovePromotesEarliest(t *testing.T) {
	b := newTestBook()
	a1, _, _ := b.Add(sample("Ann", false))
	a2, _, _ := b.Add(sample("Bob", false))
	a3, _, _ := b.Add(sample("Cid", false))

	_, err := b.Remove(a1.ID)
	require.NoError(t, err)

	def, ok := b.Default()
	require.True(t, ok)
	assert.Equal(t, a2.ID, def.ID)

	_, err = b.Remove(a2.ID)
	require.NoError(t, err)
	def, _ = b.Default()
	assert.Equal(t, a3.ID, def.ID)

	diff, err := b.Remove(a3.ID)
	require.NoError(t, err)
	assert.Empty(t, diff.Put)
	assert.Equal(t, 0, b.Len())
	_, ok = b.Default()
	assert.False(t, ok)
}

func TestRemoveMissing(t *testing.T) {
	_, err := newTestBook().Remove("nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSetDefault(t *testing.T) {
	b := newTestBook()
	a1, _, _ := b.Add(sample("Ann", false))
	a2, _, _ := b.Add(sample("Bob", false))

	addr, diff, err := b.SetDefault(a2.ID)
	require.NoError(t, err)
	assert.True(t, addr.IsDefault)
	assert.Len(t, diff.Put, 2)

	first, _ := b.Get(a1.ID)
	assert.False(t, first.IsDefault)

	_, diff, err = b.SetDefault(a2.ID)
	require.NoError(t, err)
	assert.True(t, diff.Empty(), "no-op when already default")

	_, _, err = b.SetDefault("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	b := newTestBook()
	a1, _, _ := b.Add(sample("Ann", false))
	a2, _, _ := b.Add(sample("Bob", false))

	city := "Shelbyville"
	updated, diff, err := b.Update(a2.ID, Patch{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", updated.City)
	assert.Len(t, diff.Put, 1)

	yes := true
	updated, diff, err = b.Update(a2.ID, Patch{IsDefault: &yes})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
	assert.Len(t, diff.Put, 2)

	no := false
	_, _, err = b.Update(a2.ID, Patch{IsDefault: &no})
	require.NoError(t, err)
	def, _ := b.Default()
	assert.Equal(t, a1.ID, def.ID)

	blank := "  "
	_, _, err = b.Update(a1.ID, Patch{FullName: &blank})
	assert.ErrorIs(t, err, models.ErrValidation)
	unchanged, _ := b.Get(a1.ID)
	assert.Equal(t, "Ann", unchanged.FullName)

	_, _, err = b.Update("missing", Patch{})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUnsetOnlyDefaultKeepsIt(t *testing.T) {
	b := newTestBook()
	a1, _, _ := b.Add(sample("Ann", false))

	no := false
	updated, _, err := b.Update(a1.ID, Patch{IsDefault: &no})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
}

func TestAddValidation(t *testing.T) {
	b := newTestBook()
	bad := sample("", false)

	_, _, err := b.Add(bad)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 0, b.Len())

	bad = sample("Ann", false)
	bad.Phone = "call me"
	_, _, err = b.Add(bad)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRepair(t *testing.T) {
	b := newTestBook()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	none := []models.Address{
		{ID: "b", FullName: "B", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "a", FullName: "A", CreatedAt: base.Add(time.Hour)},
	}
	b.ReplaceAll(none)
	assert.Equal(t, "a", b.List()[0].ID, "ordered by creation")
	diff := b.Repair()
	require.Len(t, diff.Put, 1)
	assert.Equal(t, "a", diff.Put[0].ID)

	many := []models.Address{
		{ID: "a", IsDefault: true, CreatedAt: base},
		{ID: "b", IsDefault: true, CreatedAt: base.Add(time.Hour)},
	}
	b.ReplaceAll(many)
	diff = b.Repair()
	require.Len(t, diff.Put, 1)
	assert.Equal(t, "b", diff.Put[0].ID)
	assert.Equal(t, 1, defaults(b))
}

func TestDefaultInvariantUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	b := newTestBook()

	for step := 0; step < 500; step++ {
		list := b.List()
		pick := func() string {
			if len(list) == 0 {
				return "missing"
			}
			return list[rng.Intn(len(list))].ID
		}

		switch rng.Intn(4) {
		case 0:
			b.Add(sample(fmt.Sprintf("n%d", step), rng.Intn(2) == 0))
		case 1:
			flag := rng.Intn(2) == 0
			b.Update(pick(), Patch{IsDefault: &flag})
		case 2:
			b.Remove(pick())
		case 3:
			b.SetDefault(pick())
		}

		if b.Len() == 0 {
			assert.Equal(t, 0, defaults(b))
		} else {
			require.Equal(t, 1, defaults(b), "step %d", step)
		}
	}
}
