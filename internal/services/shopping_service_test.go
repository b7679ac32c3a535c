// internal/services/shopping_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/storefront/internal/address"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/money"
	"github.com/javajoker/storefront/internal/pricing"
	"github.com/javajoker/storefront/internal/store"
)

const shopper = "user-1"

type ShoppingTestSuite struct {
	suite.Suite
	ctx       context.Context
	docs      *store.MemoryStore
	catalog   *fakeCatalog
	carts     *CartService
	wishlists *WishlistService
	compares  *CompareService
	addresses *AddressService
}

func (suite *ShoppingTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.docs = store.NewMemoryStore()
	suite.catalog = newFakeCatalog()

	shared := NewCollections(suite.docs).WithClock(fixedClock())
	suite.carts = NewCartService(shared, suite.catalog, pricing.NewEngine(pricing.DefaultConfig()))
	suite.wishlists = NewWishlistService(shared, suite.catalog)
	suite.compares = NewCompareService(shared, suite.catalog)
	suite.addresses = NewAddressService(shared)
}

func (suite *ShoppingTestSuite) stored(collection string) []store.Record {
	records, err := suite.docs.GetCollection(suite.ctx, shopper, collection)
	suite.Require().NoError(err)
	return records
}

func (suite *ShoppingTestSuite) TestAddItemMergesAndQuotes() {
	p := suite.catalog.add("lamp", money.Cents(1000), 5)

	_, err := suite.carts.AddItem(suite.ctx, shopper, &AddToCartRequest{ProductID: p.ID.String(), Quantity: 1})
	suite.Require().NoError(err)
	view, err := suite.carts.AddItem(suite.ctx, shopper, &AddToCartRequest{ProductID: p.ID.String(), Quantity: 2})
	suite.Require().NoError(err)

	suite.Require().Len(view.Items, 1)
	suite.Equal(3, view.Items[0].Quantity)
	suite.Equal(money.Cents(3000), view.Quote.Subtotal)
	suite.Equal(money.Cents(999), view.Quote.Shipping)
	suite.Equal(money.Cents(240), view.Quote.Tax)
	suite.Equal(money.Cents(4239), view.Quote.Total)
	suite.Len(suite.stored(models.CollectionCart), 1)
}

func (suite *ShoppingTestSuite) TestAddItemRejectsMoreThanStock() {
	p := suite.catalog.add("lamp", money.Cents(1000), 3)

	_, err := suite.carts.AddItem(suite.ctx, shopper, &AddToCartRequest{ProductID: p.ID.String(), Quantity: 2})
	suite.Require().NoError(err)
	_, err = suite.carts.AddItem(suite.ctx, shopper, &AddToCartRequest{ProductID: p.ID.String(), Quantity: 2})
	suite.Require().Error(err)
	suite.True(errors.Is(err, models.ErrValidation))

	var domainErr *models.DomainError
	suite.Require().True(errors.As(err, &domainErr))
	suite.Equal("cart.insufficient_stock", domainErr.Key)

	view, err := suite.carts.GetCart(suite.ctx, shopper)
	suite.Require().NoError(err)
	suite.Equal(2, view.Items[0].Quantity)
}

func (suite *ShoppingTestSuite) TestAddItemUnknownProduct() {
	_, err := suite.carts.AddItem(suite.ctx, shopper, &AddToCartRequest{ProductID: "missing"})
	suite.True(errors.Is(err, models.ErrNotFound))
}

func (suite *ShoppingTestSuite) TestSetQuantityZeroRemovesLine() {
	p := suite.catalog.add("lamp", money.Cents(1000), 5)
	_, err := suite.carts.AddItem(suite.ctx, shopper, &AddToCartRequest{ProductID: p.ID.String(), Quantity: 2})
	suite.Require().NoError(err)

	view, err := suite.carts.SetQuantity(suite.ctx, shopper, p.ID.String(), 0)
	suite.Require().NoError(err)
	suite.Empty(view.Items)
	suite.True(view.Quote.Total.IsZero())
	suite.Empty(suite.stored(models.CollectionCart))
}

func (suite *ShoppingTestSuite) TestRemoveAndClear() {
	a := suite.catalog.add("lamp", money.Cents(1000), 5)
	b := suite.catalog.add("desk", money.Cents(5000), 5)
	for _, p := range []*models.Product{a, b} {
		_, err := suite.carts.AddItem(suite.ctx, shopper, &AddToCartRequest{ProductID: p.ID.String(), Quantity: 1})
		suite.Require().NoError(err)
	}

	view, err := suite.carts.RemoveItem(suite.ctx, shopper, "not-in-cart")
	suite.Require().NoError(err)
	suite.Len(view.Items, 2)

	view, err = suite.carts.RemoveItem(suite.ctx, shopper, a.ID.String())
	suite.Require().NoError(err)
	suite.Len(view.Items, 1)

	view, err = suite.carts.Clear(suite.ctx, shopper)
	suite.Require().NoError(err)
	suite.Empty(view.Items)
	suite.Empty(suite.stored(models.CollectionCart))
}

func (suite *ShoppingTestSuite) TestWishlistAddIsIdempotent() {
	p := suite.catalog.add("lamp", money.Cents(1000), 5)

	_, err := suite.wishlists.AddItem(suite.ctx, shopper, p.ID.String())
	suite.Require().NoError(err)
	items, err := suite.wishlists.AddItem(suite.ctx, shopper, p.ID.String())
	suite.Require().NoError(err)

	suite.Require().Len(items, 1)
	suite.Equal(1, items[0].Quantity)
}

func (suite *ShoppingTestSuite) TestWishlistMoveToCart() {
	p := suite.catalog.add("lamp", money.Cents(1000), 5)
	_, err := suite.wishlists.AddItem(suite.ctx, shopper, p.ID.String())
	suite.Require().NoError(err)

	moved, err := suite.wishlists.MoveToCart(suite.ctx, shopper, p.ID.String())
	suite.Require().NoError(err)
	suite.Require().Len(moved, 1)
	suite.Equal(1, moved[0].Quantity)

	suite.Len(suite.stored(models.CollectionCart), 1)
	suite.Empty(suite.stored(models.CollectionWishlist))
}

func (suite *ShoppingTestSuite) TestWishlistMoveToCartKeepsCartWhenDeleteFails() {
	p := suite.catalog.add("lamp", money.Cents(1000), 5)
	_, err := suite.wishlists.AddItem(suite.ctx, shopper, p.ID.String())
	suite.Require().NoError(err)

	suite.docs.InjectFailure(func(op store.Op) error {
		if op.Kind == store.OpDelete && op.Collection == models.CollectionWishlist {
			return errors.New("connection reset")
		}
		return nil
	})

	moved, err := suite.wishlists.MoveToCart(suite.ctx, shopper, p.ID.String())
	suite.Require().NoError(err)
	suite.Len(moved, 1)
	suite.Len(suite.stored(models.CollectionCart), 1)
	suite.Len(suite.stored(models.CollectionWishlist), 1)
}

func (suite *ShoppingTestSuite) TestWishlistMoveToCartLeavesWishlistWhenCartFails() {
	p := suite.catalog.add("lamp", money.Cents(1000), 5)
	_, err := suite.wishlists.AddItem(suite.ctx, shopper, p.ID.String())
	suite.Require().NoError(err)

	suite.docs.InjectFailure(func(op store.Op) error {
		if op.Collection == models.CollectionCart {
			return errors.New("connection reset")
		}
		return nil
	})

	_, err = suite.wishlists.MoveToCart(suite.ctx, shopper, p.ID.String())
	suite.Require().Error(err)
	suite.Empty(suite.stored(models.CollectionCart))
	suite.Len(suite.stored(models.CollectionWishlist), 1)
}

func (suite *ShoppingTestSuite) TestWishlistMoveToCartMissing() {
	_, err := suite.wishlists.MoveToCart(suite.ctx, shopper, "nope")
	suite.True(errors.Is(err, models.ErrNotFound))
}

func (suite *ShoppingTestSuite) TestCompareLimitAndMoveAll() {
	a := suite.catalog.add("lamp", money.Cents(1000), 5)
	b := suite.catalog.add("desk", money.Cents(5000), 5)
	c := suite.catalog.add("chair", money.Cents(2500), 5)

	_, err := suite.compares.AddItem(suite.ctx, shopper, a.ID.String())
	suite.Require().NoError(err)
	_, err = suite.compares.AddItem(suite.ctx, shopper, b.ID.String())
	suite.Require().NoError(err)
	_, err = suite.compares.AddItem(suite.ctx, shopper, c.ID.String())
	suite.True(errors.Is(err, models.ErrLimitReached))

	_, err = suite.carts.AddItem(suite.ctx, shopper, &AddToCartRequest{ProductID: a.ID.String(), Quantity: 2})
	suite.Require().NoError(err)

	moved, err := suite.compares.MoveAllToCart(suite.ctx, shopper)
	suite.Require().NoError(err)
	suite.Len(moved, 2)

	view, err := suite.carts.GetCart(suite.ctx, shopper)
	suite.Require().NoError(err)
	quantities := map[string]int{}
	for _, item := range view.Items {
		quantities[item.ProductID] = item.Quantity
	}
	suite.Equal(3, quantities[a.ID.String()])
	suite.Equal(1, quantities[b.ID.String()])
	suite.Empty(suite.stored(models.CollectionCompare))
}

func (suite *ShoppingTestSuite) TestCompareMoveAllEmpty() {
	moved, err := suite.compares.MoveAllToCart(suite.ctx, shopper)
	suite.Require().NoError(err)
	suite.Empty(moved)
}

func newAddressRequest(name string, isDefault bool) *CreateAddressRequest {
	return &CreateAddressRequest{
		FullName:  name,
		Phone:     "+1 555 0100",
		Line:      "1 Main St",
		City:      "Springfield",
		ZipCode:   "12345",
		Country:   "US",
		IsDefault: isDefault,
	}
}

func (suite *ShoppingTestSuite) defaults() []string {
	list, err := suite.addresses.ListAddresses(suite.ctx, shopper)
	suite.Require().NoError(err)
	var ids []string
	for _, a := range list {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func (suite *ShoppingTestSuite) TestAddressDefaultRules() {
	first, err := suite.addresses.CreateAddress(suite.ctx, shopper, newAddressRequest("Home", false))
	suite.Require().NoError(err)
	suite.True(first.IsDefault, "first address becomes the default")

	second, err := suite.addresses.CreateAddress(suite.ctx, shopper, newAddressRequest("Work", true))
	suite.Require().NoError(err)
	suite.Equal([]string{second.ID}, suite.defaults())

	_, err = suite.addresses.SetDefault(suite.ctx, shopper, first.ID)
	suite.Require().NoError(err)
	suite.Equal([]string{first.ID}, suite.defaults())

	suite.Require().NoError(suite.addresses.DeleteAddress(suite.ctx, shopper, first.ID))
	suite.Equal([]string{second.ID}, suite.defaults())

	def, err := suite.addresses.GetDefaultAddress(suite.ctx, shopper)
	suite.Require().NoError(err)
	suite.Equal("Work", def.FullName)
}

func (suite *ShoppingTestSuite) TestAddressUpdate() {
	created, err := suite.addresses.CreateAddress(suite.ctx, shopper, newAddressRequest("Home", false))
	suite.Require().NoError(err)

	city := "Shelbyville"
	updated, err := suite.addresses.UpdateAddress(suite.ctx, shopper, created.ID, address.Patch{City: &city})
	suite.Require().NoError(err)
	suite.Equal("Shelbyville", updated.City)

	got, err := suite.addresses.GetAddress(suite.ctx, shopper, created.ID)
	suite.Require().NoError(err)
	suite.Equal("Shelbyville", got.City)
}

func (suite *ShoppingTestSuite) TestAddressValidation() {
	req := newAddressRequest("Home", false)
	req.Phone = "call me"
	_, err := suite.addresses.CreateAddress(suite.ctx, shopper, req)
	suite.True(errors.Is(err, models.ErrValidation))
}

func (suite *ShoppingTestSuite) TestAddressRepairIsPersisted() {
	var ops []store.Op
	for _, id := range []string{"a1", "a2"} {
		op, err := store.PutOp(shopper, models.CollectionAddresses, id, models.Address{
			ID: id, UserID: shopper, FullName: id, Phone: "+1 555 0100", Line: "x",
			City: "y", ZipCode: "1", Country: "US", IsDefault: true,
		})
		suite.Require().NoError(err)
		ops = append(ops, op)
	}
	suite.Require().NoError(suite.docs.RunBatch(suite.ctx, ops))

	suite.Len(suite.defaults(), 1)

	stored, err := store.DecodeAll[models.Address](suite.stored(models.CollectionAddresses))
	suite.Require().NoError(err)
	count := 0
	for _, a := range stored {
		if a.IsDefault {
			count++
		}
	}
	suite.Equal(1, count)
}

func (suite *ShoppingTestSuite) TestNoDefaultAddress() {
	_, err := suite.addresses.GetDefaultAddress(suite.ctx, shopper)
	suite.True(errors.Is(err, models.ErrNotFound))
}

func TestShoppingTestSuite(t *testing.T) {
	suite.Run(t, new(ShoppingTestSuite))
}

func TestUserLocksSerializePerUser(t *testing.T) {
	locks := newUserLocks()
	unlock := locks.Lock("a")

	acquired := make(chan struct{})
	done := make(chan struct{})
	go func() {
		release := locks.Lock("a")
		close(acquired)
		release()
		close(done)
	}()

	other := locks.Lock("b")
	other()

	select {
	case <-acquired:
		t.Fatal("second lock for the same user acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-done

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
