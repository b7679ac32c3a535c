// internal/services/cart_service.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/cart"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/pricing"
	"github.com/javajoker/storefront/internal/store"
)

type CartService struct {
	docs    *Collections
	catalog ProductCatalog
	pricing *pricing.Engine
}

type AddToCartRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=99"`
}

// CartView is the cart as shown at checkout: its lines and their totals.
type CartView struct {
	Items []models.LineItem `json:"items"`
	Quote pricing.Quote     `json:"quote"`
}

func NewCartService(docs *Collections, catalog ProductCatalog, engine *pricing.Engine) *CartService {
	return &CartService{
		docs:    docs,
		catalog: catalog,
		pricing: engine,
	}
}

func (s *CartService) view(c *cart.Store) *CartView {
	items := c.Items()
	return &CartView{Items: items, Quote: s.pricing.Quote(items)}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	c, err := s.docs.loadLineStore(ctx, userID, cart.KindCart)
	if err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// AddItem adds quantity units of a product, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID string, req *AddToCartRequest) (*CartView, error) {
	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	unlock := s.docs.lock(userID)
	defer unlock()

	c, err := s.docs.loadLineStore(ctx, userID, cart.KindCart)
	if err != nil {
		return nil, err
	}

	current := 0
	if existing, ok := c.Get(req.ProductID); ok {
		current = existing.Quantity
	}
	if current+quantity > product.Stock {
		return nil, insufficientStock(product.Name, product.Stock)
	}

	item, ok := c.Upsert(product, quantity)
	if err := s.persistLine(ctx, userID, cart.KindCart, item, ok, req.ProductID); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   item.Quantity,
	}).Debug("Cart item added")

	return s.view(c), nil
}

// SetQuantity overwrites a line's quantity; zero removes the line.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID string, quantity int) (*CartView, error) {
	if quantity > 0 {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if quantity > product.Stock {
			return nil, insufficientStock(product.Name, product.Stock)
		}
	}

	unlock := s.docs.lock(userID)
	defer unlock()

	c, err := s.docs.loadLineStore(ctx, userID, cart.KindCart)
	if err != nil {
		return nil, err
	}

	item, ok, err := c.SetQuantity(productID, quantity)
	if err != nil {
		return nil, err
	}
	if err := s.persistLine(ctx, userID, cart.KindCart, item, ok, productID); err != nil {
		return nil, err
	}
	return s.view(c), nil
}

// RemoveItem is idempotent: removing an absent product succeeds.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*CartView, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	c, err := s.docs.loadLineStore(ctx, userID, cart.KindCart)
	if err != nil {
		return nil, err
	}

	if c.Remove(productID) {
		if err := s.docs.runBatch(ctx, "remove cart item", []store.Op{
			store.DeleteOp(userID, models.CollectionCart, productID),
		}); err != nil {
			return nil, err
		}
	}
	return s.view(c), nil
}

func (s *CartService) Clear(ctx context.Context, userID string) (*CartView, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	c, err := s.docs.loadLineStore(ctx, userID, cart.KindCart)
	if err != nil {
		return nil, err
	}

	ids := c.Clear()
	if err := s.docs.runBatch(ctx, "clear cart", deleteOps(userID, models.CollectionCart, ids)); err != nil {
		return nil, err
	}
	return s.view(c), nil
}

func (s *CartService) Quote(ctx context.Context, userID string) (pricing.Quote, error) {
	view, err := s.GetCart(ctx, userID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return view.Quote, nil
}

func (s *CartService) persistLine(ctx context.Context, userID string, kind cart.Kind, item models.LineItem, ok bool, productID string) error {
	if !ok {
		return s.docs.runBatch(ctx, "remove "+string(kind)+" item", []store.Op{
			store.DeleteOp(userID, string(kind), productID),
		})
	}
	op, err := store.PutOp(userID, string(kind), item.ProductID, item)
	if err != nil {
		return err
	}
	return s.docs.runBatch(ctx, "put "+string(kind)+" item", []store.Op{op})
}

type WishlistService struct {
	docs    *Collections
	catalog ProductCatalog
}

func NewWishlistService(docs *Collections, catalog ProductCatalog) *WishlistService {
	return &WishlistService{docs: docs, catalog: catalog}
}

func (s *WishlistService) GetWishlist(ctx context.Context, userID string) ([]models.LineItem, error) {
	w, err := s.docs.loadLineStore(ctx, userID, cart.KindWishlist)
	if err != nil {
		return nil, err
	}
	return w.Items(), nil
}

// AddItem is a no-op when the product is already wishlisted.
func (s *WishlistService) AddItem(ctx context.Context, userID, productID string) ([]models.LineItem, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	unlock := s.docs.lock(userID)
	defer unlock()

	w, err := s.docs.loadLineStore(ctx, userID, cart.KindWishlist)
	if err != nil {
		return nil, err
	}
	if !w.Contains(productID) {
		item, _ := w.Upsert(product, 1)
		op, err := store.PutOp(userID, models.CollectionWishlist, item.ProductID, item)
		if err != nil {
			return nil, err
		}
		if err := s.docs.runBatch(ctx, "put wishlist item", []store.Op{op}); err != nil {
			return nil, err
		}
	}
	return w.Items(), nil
}

func (s *WishlistService) RemoveItem(ctx context.Context, userID, productID string) ([]models.LineItem, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	w, err := s.docs.loadLineStore(ctx, userID, cart.KindWishlist)
	if err != nil {
		return nil, err
	}
	if w.Remove(productID) {
		if err := s.docs.runBatch(ctx, "remove wishlist item", []store.Op{
			store.DeleteOp(userID, models.CollectionWishlist, productID),
		}); err != nil {
			return nil, err
		}
	}
	return w.Items(), nil
}

// MoveToCart adds a wishlisted product to the cart and then drops it from
// the wishlist. The cart write happens first; if it fails the wishlist is
// untouched. A failed wishlist delete after a successful cart write is only
// logged, since the product is already where the user wanted it.
func (s *WishlistService) MoveToCart(ctx context.Context, userID, productID string) ([]models.LineItem, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	w, err := s.docs.loadLineStore(ctx, userID, cart.KindWishlist)
	if err != nil {
		return nil, err
	}
	item, ok := w.Get(productID)
	if !ok {
		return nil, models.NewNotFound("wishlist_item", productID)
	}

	c, err := s.docs.loadLineStore(ctx, userID, cart.KindCart)
	if err != nil {
		return nil, err
	}
	item.Quantity = 1
	moved, err := c.BulkUpsert([]models.LineItem{item})
	if err != nil {
		return nil, err
	}
	ops, err := lineOps(userID, models.CollectionCart, moved)
	if err != nil {
		return nil, err
	}
	if err := s.docs.runBatch(ctx, "move wishlist item to cart", ops); err != nil {
		return nil, err
	}

	w.Remove(productID)
	if err := s.docs.runBatch(ctx, "remove wishlist item", []store.Op{
		store.DeleteOp(userID, models.CollectionWishlist, productID),
	}); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":    userID,
			"product_id": productID,
		}).Warn("Item moved to cart but is still in the wishlist")
	}

	return moved, nil
}
