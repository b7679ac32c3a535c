// internal/services/compare_service.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/cart"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/store"
)

type CompareService struct {
	docs    *Collections
	catalog ProductCatalog
}

func NewCompareService(docs *Collections, catalog ProductCatalog) *CompareService {
	return &CompareService{docs: docs, catalog: catalog}
}

func (s *CompareService) GetCompare(ctx context.Context, userID string) ([]models.LineItem, error) {
	set, err := s.docs.loadCompare(ctx, userID)
	if err != nil {
		return nil, err
	}
	return set.Items(), nil
}

func (s *CompareService) AddItem(ctx context.Context, userID, productID string) ([]models.LineItem, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	unlock := s.docs.lock(userID)
	defer unlock()

	set, err := s.docs.loadCompare(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := set.Add(product)
	if err != nil {
		return nil, err
	}

	op, err := store.PutOp(userID, models.CollectionCompare, item.ProductID, item)
	if err != nil {
		return nil, err
	}
	if err := s.docs.runBatch(ctx, "put compare item", []store.Op{op}); err != nil {
		return nil, err
	}
	return set.Items(), nil
}

func (s *CompareService) RemoveItem(ctx context.Context, userID, productID string) ([]models.LineItem, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	set, err := s.docs.loadCompare(ctx, userID)
	if err != nil {
		return nil, err
	}
	if set.Remove(productID) {
		if err := s.docs.runBatch(ctx, "remove compare item", []store.Op{
			store.DeleteOp(userID, models.CollectionCompare, productID),
		}); err != nil {
			return nil, err
		}
	}
	return set.Items(), nil
}

// MoveAllToCart puts every compared product in the cart with quantity 1,
// then empties the comparison. Cart lines are written before the compare
// records are deleted, so a failure can leave a product in both places but
// never in neither.
func (s *CompareService) MoveAllToCart(ctx context.Context, userID string) ([]models.LineItem, error) {
	unlock := s.docs.lock(userID)
	defer unlock()

	set, err := s.docs.loadCompare(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, err := s.docs.loadLineStore(ctx, userID, cart.KindCart)
	if err != nil {
		return nil, err
	}

	compared := set.Items()
	moved, err := set.MoveAllToCart(c)
	if err != nil {
		return nil, err
	}
	if len(moved) == 0 {
		return []models.LineItem{}, nil
	}

	ops, err := lineOps(userID, models.CollectionCart, moved)
	if err != nil {
		return nil, err
	}
	if err := s.docs.runBatch(ctx, "move compare items to cart", ops); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(compared))
	for _, item := range compared {
		ids = append(ids, item.ProductID)
	}
	if err := s.docs.runBatch(ctx, "clear compare", deleteOps(userID, models.CollectionCompare, ids)); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"products": ids,
		}).Warn("Compared items moved to cart but the comparison was not cleared")
	}

	return moved, nil
}
