// internal/services/collections.go
package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/javajoker/storefront/internal/address"
	"github.com/javajoker/storefront/internal/cart"
	"github.com/javajoker/storefront/internal/compare"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/review"
	"github.com/javajoker/storefront/internal/store"
)

const collaboratorStore = "document store"

// userLocks serializes mutations per user. gin serves requests concurrently
// but each in-memory core assumes a single writer.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock blocks until userID is free and returns the matching unlock.
func (l *userLocks) Lock(userID string) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

// Collections is the per-user document access shared by the cart,
// wishlist, compare, address, order and review services. Services that
// share one Collections also share its per-user lock, so a saga spanning
// two collections is never interleaved with another write by the same user.
type Collections struct {
	store store.DocumentStore
	locks *userLocks
	now   func() time.Time
}

func NewCollections(docs store.DocumentStore) *Collections {
	return &Collections{
		store: docs,
		locks: newUserLocks(),
		now:   time.Now,
	}
}

// WithClock replaces the time source handed to every loaded core.
func (c *Collections) WithClock(now func() time.Time) *Collections {
	c.now = now
	return c
}

func (c *Collections) Store() store.DocumentStore {
	return c.store
}

func (c *Collections) lock(userID string) func() {
	return c.locks.Lock(userID)
}

func (c *Collections) records(ctx context.Context, userID, collection string) ([]store.Record, error) {
	records, err := c.store.GetCollection(ctx, userID, collection)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "load "+collection, err)
	}
	return records, nil
}

func (c *Collections) runBatch(ctx context.Context, op string, ops []store.Op) error {
	if len(ops) == 0 {
		return nil
	}
	return models.WrapCollaborator(collaboratorStore, op, c.store.RunBatch(ctx, ops))
}

func (c *Collections) lines(ctx context.Context, userID, collection string) ([]models.LineItem, error) {
	records, err := c.records(ctx, userID, collection)
	if err != nil {
		return nil, err
	}
	items, err := store.DecodeAll[models.LineItem](records)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "decode "+collection, err)
	}
	return items, nil
}

func (c *Collections) loadLineStore(ctx context.Context, userID string, kind cart.Kind) (*cart.Store, error) {
	items, err := c.lines(ctx, userID, string(kind))
	if err != nil {
		return nil, err
	}
	s := cart.NewStore(userID, kind).WithClock(c.now)
	s.ReplaceAll(items)
	return s, nil
}

func (c *Collections) loadCompare(ctx context.Context, userID string) (*compare.Set, error) {
	items, err := c.lines(ctx, userID, models.CollectionCompare)
	if err != nil {
		return nil, err
	}
	set := compare.NewSet(userID).WithClock(c.now)
	set.ReplaceAll(items)
	return set, nil
}

func (c *Collections) loadAddresses(ctx context.Context, userID string) (*address.Book, error) {
	records, err := c.records(ctx, userID, models.CollectionAddresses)
	if err != nil {
		return nil, err
	}
	addresses, err := store.DecodeAll[models.Address](records)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "decode addresses", err)
	}
	book := address.NewBook(userID).WithClock(c.now)
	book.ReplaceAll(addresses)
	return book, nil
}

// loadOrders returns the user's orders, newest first.
func (c *Collections) loadOrders(ctx context.Context, userID string) ([]models.Order, error) {
	records, err := c.records(ctx, userID, models.CollectionOrders)
	if err != nil {
		return nil, err
	}
	orders, err := store.DecodeAll[models.Order](records)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "decode orders", err)
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (c *Collections) loadOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	orders, err := c.loadOrders(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}
	return nil, models.NewNotFound("order", orderID)
}

func (c *Collections) loadReviews(ctx context.Context, userID, userName string) (*review.Book, error) {
	records, err := c.records(ctx, userID, models.CollectionReviews)
	if err != nil {
		return nil, err
	}
	reviews, err := store.DecodeAll[models.Review](records)
	if err != nil {
		return nil, models.WrapCollaborator(collaboratorStore, "decode reviews", err)
	}
	book := review.NewBook(userID, userName).WithClock(c.now)
	book.ReplaceAll(reviews)
	return book, nil
}

// lineOps writes items as put ops keyed by product id.
func lineOps(userID, collection string, items []models.LineItem) ([]store.Op, error) {
	ops := make([]store.Op, 0, len(items))
	for _, item := range items {
		op, err := store.PutOp(userID, collection, item.ProductID, item)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func deleteOps(userID, collection string, ids []string) []store.Op {
	ops := make([]store.Op, 0, len(ids))
	for _, id := range ids {
		ops = append(ops, store.DeleteOp(userID, collection, id))
	}
	return ops
}

func sortNewestFirst(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
