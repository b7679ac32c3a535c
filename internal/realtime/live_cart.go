// internal/realtime/live_cart.go

// Package realtime pushes per-user collection snapshots to connected
// clients as the document store reports changes.
package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/cart"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/pricing"
	"github.com/javajoker/storefront/internal/store"
)

// CartSnapshot is a cart or wishlist as of the latest change.
type CartSnapshot struct {
	Items []models.LineItem `json:"items"`
	Quote *pricing.Quote    `json:"quote,omitempty"`
}

// LiveCart mirrors one user's cart or wishlist into a cart.Store, replacing
// its contents on every pushed snapshot.
type LiveCart struct {
	mu     sync.Mutex
	lines  *cart.Store
	engine *pricing.Engine
	notify func(CartSnapshot)
}

// WatchCart loads the current contents, subscribes for changes and calls
// notify with the initial snapshot and then after every change. The
// returned func stops the subscription.
func WatchCart(ctx context.Context, docs store.DocumentStore, userID string, kind cart.Kind, engine *pricing.Engine, notify func(CartSnapshot)) (*LiveCart, func(), error) {
	lc := &LiveCart{
		lines:  cart.NewStore(userID, kind),
		engine: engine,
		notify: notify,
	}

	records, err := docs.GetCollection(ctx, userID, string(kind))
	if err != nil {
		return nil, nil, models.WrapCollaborator("document store", "load "+string(kind), err)
	}
	lc.apply(records)

	stop, err := docs.Subscribe(ctx, userID, string(kind), lc.apply)
	if err != nil {
		return nil, nil, models.WrapCollaborator("document store", "subscribe "+string(kind), err)
	}
	return lc, stop, nil
}

func (lc *LiveCart) apply(records []store.Record) {
	items, err := store.DecodeAll[models.LineItem](records)
	if err != nil {
		logrus.WithError(err).WithField("user_id", lc.lines.UserID()).Warn("Ignoring undecodable cart snapshot")
		return
	}

	lc.mu.Lock()
	lc.lines.ReplaceAll(items)
	snapshot := lc.snapshotLocked()
	lc.mu.Unlock()

	if lc.notify != nil {
		lc.notify(snapshot)
	}
}

// Snapshot returns the current contents.
func (lc *LiveCart) Snapshot() CartSnapshot {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.snapshotLocked()
}

func (lc *LiveCart) snapshotLocked() CartSnapshot {
	snapshot := CartSnapshot{Items: lc.lines.Items()}
	if lc.lines.Kind() == cart.KindCart && lc.engine != nil {
		quote := lc.engine.Quote(snapshot.Items)
		snapshot.Quote = &quote
	}
	return snapshot
}
