// internal/store/broadcaster.go
package store

import (
	"context"
	"sync"
)

// Broadcaster fans collection snapshots out to in-process subscribers.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[subscriptionKey]map[int]ChangeFunc
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[subscriptionKey]map[int]ChangeFunc)}
}

// Subscribe registers fn until the returned func is called or ctx ends.
func (b *Broadcaster) Subscribe(ctx context.Context, userID, collection string, fn ChangeFunc) func() {
	k := subscriptionKey{userID, collection}

	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[k] == nil {
		b.subs[k] = make(map[int]ChangeFunc)
	}
	b.subs[k][id] = fn
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[k], id)
			if len(b.subs[k]) == 0 {
				delete(b.subs, k)
			}
		})
	}

	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}
}

// Has reports whether anyone listens to (userID, collection).
func (b *Broadcaster) Has(userID, collection string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[subscriptionKey{userID, collection}]) > 0
}

// Publish delivers records to every subscriber of (userID, collection).
// Callbacks run on the caller's goroutine, outside the lock.
func (b *Broadcaster) Publish(userID, collection string, records []Record) {
	b.mu.Lock()
	listeners := make([]ChangeFunc, 0, len(b.subs[subscriptionKey{userID, collection}]))
	for _, fn := range b.subs[subscriptionKey{userID, collection}] {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(cloneRecords(records))
	}
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r
		out[i].Data = append([]byte(nil), r.Data...)
	}
	return out
}
