// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps collections in process memory. It backs tests and
// STORE_DRIVER=memory. Batches are applied op by op, so an injected failure
// leaves the earlier ops of the batch applied, like a document store without
// transactions.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[subscriptionKey]map[string]Record
	events  *Broadcaster
	now     func() time.Time
	failure func(op Op) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[subscriptionKey]map[string]Record),
		events: NewBroadcaster(),
		now:    time.Now,
	}
}

// InjectFailure installs fn, which is consulted before every write. A
// non-nil error aborts that write and the rest of its batch. Pass nil to
// clear.
func (s *MemoryStore) InjectFailure(fn func(op Op) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = fn
}

func (s *MemoryStore) GetCollection(ctx context.Context, userID, collection string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot(subscriptionKey{userID, collection}), nil
}

func (s *MemoryStore) PutRecord(ctx context.Context, userID, collection string, rec Record) error {
	return s.RunBatch(ctx, []Op{{Kind: OpPut, UserID: userID, Collection: collection, Record: rec}})
}

func (s *MemoryStore) DeleteRecord(ctx context.Context, userID, collection, id string) error {
	return s.RunBatch(ctx, []Op{DeleteOp(userID, collection, id)})
}

func (s *MemoryStore) RunBatch(ctx context.Context, ops []Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, op := range ops {
		if err := validateOp(op); err != nil {
			return err
		}
	}

	s.mu.Lock()
	var applyErr error
	applied := 0
	for _, op := range ops {
		if s.failure != nil {
			if applyErr = s.failure(op); applyErr != nil {
				break
			}
		}
		s.apply(op)
		applied++
	}
	snapshots := make(map[subscriptionKey][]Record)
	for _, k := range touched(ops[:applied]) {
		snapshots[k] = s.snapshot(k)
	}
	s.mu.Unlock()

	for _, k := range touched(ops[:applied]) {
		s.events.Publish(k.userID, k.collection, snapshots[k])
	}
	return applyErr
}

func (s *MemoryStore) apply(op Op) {
	k := subscriptionKey{op.UserID, op.Collection}
	switch op.Kind {
	case OpPut:
		if s.data[k] == nil {
			s.data[k] = make(map[string]Record)
		}
		rec := op.Record
		rec.UserID = op.UserID
		rec.UpdatedAt = s.now()
		rec.Data = append([]byte(nil), op.Record.Data...)
		s.data[k][rec.ID] = rec
	case OpDelete:
		delete(s.data[k], op.Record.ID)
	}
}

func (s *MemoryStore) Subscribe(ctx context.Context, userID, collection string, onChange ChangeFunc) (func(), error) {
	return s.events.Subscribe(ctx, userID, collection, onChange), nil
}

func (s *MemoryStore) ListAll(ctx context.Context, collection string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for k := range s.data {
		if k.collection == collection {
			out = append(out, s.snapshot(k)...)
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) Lookup(ctx context.Context, collection, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, records := range s.data {
		if k.collection != collection {
			continue
		}
		if rec, ok := records[id]; ok {
			return cloneRecords([]Record{rec})[0], nil
		}
	}
	return Record{}, notFound(collection, id)
}

func (s *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) snapshot(k subscriptionKey) []Record {
	records := make([]Record, 0, len(s.data[k]))
	for _, rec := range s.data[k] {
		records = append(records, rec)
	}
	sortRecords(records)
	return cloneRecords(records)
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].UserID != records[j].UserID {
			return records[i].UserID < records[j].UserID
		}
		return records[i].ID < records[j].ID
	})
}
