// internal/store/store.go

// Package store persists per-user document collections (cart, wishlist,
// compare, addresses, orders, reviews) and pushes changes to subscribers.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/javajoker/storefront/internal/models"
)

// Record is one stored document. Data is the JSON encoding of the domain
// value; UserID is filled on reads.
type Record struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Encode wraps v as a record with the given id.
func Encode(id string, v interface{}) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode record %s: %w", id, err)
	}
	return Record{ID: id, Data: data}, nil
}

func (r Record) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to decode record %s: %w", r.ID, err)
	}
	return nil
}

// DecodeAll decodes every record into a T.
func DecodeAll[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := r.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type OpKind string

const (
	OpPut    OpKind = "put"
	OpDelete OpKind = "delete"
)

// Op is one write in a batch.
type Op struct {
	Kind       OpKind
	UserID     string
	Collection string
	Record     Record
}

func PutOp(userID, collection, id string, v interface{}) (Op, error) {
	rec, err := Encode(id, v)
	if err != nil {
		return Op{}, err
	}
	return Op{Kind: OpPut, UserID: userID, Collection: collection, Record: rec}, nil
}

func DeleteOp(userID, collection, id string) Op {
	return Op{Kind: OpDelete, UserID: userID, Collection: collection, Record: Record{ID: id}}
}

// ChangeFunc receives the full collection after a change.
type ChangeFunc func(records []Record)

// DocumentStore is the persistence collaborator behind every per-user
// collection. RunBatch should be all-or-nothing; callers must still tolerate
// a partially applied batch, since not every backend can guarantee it.
type DocumentStore interface {
	GetCollection(ctx context.Context, userID, collection string) ([]Record, error)
	PutRecord(ctx context.Context, userID, collection string, rec Record) error
	DeleteRecord(ctx context.Context, userID, collection, id string) error
	RunBatch(ctx context.Context, ops []Op) error

	// Subscribe calls onChange with the collection snapshot after every
	// change until the returned function is called or ctx ends.
	Subscribe(ctx context.Context, userID, collection string, onChange ChangeFunc) (unsubscribe func(), err error)

	// ListAll and Lookup read across users, for back-office use.
	ListAll(ctx context.Context, collection string) ([]Record, error)
	Lookup(ctx context.Context, collection, id string) (Record, error)

	Close(ctx context.Context) error
}

func notFound(collection, id string) error {
	return models.NewNotFound(collection, id)
}

type subscriptionKey struct {
	userID     string
	collection string
}

// touched lists every (user, collection) pair a batch writes to, in first
// appearance order.
func touched(ops []Op) []subscriptionKey {
	var keys []subscriptionKey
	seen := make(map[subscriptionKey]bool)
	for _, op := range ops {
		k := subscriptionKey{op.UserID, op.Collection}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func validateOp(op Op) error {
	if op.UserID == "" || op.Collection == "" || op.Record.ID == "" {
		return fmt.Errorf("batch op is missing user, collection or id")
	}
	if op.Kind != OpPut && op.Kind != OpDelete {
		return fmt.Errorf("unknown batch op %q", op.Kind)
	}
	return nil
}
