// internal/store/gorm.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront/internal/database"
	"github.com/javajoker/storefront/internal/models"
)

// notifyChannel is the postgres channel carrying document change events.
const notifyChannel = "document_changes"

type changeNotice struct {
	UserID     string `json:"user_id"`
	Collection string `json:"collection"`
}

// GormStore keeps documents in the postgres "documents" table. Batches run
// in one transaction. Subscribers are served in-process; after Listen the
// change feed comes from LISTEN/NOTIFY, so writes from other instances are
// seen too.
type GormStore struct {
	db        *gorm.DB
	events    *Broadcaster
	listening atomic.Bool
	listener  *pq.Listener
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, events: NewBroadcaster()}
}

func (s *GormStore) GetCollection(ctx context.Context, userID, collection string) ([]Record, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND collection = ?", userID, collection).
		Order("record_id").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", collection, err)
	}
	return toRecords(docs), nil
}

func (s *GormStore) PutRecord(ctx context.Context, userID, collection string, rec Record) error {
	return s.RunBatch(ctx, []Op{{Kind: OpPut, UserID: userID, Collection: collection, Record: rec}})
}

func (s *GormStore) DeleteRecord(ctx context.Context, userID, collection, id string) error {
	return s.RunBatch(ctx, []Op{DeleteOp(userID, collection, id)})
}

func (s *GormStore) RunBatch(ctx context.Context, ops []Op) error {
	for _, op := range ops {
		if err := validateOp(op); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		for _, op := range ops {
			if err := applyGorm(tx, op, now); err != nil {
				return err
			}
		}
		if s.listening.Load() {
			for _, k := range touched(ops) {
				payload, _ := json.Marshal(changeNotice{UserID: k.userID, Collection: k.collection})
				if err := tx.Exec("SELECT pg_notify(?, ?)", notifyChannel, string(payload)).Error; err != nil {
					return fmt.Errorf("failed to notify change: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !s.listening.Load() {
		for _, k := range touched(ops) {
			s.publish(ctx, k)
		}
	}
	return nil
}

func applyGorm(tx *gorm.DB, op Op, now time.Time) error {
	switch op.Kind {
	case OpPut:
		doc := models.Document{
			UserID:     op.UserID,
			Collection: op.Collection,
			RecordID:   op.Record.ID,
			Data:       op.Record.Data,
			UpdatedAt:  now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "collection"}, {Name: "record_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).Create(&doc).Error
		if err != nil {
			return fmt.Errorf("failed to put %s/%s: %w", op.Collection, op.Record.ID, err)
		}
	case OpDelete:
		err := tx.Where("user_id = ? AND collection = ? AND record_id = ?", op.UserID, op.Collection, op.Record.ID).
			Delete(&models.Document{}).Error
		if err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", op.Collection, op.Record.ID, err)
		}
	}
	return nil
}

func (s *GormStore) Subscribe(ctx context.Context, userID, collection string, onChange ChangeFunc) (func(), error) {
	return s.events.Subscribe(ctx, userID, collection, onChange), nil
}

// Listen switches change delivery to postgres LISTEN/NOTIFY on dsn. It
// returns once the listener is connected; events are dispatched until ctx
// ends. Call it once, before the store serves requests: Close reads the
// listener without locking.
func (s *GormStore) Listen(ctx context.Context, dsn string) error {
	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logrus.WithError(err).WithField("event", ev).Warn("Document change listener event")
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}
	s.listener = listener
	s.listening.Store(true)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				// nil after a reconnect; events may have been missed
				if n == nil {
					continue
				}
				var notice changeNotice
				if err := json.Unmarshal([]byte(n.Extra), &notice); err != nil {
					logrus.WithError(err).Warn("Malformed document change notice")
					continue
				}
				s.publish(ctx, subscriptionKey{notice.UserID, notice.Collection})
			}
		}
	}()
	return nil
}

func (s *GormStore) publish(ctx context.Context, k subscriptionKey) {
	if !s.events.Has(k.userID, k.collection) {
		return
	}
	records, err := s.GetCollection(context.WithoutCancel(ctx), k.userID, k.collection)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id":    k.userID,
			"collection": k.collection,
		}).Warn("Failed to load snapshot for subscribers")
		return
	}
	s.events.Publish(k.userID, k.collection, records)
}

func (s *GormStore) ListAll(ctx context.Context, collection string) ([]Record, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("user_id, record_id").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return toRecords(docs), nil
}

func (s *GormStore) Lookup(ctx context.Context, collection, id string) (Record, error) {
	var doc models.Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND record_id = ?", collection, id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, notFound(collection, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to look up %s/%s: %w", collection, id, err)
	}
	return toRecords([]models.Document{doc})[0], nil
}

// Close stops the change listener. The gorm pool is owned by the caller.
func (s *GormStore) Close(ctx context.Context) error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func toRecords(docs []models.Document) []Record {
	records := make([]Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, Record{
			ID:        d.RecordID,
			UserID:    d.UserID,
			Data:      d.Data,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return records
}
