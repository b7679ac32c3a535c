// internal/store/mongo.go
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/javajoker/storefront/internal/config"
	"github.com/javajoker/storefront/internal/models"
)

// mongoDocument is how a record is laid out in MongoDB. Data holds the
// record as a native sub-document so it stays queryable.
type mongoDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	RecordID  string    `bson:"recordId"`
	Data      bson.Raw  `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore keeps one MongoDB collection per document collection, keyed
// "<userId>/<recordId>". Batches run in a session transaction, which needs
// a replica set. Subscribe uses change streams.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo dials the server and verifies it with a ping.
func ConnectMongo(ctx context.Context, cfg config.MongoConfig) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ConnectTimeout)*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logrus.WithField("database", cfg.Database).Info("Mongo connection established")
	return &MongoStore{client: client, db: client.Database(cfg.Database)}, nil
}

// EnsureIndexes creates the per-user lookup index on every collection.
func (s *MongoStore) EnsureIndexes(ctx context.Context, collections ...string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, name := range collections {
		index := mongo.IndexModel{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "recordId", Value: 1}},
			Options: options.Index().
				SetName("userId_recordId").
				SetUnique(true),
		}
		if _, err := s.db.Collection(name).Indexes().CreateOne(ctx, index); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
		logrus.WithField("collection", name).Debug("Mongo index ensured")
	}
	return nil
}

func documentID(userID, id string) string {
	return userID + "/" + id
}

func (s *MongoStore) GetCollection(ctx context.Context, userID, collection string) ([]Record, error) {
	return s.find(ctx, collection, bson.M{"userId": userID})
}

func (s *MongoStore) find(ctx context.Context, collection string, filter bson.M) ([]Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "userId", Value: 1}, {Key: "recordId", Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", collection, err)
	}

	records := make([]Record, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (d mongoDocument) record() (Record, error) {
	data, err := bson.MarshalExtJSON(d.Data, false, false)
	if err != nil {
		return Record{}, fmt.Errorf("failed to convert %s: %w", d.ID, err)
	}
	return Record{ID: d.RecordID, UserID: d.UserID, Data: data, UpdatedAt: d.UpdatedAt}, nil
}

func (s *MongoStore) PutRecord(ctx context.Context, userID, collection string, rec Record) error {
	return s.put(ctx, Op{Kind: OpPut, UserID: userID, Collection: collection, Record: rec})
}

func (s *MongoStore) put(ctx context.Context, op Op) error {
	var data bson.D
	if err := bson.UnmarshalExtJSON(op.Record.Data, false, &data); err != nil {
		return fmt.Errorf("record %s is not a JSON object: %w", op.Record.ID, err)
	}

	update := bson.M{"$set": bson.M{
		"userId":    op.UserID,
		"recordId":  op.Record.ID,
		"data":      data,
		"updatedAt": time.Now().UTC(),
	}}
	_, err := s.db.Collection(op.Collection).UpdateOne(ctx,
		bson.M{"_id": documentID(op.UserID, op.Record.ID)},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", op.Collection, op.Record.ID, err)
	}
	return nil
}

func (s *MongoStore) DeleteRecord(ctx context.Context, userID, collection, id string) error {
	return s.delete(ctx, DeleteOp(userID, collection, id))
}

func (s *MongoStore) delete(ctx context.Context, op Op) error {
	_, err := s.db.Collection(op.Collection).DeleteOne(ctx, bson.M{"_id": documentID(op.UserID, op.Record.ID)})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", op.Collection, op.Record.ID, err)
	}
	return nil
}

func (s *MongoStore) RunBatch(ctx context.Context, ops []Op) error {
	for _, op := range ops {
		if err := validateOp(op); err != nil {
			return err
		}
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		for _, op := range ops {
			var err error
			if op.Kind == OpPut {
				err = s.put(sessCtx, op)
			} else {
				err = s.delete(sessCtx, op)
			}
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// Subscribe watches the collection for this user's documents and sends a
// fresh snapshot after every change.
func (s *MongoStore) Subscribe(ctx context.Context, userID, collection string, onChange ChangeFunc) (func(), error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"documentKey._id": bson.M{"$regex": "^" + regexp.QuoteMeta(userID+"/")},
		}}},
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := s.db.Collection(collection).Watch(ctx, pipeline)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", collection, err)
	}

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			records, err := s.GetCollection(ctx, userID, collection)
			if err != nil {
				logrus.WithError(err).WithField("collection", collection).Warn("Failed to load snapshot after change")
				continue
			}
			onChange(records)
		}
		if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
			logrus.WithError(err).WithField("collection", collection).Warn("Change stream stopped")
		}
	}()

	return cancel, nil
}

func (s *MongoStore) ListAll(ctx context.Context, collection string) ([]Record, error) {
	return s.find(ctx, collection, bson.M{})
}

func (s *MongoStore) Lookup(ctx context.Context, collection, id string) (Record, error) {
	var doc mongoDocument
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"recordId": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Record{}, notFound(collection, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to look up %s/%s: %w", collection, id, err)
	}
	return doc.record()
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collections is every collection the services write.
var Collections = []string{
	models.CollectionCart,
	models.CollectionWishlist,
	models.CollectionCompare,
	models.CollectionAddresses,
	models.CollectionOrders,
	models.CollectionReviews,
}
