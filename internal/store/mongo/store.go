// Package mongo provides the MongoDB-backed document store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/restmach/restmach/internal/store"
)

// record is the BSON shape persisted per document.
type record struct {
	ID          string    `bson:"_id"`
	ContentType string    `bson:"content_type"`
	Body        []byte    `bson:"body"`
	ETag        string    `bson:"etag"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// Store is a MongoDB implementation of store.Store.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// New connects to the given URI and uses the documents collection of
// the named database.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(database).Collection("documents"),
	}, nil
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (*store.Document, error) {
	var rec record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return toDocument(&rec), nil
}

// Put creates or replaces a document and reports whether it was new.
func (s *Store) Put(ctx context.Context, doc *store.Document) (bool, error) {
	doc.ETag = store.ETagFor(doc.Body)
	doc.UpdatedAt = store.Timestamp()

	rec := record{
		ID:          doc.ID,
		ContentType: doc.ContentType,
		Body:        doc.Body,
		ETag:        doc.ETag,
		UpdatedAt:   doc.UpdatedAt,
	}

	result, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, rec,
		options.Replace().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("failed to put document: %w", err)
	}

	return result.UpsertedCount > 0, nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}

	return nil
}

// List returns documents ordered by ID.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*store.Document, error) {
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.M{"_id": 1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*store.Document
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, toDocument(&rec))
	}

	return docs, cursor.Err()
}

// Close disconnects from MongoDB.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func toDocument(rec *record) *store.Document {
	return &store.Document{
		ID:          rec.ID,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		ETag:        rec.ETag,
		UpdatedAt:   rec.UpdatedAt,
	}
}
