// Package conversation persists chat transcripts ingested from the
// frontend and suggests Codex skills worth creating or updating based on
// the accumulated history.
package conversation

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Event is one conversation turn supplied by the caller.
type Event struct {
	Speaker   string     `json:"speaker" bson:"speaker"`
	Message   string     `json:"message" bson:"message"`
	Timestamp *time.Time `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
	Source    string     `json:"source,omitempty" bson:"source,omitempty"`
}

// StoredEvent is an Event as returned from the store.
type StoredEvent struct {
	SessionID string     `bson:"session_id"`
	Speaker   string     `bson:"speaker"`
	Message   string     `bson:"message"`
	Timestamp *time.Time `bson:"timestamp,omitempty"`
	Source    string     `bson:"source,omitempty"`
	CreatedAt string     `bson:"created_at"`
}

// Store persists conversation events per session. Implementations must
// return history in insertion order.
type Store interface {
	SaveEvents(ctx context.Context, sessionID string, events []Event) error
	History(ctx context.Context, sessionID string) ([]StoredEvent, error)
}

const (
	defaultConnectTimeout = 5 * time.Second
)

// MongoStore is the production Store, one document per event.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB, ensures the (session_id, created_at)
// index, and pings the server so misconfiguration fails fast at startup.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(defaultConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	coll := client.Database(database).Collection(collection)
	index := mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: 1}},
	}
	if _, err := coll.Indexes().CreateOne(ctx, index); err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// SaveEvents implements Store.
func (s *MongoStore) SaveEvents(ctx context.Context, sessionID string, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	docs := make([]any, 0, len(events))
	for _, event := range events {
		docs = append(docs, StoredEvent{
			SessionID: sessionID,
			Speaker:   event.Speaker,
			Message:   event.Message,
			Timestamp: event.Timestamp,
			Source:    event.Source,
			CreatedAt: now,
		})
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert events: %w", err)
	}
	return nil
}

// History implements Store.
func (s *MongoStore) History(ctx context.Context, sessionID string) ([]StoredEvent, error) {
	cursor, err := s.coll.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find history: %w", err)
	}
	defer cursor.Close(ctx)

	var out []StoredEvent
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out, nil
}
