// Package mongo provides a StateStore persisting each conversation as a
// document in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chatloop/chatloop/pkg/domain"
)

// document is the collection schema: one document per chat.
type document struct {
	ChatID  string         `bson:"chat_id"`
	StateID string         `bson:"state_id"`
	Context map[string]any `bson:"context"`
}

// Store implements ports.StateStore using MongoDB.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to MongoDB and creates a store over db/collection.
// The store owns the client; use Close to disconnect.
func New(ctx context.Context, uri, dbName, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	return &Store{
		client: client,
		coll:   client.Database(dbName).Collection(collection),
	}, nil
}

// NewFromCollection creates a store over an existing collection.
// The caller keeps ownership of the client.
func NewFromCollection(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Get retrieves the conversation document for a chat ID.
func (s *Store) Get(ctx context.Context, chatID string) (*domain.Conversation, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to query mongodb: %w", err)
	}

	conv := &domain.Conversation{StateID: doc.StateID, Context: domain.Context(doc.Context)}
	if conv.Context == nil {
		conv.Context = domain.Context{}
	}
	return conv, nil
}

// Set upserts the conversation document.
func (s *Store) Set(ctx context.Context, chatID string, stateID string, convCtx domain.Context) error {
	doc := document{ChatID: chatID, StateID: stateID, Context: convCtx}
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"chat_id": chatID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert into mongodb: %w", err)
	}
	return nil
}

// Delete removes the conversation document.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"chat_id": chatID}); err != nil {
		return fmt.Errorf("failed to delete from mongodb: %w", err)
	}
	return nil
}

// Close disconnects the client if this store owns one.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
