// Package redis provides a StateStore backed by Redis, storing each
// conversation as a JSON blob under a prefixed key.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/chatloop/chatloop/pkg/domain"
)

// Store implements ports.StateStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets an expiration on conversations (default: none).
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix (default "chatloop:chat:").
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "chatloop:chat:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(chatID string) string {
	return s.prefix + chatID
}

// Set persists the conversation as JSON.
func (s *Store) Set(ctx context.Context, chatID string, stateID string, convCtx domain.Context) error {
	data, err := json.Marshal(domain.Conversation{StateID: stateID, Context: convCtx})
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := s.client.Set(ctx, s.key(chatID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves the conversation.
func (s *Store) Get(ctx context.Context, chatID string) (*domain.Conversation, error) {
	val, err := s.client.Get(ctx, s.key(chatID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal([]byte(val), &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	if conv.Context == nil {
		conv.Context = domain.Context{}
	}
	return &conv, nil
}

// Delete removes the conversation.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	return s.client.Del(ctx, s.key(chatID)).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
