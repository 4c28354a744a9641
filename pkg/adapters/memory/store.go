// Package memory provides a volatile in-process StateStore.
package memory

import (
	"context"
	"sync"

	"github.com/chatloop/chatloop/pkg/domain"
)

// Store implements ports.StateStore in memory.
// Safe for concurrent use. State is lost when the process exits.
type Store struct {
	mu   sync.RWMutex
	data map[string]*domain.Conversation
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string]*domain.Conversation)}
}

// Get retrieves the conversation for a chat ID.
func (s *Store) Get(ctx context.Context, chatID string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.data[chatID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}

	// Copy on read so the caller cannot mutate stored state through the pointer.
	return &domain.Conversation{
		StateID: conv.StateID,
		Context: conv.Context.Clone(),
	}, nil
}

// Set replaces the conversation for a chat ID.
func (s *Store) Set(ctx context.Context, chatID string, stateID string, convCtx domain.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[chatID] = &domain.Conversation{
		StateID: stateID,
		Context: convCtx.Clone(),
	}
	return nil
}

// Delete removes the conversation.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, chatID)
	return nil
}
