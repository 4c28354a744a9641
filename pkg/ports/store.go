package ports

import (
	"context"

	"github.com/chatloop/chatloop/pkg/domain"
)

// StateStore persists the (state, context) pair of each conversation.
type StateStore interface {
	// Get retrieves the conversation for a chat ID.
	// Returns domain.ErrConversationNotFound for an unseen chat.
	Get(ctx context.Context, chatID string) (*domain.Conversation, error)

	// Set replaces the conversation for a chat ID wholesale.
	Set(ctx context.Context, chatID string, stateID string, convCtx domain.Context) error

	// Delete removes the conversation. Deleting an unknown chat is not an error.
	Delete(ctx context.Context, chatID string) error
}
