package ports

import (
	"context"

	"github.com/chatloop/chatloop/pkg/domain"
)

// Handler is a step function: invoked with the chat ID, the user input, the
// conversation context, and the message sink, it returns the next state ID
// and the replacement context.
//
// Side effects (message delivery) happen inside the handler via the sink.
// A returned error is terminal for that message; the prior persisted state
// is left unchanged.
type Handler func(ctx context.Context, chatID string, input string, convCtx domain.Context, sink MessageSink) (next string, newCtx domain.Context, err error)
