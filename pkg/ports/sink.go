package ports

import "context"

// MessageSink delivers outbound messages to a chat.
//
// Sends are fire-and-forget from the dispatcher's perspective: the core
// never buffers, retries, or replays them. Options are sink-specific and
// interpreted (or ignored) by each implementation.
type MessageSink interface {
	Send(ctx context.Context, chatID string, text string, options map[string]any) error
}
