// Package orchestrator advances conversations one message at a time: it
// reads the current state, resolves the matching step handler, invokes it,
// and persists the transition the handler returns.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatloop/chatloop/internal/logging"
	"github.com/chatloop/chatloop/pkg/domain"
	"github.com/chatloop/chatloop/pkg/ports"
	"github.com/chatloop/chatloop/pkg/registry"
)

// DefaultInitialState is where unseen chats start.
const DefaultInitialState = "start"

// Orchestrator is the dispatcher over (chat ID, state ID, context) triples.
//
// It holds no per-conversation state of its own between calls. Concurrent
// HandleMessage calls for different chat IDs are independent; calls for the
// same chat ID race on the read-then-write against the store and must be
// serialized by the caller.
type Orchestrator struct {
	registry       *registry.Registry
	store          ports.StateStore
	sink           ports.MessageSink
	initialStateID string
	logger         *slog.Logger
	metrics        *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRegistry injects a pre-built step registry.
func WithRegistry(r *registry.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithInitialState sets the state unseen chats start in (default "start").
func WithInitialState(stateID string) Option {
	return func(o *Orchestrator) { o.initialStateID = stateID }
}

// WithLogger sets a structured logger for dispatch events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithMetrics enables dispatch instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator bound to a state store and a message sink.
func New(store ports.StateStore, sink ports.MessageSink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:          store,
		sink:           sink,
		initialStateID: DefaultInitialState,
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = registry.New()
	}
	return o
}

// Registry returns the step registry owned by this orchestrator.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// HandleMessage advances one conversation by one message.
//
// An unseen chat starts at the configured initial state with an empty
// context. Any failure - unknown state, handler error, store error - is
// surfaced to the caller and leaves the persisted state unchanged; the
// write only happens after the handler returned a transition.
func (o *Orchestrator) HandleMessage(ctx context.Context, chatID, input string) error {
	conv, err := o.store.Get(ctx, chatID)
	switch {
	case errors.Is(err, domain.ErrConversationNotFound):
		conv = domain.NewConversation(o.initialStateID)
	case err != nil:
		return fmt.Errorf("load conversation %q: %w", chatID, err)
	}

	o.logger.Debug("handling message", "chat_id", chatID, "state_id", conv.StateID)

	handler, err := o.registry.Resolve(conv.StateID)
	if err != nil {
		o.metrics.observe(resultUnknownState, 0)
		return err
	}

	started := time.Now()
	next, newCtx, err := handler(ctx, chatID, input, conv.Context.Clone(), o.sink)
	elapsed := time.Since(started)
	if err != nil {
		o.metrics.observe(resultHandlerError, elapsed)
		return &domain.HandlerError{StateID: conv.StateID, Err: err}
	}
	if newCtx == nil {
		newCtx = domain.Context{}
	}

	if err := o.store.Set(ctx, chatID, next, newCtx); err != nil {
		o.metrics.observe(resultStoreError, elapsed)
		return fmt.Errorf("persist conversation %q: %w", chatID, err)
	}

	o.metrics.observe(resultOK, elapsed)
	o.logger.Debug("transition", "chat_id", chatID, "from", conv.StateID, "to", next)
	return nil
}
