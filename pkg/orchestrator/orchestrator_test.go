package orchestrator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatloop/chatloop/pkg/adapters/memory"
	"github.com/chatloop/chatloop/pkg/domain"
	"github.com/chatloop/chatloop/pkg/orchestrator"
	"github.com/chatloop/chatloop/pkg/ports"
	"github.com/chatloop/chatloop/pkg/registry"
)

type recordingSink struct {
	texts []string
}

func (s *recordingSink) Send(ctx context.Context, chatID, text string, options map[string]any) error {
	s.texts = append(s.texts, text)
	return nil
}

func handlerFunc(fn func(convCtx domain.Context, input string, sink ports.MessageSink) (string, domain.Context, error)) ports.Handler {
	return func(ctx context.Context, chatID, input string, convCtx domain.Context, sink ports.MessageSink) (string, domain.Context, error) {
		return fn(convCtx, input, sink)
	}
}

func TestHandleMessage_UnseenChatStartsAtInitialState(t *testing.T) {
	store := memory.NewStore()
	var gotState domain.Context
	reg := registry.New()
	reg.Register("start", handlerFunc(func(convCtx domain.Context, input string, sink ports.MessageSink) (string, domain.Context, error) {
		gotState = convCtx
		return "next", domain.Context{"seen": true}, nil
	}))

	orch := orchestrator.New(store, &recordingSink{}, orchestrator.WithRegistry(reg))
	require.NoError(t, orch.HandleMessage(context.Background(), "chat-1", "hello"))

	assert.Equal(t, domain.Context{}, gotState)

	conv, err := store.Get(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "next", conv.StateID)
	assert.Equal(t, domain.Context{"seen": true}, conv.Context)
}

func TestHandleMessage_CustomInitialState(t *testing.T) {
	store := memory.NewStore()
	reg := registry.New()
	called := false
	reg.Register("welcome", handlerFunc(func(convCtx domain.Context, input string, sink ports.MessageSink) (string, domain.Context, error) {
		called = true
		return "welcome", nil, nil
	}))

	orch := orchestrator.New(store, &recordingSink{},
		orchestrator.WithRegistry(reg),
		orchestrator.WithInitialState("welcome"),
	)
	require.NoError(t, orch.HandleMessage(context.Background(), "c", ""))
	assert.True(t, called)
}

func TestHandleMessage_TransitionChain(t *testing.T) {
	store := memory.NewStore()
	reg := registry.New()
	reg.Register("start", handlerFunc(func(convCtx domain.Context, input string, sink ports.MessageSink) (string, domain.Context, error) {
		return "collect", domain.Context{"name": input}, nil
	}))
	reg.Register("collect", handlerFunc(func(convCtx domain.Context, input string, sink ports.MessageSink) (string, domain.Context, error) {
		_ = sink.Send(context.Background(), "c", "hi "+convCtx["name"].(string), nil)
		return "start", domain.Context{}, nil
	}))

	sink := &recordingSink{}
	orch := orchestrator.New(store, sink, orchestrator.WithRegistry(reg))

	ctx := context.Background()
	require.NoError(t, orch.HandleMessage(ctx, "c", "ada"))
	require.NoError(t, orch.HandleMessage(ctx, "c", "anything"))

	require.Len(t, sink.texts, 1)
	assert.Equal(t, "hi ada", sink.texts[0])

	conv, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "start", conv.StateID)
}

func TestHandleMessage_UnknownStateLeavesStoreUntouched(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "c", "ghost", domain.Context{"kept": true}))

	orch := orchestrator.New(store, &recordingSink{})
	err := orch.HandleMessage(ctx, "c", "hello")
	require.Error(t, err)

	var uerr *domain.UnknownStateError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, "ghost", uerr.StateID)

	conv, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "ghost", conv.StateID)
	assert.Equal(t, domain.Context{"kept": true}, conv.Context)
}

func TestHandleMessage_HandlerErrorLeavesStoreUntouched(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "c", "flaky", domain.Context{"n": float64(1)}))

	boom := errors.New("boom")
	reg := registry.New()
	reg.Register("flaky", handlerFunc(func(convCtx domain.Context, input string, sink ports.MessageSink) (string, domain.Context, error) {
		return "", nil, boom
	}))

	orch := orchestrator.New(store, &recordingSink{}, orchestrator.WithRegistry(reg))
	err := orch.HandleMessage(ctx, "c", "hello")
	require.Error(t, err)

	var herr *domain.HandlerError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, "flaky", herr.StateID)
	assert.True(t, errors.Is(err, boom))

	conv, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "flaky", conv.StateID)
	assert.Equal(t, domain.Context{"n": float64(1)}, conv.Context)
}

func TestHandleMessage_HandlerGetsContextCopy(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "c", "mutate", domain.Context{"k": "orig"}))

	reg := registry.New()
	reg.Register("mutate", handlerFunc(func(convCtx domain.Context, input string, sink ports.MessageSink) (string, domain.Context, error) {
		convCtx["k"] = "scribbled"
		return "mutate", nil, errors.New("abort after scribbling")
	}))

	orch := orchestrator.New(store, &recordingSink{}, orchestrator.WithRegistry(reg))
	require.Error(t, orch.HandleMessage(ctx, "c", ""))

	conv, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "orig", conv.Context["k"])
}

func TestHandleMessage_NilContextPersistsEmpty(t *testing.T) {
	store := memory.NewStore()
	reg := registry.New()
	reg.Register("start", handlerFunc(func(convCtx domain.Context, input string, sink ports.MessageSink) (string, domain.Context, error) {
		return "done", nil, nil
	}))

	orch := orchestrator.New(store, &recordingSink{}, orchestrator.WithRegistry(reg))
	ctx := context.Background()
	require.NoError(t, orch.HandleMessage(ctx, "c", ""))

	conv, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, domain.Context{}, conv.Context)
}
