package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatloop/chatloop/pkg/adapters/memory"
	"github.com/chatloop/chatloop/pkg/domain"
	"github.com/chatloop/chatloop/pkg/persistence/middleware"
)

func TestPIIMasking_MasksMatchingKeys(t *testing.T) {
	backend := memory.NewStore()
	store := middleware.NewPIIMasking([]string{"(?i)email", "(?i)phone"})(backend)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "chat-1", "done", domain.Context{
		"name":  "Ada",
		"Email": "ada@example.com",
		"phone": "555-0100",
	}))

	conv, err := backend.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", conv.Context["name"])
	assert.Equal(t, "***", conv.Context["Email"])
	assert.Equal(t, "***", conv.Context["phone"])
}

func TestPIIMasking_MasksNestedMaps(t *testing.T) {
	backend := memory.NewStore()
	store := middleware.NewPIIMasking([]string{"ssn"})(backend)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "chat-1", "done", domain.Context{
		"profile": map[string]any{"ssn": "123-45-6789", "city": "Lisbon"},
	}))

	conv, err := backend.Get(ctx, "chat-1")
	require.NoError(t, err)
	profile := conv.Context["profile"].(map[string]any)
	assert.Equal(t, "***", profile["ssn"])
	assert.Equal(t, "Lisbon", profile["city"])
}

func TestPIIMasking_DoesNotMutateCaller(t *testing.T) {
	store := middleware.NewPIIMasking([]string{"email"})(memory.NewStore())

	in := domain.Context{"email": "ada@example.com"}
	require.NoError(t, store.Set(context.Background(), "chat-1", "done", in))
	assert.Equal(t, "ada@example.com", in["email"])
}

func TestChain_OrderIsOutsideIn(t *testing.T) {
	backend := memory.NewStore()

	// PII masking outermost, then encryption: the backend sees an
	// envelope, and the decrypted conversation holds masked values.
	store := middleware.Chain(backend,
		middleware.NewPIIMasking([]string{"email"}),
		middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "chat-1", "done", domain.Context{"email": "ada@example.com"}))

	raw, err := backend.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "encrypted", raw.StateID)

	conv, err := store.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "***", conv.Context["email"])
}
