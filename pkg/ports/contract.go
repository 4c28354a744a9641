package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/chatloop/chatloop/pkg/domain"
)

// RunStateStoreContract is a reusable test suite that verifies a StateStore
// implementation complies with the port semantics. Adapter packages call it
// from their own tests.
func RunStateStoreContract(t *testing.T, store StateStore) {
	t.Helper()
	ctx := context.Background()
	chatID := "contract-chat"

	t.Run("Get_Unseen", func(t *testing.T) {
		_, err := store.Get(ctx, chatID)
		if !errors.Is(err, domain.ErrConversationNotFound) {
			t.Fatalf("expected ErrConversationNotFound, got %v", err)
		}
	})

	t.Run("Set_Get_Roundtrip", func(t *testing.T) {
		err := store.Set(ctx, chatID, "ask_name", domain.Context{"name": "ada", "count": float64(2)})
		if err != nil {
			t.Fatalf("set failed: %v", err)
		}

		conv, err := store.Get(ctx, chatID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if conv.StateID != "ask_name" {
			t.Errorf("expected state 'ask_name', got %q", conv.StateID)
		}
		if conv.Context["name"] != "ada" {
			t.Errorf("expected context name 'ada', got %v", conv.Context["name"])
		}
	})

	t.Run("Set_Replaces_Wholesale", func(t *testing.T) {
		err := store.Set(ctx, chatID, "confirm", domain.Context{"step": "two"})
		if err != nil {
			t.Fatalf("set failed: %v", err)
		}

		conv, err := store.Get(ctx, chatID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if conv.StateID != "confirm" {
			t.Errorf("expected state 'confirm', got %q", conv.StateID)
		}
		if _, stale := conv.Context["name"]; stale {
			t.Error("old context key survived a wholesale replacement")
		}
	})

	t.Run("Get_Returns_Isolated_Copy", func(t *testing.T) {
		conv, err := store.Get(ctx, chatID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		conv.Context["mutated"] = true

		again, err := store.Get(ctx, chatID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if _, leaked := again.Context["mutated"]; leaked {
			t.Error("mutating a returned context leaked into the store")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete(ctx, chatID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		_, err := store.Get(ctx, chatID)
		if !errors.Is(err, domain.ErrConversationNotFound) {
			t.Fatalf("expected ErrConversationNotFound after delete, got %v", err)
		}
	})

	t.Run("Delete_Idempotent", func(t *testing.T) {
		if err := store.Delete(ctx, chatID); err != nil {
			t.Fatalf("deleting an unknown chat should not fail: %v", err)
		}
	})
}
