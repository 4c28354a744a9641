package memory_test

import (
	"testing"

	"github.com/chatloop/chatloop/pkg/adapters/memory"
	"github.com/chatloop/chatloop/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStateStoreContract(t, store)
}
