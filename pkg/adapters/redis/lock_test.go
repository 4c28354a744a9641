package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatloop/chatloop/pkg/adapters/redis"
)

func TestLocker_LockUnlock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := redis.NewLocker(client, "chatloop:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "chat-1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("chatloop:lock:chat-1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("chatloop:lock:chat-1"))
}

func TestLocker_Contention(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := redis.NewLocker(client, "chatloop:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "chat-1", 5*time.Second)
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(shortCtx, "chat-1", 5*time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "chat-1", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_StaleReleaseIsHarmless(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := redis.NewLocker(client, "chatloop:")
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "chat-1", time.Second)
	require.NoError(t, err)

	// Holder 1 expires; holder 2 acquires the same key.
	mr.FastForward(2 * time.Second)
	unlock2, err := locker.Lock(ctx, "chat-1", 5*time.Second)
	require.NoError(t, err)

	// Holder 1's late release must not evict holder 2.
	require.NoError(t, unlock1(ctx))
	assert.True(t, mr.Exists("chatloop:lock:chat-1"))

	require.NoError(t, unlock2(ctx))
}
