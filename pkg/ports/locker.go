package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a held distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates per-chat access across process replicas.
// HandleMessage is a read-modify-write against the state store; when more
// than one instance serves the same chats, a locker keeps those sequences
// from interleaving.
type DistributedLocker interface {
	// Lock acquires the lock for a key, blocking until acquired or the
	// context is canceled. The returned UnlockFunc must be called to
	// release it; the TTL bounds how long a crashed holder keeps it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
