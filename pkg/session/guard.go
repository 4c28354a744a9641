// Package session serializes message handling per chat ID.
//
// HandleMessage reads a conversation, runs a handler, and writes the result
// back; two concurrent messages for the same chat would race on that
// sequence. A Guard runs such sequences one at a time per chat, locally via
// reference-counted mutexes and optionally across replicas via a
// ports.DistributedLocker.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chatloop/chatloop/internal/logging"
	"github.com/chatloop/chatloop/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica keeps a distributed lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds one chat's mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Guard serializes per-chat critical sections. Lock entries are reference
// counted and removed when the last waiter leaves, so the map does not grow
// with the number of chats ever seen.
type Guard struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithLocker enables distributed locking on top of the local mutexes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(g *Guard) { g.locker = locker }
}

// WithLockTTL sets the distributed lock TTL (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(g *Guard) { g.lockTTL = ttl }
}

// WithLogger sets a logger for deferred release failures.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// NewGuard creates a guard. Without WithLocker it only serializes within
// this process.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// acquire gets or creates the entry for a chat and increments its count.
func (g *Guard) acquire(chatID string) *lockEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.locks[chatID]
	if !ok {
		entry = &lockEntry{}
		g.locks[chatID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the count and drops the entry at zero.
func (g *Guard) release(chatID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.locks[chatID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(g.locks, chatID)
	}
}

// Do runs fn while holding the chat's lock.
func (g *Guard) Do(ctx context.Context, chatID string, fn func(context.Context) error) error {
	entry := g.acquire(chatID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		g.release(chatID)
	}()

	if g.locker != nil {
		unlock, err := g.locker.Lock(ctx, chatID, g.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire distributed lock for chat %q: %w", chatID, err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				g.logger.Warn("failed to release distributed lock, it will expire via TTL",
					"chat_id", chatID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
