// Package middleware provides StateStore decorators: transformations
// applied to conversations on their way in and out of a backend.
package middleware

import "github.com/chatloop/chatloop/pkg/ports"

// Middleware wraps a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain applies middlewares so the first one listed is outermost.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
