package script

import (
	"fmt"
	"sync"

	"github.com/chatloop/chatloop/pkg/ports"
)

// ResolutionError reports a dotted reference that could not be turned into
// a handler. It aborts a bulk load the same way a validation failure does.
type ResolutionError struct {
	Ref    string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve step reference %q: %s", e.Ref, e.Reason)
}

// Catalog maps dotted reference names ("greetings.welcome") to handlers the
// host registered in code. It stands in for runtime module import, which Go
// does not have: anything resolvable here was compiled into the host and
// sits inside its trust boundary, so references bypass source validation.
type Catalog struct {
	mu       sync.RWMutex
	handlers map[string]ports.Handler
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{handlers: make(map[string]ports.Handler)}
}

// Register binds a handler to a dotted reference name.
// Re-registering a name overwrites the prior entry.
func (c *Catalog) Register(name string, h ports.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
}

// Resolve looks up a dotted reference.
func (c *Catalog) Resolve(name string) (ports.Handler, error) {
	c.mu.RLock()
	h, ok := c.handlers[name]
	c.mu.RUnlock()

	if !ok {
		return nil, &ResolutionError{Ref: name, Reason: "no handler registered under this name"}
	}
	if h == nil {
		return nil, &ResolutionError{Ref: name, Reason: "registered entry is not callable"}
	}
	return h, nil
}
