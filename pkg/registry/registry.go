// Package registry maps conversation state IDs to step handlers.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/chatloop/chatloop/pkg/domain"
	"github.com/chatloop/chatloop/pkg/ports"
	"github.com/chatloop/chatloop/pkg/script"
)

// Registry is the step table of one dispatcher. It is an explicit object,
// not a process-wide singleton, so multiple orchestrators can run isolated
// registries in the same process.
//
// Resolve is the hot path and takes a read lock; bulk loads are expected at
// startup and take the write lock only for the final commit.
type Registry struct {
	mu       sync.RWMutex
	steps    map[string]ports.Handler
	compiler *script.Compiler
}

// Option configures a Registry.
type Option func(*Registry)

// WithCompiler replaces the default step compiler.
func WithCompiler(c *script.Compiler) Option {
	return func(r *Registry) { r.compiler = c }
}

// New creates an empty registry with a default compiler.
func New(opts ...Option) *Registry {
	r := &Registry{steps: make(map[string]ports.Handler)}
	for _, opt := range opts {
		opt(r)
	}
	if r.compiler == nil {
		r.compiler = script.NewCompiler()
	}
	return r
}

// Compiler exposes the step compiler, mainly so hosts can reach its
// reference catalog.
func (r *Registry) Compiler() *script.Compiler {
	return r.compiler
}

// Register binds a handler to a state ID. Re-registering overwrites the
// prior entry (last write wins).
func (r *Registry) Register(stateID string, h ports.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[stateID] = h
}

// Resolve looks up the handler for a state ID.
func (r *Registry) Resolve(stateID string) (ports.Handler, error) {
	r.mu.RLock()
	h, ok := r.steps[stateID]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.UnknownStateError{StateID: stateID}
	}
	return h, nil
}

// States returns the registered state IDs, sorted.
func (r *Registry) States() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.steps))
	for id := range r.steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadJSON bulk-registers steps from a JSON document mapping state IDs to
// either dotted references or inline handler source.
//
// The load is all-or-nothing: every entry is compiled into a staging table
// first, and the first failure aborts the whole load with nothing
// committed, leaving previously registered steps untouched. Entries are
// compiled in sorted key order so failure reports are deterministic.
func (r *Registry) LoadJSON(data []byte) error {
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse steps document: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	staged := make(map[string]ports.Handler, len(entries))
	for _, stateID := range keys {
		h, err := r.compiler.Compile(stateID, entries[stateID])
		if err != nil {
			return fmt.Errorf("step %q: %w", stateID, err)
		}
		staged[stateID] = h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for stateID, h := range staged {
		r.steps[stateID] = h
	}
	return nil
}

// LoadFile reads a JSON steps document from disk and loads it with LoadJSON
// semantics.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read steps document: %w", err)
	}
	return r.LoadJSON(data)
}
