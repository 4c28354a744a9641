package chatloop

import (
	"github.com/chatloop/chatloop/pkg/orchestrator"
	"github.com/chatloop/chatloop/pkg/ports"
)

// Version is the library version, surfaced by the CLI.
var Version = "0.3.0"

// Orchestrator is the high-level dispatcher type.
type Orchestrator = orchestrator.Orchestrator

// Option configures an Orchestrator.
type Option = orchestrator.Option

// Re-exported orchestrator options.
var (
	WithRegistry     = orchestrator.WithRegistry
	WithInitialState = orchestrator.WithInitialState
	WithLogger       = orchestrator.WithLogger
	WithMetrics      = orchestrator.WithMetrics
)

// New creates a dispatcher bound to a state store and a message sink.
// It owns a fresh step registry unless one is injected with WithRegistry.
func New(store ports.StateStore, sink ports.MessageSink, opts ...Option) *Orchestrator {
	return orchestrator.New(store, sink, opts...)
}
