package domain

// Context holds the per-conversation key/value payload carried across steps.
// It is passed by value into a handler and replaced wholesale by the
// handler's return value; there is no implicit merging.
type Context map[string]any

// Clone returns a shallow copy of the context.
// A nil context clones to an empty, usable one.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Conversation is the persisted snapshot of one chat: the state machine
// node it is parked at plus its context payload.
type Conversation struct {
	StateID string  `json:"state_id"`
	Context Context `json:"context"`
}

// NewConversation creates a conversation parked at stateID with an empty context.
func NewConversation(stateID string) *Conversation {
	return &Conversation{
		StateID: stateID,
		Context: Context{},
	}
}
