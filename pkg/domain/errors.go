package domain

import (
	"errors"
	"fmt"
)

// ErrConversationNotFound is returned by a StateStore when a chat ID has no
// persisted conversation yet.
var ErrConversationNotFound = errors.New("conversation not found")

// UnknownStateError is returned when a message arrives for a conversation
// whose current state has no registered step. The persisted state is left
// unchanged so a corrected registry load can recover the conversation.
type UnknownStateError struct {
	StateID string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("no step registered for state %q", e.StateID)
}

// HandlerError wraps a failure raised by a step handler during invocation.
// The transition that was in progress is not committed.
type HandlerError struct {
	StateID string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.StateID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
