// Package domain holds the core types of the conversation state machine:
// the per-chat Conversation snapshot, the Context payload carried across
// steps, and the error taxonomy surfaced by the dispatcher.
package domain
