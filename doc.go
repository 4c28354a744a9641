/*
Package chatloop is a conversational state-machine dispatcher: it routes an
incoming message for a chat to the step handler registered for the
conversation's current state, executes it, and persists the transition the
handler returns.

Steps can be registered directly in Go, or bulk-loaded from a JSON document
whose values are either dotted references to host-registered handlers or
inline Lua source. Inline source passes a static security validator before
anything is compiled: no imports, no denied capability names (OS, I/O,
dynamic code loading, reflection), exactly one top-level function with the
(chat_id, user_input, context, sender) signature. Accepted handlers run in
a sandboxed interpreter state with only pure-computation libraries opened.

# Usage

	store := memory.NewStore()
	sink := console.New()

	orch := chatloop.New(store, sink)
	err := orch.Registry().LoadJSON([]byte(`{
	    "start": "function start(chat_id, user_input, context, sender)\n  sender.send(chat_id, 'What is your name?')\n  return 'ask_name', {}\nend"
	}`))
	if err != nil {
	    log.Fatal(err)
	}

	if err := orch.HandleMessage(ctx, "chat-123", "hi"); err != nil {
	    log.Fatal(err)
	}

Persistence and delivery are ports: pick a StateStore (memory, file, redis,
mongo) and a MessageSink (console, twilio WhatsApp) from pkg/adapters, or
implement your own. The dispatcher itself performs no I/O.

Concurrent messages for different chats are independent; serializing
messages for the same chat is the caller's responsibility.
*/
package chatloop
