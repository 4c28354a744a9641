package script

import (
	"context"
	"fmt"
	"regexp"

	lua "github.com/yuin/gopher-lua"

	"github.com/chatloop/chatloop/pkg/domain"
	"github.com/chatloop/chatloop/pkg/ports"
)

// refPattern matches dotted references like "module.attr" or "a.b.c".
// Anything else is treated as inline source. The shape is decided once,
// here, not re-inspected downstream.
var refPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)+$`)

// IsReference reports whether a step value names an existing handler
// instead of carrying inline source.
func IsReference(value string) bool {
	return refPattern.MatchString(value)
}

// Compiler turns one step definition (state ID, value) into a bound
// handler: dotted references resolve through the catalog, inline source
// goes through the validator and the Lua compiler.
type Compiler struct {
	validator *Validator
	catalog   *Catalog
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithValidator replaces the default validator.
func WithValidator(v *Validator) CompilerOption {
	return func(c *Compiler) { c.validator = v }
}

// WithCatalog replaces the default (empty) reference catalog.
func WithCatalog(cat *Catalog) CompilerOption {
	return func(c *Compiler) { c.catalog = cat }
}

// NewCompiler creates a compiler with a default validator and an empty
// catalog.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{}
	for _, opt := range opts {
		opt(c)
	}
	if c.validator == nil {
		c.validator = NewValidator()
	}
	if c.catalog == nil {
		c.catalog = NewCatalog()
	}
	return c
}

// Catalog exposes the reference catalog so the host can register native
// handlers before loading a configuration document.
func (c *Compiler) Catalog() *Catalog {
	return c.catalog
}

// Compile produces the handler for one step entry. Inline source that
// fails validation returns a *ValidationError; an unresolvable reference
// returns a *ResolutionError. Nothing from the source has executed when
// Compile returns an error.
func (c *Compiler) Compile(stateID, value string) (ports.Handler, error) {
	if IsReference(value) {
		return c.catalog.Resolve(value)
	}

	def, err := c.validator.Validate(value, stateID)
	if err != nil {
		return nil, err
	}

	proto, err := lua.Compile(def.chunk, stateID)
	if err != nil {
		return nil, fmt.Errorf("compile step %q: %w", stateID, err)
	}

	h := &luaHandler{name: def.Name, proto: proto}
	return h.invoke, nil
}

// luaHandler holds the compiled function prototype of one validated step.
// Every invocation runs in a fresh sandbox so conversations cannot leak
// globals into each other.
type luaHandler struct {
	name  string
	proto *lua.FunctionProto
}

func (h *luaHandler) invoke(ctx context.Context, chatID, input string, convCtx domain.Context, sink ports.MessageSink) (string, domain.Context, error) {
	L, err := newSandbox()
	if err != nil {
		return "", nil, err
	}
	defer L.Close()
	L.SetContext(ctx)

	// Running the chunk only defines the handler function: the validator
	// guarantees there is nothing else at top level.
	L.Push(L.NewFunctionFromProto(h.proto))
	if err := L.PCall(0, 0, nil); err != nil {
		return "", nil, fmt.Errorf("define handler %q: %w", h.name, err)
	}

	fn, ok := L.GetGlobal(h.name).(*lua.LFunction)
	if !ok {
		return "", nil, fmt.Errorf("handler %q is not a function after load", h.name)
	}

	err = L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true},
		lua.LString(chatID),
		lua.LString(input),
		contextToTable(L, convCtx),
		newSenderTable(L, ctx, sink),
	)
	if err != nil {
		return "", nil, fmt.Errorf("handler %q: %w", h.name, err)
	}

	nextVal := L.Get(-2)
	ctxVal := L.Get(-1)
	L.Pop(2)

	next, ok := nextVal.(lua.LString)
	if !ok {
		return "", nil, fmt.Errorf("handler %q returned %s as next state, want string", h.name, nextVal.Type())
	}

	if tbl, ok := ctxVal.(*lua.LTable); ok {
		return string(next), tableToContext(tbl), nil
	}
	if ctxVal == lua.LNil {
		return string(next), domain.Context{}, nil
	}
	return "", nil, fmt.Errorf("handler %q returned %s as context, want table", h.name, ctxVal.Type())
}

// newSenderTable exposes the message sink to the handler as a table with a
// single send(chat_id, text, options) function.
func newSenderTable(L *lua.LState, ctx context.Context, sink ports.MessageSink) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("send", L.NewFunction(func(ls *lua.LState) int {
		chatID := ls.CheckString(1)
		text := ls.CheckString(2)

		var options map[string]any
		if tbl := ls.OptTable(3, nil); tbl != nil {
			if m, ok := fromLuaTable(tbl).(map[string]any); ok {
				options = m
			}
		}

		if err := sink.Send(ctx, chatID, text, options); err != nil {
			ls.RaiseError("send failed: %s", err.Error())
		}
		return 0
	}))
	return t
}
