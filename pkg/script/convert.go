package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/chatloop/chatloop/pkg/domain"
)

// Value bridging between the Go context payload and the Lua handler.
// Numbers always cross as float64, matching what encoding/json produces on
// the persistence side, so a context survives store round-trips unchanged.

func contextToTable(L *lua.LState, c domain.Context) *lua.LTable {
	t := L.NewTable()
	for k, v := range c {
		t.RawSetString(k, toLuaValue(L, v))
	}
	return t
}

func toLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case domain.Context:
		return contextToTable(L, val)
	case map[string]any:
		return contextToTable(L, domain.Context(val))
	case []any:
		t := L.NewTable()
		for _, item := range val {
			t.Append(toLuaValue(L, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

func fromLuaValue(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LTable:
		return fromLuaTable(val)
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	default:
		return nil
	}
}

// fromLuaTable maps a table with a contiguous 1..n array part to a slice,
// anything else to a string-keyed map.
func fromLuaTable(t *lua.LTable) any {
	n := t.Len()
	size := 0
	t.ForEach(func(_, _ lua.LValue) { size++ })

	if n > 0 && n == size {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, fromLuaValue(t.RawGetInt(i)))
		}
		return out
	}

	out := make(map[string]any, size)
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = fromLuaValue(v)
	})
	return out
}

func tableToContext(t *lua.LTable) domain.Context {
	out := domain.Context{}
	t.ForEach(func(k, v lua.LValue) {
		out[k.String()] = fromLuaValue(v)
	})
	return out
}
