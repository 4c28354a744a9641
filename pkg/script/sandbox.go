package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// sandboxLibs are the libraries opened inside a handler state. Only
// pure-computation libraries are included; anything that reaches the OS,
// the filesystem, or the code loader stays out.
var sandboxLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage}, // must come first: sets up the loaded-module table
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// sandboxRemovedGlobals are cleared after the base library is opened. The
// validator already rejects source referencing them; clearing them is the
// second fence for the same boundary.
var sandboxRemovedGlobals = []string{
	"require", "dofile", "loadfile", "load", "loadstring",
	"getfenv", "setfenv", "rawget", "rawset",
	"setmetatable", "getmetatable", "collectgarbage", "module", "package",
}

// newSandbox creates a fresh interpreter state for one handler invocation.
// The caller owns the state and must Close it.
func newSandbox() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range sandboxLibs {
		err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua library %q: %w", lib.name, err)
		}
	}
	for _, name := range sandboxRemovedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}
