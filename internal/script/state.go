package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// newState creates a Lua state with only the safe standard libraries.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// io, os, debug and package stay closed.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// toLValue converts a Go payload into a Lua value. Unknown types are
// rendered with fmt.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch v := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return v
	case string:
		return lua.LString(v)
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int32:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case uint32:
		return lua.LNumber(v)
	case uint64:
		return lua.LNumber(v)
	case float32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case []string:
		tbl := L.CreateTable(len(v), 0)
		for _, s := range v {
			tbl.Append(lua.LString(s))
		}
		return tbl
	case []any:
		tbl := L.CreateTable(len(v), 0)
		for _, item := range v {
			tbl.Append(toLValue(L, item))
		}
		return tbl
	case map[string]string:
		tbl := L.CreateTable(0, len(v))
		for k, s := range v {
			tbl.RawSetString(k, lua.LString(s))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(v))
		for k, item := range v {
			tbl.RawSetString(k, toLValue(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprint(v))
	}
}
