package sandbox

import (
	"fmt"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// goToLua converts a Go value to a Lua value. Tables are always fresh copies.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []string:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(lua.LString(item))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			L.SetTable(tbl, lua.LNumber(i+1), goToLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			L.SetField(tbl, k, goToLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// luaToGo converts a Lua value back to plain Go values. Array-like tables
// become []any, other tables map[string]any. Cycles are cut.
func luaToGo(v lua.LValue, seen map[*lua.LTable]bool) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if seen == nil {
			seen = make(map[*lua.LTable]bool)
		}
		if seen[val] {
			return "<cycle>"
		}
		seen[val] = true
		defer delete(seen, val)

		if n := val.MaxN(); n > 0 && val.Len() == n && countKeys(val) == n {
			list := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				list = append(list, luaToGo(val.RawGetInt(i), seen))
			}
			return list
		}

		m := make(map[string]any)
		val.ForEach(func(key, item lua.LValue) {
			m[keyString(key)] = luaToGo(item, seen)
		})
		return m
	default:
		return v.String()
	}
}

func countKeys(tbl *lua.LTable) int {
	n := 0
	tbl.ForEach(func(_, _ lua.LValue) { n++ })
	return n
}

func keyString(k lua.LValue) string {
	if n, ok := k.(lua.LNumber); ok {
		return strconv.FormatFloat(float64(n), 'f', -1, 64)
	}
	return k.String()
}
