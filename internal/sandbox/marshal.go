package sandbox

import (
	"math"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// maxMarshalDepth bounds recursion when converting nested tables; a table
// referencing itself would otherwise recurse forever.
const maxMarshalDepth = 32

// toLua converts host data into interpreter-native containers: maps become
// key/value tables, slices become 1-based ordered sequences, primitives map
// directly. Unsupported values (functions, channels, host objects) become nil
// rather than crossing the boundary.
func toLua(L *lua.LState, v any) lua.LValue {
	switch value := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(value)
	case string:
		return lua.LString(value)
	case int:
		return lua.LNumber(value)
	case int32:
		return lua.LNumber(value)
	case int64:
		return lua.LNumber(value)
	case float32:
		return lua.LNumber(value)
	case float64:
		return lua.LNumber(value)
	case []byte:
		return lua.LString(value)
	case []any:
		table := L.CreateTable(len(value), 0)
		for _, item := range value {
			table.Append(toLua(L, item))
		}
		return table
	case []string:
		table := L.CreateTable(len(value), 0)
		for _, item := range value {
			table.Append(lua.LString(item))
		}
		return table
	case map[string]any:
		table := L.CreateTable(0, len(value))
		for key, item := range value {
			table.RawSetString(key, toLua(L, item))
		}
		return table
	default:
		return lua.LNil
	}
}

// fromLua converts interpreter values back to host data. Tables with
// contiguous 1-based integer keys become ordered []any sequences; all other
// key shapes become map[string]any.
func fromLua(v lua.LValue, depth int) any {
	if depth > maxMarshalDepth {
		return nil
	}
	switch value := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(value)
	case lua.LString:
		return string(value)
	case lua.LNumber:
		f := float64(value)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int(f)
		}
		return f
	case *lua.LTable:
		return tableToHost(value, depth)
	default:
		// Functions, userdata, threads: never cross the boundary.
		return nil
	}
}

func tableToHost(table *lua.LTable, depth int) any {
	length := 0
	sequence := true
	table.ForEach(func(k, _ lua.LValue) {
		length++
		num, ok := k.(lua.LNumber)
		if !ok {
			sequence = false
			return
		}
		f := float64(num)
		if f != math.Trunc(f) || f < 1 {
			sequence = false
		}
	})
	if sequence && length > 0 {
		// Contiguity check: keys must be exactly 1..length.
		out := make([]any, 0, length)
		for i := 1; i <= length; i++ {
			item := table.RawGetInt(i)
			if item == lua.LNil {
				sequence = false
				break
			}
			out = append(out, fromLua(item, depth+1))
		}
		if sequence {
			return out
		}
	}
	out := make(map[string]any, length)
	table.ForEach(func(k, v lua.LValue) {
		out[luaKey(k)] = fromLua(v, depth+1)
	})
	return out
}

func luaKey(k lua.LValue) string {
	switch key := k.(type) {
	case lua.LString:
		return string(key)
	case lua.LNumber:
		f := float64(key)
		if f == math.Trunc(f) {
			return strconv.Itoa(int(f))
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	default:
		return key.String()
	}
}
