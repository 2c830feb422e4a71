package tmpl

import (
	"fmt"
	"github.com/goccy/go-json"
	lua "github.com/yuin/gopher-lua"
	"math"
	"strconv"
	"strings"
)

func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []int:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, lua.LNumber(item))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, toLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, v := range val {
			tbl.RawSetString(k, toLua(L, v))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}

// toGo converts for fmt style formatting: whole numbers become int64 so %d and %x work.
func toGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		f := float64(val)
		if isWhole(f) {
			return int64(f)
		}
		return f
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		return toString(val)
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}

func isWhole(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) < 1e15
}

func formatNumber(f float64) string {
	if isWhole(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// toString renders a template result. Sequences come out comma separated,
// other tables as JSON.
func toString(v lua.LValue) string {
	switch val := v.(type) {
	case *lua.LNilType:
		return ""
	case lua.LBool:
		if val {
			return "True"
		}
		return "False"
	case lua.LNumber:
		return formatNumber(float64(val))
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if items, ok := sequence(val); ok {
			return joinValues(items, ",")
		}
		out, err := json.Marshal(tableToMap(val))
		if err != nil {
			return ""
		}
		return string(out)
	}
	return v.String()
}

// sequence returns the array part of tbl when tbl holds nothing else.
func sequence(tbl *lua.LTable) ([]lua.LValue, bool) {
	n := tbl.Len()
	count := 0
	tbl.ForEach(func(_, _ lua.LValue) { count++ })
	if count != n {
		return nil, false
	}
	items := make([]lua.LValue, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, tbl.RawGetInt(i))
	}
	return items, true
}

func joinValues(items []lua.LValue, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = toString(item)
	}
	return strings.Join(parts, sep)
}

func tableToMap(tbl *lua.LTable) map[string]any {
	m := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if inner, ok := v.(*lua.LTable); ok {
			m[lua.LVAsString(k)] = tableToMap(inner)
			return
		}
		m[lua.LVAsString(k)] = toGo(v)
	})
	return m
}
