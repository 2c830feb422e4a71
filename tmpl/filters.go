package tmpl

import (
	"fmt"
	lua "github.com/yuin/gopher-lua"
	"math"
	"strconv"
	"strings"
)

// filters are reachable from templates as `expr | name(args)`; the piped
// value is always the first argument.
var filters = map[string]lua.LGFunction{
	"round":   filterRound,
	"int":     filterInt,
	"float":   filterFloat,
	"join":    filterJoin,
	"format":  filterFormat,
	"default": filterDefault,
	"lower":   filterLower,
	"upper":   filterUpper,
	"trim":    filterTrim,
}

func toNumber(v lua.LValue) (float64, bool) {
	switch val := v.(type) {
	case lua.LNumber:
		return float64(val), true
	case lua.LString:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		return f, err == nil
	case lua.LBool:
		if val {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// round(precision=0, method="common"); common rounds half to even.
func filterRound(L *lua.LState) int {
	x, ok := toNumber(L.Get(1))
	if !ok {
		L.RaiseError("round: %s is not a number", L.Get(1).String())
		return 0
	}
	precision := L.OptInt(2, 0)
	method := L.OptString(3, "common")
	p := math.Pow(10, float64(precision))
	var r float64
	switch method {
	case "common":
		r = math.RoundToEven(x*p) / p
	case "ceil":
		r = math.Ceil(x*p) / p
	case "floor":
		r = math.Floor(x*p) / p
	default:
		L.RaiseError("round: unknown method %q", method)
		return 0
	}
	L.Push(lua.LNumber(r))
	return 1
}

func filterInt(L *lua.LState) int {
	x, ok := toNumber(L.Get(1))
	if !ok {
		L.Push(lua.LNumber(L.OptInt(2, 0)))
		return 1
	}
	L.Push(lua.LNumber(math.Trunc(x)))
	return 1
}

func filterFloat(L *lua.LState) int {
	x, ok := toNumber(L.Get(1))
	if !ok {
		L.Push(L.OptNumber(2, 0))
		return 1
	}
	L.Push(lua.LNumber(x))
	return 1
}

func filterJoin(L *lua.LState) int {
	sep := L.OptString(2, "")
	switch v := L.Get(1).(type) {
	case *lua.LTable:
		items, _ := sequence(v)
		L.Push(lua.LString(joinValues(items, sep)))
	default:
		L.Push(lua.LString(toString(v)))
	}
	return 1
}

// format applies printf style formatting with the piped value as the format string.
func filterFormat(L *lua.LState) int {
	f := lua.LVAsString(L.Get(1))
	args := make([]any, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, toGo(L.Get(i)))
	}
	L.Push(lua.LString(fmt.Sprintf(f, args...)))
	return 1
}

func filterDefault(L *lua.LState) int {
	v := L.Get(1)
	if v == lua.LNil {
		v = L.Get(2)
	}
	L.Push(v)
	return 1
}

func filterLower(L *lua.LState) int {
	L.Push(lua.LString(strings.ToLower(toString(L.Get(1)))))
	return 1
}

func filterUpper(L *lua.LState) int {
	L.Push(lua.LString(strings.ToUpper(toString(L.Get(1)))))
	return 1
}

func filterTrim(L *lua.LState) int {
	L.Push(lua.LString(strings.TrimSpace(toString(L.Get(1)))))
	return 1
}
