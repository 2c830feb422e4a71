// Package tmpl renders value and command templates. Template text embeds
// {{ expr }} blocks where expr is a Lua expression optionally followed by
// filter pipes, so `{{ (1000 / value) | round(0) }}` renders "10" for value 100.
package tmpl

import (
	"context"
	"fmt"
	"github.com/XANi/mqttlight/light"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"sync"
	"time"
)

const DefaultTimeout = 100 * time.Millisecond

type Config struct {
	Logger *zap.SugaredLogger
	// Timeout bounds a single render.
	Timeout time.Duration
}

// Engine owns a single sandboxed Lua VM shared by all of its templates.
type Engine struct {
	L       *lua.LState
	timeout time.Duration
	log     *zap.SugaredLogger
	sync.Mutex
}

func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	e := &Engine{
		L:       newSandbox(),
		timeout: cfg.Timeout,
		log:     cfg.Logger,
	}
	for name, fn := range filters {
		e.L.SetGlobal(filterPrefix+name, e.L.NewFunction(fn))
	}
	return e
}

func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, pair := range []struct {
		n string
		f lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(pair.f))
		L.Push(lua.LString(pair.n))
		L.Call(1, 0)
	}
	// no file or code loading from inside a template
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func (e *Engine) Close() {
	e.Lock()
	defer e.Unlock()
	e.L.Close()
}

// Extractor compiles a value template for the light translator.
func (e *Engine) Extractor(src string) (light.Extractor, error) {
	t, err := e.Parse(src)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Formatter compiles a command template for the light translator.
func (e *Engine) Formatter(src string) (light.Formatter, error) {
	t, err := e.Parse(src)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// eval runs one compiled expression with vars set as globals. Globals are
// cleared afterwards so nothing leaks between renders.
func (e *Engine) eval(fn *lua.FunctionProto, vars map[string]any) (lua.LValue, error) {
	e.Lock()
	defer e.Unlock()
	L := e.L
	for k, v := range vars {
		L.SetGlobal(k, toLua(L, v))
	}
	defer func() {
		for k := range vars {
			L.SetGlobal(k, lua.LNil)
		}
		L.SetTop(0)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	L.SetContext(ctx)
	defer L.RemoveContext()

	L.Push(L.NewFunctionFromProto(fn))
	if err := L.PCall(0, 1, nil); err != nil {
		return lua.LNil, fmt.Errorf("%w: %s", ErrEval, err)
	}
	return L.Get(-1), nil
}
