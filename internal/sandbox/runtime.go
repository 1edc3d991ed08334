package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

const (
	DefaultTimeout = 60 * time.Second

	callStackSize   = 200
	registrySize    = 1024 * 8
	registryMaxSize = 1024 * 256
)

// Executor runs generated Lua code in a fresh, restricted interpreter per call.
type Executor struct {
	timeout time.Duration
	log     logrus.FieldLogger
}

type Option func(*Executor)

// WithTimeout bounds every execution. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Executor) { e.log = l }
}

func New(opts ...Option) *Executor {
	e := &Executor{
		timeout: DefaultTimeout,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs code with inputs bound as globals, then reads back each
// required output by name. Optional outputs are returned only when assigned.
// Nothing the code does is visible to the caller except through outputs.
func (e *Executor) Execute(ctx context.Context, code string, inputs map[string]any, required []string, optional ...string) (map[string]any, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:     true,
		CallStackSize:    callStackSize,
		RegistrySize:     registrySize,
		RegistryMaxSize:  registryMaxSize,
		RegistryGrowStep: 64,
	})
	defer L.Close()
	L.SetContext(ctx)

	openSafeLibs(L)
	L.SetGlobal("log", L.NewFunction(e.luaLog))

	for name, value := range inputs {
		L.SetGlobal(name, goToLua(L, value))
	}

	started := time.Now()
	if err := L.DoString(code); err != nil {
		return nil, classify(ctx, err)
	}
	e.log.WithField("elapsed", time.Since(started)).Debug("sandbox execution finished")

	outputs := make(map[string]any, len(required)+len(optional))
	for _, name := range required {
		value := L.GetGlobal(name)
		if value == lua.LNil {
			return nil, &ExecutionError{
				Kind:    KindMissingOutput,
				Message: fmt.Sprintf("%s variable not produced by generated code", name),
				Output:  name,
			}
		}
		outputs[name] = luaToGo(value, nil)
	}
	for _, name := range optional {
		if value := L.GetGlobal(name); value != lua.LNil {
			outputs[name] = luaToGo(value, nil)
		}
	}

	return outputs, nil
}

func classify(ctx context.Context, err error) *ExecutionError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &ExecutionError{Kind: KindTimeout, Message: "execution time limit exceeded"}
	case ctx.Err() != nil:
		return &ExecutionError{Kind: KindCanceled, Message: ctx.Err().Error()}
	}

	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		msg := "unknown error"
		if apiErr.Object != nil {
			msg = apiErr.Object.String()
		}
		return &ExecutionError{Kind: KindRaised, Message: msg, Traceback: apiErr.StackTrace}
	}
	return &ExecutionError{Kind: KindRaised, Message: err.Error()}
}

// openSafeLibs loads only the safe standard libraries
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)

	// No file, module or dynamic code loading, and no stdout.
	for _, name := range []string{
		"loadfile", "dofile", "load", "loadstring",
		"require", "module", "print", "collectgarbage", "_printregs",
	} {
		L.SetGlobal(name, lua.LNil)
	}

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Same code and inputs must give the same outputs.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		L.SetField(tbl, "random", lua.LNil)
		L.SetField(tbl, "randomseed", lua.LNil)
	}
}

// luaLog implements the log(message) API
func (e *Executor) luaLog(L *lua.LState) int {
	message := L.CheckString(1)
	e.log.WithField("source", "generated-code").Info(message)
	return 0
}
