// Package sandbox hosts one embedded Lua interpreter per project session.
// Dangerous host bindings are deleted from the global namespace once, at
// construction, before any script can run; the restricted namespace is a
// second independent layer on top of path and command validation, never a
// replacement for it.
package sandbox

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// HostFunc is one bridge function exposed into the sandbox. Arguments and
// results are plain structured data; function values and host references
// never cross the boundary. Every call re-enters the validators on the host
// side: scripts cannot cache or bypass validation results. The context is
// the one governing the surrounding Execute call.
type HostFunc func(ctx context.Context, args []any) (any, error)

// strippedGlobals are deleted from the global namespace at construction:
// dynamic code/file loading, module import, and the io library.
var strippedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"collectgarbage",
	"io",
	"debug",
	"package",
}

// strippedOSFields are deleted from the os table: process execution and
// termination, file mutation, and environment access. Clock and date
// functions stay.
var strippedOSFields = []string{
	"execute",
	"exit",
	"remove",
	"rename",
	"tmpname",
	"getenv",
	"setenv",
	"setlocale",
}

// Options configure a new Instance.
type Options struct {
	// Hosts is the fixed bridge function set, registered before any script
	// runs. Keys become global function names inside the sandbox.
	Hosts map[string]HostFunc
}

// Instance is one interpreter state bound to one session. It is never shared
// across sessions; the owning session serializes calls, the internal mutex
// only guards against misuse.
type Instance struct {
	mu     sync.Mutex
	state  *lua.LState
	closed bool
}

// New creates a stripped interpreter state and registers the bridge surface.
// The deny-list is applied exactly once here; there is no per-call check and
// therefore no window in which a script could observe a dangerous binding.
func New(opts Options) *Instance {
	L := lua.NewState()
	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if osTable, ok := L.GetGlobal("os").(*lua.LTable); ok {
		for _, field := range strippedOSFields {
			osTable.RawSetString(field, lua.LNil)
		}
	}
	for name, fn := range opts.Hosts {
		L.SetGlobal(name, L.NewFunction(wrapHost(fn)))
	}
	return &Instance{state: L}
}

// wrapHost adapts a HostFunc to the interpreter calling convention,
// marshaling arguments out of and the result back into Lua values.
func wrapHost(fn HostFunc) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			args = append(args, fromLua(L.Get(i), 0))
		}
		ctx := L.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		result, err := fn(ctx, args)
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		L.Push(toLua(L, result))
		return 1
	}
}

// Execute runs a script with args bound to the global `args` table and
// returns the script's first returned value marshaled to host data. The
// context cancels long-running scripts.
func (i *Instance) Execute(ctx context.Context, script string, args map[string]any) (any, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil, fmt.Errorf("sandbox instance is closed")
	}

	L := i.state
	L.SetContext(ctx)
	defer L.RemoveContext()

	L.SetGlobal("args", toLua(L, args))
	base := L.GetTop()
	if err := L.DoString(script); err != nil {
		L.SetTop(base)
		return nil, fmt.Errorf("script error: %w", err)
	}
	var result any
	if L.GetTop() > base {
		result = fromLua(L.Get(base+1), 0)
	}
	L.SetTop(base)
	return result, nil
}

// Close destroys the interpreter state. Called at session teardown.
func (i *Instance) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.closed {
		i.state.Close()
		i.closed = true
	}
}
