package invoke

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/memory"
)

// Allocator exports tried in order.
const (
	CabiRealloc = "cabi_realloc"
	Malloc      = "malloc"
	Free        = "free"
)

// WasmLibrary serves the exports of an instantiated WebAssembly module.
// Symbols are export names, function pointers are function indexes and
// the foreign address space is the module's linear memory.
type WasmLibrary struct {
	mod     api.Module
	mem     *memory.Wrapper
	alloc   girepository.Allocator
	byIndex map[uint32]string
	addrs   map[string]uint32
	name    string
}

// LoadWasm compiles and instantiates a module in rt. ctx is kept for
// allocator calls made on behalf of later invocations.
func LoadWasm(ctx context.Context, rt wazero.Runtime, name string, wasm []byte) (*WasmLibrary, error) {
	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile wasm library "+name, err)
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Load("instantiate wasm library "+name, err)
	}
	return NewWasmLibrary(ctx, name, compiled, mod), nil
}

// NewWasmLibrary wraps an already instantiated module. compiled supplies
// the function indexes of exports.
func NewWasmLibrary(ctx context.Context, name string, compiled wazero.CompiledModule, mod api.Module) *WasmLibrary {
	l := &WasmLibrary{
		name:    name,
		mod:     mod,
		byIndex: make(map[uint32]string),
		addrs:   make(map[string]uint32),
	}
	for sym, def := range compiled.ExportedFunctions() {
		l.byIndex[def.Index()] = sym
		l.addrs[sym] = def.Index()
	}
	if mem := mod.Memory(); mem != nil {
		l.mem = memory.WrapMemory(mem)
	}

	defs := mod.ExportedFunctionDefinitions()
	switch {
	case defs[CabiRealloc] != nil:
		l.alloc = memory.WrapRealloc(ctx, mod.ExportedFunction(CabiRealloc))
	case defs[Malloc] != nil:
		l.alloc = memory.WrapMalloc(ctx, mod.ExportedFunction(Malloc), mod.ExportedFunction(Free))
	}
	return l
}

func (l *WasmLibrary) Name() string { return l.name }

// Module returns the underlying instance.
func (l *WasmLibrary) Module() api.Module { return l.mod }

func (l *WasmLibrary) Memory() girepository.Memory {
	if l.mem == nil {
		return nil
	}
	return l.mem
}

func (l *WasmLibrary) Allocator() girepository.Allocator { return l.alloc }

func (l *WasmLibrary) Lookup(symbol string) (Function, bool) {
	fn := l.mod.ExportedFunction(symbol)
	if fn == nil {
		return nil, false
	}
	return fn, true
}

func (l *WasmLibrary) Address(symbol string) (uint32, bool) {
	addr, ok := l.addrs[symbol]
	return addr, ok
}

// FunctionAt resolves exported functions by index. Functions that are
// not exported cannot be called through a pointer.
func (l *WasmLibrary) FunctionAt(addr uint32) (Function, bool) {
	sym, ok := l.byIndex[addr]
	if !ok {
		return nil, false
	}
	return l.Lookup(sym)
}

// Close releases the module instance.
func (l *WasmLibrary) Close(ctx context.Context) error {
	return l.mod.Close(ctx)
}
