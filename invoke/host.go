package invoke

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/memory"
)

// HostLibrary serves Go functions under C symbol names. Its foreign
// address space is a memory.Buffer shared by every function.
//
// Function pointers are 1-based registration indexes, so 0 stays null.
type HostLibrary struct {
	name     string
	mem      *memory.Buffer
	bySymbol map[string]uint32
	funcs    []hostEntry
	mu       sync.RWMutex
}

type hostEntry struct {
	fn     Function
	symbol string
}

// NewHostLibrary creates a library over mem. A nil mem gets a fresh
// buffer of 64 KiB that grows on demand.
func NewHostLibrary(name string, mem *memory.Buffer) *HostLibrary {
	if mem == nil {
		mem = memory.NewBuffer(64<<10, 0)
	}
	return &HostLibrary{
		name:     name,
		mem:      mem,
		bySymbol: make(map[string]uint32),
	}
}

func (l *HostLibrary) Name() string                      { return l.name }
func (l *HostLibrary) Memory() girepository.Memory       { return l.mem }
func (l *HostLibrary) Allocator() girepository.Allocator { return l.mem }

// Buffer returns the library's address space.
func (l *HostLibrary) Buffer() *memory.Buffer { return l.mem }

// Register binds fn to symbol and returns its function pointer.
// Registering a symbol again replaces the function but keeps the
// pointer.
func (l *HostLibrary) Register(symbol string, fn HostFunc) (uint32, error) {
	if symbol == "" {
		return 0, errors.InvalidInput(errors.PhaseInvoke, "symbol cannot be empty")
	}
	if fn == nil {
		return 0, errors.InvalidInput(errors.PhaseInvoke, "function cannot be nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if addr, ok := l.bySymbol[symbol]; ok {
		l.funcs[addr-1].fn = fn
		return addr, nil
	}
	l.funcs = append(l.funcs, hostEntry{fn: fn, symbol: symbol})
	addr := uint32(len(l.funcs))
	l.bySymbol[symbol] = addr
	return addr, nil
}

// RegisterFunc binds a typed Go function to symbol. Parameters and the
// optional result must be bool, sized integers or floats. A leading
// context.Context parameter and a trailing error result are allowed.
func (l *HostLibrary) RegisterFunc(symbol string, fn any) (uint32, error) {
	hf, err := adaptFunc(fn)
	if err != nil {
		return 0, err
	}
	return l.Register(symbol, hf)
}

func (l *HostLibrary) Lookup(symbol string) (Function, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	addr, ok := l.bySymbol[symbol]
	if !ok {
		return nil, false
	}
	return l.funcs[addr-1].fn, true
}

func (l *HostLibrary) Address(symbol string) (uint32, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	addr, ok := l.bySymbol[symbol]
	return addr, ok
}

func (l *HostLibrary) FunctionAt(addr uint32) (Function, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if addr == 0 || int(addr) > len(l.funcs) {
		return nil, false
	}
	return l.funcs[addr-1].fn, true
}

// Symbols lists registered symbols in registration order.
func (l *HostLibrary) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.funcs))
	for i, e := range l.funcs {
		out[i] = e.symbol
	}
	return out
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

func adaptFunc(fn any) (HostFunc, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseInvoke, errors.KindTypeMismatch).
			Detail("handler must be a function, got %T", fn).
			Build()
	}
	rt := rv.Type()

	first := 0
	if rt.NumIn() > 0 && rt.In(0) == contextType {
		first = 1
	}
	for i := first; i < rt.NumIn(); i++ {
		if !wordKind(rt.In(i).Kind()) {
			return nil, errors.New(errors.PhaseInvoke, errors.KindTypeMismatch).
				Detail("parameter %d has unsupported type %s", i, rt.In(i)).
				Build()
		}
	}

	results := rt.NumOut()
	hasErr := results > 0 && rt.Out(results-1) == errorType
	if hasErr {
		results--
	}
	if results > 1 {
		return nil, errors.New(errors.PhaseInvoke, errors.KindTypeMismatch).
			Detail("handler returns %d values, at most one is supported", results).
			Build()
	}
	if results == 1 && !wordKind(rt.Out(0).Kind()) {
		return nil, errors.New(errors.PhaseInvoke, errors.KindTypeMismatch).
			Detail("result has unsupported type %s", rt.Out(0)).
			Build()
	}

	nparams := rt.NumIn() - first
	return func(ctx context.Context, params ...uint64) ([]uint64, error) {
		if len(params) != nparams {
			return nil, fmt.Errorf("expected %d parameters, got %d", nparams, len(params))
		}
		args := make([]reflect.Value, rt.NumIn())
		if first == 1 {
			args[0] = reflect.ValueOf(ctx)
		}
		for i, w := range params {
			args[first+i] = fromWord(rt.In(first+i), w)
		}
		out := rv.Call(args)
		if hasErr {
			if err, _ := out[len(out)-1].Interface().(error); err != nil {
				return nil, err
			}
		}
		if results == 0 {
			return nil, nil
		}
		return []uint64{toWord(out[0])}, nil
	}, nil
}

func wordKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func fromWord(t reflect.Type, w uint64) reflect.Value {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		v.SetBool(api.DecodeU32(w) != 0)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		v.SetInt(int64(api.DecodeI32(w)))
	case reflect.Int64:
		v.SetInt(int64(w))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		v.SetUint(uint64(api.DecodeU32(w)))
	case reflect.Uint64:
		v.SetUint(w)
	case reflect.Float32:
		v.SetFloat(float64(api.DecodeF32(w)))
	case reflect.Float64:
		v.SetFloat(api.DecodeF64(w))
	}
	return v
}

func toWord(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int8, reflect.Int16, reflect.Int32:
		return api.EncodeI32(int32(v.Int()))
	case reflect.Int64:
		return api.EncodeI64(v.Int())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return api.EncodeU32(uint32(v.Uint()))
	case reflect.Uint64:
		return v.Uint()
	case reflect.Float32:
		return api.EncodeF32(float32(v.Float()))
	case reflect.Float64:
		return api.EncodeF64(v.Float())
	}
	return 0
}
