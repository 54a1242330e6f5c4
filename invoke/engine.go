package invoke

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/gi"
	"github.com/wippyai/girepository/gtype"
	"github.com/wippyai/girepository/typelib"
)

// Engine resolves symbols across registered libraries and performs
// calls described by gi metadata.
type Engine struct {
	repo *gi.Repository
	log  *zap.Logger
	libs []Library
	mu   sync.RWMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to the package Logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithLibrary registers a library at construction.
func WithLibrary(lib Library) Option {
	return func(e *Engine) { e.libs = append(e.libs, lib) }
}

// NewEngine creates an engine for functions of repo. repo supplies the
// runtime type registry vtables and type initializers are checked
// against.
func NewEngine(repo *gi.Repository, opts ...Option) *Engine {
	e := &Engine{repo: repo, log: Logger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddLibrary appends lib to the libraries symbols are resolved in.
func (e *Engine) AddLibrary(lib Library) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.libs = append(e.libs, lib)
}

// Libraries returns the registered libraries in registration order.
func (e *Engine) Libraries() []Library {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.libs)
}

// Repository returns the repository the engine was created for.
func (e *Engine) Repository() *gi.Repository { return e.repo }

// candidates orders libraries for info: those named by the typelib's
// shared libraries first, in the typelib's order, then the rest.
func (e *Engine) candidates(info gi.Info) []Library {
	libs := e.Libraries()
	tl := info.Typelib()
	if tl == nil {
		return libs
	}
	shared := tl.SharedLibraries()
	rank := func(l Library) int {
		if i := slices.Index(shared, l.Name()); i >= 0 {
			return i
		}
		return len(shared)
	}
	slices.SortStableFunc(libs, func(a, b Library) int { return cmp.Compare(rank(a), rank(b)) })
	return libs
}

// Resolve finds the library exporting symbol on behalf of info.
func (e *Engine) Resolve(info gi.Info, symbol string) (Library, Function, error) {
	if symbol == "" {
		return nil, nil, errors.New(errors.PhaseInvoke, errors.KindSymbolNotFound).
			Info(info.String()).
			Detail("no symbol recorded").
			Build()
	}
	for _, lib := range e.candidates(info) {
		if fn, ok := lib.Lookup(symbol); ok {
			e.log.Debug("resolved symbol",
				zap.String("info", info.String()),
				zap.String("symbol", symbol),
				zap.String("library", lib.Name()))
			return lib, fn, nil
		}
	}
	return nil, nil, errors.SymbolNotFound(info.String(), symbol)
}

// Invoke calls fn. in holds the instance for methods followed by every
// in and inout argument; out has one slot per out and inout argument
// and receives their values. The return value is a void Argument for
// functions returning nothing.
func (e *Engine) Invoke(ctx context.Context, fn *gi.FunctionInfo, in, out []gi.Argument) (gi.Argument, error) {
	if fn == nil {
		return gi.Argument{}, errors.InvalidInput(errors.PhaseInvoke, "function info is nil")
	}
	if err := checkArity(fn, in, out); err != nil {
		return gi.Argument{}, err
	}
	lib, f, err := e.Resolve(fn, fn.Symbol())
	if err != nil {
		return gi.Argument{}, err
	}
	return e.call(ctx, fn, fn.Symbol(), lib, f, in, out)
}

// InvokeVFunc calls the implementation of vf provided by implementor.
// in[0] is the instance.
func (e *Engine) InvokeVFunc(ctx context.Context, vf *gi.VFuncInfo, implementor gtype.Type, in, out []gi.Argument) (gi.Argument, error) {
	if vf == nil {
		return gi.Argument{}, errors.InvalidInput(errors.PhaseInvoke, "vfunc info is nil")
	}
	if err := checkArity(vf, in, out); err != nil {
		return gi.Argument{}, err
	}
	addr, err := vf.Address(implementor)
	if err != nil {
		return gi.Argument{}, err
	}
	lib, f, err := e.functionAt(vf, implementor, addr)
	if err != nil {
		return gi.Argument{}, err
	}
	return e.call(ctx, vf, fmt.Sprintf("%s@%d", vf.Name(), addr), lib, f, in, out)
}

// functionAt finds the library owning the vtable addr was read from,
// falling back to the first library that resolves addr.
func (e *Engine) functionAt(vf *gi.VFuncInfo, implementor gtype.Type, addr uint32) (Library, Function, error) {
	libs := e.candidates(vf)
	if mem := e.vtableMemory(vf, implementor); mem != nil {
		for _, lib := range libs {
			if lib.Memory() == mem {
				if f, ok := lib.FunctionAt(addr); ok {
					return lib, f, nil
				}
			}
		}
	}
	for _, lib := range libs {
		if f, ok := lib.FunctionAt(addr); ok {
			return lib, f, nil
		}
	}
	return nil, nil, errors.New(errors.PhaseInvoke, errors.KindSymbolNotFound).
		Info(vf.String()).
		Detail("no library has a function at 0x%x", addr).
		Build()
}

func (e *Engine) vtableMemory(vf *gi.VFuncInfo, implementor gtype.Type) girepository.Memory {
	if e.repo == nil {
		return nil
	}
	reg := e.repo.TypeRegistry()
	container := vf.Container()
	if container == nil {
		return nil
	}
	defer container.Release()
	switch c := container.(type) {
	case *gi.ObjectInfo:
		if vt, ok := reg.Class(implementor); ok {
			return vt.Mem
		}
	case *gi.InterfaceInfo:
		if vt, ok := reg.InterfaceVtable(implementor, c.RuntimeType()); ok {
			return vt.Mem
		}
	}
	return nil
}

func (e *Engine) call(ctx context.Context, c gi.Callable, symbol string, lib Library, f Function, in, out []gi.Argument) (gi.Argument, error) {
	fr := &frame{info: c.String(), mem: lib.Memory(), alloc: lib.Allocator()}
	defer fr.release()

	if err := fr.marshal(c, in, out); err != nil {
		return gi.Argument{}, err
	}

	e.log.Debug("invoke",
		zap.String("info", c.String()),
		zap.String("symbol", symbol),
		zap.String("library", lib.Name()),
		zap.Int("words", len(fr.words)))

	results, callErr := f.Call(ctx, fr.words...)

	// A reported error wins even when the call itself completed.
	if fr.errSlot != 0 {
		if ferr := fr.foreignError(); ferr != nil {
			e.log.Debug("foreign error",
				zap.String("info", c.String()),
				zap.String("domain", ferr.Domain),
				zap.Int32("code", ferr.Code))
			return gi.Argument{}, errors.Invocation(c.String(), symbol, ferr)
		}
	}
	if callErr != nil {
		return gi.Argument{}, errors.Invocation(c.String(), symbol, callErr)
	}

	if err := fr.collect(out); err != nil {
		return gi.Argument{}, err
	}
	return returnValue(c, symbol, results)
}

func returnValue(c gi.Callable, symbol string, results []uint64) (gi.Argument, error) {
	rt := c.ReturnType()
	if rt == nil {
		return gi.NewVoid(), nil
	}
	defer rt.Release()
	if rt.Tag() == typelib.TagVoid && !rt.IsPointer() {
		return gi.NewVoid(), nil
	}
	if len(results) == 0 {
		return gi.Argument{}, errors.New(errors.PhaseInvoke, errors.KindInvocationFailure).
			Info(c.String()).
			Symbol(symbol).
			Detail("call returned no value, expected %s", rt.Tag()).
			Build()
	}
	return lift(rt.StorageTag(), rt.IsPointer(), results[0])
}

// checkArity verifies the argument lists against the declared
// directions before anything is resolved or allocated.
func checkArity(c gi.Callable, in, out []gi.Argument) error {
	wantIn, wantOut := 0, 0
	if c.IsMethod() {
		wantIn++
	}
	for _, arg := range c.Args().All() {
		switch arg.Direction() {
		case typelib.DirectionIn:
			wantIn++
		case typelib.DirectionOut:
			wantOut++
		case typelib.DirectionInOut:
			wantIn++
			wantOut++
		}
		arg.Release()
	}
	if len(in) != wantIn || len(out) != wantOut {
		return errors.ArgumentMismatch(c.String(),
			fmt.Sprintf("expected %d in and %d out arguments, got %d and %d", wantIn, wantOut, len(in), len(out)))
	}
	return nil
}

// TypeInitializer returns a hook calling a registered type's type-init
// symbol. The returned id must be known to the repository's type
// registry.
func (e *Engine) TypeInitializer() gi.TypeInitializer {
	return func(info gi.Registered) (gtype.Type, error) {
		lib, f, err := e.Resolve(info, info.TypeInit())
		if err != nil {
			return gtype.Invalid, err
		}
		results, err := f.Call(context.Background())
		if err != nil {
			return gtype.Invalid, errors.Invocation(info.String(), info.TypeInit(), err)
		}
		if len(results) == 0 {
			return gtype.Invalid, errors.New(errors.PhaseType, errors.KindInvalidData).
				Info(info.String()).
				Symbol(info.TypeInit()).
				Detail("type init returned no value").
				Build()
		}
		t := gtype.Type(api.DecodeU32(results[0]))
		if e.repo != nil && e.repo.TypeRegistry().Name(t) == "" {
			return gtype.Invalid, errors.New(errors.PhaseType, errors.KindNotFound).
				Info(info.String()).
				Symbol(info.TypeInit()).
				Detail("type init in %s returned unregistered type %d", lib.Name(), t).
				Build()
		}
		return t, nil
	}
}

// CheckSymbols verifies that every function symbol and type-init symbol
// of a loaded namespace resolves in some library.
func (e *Engine) CheckSymbols(namespace string) error {
	tl, ok := e.repo.Typelib(namespace)
	if !ok {
		return errors.NotFound(errors.PhaseInvoke, "namespace", namespace)
	}
	key := tl.Namespace() + "-" + tl.Version()

	var missing []string
	check := func(info gi.Info, symbol string) {
		if symbol == "" {
			return
		}
		if _, _, err := e.Resolve(info, symbol); err != nil {
			missing = append(missing, key+"#"+symbol)
		}
	}
	for _, info := range e.repo.Infos(namespace) {
		for fn, sym := range symbols(info) {
			check(fn, sym)
			if fn != info {
				fn.Release()
			}
		}
		info.Release()
	}
	if len(missing) > 0 {
		return errors.NewMissingSymbolsError(missing)
	}
	return nil
}

// symbols yields info's own foreign symbols followed by those of its
// methods.
func symbols(info gi.Info) iter.Seq2[gi.Info, string] {
	return func(yield func(gi.Info, string) bool) {
		if fn, ok := info.(*gi.FunctionInfo); ok {
			yield(fn, fn.Symbol())
			return
		}
		reg, ok := info.(gi.Registered)
		if !ok {
			return
		}
		if !yield(info, reg.TypeInit()) {
			return
		}
		var methods gi.Collection[*gi.FunctionInfo]
		switch v := info.(type) {
		case *gi.StructInfo:
			methods = v.Methods()
		case *gi.UnionInfo:
			methods = v.Methods()
		case *gi.EnumInfo:
			methods = v.Methods()
		case *gi.ObjectInfo:
			methods = v.Methods()
		case *gi.InterfaceInfo:
			methods = v.Methods()
		default:
			return
		}
		for _, m := range methods.All() {
			if !yield(m, m.Symbol()) {
				return
			}
		}
	}
}
