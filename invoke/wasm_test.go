package invoke

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/gi"
	"github.com/wippyai/girepository/gtype"
)

// calcWasm assembles a module exporting a bump malloc, a no-op free and
// three Calc functions:
//
//	0 malloc(size) -> ptr
//	1 free(ptr)
//	2 calc_add(a, b) -> a+b
//	3 calc_divmod(a, b, quot*, rem*, error**) -> 1
//	4 calc_counter_step(self*, by) -> *self + by
func calcWasm() []byte {
	const (
		i32       = 0x7f
		localGet  = 0x20
		globalGet = 0x23
		globalSet = 0x24
		i32Load   = 0x28
		i32Store  = 0x36
		i32Const  = 0x41
		i32Add    = 0x6a
		i32DivS   = 0x6d
		i32RemS   = 0x6f
		i32And    = 0x71
		end       = 0x0b
	)

	section := func(id byte, payload ...byte) []byte {
		return append(append([]byte{id}, uleb(uint32(len(payload)))...), payload...)
	}
	vec := func(items ...[]byte) []byte {
		out := uleb(uint32(len(items)))
		for _, it := range items {
			out = append(out, it...)
		}
		return out
	}
	name := func(s string) []byte { return append(uleb(uint32(len(s))), s...) }
	export := func(s string, kind byte, index byte) []byte {
		return append(name(s), kind, index)
	}
	body := func(code ...byte) []byte {
		code = append([]byte{0}, code...) // no locals
		return append(uleb(uint32(len(code))), code...)
	}

	types := vec(
		[]byte{0x60, 1, i32, 1, i32},                     // (i32) -> i32
		[]byte{0x60, 1, i32, 0},                          // (i32) -> ()
		[]byte{0x60, 2, i32, i32, 1, i32},                // (i32, i32) -> i32
		[]byte{0x60, 5, i32, i32, i32, i32, i32, 1, i32}, // (i32 x5) -> i32
	)
	funcs := vec([]byte{0}, []byte{1}, []byte{2}, []byte{3}, []byte{2})
	mems := vec([]byte{0x00, 1})
	globals := vec([]byte{i32, 1, i32Const, 0x80, 0x08, end}) // heap = 1024
	exports := vec(
		export("memory", 2, 0),
		export("malloc", 0, 0),
		export("free", 0, 1),
		export("calc_add", 0, 2),
		export("calc_divmod", 0, 3),
		export("calc_counter_step", 0, 4),
	)
	code := vec(
		body(globalGet, 0,
			globalGet, 0, localGet, 0, i32Add,
			i32Const, 7, i32Add, i32Const, 0x78, i32And, // round up to 8
			globalSet, 0, end),
		body(end),
		body(localGet, 0, localGet, 1, i32Add, end),
		body(localGet, 2, localGet, 0, localGet, 1, i32DivS, i32Store, 2, 0,
			localGet, 3, localGet, 0, localGet, 1, i32RemS, i32Store, 2, 0,
			i32Const, 1, end),
		body(localGet, 0, i32Load, 2, 0, localGet, 1, i32Add, end),
	)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(1, types...)...)
	out = append(out, section(3, funcs...)...)
	out = append(out, section(5, mems...)...)
	out = append(out, section(6, globals...)...)
	out = append(out, section(7, exports...)...)
	out = append(out, section(10, code...)...)
	return out
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func newWasmEngine(t *testing.T) (*Engine, *WasmLibrary, *gi.Repository) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = rt.Close(ctx) })

	lib, err := LoadWasm(ctx, rt, "libcalc.so.1", calcWasm())
	if err != nil {
		t.Fatalf("LoadWasm: %v", err)
	}
	repo := loadCalc(t)
	return NewEngine(repo, WithLibrary(lib)), lib, repo
}

func TestWasmLibrary_Exports(t *testing.T) {
	_, lib, _ := newWasmEngine(t)

	if lib.Memory() == nil {
		t.Fatal("memory not exported")
	}
	if lib.Allocator() == nil {
		t.Fatal("malloc not detected")
	}
	addr, ok := lib.Address("calc_counter_step")
	if !ok || addr != 4 {
		t.Errorf("Address(calc_counter_step) = %d, %v", addr, ok)
	}
	if _, ok := lib.FunctionAt(addr); !ok {
		t.Error("FunctionAt failed for exported index")
	}
	if _, ok := lib.Lookup("calc_missing"); ok {
		t.Error("missing export resolved")
	}

	p1, err := lib.Allocator().Alloc(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	p2, _ := lib.Allocator().Alloc(8, 8)
	if p1 != 1024 || p2 != 1032 {
		t.Errorf("bump allocations = %d, %d", p1, p2)
	}
}

func TestWasmLibrary_Invoke(t *testing.T) {
	e, _, repo := newWasmEngine(t)
	ctx := context.Background()

	add := lookup[*gi.FunctionInfo](t, repo, "add")
	ret, err := e.Invoke(ctx, add, []gi.Argument{gi.NewInt32(-2), gi.NewInt32(5)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ret.Int32() != 3 {
		t.Errorf("add = %v", ret)
	}

	divmod := lookup[*gi.FunctionInfo](t, repo, "divmod")
	out := make([]gi.Argument, 2)
	ret, err = e.Invoke(ctx, divmod, []gi.Argument{gi.NewInt32(-17), gi.NewInt32(5)}, out)
	if err != nil {
		t.Fatal(err)
	}
	if !ret.Boolean() || out[0].Int32() != -3 || out[1].Int32() != -2 {
		t.Errorf("divmod = %v, %v, %v", ret, out[0], out[1])
	}
}

func TestWasmLibrary_Trap(t *testing.T) {
	e, _, repo := newWasmEngine(t)
	divmod := lookup[*gi.FunctionInfo](t, repo, "divmod")

	_, err := e.Invoke(context.Background(), divmod, []gi.Argument{gi.NewInt32(1), gi.NewInt32(0)}, make([]gi.Argument, 2))
	if errKind(err) != errors.KindInvocationFailure {
		t.Fatalf("err = %v", err)
	}
	var ierr *errors.Error
	if !stderrors.As(err, &ierr) || ierr.Symbol != "calc_divmod" || ierr.Cause == nil {
		t.Errorf("trap error = %+v", ierr)
	}
}

func TestWasmLibrary_VFunc(t *testing.T) {
	e, lib, repo := newWasmEngine(t)
	ctx := context.Background()
	mem, alloc := lib.Memory(), lib.Allocator()
	reg := repo.TypeRegistry()

	counterType, err := reg.Register("CalcCounter", gtype.Object)
	if err != nil {
		t.Fatal(err)
	}
	class, _ := alloc.Alloc(16, 8)
	step, _ := lib.Address("calc_counter_step")
	if err := mem.WriteU32(class+8, step); err != nil {
		t.Fatal(err)
	}
	if err := reg.SetClass(counterType, gtype.Vtable{Mem: mem, Addr: class}); err != nil {
		t.Fatal(err)
	}
	instance, _ := alloc.Alloc(4, 4)
	if err := mem.WriteU32(instance, 40); err != nil {
		t.Fatal(err)
	}

	vf, _ := lookup[*gi.ObjectInfo](t, repo, "Counter").FindVFunc("step")
	ret, err := e.InvokeVFunc(ctx, vf, counterType, []gi.Argument{gi.NewPointer(instance), gi.NewInt32(2)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ret.Int32() != 42 {
		t.Errorf("step = %v", ret)
	}
}
