// Package invoke calls functions and virtual functions described by gi
// metadata.
//
// An Engine holds the foreign libraries symbols are resolved in. A
// Library pairs callable entry points with the address space they run
// against: HostLibrary serves Go functions over a memory.Buffer, and
// WasmLibrary serves the exports of a wazero module instance over its
// linear memory.
//
// Arguments are passed positionally by direction. For a method the
// instance comes first in the input list. Every in and inout argument
// follows in declared order, and every out and inout argument has a
// slot in the output list:
//
//	fn, _ := repo.FindByName("Demo", "parse")
//	out := make([]gi.Argument, 1)
//	ret, err := engine.Invoke(ctx, fn.(*gi.FunctionInfo), in, out)
//
// A callable that throws gets a trailing error out-parameter. When the
// foreign side sets it, Invoke fails with an *errors.Error whose cause
// is an *errors.ForeignError carrying the reported domain, code and
// message.
package invoke
