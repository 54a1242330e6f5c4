// Package girepository provides a typed metadata graph over typelibs in
// the GObject-Introspection style, and a generic engine calling the
// functions they describe.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	girepository/        Root package with core Memory and Allocator interfaces
//	├── typelib/         Typelib format: entries, binary codec, YAML sources
//	├── gi/              Repository, InfoNode hierarchy, loaders, field access
//	├── gtype/           Runtime type registry, class vtables, quarks
//	├── invoke/          Invocation engine with host and wazero backends
//	├── memory/          Memory implementations and C string helpers
//	├── errors/          Structured error types for debugging
//	└── cmd/gir/         Command line inspector and caller
//
// # Quick Start
//
// Load a namespace and look an info up:
//
//	repo := gi.New(gi.WithSearchPath("/usr/lib/girepository-1.0"))
//	if _, err := repo.Require(ctx, "GLib", "2.0", gi.LoadFlagNone); err != nil {
//	    log.Fatal(err)
//	}
//	info, ok := repo.FindByName("GLib", "strdup")
//
// Call it against a WebAssembly build of the library:
//
//	lib, err := invoke.LoadWasm(ctx, wazero.NewRuntime(ctx), "libglib-2.0.so.0", wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine := invoke.NewEngine(repo, invoke.WithLibrary(lib))
//	ret, err := engine.Invoke(ctx, info.(*gi.FunctionInfo), []gi.Argument{gi.NewString(ptr)}, nil)
//
// # Info Lifetime
//
// Infos are lightweight handles into a loaded typelib. Each carries a
// reference count; Release on the last reference invalidates the handle
// but never the typelib, which lives as long as its repository.
//
// # Thread Safety
//
// Repository, Registry and Engine are safe for concurrent use. Loads of
// namespaces are serialized per repository. Foreign calls run on the
// calling goroutine and are as concurrent as the backing library allows;
// a wazero module instance is not, so share it only under a lock.
//
// # Memory Model
//
// Every address is a 32-bit offset into a library's memory, with 0 as
// the null pointer. Storage the engine allocates for out arguments is
// released after the call. Values reached through those arguments follow
// their transfer annotations and belong to the caller.
package girepository
