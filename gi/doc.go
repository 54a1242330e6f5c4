// Package gi exposes loaded typelibs as a graph of typed metadata nodes.
//
// A Repository loads namespaces through a Loader and answers lookups by
// name, runtime type and error domain. Every lookup yields an Info: a
// reference-counted view of one typelib entry. The concrete type of an
// Info is fixed by its kind, so callers switch on it:
//
//	repo := gi.New(gi.WithSearchPath("/usr/lib/girepository-1.0"))
//	if _, err := repo.Require(ctx, "GLib", "2.0", gi.LoadFlagNone); err != nil {
//		return err
//	}
//	info, ok := repo.FindByName("GLib", "strdup")
//	if fn, isFn := info.(*gi.FunctionInfo); ok && isFn {
//		fmt.Println(fn.Symbol(), fn.Args().Len())
//	}
//
// Children are reached through Collections, which materialize nodes on
// demand. References into namespaces that are not loaded resolve to an
// UnresolvedInfo rather than triggering a load.
//
// Fields of structs and unions are read and written in a foreign address
// space through FieldInfo.Get and FieldInfo.Set, and virtual function
// addresses are computed from class vtables registered in the
// repository's gtype.Registry.
package gi
