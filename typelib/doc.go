// Package typelib is the backing metadata store of the repository.
//
// A Typelib is a flat table of entries for one namespace version: top-level
// functions, structs, objects and the like, plus every child record they
// own (arguments, types, fields, values, ...). Entries reference each other
// by index, and registered types in other namespaces by Ref.
//
// Typelibs are produced by Compile from a YAML Source, by a Builder, or by
// Decode from the binary form written by Encode:
//
//	tl, err := typelib.CompileSource(yamlBytes)
//	blob, err := typelib.Encode(tl)
//	tl, err = typelib.Decode(blob, typelib.LoadFlagLazy)
//
// A lazily decoded typelib indexes entry kinds and names at load time and
// decodes entry bodies on first access.
package typelib
