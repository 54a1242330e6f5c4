package typelib

// Builder assembles a typelib entry by entry. Children must be added
// before the parent that lists them, or patched through Entry afterwards.
type Builder struct {
	header    Header
	entries   []Entry
	directory []int
}

// NewBuilder starts a typelib for the given header.
func NewBuilder(h Header) *Builder {
	return &Builder{header: h}
}

// Add appends an entry and returns its index.
func (b *Builder) Add(e Entry) int {
	b.entries = append(b.entries, e)
	return len(b.entries) - 1
}

// AddTop appends an entry and lists it in the directory.
func (b *Builder) AddTop(e Entry) int {
	e.Container = None
	idx := b.Add(e)
	b.directory = append(b.directory, idx)
	return idx
}

// Entry returns a pointer to entry i for patching. The pointer is
// invalidated by the next Add.
func (b *Builder) Entry(i int) *Entry {
	return &b.entries[i]
}

// Adopt sets the container of every child to parent.
func (b *Builder) Adopt(parent int, children ...int) {
	for _, c := range children {
		b.entries[c].Container = parent
	}
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Build validates the entries and returns the typelib.
func (b *Builder) Build() (*Typelib, error) {
	return New(b.header, b.entries, b.directory)
}

// Convenience constructors for common entry shapes.

// TypeEntry returns a simple type entry for tag.
func TypeEntry(tag TypeTag, pointer bool) Entry {
	e := NewEntry(KindType, "")
	e.Tag = tag
	e.Pointer = pointer
	return e
}

// InterfaceTypeEntry returns a type entry referring to a registered type.
func InterfaceTypeEntry(ref Ref, pointer bool) Entry {
	e := TypeEntry(TagInterface, pointer)
	e.Interface = ref
	return e
}

// ArgEntry returns an argument entry of the given direction and type.
func ArgEntry(name string, dir Direction, typ int) Entry {
	e := NewEntry(KindArg, name)
	e.Direction = dir
	e.Type = typ
	return e
}
