package typelib

import (
	"fmt"
	"sync/atomic"

	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/typelib/internal/binary"
)

// Header describes the namespace a typelib provides.
type Header struct {
	Namespace       string
	Version         string
	CPrefix         string
	SharedLibraries []string
	// Dependencies are "Namespace-Version" strings in declaration order.
	Dependencies []string
}

// Typelib is a decoded metadata blob for one namespace version. Entry
// bodies are decoded eagerly or, for lazy typelibs, on first access.
type Typelib struct {
	Header

	bodies    [][]byte                        // lazy only
	failures  []atomic.Pointer[decodeFailure] // lazy only
	slots     []atomic.Pointer[Entry]
	kinds     []InfoKind
	names     []string
	directory []int

	byName     map[string]int
	byTypeName map[string]int
	byDomain   map[string]int
}

// New validates entries and builds a typelib. directory lists the
// top-level entries in enumeration order.
func New(h Header, entries []Entry, directory []int) (*Typelib, error) {
	t := &Typelib{
		Header:    h,
		slots:     make([]atomic.Pointer[Entry], len(entries)),
		kinds:     make([]InfoKind, len(entries)),
		names:     make([]string, len(entries)),
		directory: append([]int(nil), directory...),
	}
	for i := range entries {
		e := entries[i]
		t.slots[i].Store(&e)
		t.kinds[i] = e.Kind
		t.names[i] = e.Name
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	if err := t.buildIndexes(); err != nil {
		return nil, err
	}
	return t, nil
}

// NumEntries returns the number of entries of every kind.
func (t *Typelib) NumEntries() int {
	return len(t.kinds)
}

// NumInfos returns the number of top-level entries.
func (t *Typelib) NumInfos() int {
	return len(t.directory)
}

// Info returns the entry index of the n-th top-level entry.
func (t *Typelib) Info(n int) (int, bool) {
	if n < 0 || n >= len(t.directory) {
		return None, false
	}
	return t.directory[n], true
}

// Kind returns the kind of entry i without decoding its body.
//
// A lazy entry whose body failed to decode reports KindInvalid.
func (t *Typelib) Kind(i int) InfoKind {
	if i < 0 || i >= len(t.kinds) {
		return KindInvalid
	}
	if t.failures != nil && t.failures[i].Load() != nil {
		return KindInvalid
	}
	return t.kinds[i]
}

// DeclaredKind returns the kind recorded in the header of entry i, even
// when its body failed to decode.
func (t *Typelib) DeclaredKind(i int) InfoKind {
	if i < 0 || i >= len(t.kinds) {
		return KindInvalid
	}
	return t.kinds[i]
}

// Name returns the name of entry i without decoding its body.
func (t *Typelib) Name(i int) string {
	if i < 0 || i >= len(t.names) {
		return ""
	}
	return t.names[i]
}

// Lazy reports whether entry bodies are decoded on demand.
func (t *Typelib) Lazy() bool {
	return t.bodies != nil
}

// Entry returns the decoded entry i. The result must not be modified.
func (t *Typelib) Entry(i int) (*Entry, error) {
	if i < 0 || i >= len(t.slots) {
		return nil, errors.OutOfBounds(errors.PhaseLookup, []string{t.Namespace}, i, len(t.slots))
	}
	if e := t.slots[i].Load(); e != nil {
		return e, nil
	}
	if f := t.failures[i].Load(); f != nil {
		return nil, f.err
	}

	e, err := decodeEntry(binary.NewReader(t.bodies[i]))
	if err != nil {
		return nil, t.fail(i, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Info(fmt.Sprintf("%s.%s", t.Namespace, t.names[i])).
			Detail("decode entry %d", i).
			Cause(err).
			Build())
	}
	if err := t.validateEntry(i, e); err != nil {
		return nil, t.fail(i, err)
	}
	t.slots[i].CompareAndSwap(nil, e)
	return t.slots[i].Load(), nil
}

// decodeFailure records a lazy body that could not be decoded. The
// entry reports KindInvalid from then on.
type decodeFailure struct {
	err error
}

func (t *Typelib) fail(i int, err error) error {
	t.failures[i].CompareAndSwap(nil, &decodeFailure{err: err})
	return t.failures[i].Load().err
}

// MustEntry is Entry for indices the caller obtained from this typelib.
// Lazy decode failures yield a placeholder of kind KindInvalid carrying
// the entry's name.
func (t *Typelib) MustEntry(i int) *Entry {
	e, err := t.Entry(i)
	if err != nil {
		placeholder := NewEntry(KindInvalid, t.Name(i))
		return &placeholder
	}
	return e
}

// Lookup finds a top-level entry by name.
func (t *Typelib) Lookup(name string) (int, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// LookupTypeName finds a registered type entry by its runtime type name.
func (t *Typelib) LookupTypeName(typeName string) (int, bool) {
	i, ok := t.byTypeName[typeName]
	return i, ok
}

// LookupErrorDomain finds the enum entry declaring the error domain.
func (t *Typelib) LookupErrorDomain(domain string) (int, bool) {
	i, ok := t.byDomain[domain]
	return i, ok
}

// Entries decodes every entry. Used by encoders and tooling.
func (t *Typelib) Entries() ([]Entry, error) {
	out := make([]Entry, len(t.slots))
	for i := range t.slots {
		e, err := t.Entry(i)
		if err != nil {
			return nil, err
		}
		out[i] = *e
	}
	return out, nil
}

// Directory returns the entry indices of the top-level entries.
func (t *Typelib) Directory() []int {
	return append([]int(nil), t.directory...)
}

func (t *Typelib) validate() error {
	if t.Namespace == "" {
		return errors.InvalidData(errors.PhaseDecode, nil, "typelib has no namespace")
	}
	n := len(t.kinds)
	seen := make(map[string]bool, len(t.directory))
	for _, idx := range t.directory {
		if idx < 0 || idx >= n {
			return errors.OutOfBounds(errors.PhaseDecode, []string{t.Namespace, "directory"}, idx, n)
		}
		name := t.names[idx]
		if seen[name] {
			return errors.InvalidData(errors.PhaseDecode, []string{t.Namespace, name}, "duplicate top-level name")
		}
		seen[name] = true
	}
	for i, k := range t.kinds {
		if !k.Valid() || k == KindInvalid {
			return errors.InvalidData(errors.PhaseDecode, []string{t.Namespace, t.names[i]},
				fmt.Sprintf("entry %d has invalid kind %d", i, k))
		}
	}
	for i := range t.slots {
		e := t.slots[i].Load()
		if e == nil {
			continue
		}
		if err := t.validateEntry(i, e); err != nil {
			return err
		}
	}
	return nil
}

func (t *Typelib) validateEntry(i int, e *Entry) error {
	n := len(t.kinds)
	if e.Kind != t.kinds[i] || e.Name != t.names[i] {
		return errors.InvalidData(errors.PhaseDecode, []string{t.Namespace, t.names[i]}, "entry header mismatch")
	}
	for _, l := range e.links() {
		if l.index == None {
			continue
		}
		if l.index < 0 || l.index >= n {
			return errors.OutOfBounds(errors.PhaseDecode, []string{t.Namespace, e.Name}, l.index, n)
		}
		if l.kind != KindInvalid && t.kinds[l.index] != l.kind {
			return errors.TypeMismatch(errors.PhaseDecode, []string{t.Namespace, e.Name}, l.kind.String(), t.kinds[l.index].String())
		}
	}
	if !e.Tag.Valid() || !e.StorageType.Valid() {
		return errors.InvalidData(errors.PhaseDecode, []string{t.Namespace, e.Name}, "invalid type tag")
	}
	return nil
}

func (t *Typelib) buildIndexes() error {
	t.byName = make(map[string]int, len(t.directory))
	for _, idx := range t.directory {
		t.byName[t.names[idx]] = idx
	}
	if t.byTypeName != nil {
		return nil
	}
	t.byTypeName = make(map[string]int)
	t.byDomain = make(map[string]int)
	for _, idx := range t.directory {
		e, err := t.Entry(idx)
		if err != nil {
			return err
		}
		if e.TypeName != "" {
			t.byTypeName[e.TypeName] = idx
		}
		if e.ErrorDomain != "" {
			t.byDomain[e.ErrorDomain] = idx
		}
	}
	return nil
}
