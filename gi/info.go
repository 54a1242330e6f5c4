package gi

import (
	"iter"
	"strings"
	"sync/atomic"

	"github.com/wippyai/girepository/typelib"
)

// Info is a node of the metadata graph. The dynamic type of an Info is
// determined by its kind:
//
//	KindFunction          *FunctionInfo
//	KindCallback          *CallbackInfo
//	KindStruct, KindBoxed *StructInfo
//	KindUnion             *UnionInfo
//	KindEnum, KindFlags   *EnumInfo
//	KindObject            *ObjectInfo
//	KindInterface         *InterfaceInfo
//	KindConstant          *ConstantInfo
//	KindValue             *ValueInfo
//	KindSignal            *SignalInfo
//	KindVFunc             *VFuncInfo
//	KindProperty          *PropertyInfo
//	KindField             *FieldInfo
//	KindArg               *ArgInfo
//	KindType              *TypeInfo
//	KindUnresolved        *UnresolvedInfo
//
// An info of a lazily loaded typelib whose body fails to decode keeps
// the type above but reports KindInvalid, and its accessors return zero
// values.
type Info interface {
	Kind() InfoKind
	Name() string
	Namespace() string
	// Container returns the enclosing info, or nil for top-level infos.
	Container() Info
	// Typelib returns the owning typelib, nil for unresolved infos.
	Typelib() *Typelib
	IsDeprecated() bool
	Attribute(name string) (string, bool)
	Attributes() iter.Seq2[string, string]
	Equal(other Info) bool
	String() string

	RefCount() int32
	Ref()
	Release()

	base() *BaseInfo
}

type handle struct {
	tl    *Typelib
	index int

	// unresolved only
	namespace string
	name      string

	refs atomic.Int32
}

func newHandle(tl *Typelib, index int) *handle {
	h := &handle{tl: tl, index: index}
	h.refs.Store(1)
	tl.live.Add(1)
	return h
}

// BaseInfo carries the state common to every Info. It is embedded by
// the concrete info types.
type BaseInfo struct {
	h *handle
}

var unresolvedEntry = typelib.NewEntry(KindUnresolved, "")

func (b *BaseInfo) base() *BaseInfo { return b }

func (b *BaseInfo) entry() *typelib.Entry {
	if b.h.tl == nil {
		return &unresolvedEntry
	}
	return b.h.tl.raw.MustEntry(b.h.index)
}

func (b *BaseInfo) raw() *typelib.Typelib { return b.h.tl.raw }

// child materializes another entry of the same typelib.
func (b *BaseInfo) child(idx int) Info {
	if idx == typelib.None || b.h.tl == nil {
		return nil
	}
	return newInfo(b.h.tl, idx)
}

// peek returns entry idx of the same typelib without materializing an
// info, or nil for None.
func (b *BaseInfo) peek(idx int) *typelib.Entry {
	if idx == typelib.None || b.h.tl == nil {
		return nil
	}
	return b.h.tl.raw.MustEntry(idx)
}

func (b *BaseInfo) Kind() InfoKind {
	if b.h.tl == nil {
		return KindUnresolved
	}
	return b.entry().Kind
}

func (b *BaseInfo) Name() string {
	if b.h.tl == nil {
		return b.h.name
	}
	return b.h.tl.raw.Name(b.h.index)
}

func (b *BaseInfo) Namespace() string {
	if b.h.tl == nil {
		return b.h.namespace
	}
	return b.h.tl.Namespace()
}

func (b *BaseInfo) Container() Info {
	return b.child(b.entry().Container)
}

func (b *BaseInfo) Typelib() *Typelib { return b.h.tl }

func (b *BaseInfo) IsDeprecated() bool { return b.entry().Deprecated }

func (b *BaseInfo) Attribute(name string) (string, bool) {
	return b.entry().Attribute(name)
}

// Attributes iterates over the attributes in sorted name order. Each
// call starts a fresh iteration.
func (b *BaseInfo) Attributes() iter.Seq2[string, string] {
	attrs := b.entry().Attributes
	return func(yield func(string, string) bool) {
		for _, a := range attrs {
			if !yield(a.Name, a.Value) {
				return
			}
		}
	}
}

// Equal reports whether both infos denote the same entry. Unresolved
// infos are equal when they name the same namespace and name.
func (b *BaseInfo) Equal(other Info) bool {
	if other == nil {
		return false
	}
	o := other.base()
	if b.h == o.h {
		return true
	}
	if b.h.tl == nil || o.h.tl == nil {
		return b.h.tl == nil && o.h.tl == nil &&
			b.h.namespace == o.h.namespace && b.h.name == o.h.name
	}
	return b.h.tl == o.h.tl && b.h.index == o.h.index
}

// String returns the dotted path of the info through its containers.
func (b *BaseInfo) String() string {
	var parts []string
	if b.h.tl == nil {
		return b.h.namespace + "." + b.h.name
	}
	raw := b.h.tl.raw
	for idx := b.h.index; idx != typelib.None; idx = raw.MustEntry(idx).Container {
		name := raw.Name(idx)
		if name == "" {
			name = "<" + raw.Kind(idx).String() + ">"
		}
		parts = append(parts, name)
	}
	parts = append(parts, raw.Namespace)
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// RefCount returns the number of references held on the info handle.
func (b *BaseInfo) RefCount() int32 { return b.h.refs.Load() }

// Ref adds a reference.
func (b *BaseInfo) Ref() { b.h.refs.Add(1) }

// Release drops a reference. Releasing more often than the info was
// referenced is a programming error and panics.
func (b *BaseInfo) Release() {
	switch n := b.h.refs.Add(-1); {
	case n == 0:
		if b.h.tl != nil {
			b.h.tl.live.Add(-1)
		}
	case n < 0:
		panic("gi: info " + b.String() + " released more often than referenced")
	}
}

// Wrap returns a new view of info that borrows the caller's reference:
// the reference count is unchanged and the view must not be released
// independently.
func Wrap(info Info) Info {
	return view(info.base().h)
}

// WrapRetained returns a new view of info holding its own reference,
// released through the returned view.
func WrapRetained(info Info) Info {
	h := info.base().h
	h.refs.Add(1)
	return view(h)
}

// newInfo materializes entry idx as the concrete info type of its kind.
func newInfo(tl *Typelib, idx int) Info {
	return view(newHandle(tl, idx))
}

func newUnresolved(namespace, name string) Info {
	h := &handle{index: typelib.None, namespace: namespace, name: name}
	h.refs.Store(1)
	return &UnresolvedInfo{BaseInfo{h}}
}

func view(h *handle) Info {
	b := BaseInfo{h}
	if h.tl == nil {
		return &UnresolvedInfo{b}
	}
	switch kind := h.tl.raw.DeclaredKind(h.index); kind {
	case KindFunction:
		return &FunctionInfo{CallableInfo{b}}
	case KindCallback:
		return &CallbackInfo{CallableInfo{b}}
	case KindSignal:
		return &SignalInfo{CallableInfo{b}}
	case KindVFunc:
		return &VFuncInfo{CallableInfo{b}}
	case KindStruct, KindBoxed:
		return &StructInfo{RegisteredTypeInfo{b}}
	case KindUnion:
		return &UnionInfo{RegisteredTypeInfo{b}}
	case KindEnum, KindFlags:
		return &EnumInfo{RegisteredTypeInfo{b}}
	case KindObject:
		return &ObjectInfo{RegisteredTypeInfo{b}}
	case KindInterface:
		return &InterfaceInfo{RegisteredTypeInfo{b}}
	case KindConstant:
		return &ConstantInfo{b}
	case KindValue:
		return &ValueInfo{b}
	case KindProperty:
		return &PropertyInfo{b}
	case KindField:
		return &FieldInfo{b}
	case KindArg:
		return &ArgInfo{b}
	case KindType:
		return &TypeInfo{b}
	case KindUnresolved:
		return &UnresolvedInfo{b}
	default:
		panic("gi: typelib entry of invalid kind " + kind.String())
	}
}

// UnresolvedInfo stands for a reference into a namespace that is not
// loaded, or a name the namespace does not define.
type UnresolvedInfo struct {
	BaseInfo
}
