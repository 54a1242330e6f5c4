// Package gtype implements the runtime type system consulted by the
// repository: numeric type identifiers, single inheritance, interface
// implementation and class/interface vtables living in foreign memory.
package gtype

import (
	"fmt"
	"sync"

	"github.com/wippyai/girepository"
	"github.com/wippyai/girepository/errors"
)

// Type is an opaque process-wide runtime type identifier.
type Type uint64

const fundamentalShift = 2

// Fundamental types, numbered as the reference object system numbers them.
const (
	Invalid   Type = 0
	None      Type = 1 << fundamentalShift
	Interface Type = 2 << fundamentalShift
	Char      Type = 3 << fundamentalShift
	UChar     Type = 4 << fundamentalShift
	Boolean   Type = 5 << fundamentalShift
	Int       Type = 6 << fundamentalShift
	UInt      Type = 7 << fundamentalShift
	Long      Type = 8 << fundamentalShift
	ULong     Type = 9 << fundamentalShift
	Int64     Type = 10 << fundamentalShift
	UInt64    Type = 11 << fundamentalShift
	Enum      Type = 12 << fundamentalShift
	Flags     Type = 13 << fundamentalShift
	Float     Type = 14 << fundamentalShift
	Double    Type = 15 << fundamentalShift
	String    Type = 16 << fundamentalShift
	Pointer   Type = 17 << fundamentalShift
	Boxed     Type = 18 << fundamentalShift
	Param     Type = 19 << fundamentalShift
	Object    Type = 20 << fundamentalShift
	Variant   Type = 21 << fundamentalShift
)

const (
	lastFundamental = Variant
	firstDynamic    = Type(256 << fundamentalShift)
)

var fundamentalNames = map[Type]string{
	None:      "void",
	Interface: "GInterface",
	Char:      "gchar",
	UChar:     "guchar",
	Boolean:   "gboolean",
	Int:       "gint",
	UInt:      "guint",
	Long:      "glong",
	ULong:     "gulong",
	Int64:     "gint64",
	UInt64:    "guint64",
	Enum:      "GEnum",
	Flags:     "GFlags",
	Float:     "gfloat",
	Double:    "gdouble",
	String:    "gchararray",
	Pointer:   "gpointer",
	Boxed:     "GBoxed",
	Param:     "GParam",
	Object:    "GObject",
	Variant:   "GVariant",
}

// IsFundamental reports whether t is one of the predefined root types.
func (t Type) IsFundamental() bool {
	return t != Invalid && t <= lastFundamental
}

// Vtable locates a class or interface structure in foreign memory.
type Vtable struct {
	Mem  girepository.Memory
	Addr uint32
}

// IsZero reports whether the vtable has not been set.
func (v Vtable) IsZero() bool {
	return v.Mem == nil || v.Addr == 0
}

type node struct {
	ifaces        map[Type]Vtable
	class         Vtable
	name          string
	prerequisites []Type
	parent        Type
	fundamental   Type
	depth         int
}

// Registry holds registered runtime types.
type Registry struct {
	nodes  map[Type]*node
	byName map[string]Type
	next   Type
	mu     sync.RWMutex
}

// NewRegistry creates a registry pre-populated with the fundamental types.
func NewRegistry() *Registry {
	r := &Registry{
		nodes:  make(map[Type]*node, 64),
		byName: make(map[string]Type, 64),
		next:   firstDynamic,
	}
	for t, name := range fundamentalNames {
		r.nodes[t] = &node{name: name, fundamental: t, depth: 1}
		r.byName[name] = t
	}
	return r
}

// Register derives a new type named name from parent.
func (r *Registry) Register(name string, parent Type) (Type, error) {
	if name == "" {
		return Invalid, errors.InvalidInput(errors.PhaseType, "empty type name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[name]; exists {
		return Invalid, errors.New(errors.PhaseType, errors.KindInvalidInput).
			Detail("type %q already registered", name).
			Build()
	}
	p, ok := r.nodes[parent]
	if !ok {
		return Invalid, errors.New(errors.PhaseType, errors.KindNotFound).
			Detail("parent type %d of %q not registered", parent, name).
			Build()
	}

	t := r.next
	r.next += 1 << fundamentalShift
	r.nodes[t] = &node{
		name:        name,
		parent:      parent,
		fundamental: p.fundamental,
		depth:       p.depth + 1,
	}
	r.byName[name] = t
	return t, nil
}

// RegisterInterface registers an interface type with the given prerequisites.
func (r *Registry) RegisterInterface(name string, prerequisites ...Type) (Type, error) {
	t, err := r.Register(name, Interface)
	if err != nil {
		return Invalid, err
	}
	r.mu.Lock()
	r.nodes[t].prerequisites = append([]Type(nil), prerequisites...)
	r.mu.Unlock()
	return t, nil
}

// SetClass attaches the class structure of an instantiable type.
func (r *Registry) SetClass(t Type, class Vtable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[t]
	if !ok {
		return errors.NotFound(errors.PhaseType, "type", fmt.Sprint(uint64(t)))
	}
	n.class = class
	return nil
}

// AddInterface records that instance implements iface with the given vtable.
func (r *Registry) AddInterface(instance, iface Type, vtable Vtable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[instance]
	if !ok {
		return errors.NotFound(errors.PhaseType, "type", fmt.Sprint(uint64(instance)))
	}
	in, ok := r.nodes[iface]
	if !ok || in.fundamental != Interface {
		return errors.New(errors.PhaseType, errors.KindTypeMismatch).
			Detail("type %d is not a registered interface", iface).
			Build()
	}
	if n.ifaces == nil {
		n.ifaces = make(map[Type]Vtable)
	}
	n.ifaces[iface] = vtable
	return nil
}

// FromName returns the type registered as name, or Invalid.
func (r *Registry) FromName(name string) Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// Name returns the registered name of t, or "" if unknown.
func (r *Registry) Name(t Type) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.nodes[t]; ok {
		return n.name
	}
	return ""
}

// Parent returns the parent of t, or Invalid for fundamentals and unknown types.
func (r *Registry) Parent(t Type) Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.nodes[t]; ok {
		return n.parent
	}
	return Invalid
}

// Fundamental returns the root type t derives from.
func (r *Registry) Fundamental(t Type) Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.nodes[t]; ok {
		return n.fundamental
	}
	return Invalid
}

// Depth returns the length of the inheritance chain of t, counting t.
func (r *Registry) Depth(t Type) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.nodes[t]; ok {
		return n.depth
	}
	return 0
}

// IsA reports whether t is ancestor, derives from it, or implements it.
func (r *Registry) IsA(t, ancestor Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for cur := t; cur != Invalid; {
		if cur == ancestor {
			return true
		}
		n, ok := r.nodes[cur]
		if !ok {
			return false
		}
		if _, ok := n.ifaces[ancestor]; ok {
			return true
		}
		cur = n.parent
	}
	return false
}

// Class returns the class structure of t.
func (r *Registry) Class(t Type) (Vtable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[t]
	if !ok || n.class.IsZero() {
		return Vtable{}, false
	}
	return n.class, true
}

// InterfaceVtable returns the vtable through which instance implements
// iface, searching instance first and then its ancestors.
func (r *Registry) InterfaceVtable(instance, iface Type) (Vtable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for cur := instance; cur != Invalid; {
		n, ok := r.nodes[cur]
		if !ok {
			return Vtable{}, false
		}
		if v, ok := n.ifaces[iface]; ok {
			return v, true
		}
		cur = n.parent
	}
	return Vtable{}, false
}

// Prerequisites returns the prerequisite types of an interface.
func (r *Registry) Prerequisites(iface Type) []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n, ok := r.nodes[iface]; ok {
		return append([]Type(nil), n.prerequisites...)
	}
	return nil
}
