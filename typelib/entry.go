package typelib

import "strings"

// None marks an absent entry index.
const None = -1

// Ref names a registered type that may live in another namespace.
type Ref struct {
	Namespace string
	Name      string
}

// ParseRef splits "Namespace.Name". A bare name keeps an empty namespace,
// which resolves against the referencing typelib.
func ParseRef(s string) Ref {
	if ns, name, ok := strings.Cut(s, "."); ok {
		return Ref{Namespace: ns, Name: name}
	}
	return Ref{Name: s}
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.Name == ""
}

func (r Ref) String() string {
	if r.Namespace == "" {
		return r.Name
	}
	return r.Namespace + "." + r.Name
}

// Attribute is a free-form annotation attached to an entry.
type Attribute struct {
	Name  string
	Value string
}

// Entry is one decoded metadata record. Fields that do not apply to the
// entry's kind hold their zero value, or None for indices.
//
// Index fields (Container, Args, Return, Type, ...) address other entries
// of the same typelib.
type Entry struct {
	Name       string
	Attributes []Attribute
	Container  int
	Kind       InfoKind
	Deprecated bool

	// Flags holds FunctionFlags, VFuncFlags, SignalFlags, FieldFlags or
	// ParamFlags depending on Kind.
	Flags uint32

	// Registered types.
	TypeName string
	TypeInit string

	// Callables.
	Symbol           string
	Args             []int
	Return           int
	ReturnTransfer   Transfer
	InstanceTransfer Transfer
	MayReturnNull    bool
	SkipReturn       bool
	Property         int // function: property it gets or sets
	VFunc            int // function: vfunc it wraps
	Signal           int // vfunc: signal it is the class closure of
	Invoker          int // vfunc: function that invokes it
	ClassClosure     int // signal: vfunc run as class closure
	TrueStopsEmit    bool

	// Arguments.
	Direction       Direction
	Transfer        Transfer // also property ownership
	Scope           ScopeType
	Nullable        bool
	CallerAllocates bool
	Optional        bool
	ReturnValue     bool
	Skip            bool
	Closure         int
	Destroy         int

	// Type is the TypeInfo entry of an arg, field, property or constant.
	Type int

	// Types.
	Tag            TypeTag
	Pointer        bool
	Interface      Ref
	Params         []int
	ArrayLength    int
	ArrayFixedSize int
	ZeroTerminated bool
	ArrayType      ArrayType

	// Layout. Offset is a byte offset for fields and vfunc slots; Size is
	// the byte size of compounds, or the bit width of a bitfield.
	Offset    uint32
	Size      uint32
	Alignment uint32

	// Structs and unions.
	GTypeStruct         bool
	Foreign             bool
	Fields              []int
	Methods             []int
	Discriminated       bool
	DiscriminatorOffset uint32
	DiscriminatorType   int
	Discriminators      []int // constant per field

	// Enums and flags.
	Values      []int
	StorageType TypeTag
	ErrorDomain string

	// Objects and interfaces.
	Abstract         bool
	Fundamental      bool
	Final            bool
	Parent           Ref
	ClassStruct      Ref // class struct of objects, iface struct of interfaces
	Interfaces       []Ref
	Prerequisites    []Ref
	Properties       []int
	Signals          []int
	VFuncs           []int
	Constants        []int
	RefFunction      string
	UnrefFunction    string
	SetValueFunction string
	GetValueFunction string

	// Properties.
	Getter string
	Setter string

	// Constants and enum values. Value holds the raw bits of the
	// constant, or the sign-extended value of an enum member.
	Value       uint64
	StringValue string
}

// NewEntry returns an entry of kind with every index field set to None.
func NewEntry(kind InfoKind, name string) Entry {
	return Entry{
		Kind:              kind,
		Name:              name,
		Container:         None,
		Return:            None,
		Property:          None,
		VFunc:             None,
		Signal:            None,
		Invoker:           None,
		ClassClosure:      None,
		Closure:           None,
		Destroy:           None,
		Type:              None,
		ArrayLength:       None,
		ArrayFixedSize:    None,
		DiscriminatorType: None,
	}
}

// Attribute returns the value of the named attribute.
func (e *Entry) Attribute(name string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// link is an index field together with the kind its target must have.
// KindInvalid accepts any kind.
type link struct {
	index int
	kind  InfoKind
}

func (e *Entry) links() []link {
	out := []link{
		{e.Container, KindInvalid},
		{e.Return, KindType},
		{e.Property, KindProperty},
		{e.VFunc, KindVFunc},
		{e.Signal, KindSignal},
		{e.Invoker, KindFunction},
		{e.ClassClosure, KindVFunc},
		{e.Type, KindType},
		{e.DiscriminatorType, KindType},
	}
	for _, list := range []struct {
		indices []int
		kind    InfoKind
	}{
		{e.Args, KindArg},
		{e.Params, KindType},
		{e.Fields, KindField},
		{e.Methods, KindFunction},
		{e.Discriminators, KindConstant},
		{e.Values, KindValue},
		{e.Properties, KindProperty},
		{e.Signals, KindSignal},
		{e.VFuncs, KindVFunc},
		{e.Constants, KindConstant},
	} {
		for _, idx := range list.indices {
			out = append(out, link{idx, list.kind})
		}
	}
	return out
}
