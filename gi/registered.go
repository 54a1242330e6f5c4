package gi

import (
	"go.uber.org/zap"

	"github.com/wippyai/girepository/gtype"
	"github.com/wippyai/girepository/typelib"
)

// Registered is implemented by infos that name a runtime type: structs,
// unions, enums, flags, objects and interfaces.
type Registered interface {
	Info
	TypeName() string
	TypeInit() string
	RuntimeType() gtype.Type
}

// TypeInitializer resolves the runtime type of a registered type whose
// name is not yet known to the type registry, typically by calling its
// type-init function.
type TypeInitializer func(info Registered) (gtype.Type, error)

// RegisteredTypeInfo holds what registered types share.
type RegisteredTypeInfo struct {
	BaseInfo
}

// TypeName returns the runtime type name, "" for plain C types.
func (r *RegisteredTypeInfo) TypeName() string { return r.entry().TypeName }

// TypeInit returns the symbol of the function registering the type.
func (r *RegisteredTypeInfo) TypeInit() string { return r.entry().TypeInit }

// RuntimeType returns the runtime type identifier. Types without a type
// name map to gtype.None. Unknown names are resolved through the
// repository's type initializer; gtype.Invalid is returned when that
// fails.
func (r *RegisteredTypeInfo) RuntimeType() gtype.Type {
	name := r.TypeName()
	if name == "" {
		return gtype.None
	}
	repo := r.h.tl.repo
	if repo == nil {
		return gtype.Invalid
	}
	if t := repo.registry.FromName(name); t != gtype.Invalid {
		return t
	}
	init := repo.typeInitializer()
	if init == nil || r.TypeInit() == "" {
		return gtype.Invalid
	}
	t, err := init(r.self())
	if err != nil {
		repo.log.Warn("type init failed",
			zap.String("type", name),
			zap.String("symbol", r.TypeInit()),
			zap.Error(err))
		return gtype.Invalid
	}
	return t
}

// self returns the concrete view so initializers can type-switch on it.
func (r *RegisteredTypeInfo) self() Registered {
	reg, _ := view(r.h).(Registered)
	return reg
}

func (r *RegisteredTypeInfo) methods() Collection[*FunctionInfo] {
	return indexCollection[*FunctionInfo](r.h.tl, r.entry().Methods)
}

func (r *RegisteredTypeInfo) fields() Collection[*FieldInfo] {
	return indexCollection[*FieldInfo](r.h.tl, r.entry().Fields)
}

// StructInfo describes a struct or boxed type.
type StructInfo struct {
	RegisteredTypeInfo
}

func (s *StructInfo) Size() uint32        { return s.entry().Size }
func (s *StructInfo) Alignment() uint32   { return s.entry().Alignment }
func (s *StructInfo) IsGTypeStruct() bool { return s.entry().GTypeStruct }
func (s *StructInfo) IsForeign() bool     { return s.entry().Foreign }
func (s *StructInfo) IsBoxed() bool       { return s.Kind() == KindBoxed }

func (s *StructInfo) Fields() Collection[*FieldInfo]     { return s.fields() }
func (s *StructInfo) Methods() Collection[*FunctionInfo] { return s.methods() }

func (s *StructInfo) FindField(name string) (*FieldInfo, bool) {
	return s.fields().Find(name)
}

func (s *StructInfo) FindMethod(name string) (*FunctionInfo, bool) {
	return s.methods().Find(name)
}

// UnionInfo describes a union, optionally discriminated by a tag field
// stored alongside it.
type UnionInfo struct {
	RegisteredTypeInfo
}

func (u *UnionInfo) Size() uint32          { return u.entry().Size }
func (u *UnionInfo) Alignment() uint32     { return u.entry().Alignment }
func (u *UnionInfo) IsDiscriminated() bool { return u.entry().Discriminated }

func (u *UnionInfo) Fields() Collection[*FieldInfo]     { return u.fields() }
func (u *UnionInfo) Methods() Collection[*FunctionInfo] { return u.methods() }

func (u *UnionInfo) FindField(name string) (*FieldInfo, bool) {
	return u.fields().Find(name)
}

func (u *UnionInfo) FindMethod(name string) (*FunctionInfo, bool) {
	return u.methods().Find(name)
}

// EnumInfo describes an enumeration or a flags type.
type EnumInfo struct {
	RegisteredTypeInfo
}

func (e *EnumInfo) IsFlags() bool                      { return e.Kind() == KindFlags }
func (e *EnumInfo) StorageType() TypeTag               { return e.entry().StorageType }
func (e *EnumInfo) Methods() Collection[*FunctionInfo] { return e.methods() }
func (e *EnumInfo) Values() Collection[*ValueInfo]     { return indexCollection[*ValueInfo](e.h.tl, e.entry().Values) }

// ErrorDomain returns the error domain quark string, "" when the enum
// is not an error domain.
func (e *EnumInfo) ErrorDomain() string { return e.entry().ErrorDomain }

func (e *EnumInfo) FindMethod(name string) (*FunctionInfo, bool) {
	return e.methods().Find(name)
}

// FindValue returns the first member with the given numeric value.
func (e *EnumInfo) FindValue(v int64) (*ValueInfo, bool) {
	raw := e.raw()
	for _, idx := range e.entry().Values {
		if int64(raw.MustEntry(idx).Value) == v {
			return newInfo(e.h.tl, idx).(*ValueInfo), true
		}
	}
	return nil, false
}

// ValueInfo is one member of an enum or flags type.
type ValueInfo struct {
	BaseInfo
}

// Value returns the member's value, sign-extended.
func (v *ValueInfo) Value() int64 { return int64(v.entry().Value) }

// ConstantInfo describes a named constant.
type ConstantInfo struct {
	BaseInfo
}

func (c *ConstantInfo) Type() *TypeInfo {
	t, _ := c.child(c.entry().Type).(*TypeInfo)
	return t
}

// Value returns the constant as an argument of its type tag. String
// constants are available through StringValue.
func (c *ConstantInfo) Value() Argument {
	e := c.entry()
	tag, ptr := typelib.TagVoid, false
	if t := c.peek(e.Type); t != nil {
		tag, ptr = t.Tag, t.Pointer
	}
	return ArgumentFromBits(tag, ptr, e.Value)
}

// StringValue returns the value of utf8 and filename constants.
func (c *ConstantInfo) StringValue() (string, bool) {
	if t := c.peek(c.entry().Type); t == nil || (t.Tag != typelib.TagUTF8 && t.Tag != typelib.TagFilename) {
		return "", false
	}
	return c.entry().StringValue, true
}

// PropertyInfo describes a property of an object or interface.
type PropertyInfo struct {
	BaseInfo
}

func (p *PropertyInfo) Flags() ParamFlags  { return ParamFlags(p.entry().Flags) }
func (p *PropertyInfo) Transfer() Transfer { return p.entry().Transfer }

func (p *PropertyInfo) Type() *TypeInfo {
	t, _ := p.child(p.entry().Type).(*TypeInfo)
	return t
}

// Getter returns the method reading the property.
func (p *PropertyInfo) Getter() (*FunctionInfo, bool) {
	return p.accessor(p.entry().Getter)
}

// Setter returns the method writing the property.
func (p *PropertyInfo) Setter() (*FunctionInfo, bool) {
	return p.accessor(p.entry().Setter)
}

func (p *PropertyInfo) accessor(name string) (*FunctionInfo, bool) {
	if name == "" {
		return nil, false
	}
	container := p.Container()
	if container == nil {
		return nil, false
	}
	defer container.Release()
	switch c := container.(type) {
	case *ObjectInfo:
		return c.FindMethod(name)
	case *InterfaceInfo:
		return c.FindMethod(name)
	}
	return nil, false
}
