package gi

import (
	"github.com/wippyai/girepository/errors"
	"github.com/wippyai/girepository/gtype"
	"github.com/wippyai/girepository/typelib"
)

// maxAncestry bounds parent walks over malformed, cyclic metadata.
const maxAncestry = 256

// ObjectInfo describes a class.
type ObjectInfo struct {
	RegisteredTypeInfo
}

func (o *ObjectInfo) IsAbstract() bool    { return o.entry().Abstract }
func (o *ObjectInfo) IsFundamental() bool { return o.entry().Fundamental }
func (o *ObjectInfo) IsFinal() bool       { return o.entry().Final }

func (o *ObjectInfo) RefFunction() string      { return o.entry().RefFunction }
func (o *ObjectInfo) UnrefFunction() string    { return o.entry().UnrefFunction }
func (o *ObjectInfo) SetValueFunction() string { return o.entry().SetValueFunction }
func (o *ObjectInfo) GetValueFunction() string { return o.entry().GetValueFunction }

// Parent returns the parent class, nil for root classes. Parents in
// namespaces that are not loaded are returned as *UnresolvedInfo.
func (o *ObjectInfo) Parent() Info {
	return o.h.tl.resolve(o.entry().Parent)
}

// ClassStruct returns the struct describing the class vtable.
func (o *ObjectInfo) ClassStruct() (*StructInfo, bool) {
	return classStruct(o.h.tl, o.entry().ClassStruct)
}

// Interfaces returns the implemented interfaces.
func (o *ObjectInfo) Interfaces() Collection[Info] {
	return refCollection(o.h.tl, o.entry().Interfaces)
}

func (o *ObjectInfo) Fields() Collection[*FieldInfo]        { return o.fields() }
func (o *ObjectInfo) Methods() Collection[*FunctionInfo]    { return o.methods() }
func (o *ObjectInfo) Properties() Collection[*PropertyInfo] { return properties(&o.BaseInfo) }
func (o *ObjectInfo) Signals() Collection[*SignalInfo]      { return signals(&o.BaseInfo) }
func (o *ObjectInfo) VFuncs() Collection[*VFuncInfo]        { return vfuncs(&o.BaseInfo) }
func (o *ObjectInfo) Constants() Collection[*ConstantInfo]  { return constants(&o.BaseInfo) }

func (o *ObjectInfo) FindMethod(name string) (*FunctionInfo, bool) {
	return o.methods().Find(name)
}

func (o *ObjectInfo) FindSignal(name string) (*SignalInfo, bool) {
	return o.Signals().Find(name)
}

func (o *ObjectInfo) FindVFunc(name string) (*VFuncInfo, bool) {
	return o.VFuncs().Find(name)
}

// FindMethodUsingInterfaces looks a method up on the class and then on
// each implemented interface. It returns the info that declares it;
// the caller releases both returned infos. Parent classes are not
// searched.
func (o *ObjectInfo) FindMethodUsingInterfaces(name string) (*FunctionInfo, Info, bool) {
	if m, ok := o.FindMethod(name); ok {
		return m, WrapRetained(o), true
	}
	for _, iface := range o.Interfaces().All() {
		if ii, ok := iface.(*InterfaceInfo); ok {
			if m, ok := ii.FindMethod(name); ok {
				return m, ii, true
			}
		}
		iface.Release()
	}
	return nil, nil, false
}

// FindVFuncUsingInterfaces is FindMethodUsingInterfaces for vfuncs.
func (o *ObjectInfo) FindVFuncUsingInterfaces(name string) (*VFuncInfo, Info, bool) {
	if v, ok := o.FindVFunc(name); ok {
		return v, WrapRetained(o), true
	}
	for _, iface := range o.Interfaces().All() {
		if ii, ok := iface.(*InterfaceInfo); ok {
			if v, ok := ii.FindVFunc(name); ok {
				return v, ii, true
			}
		}
		iface.Release()
	}
	return nil, nil, false
}

// InterfaceInfo describes an interface type.
type InterfaceInfo struct {
	RegisteredTypeInfo
}

// Prerequisites returns the types an implementor must also be.
func (i *InterfaceInfo) Prerequisites() Collection[Info] {
	return refCollection(i.h.tl, i.entry().Prerequisites)
}

// IfaceStruct returns the struct describing the interface vtable.
func (i *InterfaceInfo) IfaceStruct() (*StructInfo, bool) {
	return classStruct(i.h.tl, i.entry().ClassStruct)
}

func (i *InterfaceInfo) Methods() Collection[*FunctionInfo]    { return i.methods() }
func (i *InterfaceInfo) Properties() Collection[*PropertyInfo] { return properties(&i.BaseInfo) }
func (i *InterfaceInfo) Signals() Collection[*SignalInfo]      { return signals(&i.BaseInfo) }
func (i *InterfaceInfo) VFuncs() Collection[*VFuncInfo]        { return vfuncs(&i.BaseInfo) }
func (i *InterfaceInfo) Constants() Collection[*ConstantInfo]  { return constants(&i.BaseInfo) }

func (i *InterfaceInfo) FindMethod(name string) (*FunctionInfo, bool) {
	return i.methods().Find(name)
}

func (i *InterfaceInfo) FindSignal(name string) (*SignalInfo, bool) {
	return i.Signals().Find(name)
}

func (i *InterfaceInfo) FindVFunc(name string) (*VFuncInfo, bool) {
	return i.VFuncs().Find(name)
}

func classStruct(tl *Typelib, ref typelib.Ref) (*StructInfo, bool) {
	info := tl.resolve(ref)
	s, ok := info.(*StructInfo)
	if !ok && info != nil {
		info.Release()
	}
	return s, ok
}

func properties(b *BaseInfo) Collection[*PropertyInfo] {
	return indexCollection[*PropertyInfo](b.h.tl, b.entry().Properties)
}

func signals(b *BaseInfo) Collection[*SignalInfo] {
	return indexCollection[*SignalInfo](b.h.tl, b.entry().Signals)
}

func vfuncs(b *BaseInfo) Collection[*VFuncInfo] {
	return indexCollection[*VFuncInfo](b.h.tl, b.entry().VFuncs)
}

func constants(b *BaseInfo) Collection[*ConstantInfo] {
	return indexCollection[*ConstantInfo](b.h.tl, b.entry().Constants)
}

// Address returns the function pointer stored in the vfunc's slot of
// implementor's class or interface vtable.
//
// The slot is the field of the container's class (or interface) struct
// named like the vfunc. The vtable is looked up in the repository's
// type registry.
func (v *VFuncInfo) Address(implementor gtype.Type) (uint32, error) {
	var (
		container Registered
		vtStruct  *StructInfo
		ok        bool
	)
	parent := v.Container()
	if parent != nil {
		defer parent.Release()
	}
	switch c := parent.(type) {
	case *ObjectInfo:
		container = c
		vtStruct, ok = c.ClassStruct()
	case *InterfaceInfo:
		container = c
		vtStruct, ok = c.IfaceStruct()
	default:
		return 0, errors.ContractViolation(errors.PhaseInvoke, v.String(), "vfunc is not declared on a class or interface")
	}
	if !ok {
		return 0, errors.New(errors.PhaseInvoke, errors.KindSymbolNotFound).
			Info(v.String()).
			Detail("%s has no class struct", container.String()).
			Build()
	}
	defer vtStruct.Release()
	field, ok := vtStruct.FindField(v.Name())
	if !ok {
		return 0, errors.New(errors.PhaseInvoke, errors.KindSymbolNotFound).
			Info(v.String()).
			Detail("no struct field for vfunc in %s", vtStruct.String()).
			Build()
	}
	defer field.Release()

	repo := v.h.tl.repo
	if repo == nil {
		return 0, errors.ContractViolation(errors.PhaseInvoke, v.String(), "typelib is not loaded into a repository")
	}
	reg := repo.registry

	var (
		vt    gtype.Vtable
		found bool
	)
	if _, isIface := container.(*InterfaceInfo); isIface {
		ifaceType := container.RuntimeType()
		if ifaceType == gtype.Invalid {
			return 0, errors.NotFound(errors.PhaseType, "runtime type", container.TypeName())
		}
		vt, found = reg.InterfaceVtable(implementor, ifaceType)
	} else {
		vt, found = reg.Class(implementor)
	}
	if !found {
		return 0, errors.New(errors.PhaseInvoke, errors.KindNotImplemented).
			Info(v.String()).
			Detail("type %s has no vtable for %s", reg.Name(implementor), container.String()).
			Build()
	}

	addr, err := vt.Mem.ReadU32(vt.Addr + field.Offset())
	if err != nil {
		return 0, errors.Wrap(errors.PhaseInvoke, errors.KindOutOfBounds, err, "read vtable slot")
	}
	if addr == 0 {
		return 0, errors.New(errors.PhaseInvoke, errors.KindNotImplemented).
			Info(v.String()).
			Detail("Class %s doesn't implement %s", reg.Name(implementor), v.Name()).
			Build()
	}
	return addr, nil
}

// FindRefFunction returns the ref function of the class or its nearest
// loaded ancestor declaring one.
func (o *ObjectInfo) FindRefFunction() (string, bool) {
	return o.findInherited(func(e *ObjectInfo) string { return e.RefFunction() })
}

func (o *ObjectInfo) FindUnrefFunction() (string, bool) {
	return o.findInherited(func(e *ObjectInfo) string { return e.UnrefFunction() })
}

func (o *ObjectInfo) FindSetValueFunction() (string, bool) {
	return o.findInherited(func(e *ObjectInfo) string { return e.SetValueFunction() })
}

func (o *ObjectInfo) FindGetValueFunction() (string, bool) {
	return o.findInherited(func(e *ObjectInfo) string { return e.GetValueFunction() })
}

func (o *ObjectInfo) findInherited(get func(*ObjectInfo) string) (string, bool) {
	if s := get(o); s != "" {
		return s, true
	}
	parent := o.Parent()
	for depth := 1; parent != nil && depth < maxAncestry; depth++ {
		cur, ok := parent.(*ObjectInfo)
		if !ok {
			break
		}
		if s := get(cur); s != "" {
			cur.Release()
			return s, true
		}
		parent = cur.Parent()
		cur.Release()
	}
	if parent != nil {
		parent.Release()
	}
	return "", false
}
