package gi

import "github.com/wippyai/girepository/typelib"

// Callable is implemented by functions, callbacks, signals and vfuncs.
type Callable interface {
	Info
	Args() Collection[*ArgInfo]
	// ReturnType returns nil for callables returning void.
	ReturnType() *TypeInfo
	ReturnTransfer() Transfer
	InstanceTransfer() Transfer
	MayReturnNull() bool
	SkipReturn() bool
	IsMethod() bool
	CanThrow() bool
}

// CallableInfo holds what functions, callbacks, signals and vfuncs share.
type CallableInfo struct {
	BaseInfo
}

func (c *CallableInfo) Args() Collection[*ArgInfo] {
	return indexCollection[*ArgInfo](c.h.tl, c.entry().Args)
}

func (c *CallableInfo) ReturnType() *TypeInfo {
	t, _ := c.child(c.entry().Return).(*TypeInfo)
	return t
}

func (c *CallableInfo) ReturnTransfer() Transfer   { return c.entry().ReturnTransfer }
func (c *CallableInfo) InstanceTransfer() Transfer { return c.entry().InstanceTransfer }
func (c *CallableInfo) MayReturnNull() bool        { return c.entry().MayReturnNull }
func (c *CallableInfo) SkipReturn() bool           { return c.entry().SkipReturn }

// IsMethod reports whether the callable takes an instance as its first
// foreign argument. Signals and vfuncs always do.
func (c *CallableInfo) IsMethod() bool {
	switch c.Kind() {
	case KindFunction:
		return FunctionFlags(c.entry().Flags).Has(typelib.FunctionIsMethod)
	case KindSignal, KindVFunc:
		return true
	}
	return false
}

// CanThrow reports whether the callable reports failures through a
// trailing error out-parameter.
func (c *CallableInfo) CanThrow() bool {
	switch c.Kind() {
	case KindFunction, KindCallback:
		return FunctionFlags(c.entry().Flags).Has(typelib.FunctionThrows)
	case KindVFunc:
		return VFuncFlags(c.entry().Flags).Has(typelib.VFuncThrows)
	}
	return false
}

// FunctionInfo is a callable with a foreign symbol.
type FunctionInfo struct {
	CallableInfo
}

func (f *FunctionInfo) Symbol() string       { return f.entry().Symbol }
func (f *FunctionInfo) Flags() FunctionFlags { return FunctionFlags(f.entry().Flags) }
func (f *FunctionInfo) IsConstructor() bool  { return f.Flags().Has(typelib.FunctionIsConstructor) }
func (f *FunctionInfo) IsGetter() bool       { return f.Flags().Has(typelib.FunctionIsGetter) }
func (f *FunctionInfo) IsSetter() bool       { return f.Flags().Has(typelib.FunctionIsSetter) }
func (f *FunctionInfo) WrapsVFunc() bool     { return f.Flags().Has(typelib.FunctionWrapsVFunc) }

// Property returns the property this function gets or sets.
func (f *FunctionInfo) Property() (*PropertyInfo, bool) {
	p, ok := f.child(f.entry().Property).(*PropertyInfo)
	return p, ok
}

// VFunc returns the virtual function this function wraps.
func (f *FunctionInfo) VFunc() (*VFuncInfo, bool) {
	v, ok := f.child(f.entry().VFunc).(*VFuncInfo)
	return v, ok
}

// CallbackInfo describes a function pointer type.
type CallbackInfo struct {
	CallableInfo
}

// SignalInfo describes a signal of an object or interface.
type SignalInfo struct {
	CallableInfo
}

func (s *SignalInfo) Flags() SignalFlags  { return SignalFlags(s.entry().Flags) }
func (s *SignalInfo) TrueStopsEmit() bool { return s.entry().TrueStopsEmit }

// ClassClosure returns the vfunc run as the signal's class closure.
func (s *SignalInfo) ClassClosure() (*VFuncInfo, bool) {
	v, ok := s.child(s.entry().ClassClosure).(*VFuncInfo)
	return v, ok
}

// VFuncInfo describes a virtual function slot of a class or interface.
type VFuncInfo struct {
	CallableInfo
}

func (v *VFuncInfo) Flags() VFuncFlags { return VFuncFlags(v.entry().Flags) }

// Offset returns the byte offset of the slot in the class structure as
// recorded in the typelib.
func (v *VFuncInfo) Offset() uint32 { return v.entry().Offset }

// Signal returns the signal this vfunc is the class closure of.
func (v *VFuncInfo) Signal() (*SignalInfo, bool) {
	s, ok := v.child(v.entry().Signal).(*SignalInfo)
	return s, ok
}

// Invoker returns the method that calls this vfunc.
func (v *VFuncInfo) Invoker() (*FunctionInfo, bool) {
	f, ok := v.child(v.entry().Invoker).(*FunctionInfo)
	return f, ok
}

// ArgInfo describes one declared argument of a callable.
type ArgInfo struct {
	BaseInfo
}

func (a *ArgInfo) Direction() Direction    { return a.entry().Direction }
func (a *ArgInfo) Transfer() Transfer      { return a.entry().Transfer }
func (a *ArgInfo) Scope() ScopeType        { return a.entry().Scope }
func (a *ArgInfo) MayBeNull() bool         { return a.entry().Nullable }
func (a *ArgInfo) IsCallerAllocates() bool { return a.entry().CallerAllocates }
func (a *ArgInfo) IsOptional() bool        { return a.entry().Optional }
func (a *ArgInfo) IsReturnValue() bool     { return a.entry().ReturnValue }
func (a *ArgInfo) IsSkip() bool            { return a.entry().Skip }

// Closure returns the index of the user-data argument, or -1.
func (a *ArgInfo) Closure() int { return a.entry().Closure }

// Destroy returns the index of the destroy-notify argument, or -1.
func (a *ArgInfo) Destroy() int { return a.entry().Destroy }

func (a *ArgInfo) Type() *TypeInfo {
	t, _ := a.child(a.entry().Type).(*TypeInfo)
	return t
}

// TypeInfo describes the type of an argument, return value, field,
// property or constant.
type TypeInfo struct {
	BaseInfo
}

func (t *TypeInfo) Tag() TypeTag           { return t.entry().Tag }
func (t *TypeInfo) IsPointer() bool        { return t.entry().Pointer }
func (t *TypeInfo) ArrayType() ArrayType   { return t.entry().ArrayType }
func (t *TypeInfo) IsZeroTerminated() bool { return t.entry().ZeroTerminated }

// ArrayLength returns the index of the argument holding the array
// length, or -1.
func (t *TypeInfo) ArrayLength() int { return t.entry().ArrayLength }

// ArrayFixedSize returns the fixed element count, or -1.
func (t *TypeInfo) ArrayFixedSize() int { return t.entry().ArrayFixedSize }

// Params returns the element types of containers.
func (t *TypeInfo) Params() Collection[*TypeInfo] {
	return indexCollection[*TypeInfo](t.h.tl, t.entry().Params)
}

// ParamType returns the n-th element type.
func (t *TypeInfo) ParamType(n int) (*TypeInfo, bool) {
	params := t.entry().Params
	if n < 0 || n >= len(params) {
		return nil, false
	}
	p, ok := t.child(params[n]).(*TypeInfo)
	return p, ok
}

// Interface resolves the registered type an interface-tagged type
// refers to. It returns nil for other tags.
func (t *TypeInfo) Interface() Info {
	e := t.entry()
	if e.Tag != typelib.TagInterface || t.h.tl == nil {
		return nil
	}
	return t.h.tl.resolve(e.Interface)
}

// InterfaceName returns the qualified name of the referenced type.
func (t *TypeInfo) InterfaceName() string {
	r := t.entry().Interface
	if r.Namespace == "" && !r.IsZero() {
		r.Namespace = t.Namespace()
	}
	return r.String()
}

// StorageTag returns the tag values of this type are stored as: the
// storage type of enums and flags, TagVoid for other pointers to
// registered types, and Tag otherwise.
func (t *TypeInfo) StorageTag() TypeTag {
	e := t.entry()
	if e.Tag != typelib.TagInterface {
		return e.Tag
	}
	if e.Pointer {
		return typelib.TagVoid
	}
	iface := t.Interface()
	if iface == nil {
		return typelib.TagInterface
	}
	defer iface.Release()
	if en, ok := iface.(*EnumInfo); ok {
		return en.StorageType()
	}
	return typelib.TagInterface
}
