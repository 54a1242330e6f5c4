package gi

import "github.com/wippyai/girepository/typelib"

// Enumerations shared with the typelib format.
type (
	InfoKind      = typelib.InfoKind
	TypeTag       = typelib.TypeTag
	Direction     = typelib.Direction
	Transfer      = typelib.Transfer
	ScopeType     = typelib.ScopeType
	ArrayType     = typelib.ArrayType
	FunctionFlags = typelib.FunctionFlags
	VFuncFlags    = typelib.VFuncFlags
	FieldFlags    = typelib.FieldFlags
	ParamFlags    = typelib.ParamFlags
	SignalFlags   = typelib.SignalFlags
	LoadFlags     = typelib.LoadFlags
)

const (
	KindInvalid    = typelib.KindInvalid
	KindFunction   = typelib.KindFunction
	KindCallback   = typelib.KindCallback
	KindStruct     = typelib.KindStruct
	KindBoxed      = typelib.KindBoxed
	KindEnum       = typelib.KindEnum
	KindFlags      = typelib.KindFlags
	KindObject     = typelib.KindObject
	KindInterface  = typelib.KindInterface
	KindConstant   = typelib.KindConstant
	KindUnion      = typelib.KindUnion
	KindValue      = typelib.KindValue
	KindSignal     = typelib.KindSignal
	KindVFunc      = typelib.KindVFunc
	KindProperty   = typelib.KindProperty
	KindField      = typelib.KindField
	KindArg        = typelib.KindArg
	KindType       = typelib.KindType
	KindUnresolved = typelib.KindUnresolved
)

const (
	LoadFlagNone = typelib.LoadFlagNone
	LoadFlagLazy = typelib.LoadFlagLazy
)
