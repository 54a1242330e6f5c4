package typelib

import (
	"strconv"
	"strings"
)

// InfoKind discriminates typelib entries.
type InfoKind uint8

const (
	KindInvalid InfoKind = iota
	KindFunction
	KindCallback
	KindStruct
	KindBoxed
	KindEnum
	KindFlags
	KindObject
	KindInterface
	KindConstant
	kindReserved // never emitted
	KindUnion
	KindValue
	KindSignal
	KindVFunc
	KindProperty
	KindField
	KindArg
	KindType
	KindUnresolved
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindFunction:   "function",
	KindCallback:   "callback",
	KindStruct:     "struct",
	KindBoxed:      "boxed",
	KindEnum:       "enum",
	KindFlags:      "flags",
	KindObject:     "object",
	KindInterface:  "interface",
	KindConstant:   "constant",
	kindReserved:   "invalid",
	KindUnion:      "union",
	KindValue:      "value",
	KindSignal:     "signal",
	KindVFunc:      "vfunc",
	KindProperty:   "property",
	KindField:      "field",
	KindArg:        "arg",
	KindType:       "type",
	KindUnresolved: "unresolved",
}

func (k InfoKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Valid reports whether k is a member of the closed kind set.
func (k InfoKind) Valid() bool {
	return k <= KindUnresolved && k != kindReserved
}

// IsRegisteredType reports whether entries of kind k register with the runtime type system.
func (k InfoKind) IsRegisteredType() bool {
	switch k {
	case KindStruct, KindBoxed, KindUnion, KindEnum, KindFlags, KindInterface, KindObject:
		return true
	}
	return false
}

// IsCallable reports whether entries of kind k carry a signature.
func (k InfoKind) IsCallable() bool {
	switch k {
	case KindFunction, KindCallback, KindSignal, KindVFunc:
		return true
	}
	return false
}

// ParseKind returns the kind named s.
func ParseKind(s string) (InfoKind, bool) {
	for i, n := range kindNames {
		if n == s && InfoKind(i) != kindReserved {
			return InfoKind(i), true
		}
	}
	return KindInvalid, false
}

// TypeTag identifies the wire representation of a type.
type TypeTag uint8

const (
	TagVoid TypeTag = iota
	TagBoolean
	TagInt8
	TagUInt8
	TagInt16
	TagUInt16
	TagInt32
	TagUInt32
	TagInt64
	TagUInt64
	TagFloat
	TagDouble
	TagGType
	TagUTF8
	TagFilename
	TagArray
	TagInterface
	TagGList
	TagGSList
	TagGHash
	TagError
	TagUniChar
)

var tagNames = [...]string{
	TagVoid:      "void",
	TagBoolean:   "boolean",
	TagInt8:      "int8",
	TagUInt8:     "uint8",
	TagInt16:     "int16",
	TagUInt16:    "uint16",
	TagInt32:     "int32",
	TagUInt32:    "uint32",
	TagInt64:     "int64",
	TagUInt64:    "uint64",
	TagFloat:     "float",
	TagDouble:    "double",
	TagGType:     "GType",
	TagUTF8:      "utf8",
	TagFilename:  "filename",
	TagArray:     "array",
	TagInterface: "interface",
	TagGList:     "GList",
	TagGSList:    "GSList",
	TagGHash:     "GHash",
	TagError:     "GError",
	TagUniChar:   "gunichar",
}

func (t TypeTag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "tag(" + strconv.Itoa(int(t)) + ")"
}

// Valid reports whether t is a member of the closed tag set.
func (t TypeTag) Valid() bool {
	return t <= TagUniChar
}

// IsBasic reports whether values of t are scalars or strings.
func (t TypeTag) IsBasic() bool {
	return t < TagArray || t == TagUniChar
}

// IsNumeric reports whether t is an integer or floating point tag.
func (t TypeTag) IsNumeric() bool {
	return t >= TagInt8 && t <= TagDouble
}

// IsContainer reports whether t holds other typed values.
func (t TypeTag) IsContainer() bool {
	switch t {
	case TagArray, TagGList, TagGSList, TagGHash:
		return true
	}
	return false
}

// ParseTag returns the tag named s. C spellings of the scalar types are accepted.
func ParseTag(s string) (TypeTag, bool) {
	for i, n := range tagNames {
		if n == s {
			return TypeTag(i), true
		}
	}
	if t, ok := cTagNames[s]; ok {
		return t, true
	}
	return TagVoid, false
}

var cTagNames = map[string]TypeTag{
	"none":     TagVoid,
	"gpointer": TagVoid,
	"gboolean": TagBoolean,
	"bool":     TagBoolean,
	"gint8":    TagInt8,
	"guint8":   TagUInt8,
	"gint16":   TagInt16,
	"guint16":  TagUInt16,
	"gint":     TagInt32,
	"gint32":   TagInt32,
	"guint":    TagUInt32,
	"guint32":  TagUInt32,
	"gint64":   TagInt64,
	"guint64":  TagUInt64,
	"gfloat":   TagFloat,
	"gdouble":  TagDouble,
	"gtype":    TagGType,
	"error":    TagError,
	"unichar":  TagUniChar,
}

// Direction of an argument relative to the callee.
type Direction uint8

const (
	DirectionIn Direction = iota
	DirectionOut
	DirectionInOut
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	case DirectionInOut:
		return "inout"
	}
	return "direction(" + strconv.Itoa(int(d)) + ")"
}

// Transfer describes who owns a value after it crosses a call boundary.
type Transfer uint8

const (
	TransferNothing Transfer = iota
	TransferContainer
	TransferEverything
)

func (t Transfer) String() string {
	switch t {
	case TransferNothing:
		return "none"
	case TransferContainer:
		return "container"
	case TransferEverything:
		return "full"
	}
	return "transfer(" + strconv.Itoa(int(t)) + ")"
}

// ScopeType is the lifetime of a callback argument.
type ScopeType uint8

const (
	ScopeInvalid ScopeType = iota
	ScopeCall
	ScopeAsync
	ScopeNotified
	ScopeForever
)

func (s ScopeType) String() string {
	switch s {
	case ScopeInvalid:
		return "invalid"
	case ScopeCall:
		return "call"
	case ScopeAsync:
		return "async"
	case ScopeNotified:
		return "notified"
	case ScopeForever:
		return "forever"
	}
	return "scope(" + strconv.Itoa(int(s)) + ")"
}

// ArrayType is the container flavour of an array type.
type ArrayType uint8

const (
	ArrayC ArrayType = iota
	ArrayArray
	ArrayPtrArray
	ArrayByteArray
)

func (a ArrayType) String() string {
	switch a {
	case ArrayC:
		return "c"
	case ArrayArray:
		return "GArray"
	case ArrayPtrArray:
		return "GPtrArray"
	case ArrayByteArray:
		return "GByteArray"
	}
	return "array(" + strconv.Itoa(int(a)) + ")"
}

// FunctionFlags describe a function entry.
type FunctionFlags uint32

const (
	FunctionIsMethod FunctionFlags = 1 << iota
	FunctionIsConstructor
	FunctionIsGetter
	FunctionIsSetter
	FunctionWrapsVFunc
	FunctionThrows
)

func (f FunctionFlags) Has(flag FunctionFlags) bool { return f&flag == flag }

func (f FunctionFlags) String() string {
	return flagString(uint32(f), []string{"method", "constructor", "getter", "setter", "wraps-vfunc", "throws"})
}

// VFuncFlags describe a virtual function slot.
type VFuncFlags uint32

const (
	VFuncMustChainUp VFuncFlags = 1 << iota
	VFuncMustOverride
	VFuncMustNotOverride
	VFuncThrows
)

func (f VFuncFlags) Has(flag VFuncFlags) bool { return f&flag == flag }

func (f VFuncFlags) String() string {
	return flagString(uint32(f), []string{"must-chain-up", "must-override", "must-not-override", "throws"})
}

// FieldFlags describe raw access permissions of a field.
type FieldFlags uint32

const (
	FieldReadable FieldFlags = 1 << iota
	FieldWritable
)

func (f FieldFlags) Has(flag FieldFlags) bool { return f&flag == flag }

func (f FieldFlags) String() string {
	return flagString(uint32(f), []string{"readable", "writable"})
}

// ParamFlags describe a property.
type ParamFlags uint32

const (
	ParamReadable ParamFlags = 1 << iota
	ParamWritable
	ParamConstruct
	ParamConstructOnly
	ParamLaxValidation
	ParamStaticName
	ParamStaticNick
	ParamStaticBlurb
)

const (
	ParamExplicitNotify ParamFlags = 1 << 30
	ParamDeprecated     ParamFlags = 1 << 31
)

func (f ParamFlags) Has(flag ParamFlags) bool { return f&flag == flag }

func (f ParamFlags) String() string {
	names := make([]string, 32)
	copy(names, []string{"readable", "writable", "construct", "construct-only", "lax-validation", "static-name", "static-nick", "static-blurb"})
	names[30] = "explicit-notify"
	names[31] = "deprecated"
	return flagString(uint32(f), names)
}

// SignalFlags describe a signal.
type SignalFlags uint32

const (
	SignalRunFirst SignalFlags = 1 << iota
	SignalRunLast
	SignalRunCleanup
	SignalNoRecurse
	SignalDetailed
	SignalAction
	SignalNoHooks
	SignalMustCollect
	SignalDeprecated
)

func (f SignalFlags) Has(flag SignalFlags) bool { return f&flag == flag }

func (f SignalFlags) String() string {
	return flagString(uint32(f), signalFlagNames)
}

func flagString(v uint32, names []string) string {
	if v == 0 {
		return "none"
	}
	var parts []string
	for i := 0; i < 32; i++ {
		bit := uint32(1) << i
		if v&bit == 0 {
			continue
		}
		if i < len(names) && names[i] != "" {
			parts = append(parts, names[i])
		} else {
			parts = append(parts, "0x"+strconv.FormatUint(uint64(bit), 16))
		}
	}
	return strings.Join(parts, "|")
}

// LoadFlags control how a typelib is loaded.
type LoadFlags uint8

const (
	LoadFlagNone LoadFlags = 0
	// LoadFlagLazy decodes entry bodies on first access instead of at load.
	LoadFlagLazy LoadFlags = 1 << 0
)

func (f LoadFlags) Has(flag LoadFlags) bool { return f&flag == flag }
